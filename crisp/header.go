package crisp

import (
	"fmt"
	"strings"
)

// Header holds observation metadata as read from the file. FITS files
// populate it with card values keyed by keyword; zarr stores populate it
// with the attribute convention (time_obs, date_obs, crval, dimensions,
// element, pixel_scale). Accessors try the FITS keyword first and fall back
// to the attribute name, so callers never care which kind of file the data
// came from.
type Header map[string]any

// Date returns the observation date, ISO formatted.
func (h Header) Date() string {
	if v, ok := h.str("DATE-AVG"); ok {
		if i := strings.IndexByte(v, 'T'); i >= 0 {
			return v[:i]
		}
		return v
	}
	v, _ := h.str("date_obs")
	return v
}

// Time returns the observation time of day.
func (h Header) Time() string {
	if v, ok := h.str("DATE-AVG"); ok {
		if i := strings.IndexByte(v, 'T'); i >= 0 {
			return v[i+1:]
		}
		return ""
	}
	v, _ := h.str("time_obs")
	return v
}

// Line returns the name of the observed spectral line.
func (h Header) Line() string {
	if v, ok := h.str("WDESC1"); ok {
		return v
	}
	v, _ := h.str("element")
	return v
}

// CentreWavelength returns the line centre wavelength in Å.
func (h Header) CentreWavelength() (float64, bool) {
	if v, ok := h.float("TWAVE1"); ok {
		return v, true
	}
	if crval, ok := h.floats("crval"); ok && len(crval) >= 3 {
		return crval[len(crval)-3], true
	}
	return 0, false
}

// SampleCount returns the number of spectral sample points.
func (h Header) SampleCount() (int, bool) {
	if v, ok := h.int("WWIDTH1"); ok {
		return v, true
	}
	if dims, ok := h.ints("dimensions"); ok && len(dims) >= 3 {
		return dims[len(dims)-3], true
	}
	return 0, false
}

// Pointing returns the telescope pointing in Helioprojective arcsec.
func (h Header) Pointing() (x, y float64, ok bool) {
	cx, okx := h.float("CRVAL1")
	cy, oky := h.float("CRVAL2")
	if okx && oky {
		return cx, cy, true
	}
	if crval, ok := h.floats("crval"); ok && len(crval) >= 2 {
		return crval[len(crval)-1], crval[len(crval)-2], true
	}
	return 0, 0, false
}

// Shape returns the data dimensions in array order.
func (h Header) Shape() []int {
	if naxis, ok := h.int("NAXIS"); ok {
		out := make([]int, naxis)
		for n := 1; n <= naxis; n++ {
			out[naxis-n], _ = h.int(fmt.Sprintf("NAXIS%d", n))
		}
		return out
	}
	dims, _ := h.ints("dimensions")
	return dims
}

// PixelScale returns the spatial plate scale in arcsec per pixel.
func (h Header) PixelScale() (float64, bool) {
	if v, ok := h.float("CDELT1"); ok {
		return v, true
	}
	return h.float("pixel_scale")
}

// SpectralDelta returns the wavelength step in Å, meaningful only for
// uniformly sampled observations.
func (h Header) SpectralDelta() (float64, bool) {
	if v, ok := h.float("CDELT3"); ok {
		return v, true
	}
	if cdelt, ok := h.floats("cdelt"); ok && len(cdelt) >= 3 {
		return cdelt[len(cdelt)-3], true
	}
	return 0, false
}

// Wavelengths returns the explicit wavelength grid attribute carried by
// non-uniformly sampled stores.
func (h Header) Wavelengths() ([]float64, bool) {
	return h.floats("wavels")
}

var cropKeys = []string{"frame_dims", "x_min", "x_max", "y_min", "y_max", "angle"}

// HasCrop reports whether the full set of rotate-crop geometry keys is
// present.
func (h Header) HasCrop() bool {
	for _, k := range cropKeys {
		if _, ok := h[k]; !ok {
			return false
		}
	}
	return true
}

// Clone returns a shallow copy safe for per-object mutation of scalar keys.
func (h Header) Clone() Header {
	out := make(Header, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

func (h Header) str(key string) (string, bool) {
	v, ok := h[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return strings.TrimSpace(s), ok
}

func (h Header) float(key string) (float64, bool) {
	v, ok := h[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

func (h Header) int(key string) (int, bool) {
	f, ok := h.float(key)
	return int(f), ok
}

func (h Header) floats(key string) ([]float64, bool) {
	v, ok := h[key]
	if !ok {
		return nil, false
	}
	switch xs := v.(type) {
	case []float64:
		return xs, true
	case []any:
		out := make([]float64, 0, len(xs))
		for _, x := range xs {
			switch f := x.(type) {
			case float64:
				out = append(out, f)
			case int:
				out = append(out, float64(f))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

func (h Header) ints(key string) ([]int, bool) {
	if v, ok := h[key].([]int); ok {
		return v, true
	}
	fs, ok := h.floats(key)
	if !ok {
		return nil, false
	}
	out := make([]int, len(fs))
	for i, f := range fs {
		out[i] = int(f)
	}
	return out, true
}
