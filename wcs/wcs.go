// Package wcs implements the linear FITS World Coordinate System used by
// CRISP observations: the per-axis CRPIX/CRVAL/CDELT mapping between array
// indices and physical (sky position, wavelength) coordinates, plus the
// sub-slicing needed to keep a WCS aligned with a sliced data cube.
//
// Axes are held in array order (slowest-varying first), which is the reverse
// of the FITS axis numbering.
package wcs

import (
	"fmt"

	"github.com/GlasgowSolarPhysics/crispy/cube"
)

// Axis describes one linear coordinate axis.
type Axis struct {
	Type   string  // CTYPE, e.g. "HPLN-TAN", "HPLT-TAN", "WAVE", "STOKES"
	RefPix float64 // CRPIX, 1-based per the FITS convention
	RefVal float64 // CRVAL, world value at the reference pixel
	Delta  float64 // CDELT, world increment per pixel
	Len    int     // NAXIS
}

// WCS maps array indices to world coordinates along each axis
// independently.
type WCS struct {
	Axes []Axis
}

// NAxes returns the number of coordinate axes.
func (w *WCS) NAxes() int { return len(w.Axes) }

// ArrayShape returns the axis lengths in array order.
func (w *WCS) ArrayShape() []int {
	out := make([]int, len(w.Axes))
	for i, a := range w.Axes {
		out[i] = a.Len
	}
	return out
}

// FromFITSHeader builds a WCS from the usual FITS keywords. The header map
// holds card values keyed by name; NAXIS and NAXISn are required, missing
// CRPIXn/CRVALn default to 1 and 0 and missing CDELTn to 1.
func FromFITSHeader(h map[string]any) (*WCS, error) {
	naxis, ok := headerInt(h, "NAXIS")
	if !ok {
		return nil, fmt.Errorf("wcs: header has no NAXIS")
	}
	if naxis < 1 || naxis > 4 {
		return nil, fmt.Errorf("wcs: NAXIS=%d not supported, expected 1 to 4", naxis)
	}
	// FITS numbers axes fastest-varying first; collect then reverse.
	axes := make([]Axis, naxis)
	for n := 1; n <= naxis; n++ {
		ln, ok := headerInt(h, fmt.Sprintf("NAXIS%d", n))
		if !ok {
			return nil, fmt.Errorf("wcs: header has no NAXIS%d", n)
		}
		a := Axis{Type: headerStringOr(h, fmt.Sprintf("CTYPE%d", n), ""), Len: ln}
		a.RefPix = headerFloatOr(h, fmt.Sprintf("CRPIX%d", n), 1)
		a.RefVal = headerFloatOr(h, fmt.Sprintf("CRVAL%d", n), 0)
		a.Delta = headerFloatOr(h, fmt.Sprintf("CDELT%d", n), 1)
		axes[naxis-n] = a
	}
	return &WCS{Axes: axes}, nil
}

// FromObsAttrs builds a WCS from the zarr-style attribute convention, where
// dimensions, crval, crpix, cdelt and ctype are arrays already in array
// order. Spatial axes missing a cdelt entry fall back to pixel_scale, and
// missing ctype entries are inferred from axis position. When nonUniform is
// set the spectral increment is meaningless and zeroed, so linear lookups
// along that axis fail instead of returning made-up wavelengths.
func FromObsAttrs(h map[string]any, nonUniform bool) (*WCS, error) {
	dims, ok := headerInts(h, "dimensions")
	if !ok {
		return nil, fmt.Errorf("wcs: attrs have no dimensions")
	}
	if len(dims) < 1 || len(dims) > 4 {
		return nil, fmt.Errorf("wcs: %d dimensions not supported, expected 1 to 4", len(dims))
	}
	crval, _ := headerFloats(h, "crval")
	crpix, _ := headerFloats(h, "crpix")
	cdelt, _ := headerFloats(h, "cdelt")
	ctype, _ := headerStrings(h, "ctype")
	pixelScale, havePixelScale := headerFloat(h, "pixel_scale")

	defaultTypes := []string{"STOKES", "WAVE", "HPLT-TAN", "HPLN-TAN"}
	axes := make([]Axis, len(dims))
	for i := range dims {
		a := Axis{Len: dims[i], RefPix: 1, Delta: 1}
		if i < len(crval) {
			a.RefVal = crval[i]
		}
		if i < len(crpix) {
			a.RefPix = crpix[i]
		}
		if i < len(cdelt) {
			a.Delta = cdelt[i]
		}
		switch {
		case i < len(ctype):
			a.Type = ctype[i]
		case len(dims) == 1:
			// A rank-1 store is a spectrum, not a spatial cut.
			a.Type = "WAVE"
		default:
			a.Type = defaultTypes[len(defaultTypes)-len(dims)+i]
		}
		spatial := len(dims) >= 2 && i >= len(dims)-2
		if spatial && len(cdelt) <= i && havePixelScale {
			a.Delta = pixelScale
		}
		if nonUniform && a.Type == "WAVE" {
			a.Delta = 0
		}
		axes[i] = a
	}
	return &WCS{Axes: axes}, nil
}

// Sub selects a sub-WCS the way a sliced data cube needs it: one selector
// per axis, where At drops the axis, Span keeps it with the reference pixel
// shifted, and All keeps it untouched.
func (w *WCS) Sub(sels ...cube.Sel) (*WCS, error) {
	if len(sels) != len(w.Axes) {
		return nil, fmt.Errorf("wcs: got %d selectors for %d axes", len(sels), len(w.Axes))
	}
	var axes []Axis
	for i, s := range sels {
		a := w.Axes[i]
		switch {
		case s.Entire:
			axes = append(axes, a)
		case s.Index:
			// Axis dropped.
		default:
			if s.Lo < 0 || s.Hi > a.Len || s.Lo >= s.Hi {
				return nil, fmt.Errorf("wcs: span [%d, %d) out of range on axis %d (length %d)", s.Lo, s.Hi, i, a.Len)
			}
			a.RefPix -= float64(s.Lo)
			a.Len = s.Hi - s.Lo
			axes = append(axes, a)
		}
	}
	if len(axes) == 0 {
		return nil, fmt.Errorf("wcs: sub-selection drops every axis")
	}
	return &WCS{Axes: axes}, nil
}

// ArrayIndexToWorld converts array indices (one per axis, array order) to
// world coordinates in the same order.
func (w *WCS) ArrayIndexToWorld(idx ...int) ([]float64, error) {
	if len(idx) != len(w.Axes) {
		return nil, fmt.Errorf("wcs: got %d indices for %d axes", len(idx), len(w.Axes))
	}
	out := make([]float64, len(idx))
	for i, a := range w.Axes {
		out[i] = a.RefVal + (float64(idx[i])-(a.RefPix-1))*a.Delta
	}
	return out, nil
}

// WorldToArrayIndex converts world coordinates (array order) to the nearest
// array indices.
func (w *WCS) WorldToArrayIndex(world ...float64) ([]int, error) {
	if len(world) != len(w.Axes) {
		return nil, fmt.Errorf("wcs: got %d world values for %d axes", len(world), len(w.Axes))
	}
	out := make([]int, len(world))
	for i, a := range w.Axes {
		if a.Delta == 0 {
			return nil, fmt.Errorf("wcs: axis %d has zero increment", i)
		}
		f := (world[i]-a.RefVal)/a.Delta + (a.RefPix - 1)
		out[i] = int(f + 0.5)
		if f < 0 {
			out[i] = int(f - 0.5)
		}
	}
	return out, nil
}
