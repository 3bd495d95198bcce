// Package crisp wraps CRISP solar observation data cubes in objects that
// know their coordinate systems: imaging spectroscopy and
// spectropolarimetry from FITS files or zarr stores, with wavelength and
// Helioprojective coordinate lookup, slicing, rotate-crop handling, and
// quicklook plot rendering.
package crisp

import (
	"fmt"
	"strings"

	"github.com/GlasgowSolarPhysics/crispy/cube"
	"github.com/GlasgowSolarPhysics/crispy/internal/transform"
	"github.com/GlasgowSolarPhysics/crispy/wcs"
)

// Options configures construction. Zero value works for well-formed files:
// the WCS is built from the header and nothing optional is attached.
type Options struct {
	W           *wcs.WCS   // coordinate system override
	Uncertainty *cube.Cube // per-pixel uncertainty, aligned with the data
	Mask        *cube.Cube // bad-pixel mask, aligned with the data
	NonUniform  bool       // spectral axis is not uniformly sampled
}

// Crisp is one narrowband CRISP observation: a data cube of up to rank 4
// (Stokes, wavelength, y, x) with its coordinate system and metadata.
type Crisp struct {
	store  *Store
	w      *wcs.WCS
	nonU   bool
	rotate bool
	ind    []cube.Sel // selection recorded by Section, full-rank
}

// Open reads an observation from a .fits file or .zarr store.
func Open(path string, opts Options) (*Crisp, error) {
	st, err := OpenStore(path)
	if err != nil {
		return nil, err
	}
	return FromStore(st, opts)
}

// FromStore wraps in-memory observation data. The store is retained, not
// copied.
func FromStore(st *Store, opts Options) (*Crisp, error) {
	if st == nil || st.Data == nil {
		return nil, fmt.Errorf("crisp: store holds no data")
	}
	if opts.Uncertainty != nil {
		st.Uncert = opts.Uncertainty
	}
	if opts.Mask != nil {
		st.Mask = opts.Mask
	}
	if len(st.Wavels) == 0 {
		st.Wavels, _ = st.Header.Wavelengths()
	}
	w := opts.W
	if w == nil {
		var err error
		w, err = headerWCS(st.Header, opts.NonUniform)
		if err != nil {
			return nil, err
		}
	}
	return &Crisp{
		store:  st,
		w:      w,
		nonU:   opts.NonUniform,
		rotate: st.Header.HasCrop(),
	}, nil
}

func headerWCS(h Header, nonU bool) (*wcs.WCS, error) {
	if _, ok := h["NAXIS"]; ok {
		return wcs.FromFITSHeader(h)
	}
	return wcs.FromObsAttrs(h, nonU)
}

// Data returns the backing array handle.
func (c *Crisp) Data() *cube.Cube { return c.store.Data }

// Header returns the observation metadata.
func (c *Crisp) Header() Header { return c.store.Header }

// W returns the full coordinate system the observation was loaded with.
func (c *Crisp) W() *wcs.WCS { return c.w }

// Uncertainty returns the attached uncertainty array, nil when absent.
func (c *Crisp) Uncertainty() *cube.Cube { return c.store.Uncert }

// Mask returns the attached bad-pixel mask, nil when absent.
func (c *Crisp) Mask() *cube.Cube { return c.store.Mask }

// Shape returns the data dimensions in array order.
func (c *Crisp) Shape() []int { return c.store.Data.Shape() }

// NonUniform reports whether the spectral axis is non-uniformly sampled.
func (c *Crisp) NonUniform() bool { return c.nonU }

// Rotated reports whether the observation carries rotate-crop geometry.
func (c *Crisp) Rotated() bool { return c.rotate }

// Section returns a view-like wrapper whose data is the selected sub-cube.
// The full coordinate system is kept and the selection is recorded, so
// wavelength and coordinate lookups keep working on the slice. The
// selection is recorded only when slicing the original full-rank cube;
// re-slicing a slice keeps the original record.
func (c *Crisp) Section(sels ...cube.Sel) (*Crisp, error) {
	sub, err := c.store.Data.Section(sels...)
	if err != nil {
		return nil, err
	}
	out := &Crisp{
		store:  &Store{Data: sub, Header: c.store.Header, Wavels: c.store.Wavels},
		w:      c.w,
		nonU:   c.nonU,
		rotate: c.rotate,
		ind:    c.ind,
	}
	if len(sels) == c.w.NAxes() && c.ind == nil {
		out.ind = sels
	}
	return out, nil
}

// spectralSel returns the recorded selection along the spectral axis. A
// recorded single-index selection does not narrow the axis: wavelength
// lookups on a pinned slice take absolute indices against the full grid,
// the same way spatialWCS treats pinned spatial indices.
func (c *Crisp) spectralSel() cube.Sel {
	if c.ind == nil {
		return cube.All()
	}
	var s cube.Sel
	switch c.w.NAxes() {
	case 4:
		s = c.ind[1]
	case 3:
		s = c.ind[0]
	default:
		return cube.All()
	}
	if s.Index {
		return cube.All()
	}
	return s
}

// spectralWCS resolves the one-axis spectral coordinate system for the
// current slice: the backing rank and recorded selection decide which fixed
// sub-WCS applies.
func (c *Crisp) spectralWCS() (*wcs.WCS, error) {
	if c.store.Data.Rank() == 2 && c.ind == nil {
		return nil, fmt.Errorf("crisp: the data has no spectral component; slice the cube along its wavelength axis first")
	}
	sel := c.spectralSel()
	switch c.w.NAxes() {
	case 4:
		return c.w.Sub(cube.At(0), sel, cube.At(0), cube.At(0))
	case 3:
		return c.w.Sub(sel, cube.At(0), cube.At(0))
	case 1:
		return c.w.Sub(cube.All())
	default:
		return nil, fmt.Errorf("crisp: %d-axis coordinate system has no spectral axis", c.w.NAxes())
	}
}

// Wave returns the wavelength in Å at the given spectral sample index of
// the current slice.
func (c *Crisp) Wave(idx int) (float64, error) {
	if c.nonU && len(c.store.Wavels) > 0 {
		return c.nonUniformWave(idx)
	}
	sub, err := c.spectralWCS()
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= sub.Axes[0].Len {
		return 0, fmt.Errorf("crisp: spectral index %d out of range (%d samples)", idx, sub.Axes[0].Len)
	}
	world, err := sub.ArrayIndexToWorld(idx)
	if err != nil {
		return 0, err
	}
	return world[0], nil
}

func (c *Crisp) nonUniformWave(idx int) (float64, error) {
	sel := c.spectralSel()
	lo, hi := 0, len(c.store.Wavels)
	if !sel.Entire {
		lo, hi = sel.Lo, sel.Hi
	}
	if idx < 0 || lo+idx >= hi {
		return 0, fmt.Errorf("crisp: spectral index %d out of range (%d samples)", idx, hi-lo)
	}
	return c.store.Wavels[lo+idx], nil
}

// Wavelengths returns the wavelength grid of the current slice in Å.
func (c *Crisp) Wavelengths() ([]float64, error) {
	var n int
	if c.nonU && len(c.store.Wavels) > 0 {
		sel := c.spectralSel()
		n = len(c.store.Wavels)
		if !sel.Entire {
			n = sel.Hi - sel.Lo
		}
	} else {
		sub, err := c.spectralWCS()
		if err != nil {
			return nil, err
		}
		n = sub.Axes[0].Len
	}
	out := make([]float64, n)
	for i := range out {
		v, err := c.Wave(i)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// spatialWCS resolves the two-axis (lat, lon) coordinate system for the
// current slice. A recorded single-index spatial selection does not narrow
// the axis; lookups stay valid across the full frame.
func (c *Crisp) spatialWCS() (*wcs.WCS, error) {
	ySel, xSel := cube.All(), cube.All()
	if c.ind != nil {
		if y := c.ind[len(c.ind)-2]; !y.Index {
			ySel = y
		}
		if x := c.ind[len(c.ind)-1]; !x.Index {
			xSel = x
		}
	}
	switch c.w.NAxes() {
	case 4:
		return c.w.Sub(cube.At(0), cube.At(0), ySel, xSel)
	case 3:
		return c.w.Sub(cube.At(0), ySel, xSel)
	case 2:
		return c.w.Sub(ySel, xSel)
	default:
		return nil, fmt.Errorf("crisp: %d-axis coordinate system has no spatial plane", c.w.NAxes())
	}
}

// ToLonLat converts a pixel position of the current slice to Helioprojective
// longitude and latitude in arcsec.
func (c *Crisp) ToLonLat(y, x int) (lon, lat float64, err error) {
	sub, err := c.spatialWCS()
	if err != nil {
		return 0, 0, err
	}
	world, err := sub.ArrayIndexToWorld(y, x)
	if err != nil {
		return 0, 0, err
	}
	// Array order puts latitude first.
	return world[1], world[0], nil
}

// FromLonLat converts Helioprojective longitude and latitude in arcsec to
// the nearest pixel position of the current slice.
func (c *Crisp) FromLonLat(lon, lat float64) (y, x int, err error) {
	sub, err := c.spatialWCS()
	if err != nil {
		return 0, 0, err
	}
	idx, err := sub.WorldToArrayIndex(lat, lon)
	if err != nil {
		return 0, 0, err
	}
	return idx[0], idx[1], nil
}

// Info returns the human-readable observation summary.
func (c *Crisp) Info() string {
	return c.infoText("CRISP Observation")
}

func (c *Crisp) String() string { return c.Info() }

func (c *Crisp) infoText(kind string) string {
	h := c.store.Header
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", kind, strings.Repeat("-", len(kind)))
	fmt.Fprintf(&b, "Observed: %s\n", h.Date())
	fmt.Fprintf(&b, "Time: %s\n", h.Time())
	if line := h.Line(); line != "" {
		fmt.Fprintf(&b, "Line: %s\n", line)
	}
	if cw, ok := h.CentreWavelength(); ok {
		fmt.Fprintf(&b, "Centre wavelength [Å]: %.2f\n", cw)
	}
	if n, ok := h.SampleCount(); ok {
		fmt.Fprintf(&b, "Wavelengths sampled: %d\n", n)
	}
	if px, py, ok := h.Pointing(); ok {
		fmt.Fprintf(&b, "Pointing [arcsec]: (%g, %g)\n", px, py)
	}
	fmt.Fprintf(&b, "Shape: %v", c.store.Data.Shape())
	return b.String()
}

// Time returns the observation time of day.
func (c *Crisp) Time() string { return c.store.Header.Time() }

// Date returns the observation date.
func (c *Crisp) Date() string { return c.store.Header.Date() }

// cropFromHeader rebuilds the rotate-crop geometry from the header keys.
func cropFromHeader(h Header) (transform.Crop, error) {
	dims, ok := h.ints("frame_dims")
	if !ok || len(dims) != 2 {
		return transform.Crop{}, fmt.Errorf("crisp: header carries no usable frame_dims")
	}
	cr := transform.Crop{FrameY: dims[0], FrameX: dims[1]}
	var miss []string
	get := func(key string) int {
		v, ok := h.int(key)
		if !ok {
			miss = append(miss, key)
		}
		return v
	}
	cr.YMin, cr.YMax = get("y_min"), get("y_max")
	cr.XMin, cr.XMax = get("x_min"), get("x_max")
	cr.Angle, ok = h.float("angle")
	if !ok {
		miss = append(miss, "angle")
	}
	if len(miss) > 0 {
		return transform.Crop{}, fmt.Errorf("crisp: header is missing crop keys %v", miss)
	}
	return cr, nil
}

func cropToHeader(h Header, cr transform.Crop) {
	h["frame_dims"] = []int{cr.FrameY, cr.FrameX}
	h["y_min"], h["y_max"] = cr.YMin, cr.YMax
	h["x_min"], h["x_max"] = cr.XMin, cr.XMax
	h["angle"] = cr.Angle
}

// resolveCrop picks the crop geometry: the header keys when present,
// otherwise a scan of the first frame.
func (c *Crisp) resolveCrop() (transform.Crop, error) {
	if c.rotate {
		return cropFromHeader(c.store.Header)
	}
	return transform.DetectCrop(c.store.Data)
}

// RotateCrop resamples the science region upright and replaces the stored
// array, recording the geometry in the header so the operation can be
// reversed.
func (c *Crisp) RotateCrop() error {
	cr, err := c.resolveCrop()
	if err != nil {
		return err
	}
	return applyCrop(c, cr)
}

// applyCrop crops with the given geometry and patches the header.
func applyCrop(c *Crisp, cr transform.Crop) error {
	out, err := transform.RotateCrop(c.store.Data, cr)
	if err != nil {
		return err
	}
	c.store.Data = out
	c.store.Header = c.store.Header.Clone()
	cropToHeader(c.store.Header, cr)
	c.rotate = true
	return nil
}

// RotateCropSep returns the upright science region without mutating the
// observation.
func (c *Crisp) RotateCropSep() (*cube.Cube, transform.Crop, error) {
	cr, err := c.resolveCrop()
	if err != nil {
		return nil, transform.Crop{}, err
	}
	out, err := transform.RotateCrop(c.store.Data, cr)
	return out, cr, err
}

// ReconstructFullFrame reverses RotateCrop, restoring NaN-padded full
// camera frames from the header geometry.
func (c *Crisp) ReconstructFullFrame() error {
	cr, err := cropFromHeader(c.store.Header)
	if err != nil {
		return err
	}
	out, err := transform.ReconstructFullFrame(c.store.Data, cr)
	if err != nil {
		return err
	}
	c.store.Data = out
	return nil
}

// ReconstructFullFrameSep returns the reconstructed full frames without
// mutating the observation.
func (c *Crisp) ReconstructFullFrameSep() (*cube.Cube, error) {
	cr, err := cropFromHeader(c.store.Header)
	if err != nil {
		return nil, err
	}
	return transform.ReconstructFullFrame(c.store.Data, cr)
}
