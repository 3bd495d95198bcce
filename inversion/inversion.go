// Package inversion wraps the atmospheric parameters inferred from CRISP
// observations: electron density, temperature and bulk velocity on a
// height grid, with their error estimates, as produced by the RADYNVERSION
// pipeline and stored in HDF5-backed NetCDF files.
package inversion

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"

	"github.com/GlasgowSolarPhysics/crispy/crisp"
	"github.com/GlasgowSolarPhysics/crispy/cube"
	"github.com/GlasgowSolarPhysics/crispy/quicklook"
)

// Inversion holds the inverted atmosphere. The parameter cubes share the
// (height, y, x) layout index-for-index and are read-only after
// construction.
type Inversion struct {
	ne   *cube.Cube
	temp *cube.Cube
	vel  *cube.Cube
	err  *cube.Cube
	z    []float64
	hdr  crisp.Header
}

// Load reads an inversion output file. The header is optional observation
// metadata carried over from the observation that was inverted; nil is
// fine.
func Load(path string, hdr crisp.Header) (*Inversion, error) {
	nc, err := netcdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("inversion: opening %s: %w", path, err)
	}
	defer nc.Close()

	ne, err := readCube(nc, "ne")
	if err != nil {
		return nil, err
	}
	temp, err := readCube(nc, "temperature")
	if err != nil {
		return nil, err
	}
	vel, err := readCube(nc, "vel")
	if err != nil {
		return nil, err
	}
	// Older pipeline outputs carry no error estimates.
	mad, err := readCube(nc, "mad")
	if err != nil {
		mad = nil
	}
	zc, err := readCube(nc, "z")
	if err != nil {
		return nil, err
	}
	if zc.Rank() != 1 {
		return nil, fmt.Errorf("inversion: %s: height axis has rank %d, expected 1", path, zc.Rank())
	}
	return New(ne, temp, vel, mad, zc.Data(), hdr)
}

// New wraps in-memory inversion products. The parameter cubes must agree in
// shape and their leading axis must match the height grid.
func New(ne, temp, vel, errs *cube.Cube, z []float64, hdr crisp.Header) (*Inversion, error) {
	if ne == nil || temp == nil || vel == nil {
		return nil, fmt.Errorf("inversion: electron density, temperature and velocity are all required")
	}
	for name, c := range map[string]*cube.Cube{"temperature": temp, "velocity": vel} {
		if !sameShape(ne.Shape(), c.Shape()) {
			return nil, fmt.Errorf("inversion: %s shape %v does not match electron density shape %v", name, c.Shape(), ne.Shape())
		}
	}
	if len(z) == 0 {
		return nil, fmt.Errorf("inversion: empty height grid")
	}
	if ne.Shape()[0] != len(z) {
		return nil, fmt.Errorf("inversion: %d heights for leading axis of length %d", len(z), ne.Shape()[0])
	}
	zc := make([]float64, len(z))
	copy(zc, z)
	return &Inversion{ne: ne, temp: temp, vel: vel, err: errs, z: zc, hdr: hdr}, nil
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func readCube(g api.Group, name string) (*cube.Cube, error) {
	v, err := g.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("inversion: variable %s: %w", name, err)
	}
	data, shape, err := flatten(v.Values)
	if err != nil {
		return nil, fmt.Errorf("inversion: variable %s: %w", name, err)
	}
	return cube.New(data, shape...)
}

// flatten converts the nested slices the NetCDF reader returns into a flat
// C-order float64 slice with its shape.
func flatten(v any) ([]float64, []int, error) {
	var shape []int
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Slice {
		if rv.Len() == 0 {
			return nil, nil, fmt.Errorf("empty dimension in variable data")
		}
		shape = append(shape, rv.Len())
		rv = rv.Index(0)
	}
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
	default:
		return nil, nil, fmt.Errorf("element type %s not numeric", rv.Kind())
	}
	n := 1
	for _, s := range shape {
		n *= s
	}
	out := make([]float64, 0, n)
	out = appendFlat(out, reflect.ValueOf(v))
	return out, shape, nil
}

func appendFlat(out []float64, rv reflect.Value) []float64 {
	if rv.Kind() != reflect.Slice {
		switch rv.Kind() {
		case reflect.Float32, reflect.Float64:
			return append(out, rv.Float())
		case reflect.Uint8, reflect.Uint16, reflect.Uint32:
			return append(out, float64(rv.Uint()))
		default:
			return append(out, float64(rv.Int()))
		}
	}
	for i := 0; i < rv.Len(); i++ {
		out = appendFlat(out, rv.Index(i))
	}
	return out
}

// Ne returns the electron density cube.
func (inv *Inversion) Ne() *cube.Cube { return inv.ne }

// Temp returns the temperature cube.
func (inv *Inversion) Temp() *cube.Cube { return inv.temp }

// Vel returns the velocity cube.
func (inv *Inversion) Vel() *cube.Cube { return inv.vel }

// Errors returns the error estimate array, nil when the file carried none.
func (inv *Inversion) Errors() *cube.Cube { return inv.err }

// Z returns the height grid in Mm.
func (inv *Inversion) Z() []float64 {
	out := make([]float64, len(inv.z))
	copy(out, inv.z)
	return out
}

// Info returns a readable summary; without attached observation metadata it
// describes the products alone.
func (inv *Inversion) Info() string {
	var b strings.Builder
	b.WriteString("RADYNVERSION Inversion\n----------------------\n")
	if inv.hdr != nil {
		if d := inv.hdr.Date(); d != "" {
			fmt.Fprintf(&b, "Observed: %s\n", d)
		}
		if t := inv.hdr.Time(); t != "" {
			fmt.Fprintf(&b, "Time: %s\n", t)
		}
		if line := inv.hdr.Line(); line != "" {
			fmt.Fprintf(&b, "Line: %s\n", line)
		}
	} else {
		b.WriteString("No observation metadata attached.\n")
	}
	fmt.Fprintf(&b, "Heights: %d (%.2f to %.2f Mm)\n", len(inv.z), inv.z[0], inv.z[len(inv.z)-1])
	fmt.Fprintf(&b, "Shape: %v", inv.ne.Shape())
	return b.String()
}

func (inv *Inversion) String() string { return inv.Info() }

// profile extracts the parameter run against height at one pixel.
func (inv *Inversion) profile(c *cube.Cube, y, x int) ([]float64, error) {
	if c.Rank() != 3 {
		return nil, fmt.Errorf("inversion: profile extraction needs rank-3 (height, y, x) data, got rank %d", c.Rank())
	}
	p, err := c.Section(cube.All(), cube.At(y), cube.At(x))
	if err != nil {
		return nil, err
	}
	return p.Data(), nil
}

// NeProfilePlot plots electron density against height at pixel (y, x).
func (inv *Inversion) NeProfilePlot(y, x int) (*plot.Plot, error) {
	vals, err := inv.profile(inv.ne, y, x)
	if err != nil {
		return nil, err
	}
	return quicklook.Spectrum(inv.z, vals, quicklook.LineOpts{
		Title:  fmt.Sprintf("Electron density (%d, %d)", y, x),
		XLabel: "z [Mm]",
		YLabel: "log nₑ [cm⁻³]",
	})
}

// TempProfilePlot plots temperature against height at pixel (y, x).
func (inv *Inversion) TempProfilePlot(y, x int) (*plot.Plot, error) {
	vals, err := inv.profile(inv.temp, y, x)
	if err != nil {
		return nil, err
	}
	return quicklook.Spectrum(inv.z, vals, quicklook.LineOpts{
		Title:  fmt.Sprintf("Temperature (%d, %d)", y, x),
		XLabel: "z [Mm]",
		YLabel: "log T [K]",
	})
}

// VelProfilePlot plots bulk velocity against height at pixel (y, x).
func (inv *Inversion) VelProfilePlot(y, x int) (*plot.Plot, error) {
	vals, err := inv.profile(inv.vel, y, x)
	if err != nil {
		return nil, err
	}
	return quicklook.Spectrum(inv.z, vals, quicklook.LineOpts{
		Title:  fmt.Sprintf("Bulk velocity (%d, %d)", y, x),
		XLabel: "z [Mm]",
		YLabel: "v [km s⁻¹]",
	})
}

// heightMap extracts the parameter map at one height index.
func (inv *Inversion) heightMap(c *cube.Cube, zIdx int) (*cube.Cube, error) {
	if c.Rank() != 3 {
		return nil, fmt.Errorf("inversion: map extraction needs rank-3 (height, y, x) data, got rank %d", c.Rank())
	}
	if zIdx < 0 || zIdx >= len(inv.z) {
		return nil, fmt.Errorf("inversion: height index %d out of range (%d heights)", zIdx, len(inv.z))
	}
	return c.Section(cube.At(zIdx), cube.All(), cube.All())
}

func (inv *Inversion) mapTitle(name string, zIdx int) string {
	return fmt.Sprintf("%s at z = %.2f Mm", name, inv.z[zIdx])
}

// NeMapPlot maps electron density at one height.
func (inv *Inversion) NeMapPlot(zIdx int) (*plot.Plot, error) {
	frame, err := inv.heightMap(inv.ne, zIdx)
	if err != nil {
		return nil, err
	}
	return quicklook.Heatmap(frame, quicklook.Extent{XLabel: "x [pixels]", YLabel: "y [pixels]"},
		quicklook.Norm{}, "ramp", inv.mapTitle("Electron density", zIdx))
}

// TempMapPlot maps temperature at one height.
func (inv *Inversion) TempMapPlot(zIdx int) (*plot.Plot, error) {
	frame, err := inv.heightMap(inv.temp, zIdx)
	if err != nil {
		return nil, err
	}
	return quicklook.Heatmap(frame, quicklook.Extent{XLabel: "x [pixels]", YLabel: "y [pixels]"},
		quicklook.Norm{}, "ramp", inv.mapTitle("Temperature", zIdx))
}

// VelMapPlot maps bulk velocity at one height. Velocity is signed and heavy
// tailed, so the display range is compressed symmetrically around zero.
func (inv *Inversion) VelMapPlot(zIdx int) (*plot.Plot, error) {
	frame, err := inv.heightMap(inv.vel, zIdx)
	if err != nil {
		return nil, err
	}
	min, max := frame.MinMax()
	bound := max
	if -min > bound {
		bound = -min
	}
	if bound == 0 {
		bound = 1
	}
	norm := quicklook.Norm{Min: -bound, Max: bound, Symlog: true, LinThresh: bound / 100}
	return quicklook.Heatmap(frame, quicklook.Extent{XLabel: "x [pixels]", YLabel: "y [pixels]"},
		norm, "smooth", inv.mapTitle("Bulk velocity", zIdx))
}

// WriteParamsFigure renders the three parameter maps at one height side by
// side into a single PNG.
func (inv *Inversion) WriteParamsFigure(w io.Writer, zIdx int, width, height vg.Length) error {
	ne, err := inv.NeMapPlot(zIdx)
	if err != nil {
		return err
	}
	temp, err := inv.TempMapPlot(zIdx)
	if err != nil {
		return err
	}
	vel, err := inv.VelMapPlot(zIdx)
	if err != nil {
		return err
	}
	return quicklook.WriteGridPNG(w, [][]*plot.Plot{{ne, temp, vel}}, width, height)
}

// WriteProfilesFigure renders the three parameter profiles at one pixel
// into a single PNG.
func (inv *Inversion) WriteProfilesFigure(w io.Writer, y, x int, width, height vg.Length) error {
	ne, err := inv.NeProfilePlot(y, x)
	if err != nil {
		return err
	}
	temp, err := inv.TempProfilePlot(y, x)
	if err != nil {
		return err
	}
	vel, err := inv.VelProfilePlot(y, x)
	if err != nil {
		return err
	}
	return quicklook.WriteGridPNG(w, [][]*plot.Plot{{ne, temp, vel}}, width, height)
}
