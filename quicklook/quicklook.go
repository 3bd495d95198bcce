// Package quicklook renders observation data as plots: spectral line
// profiles and intensity/parameter maps, delivered as gonum plots or
// encoded PNGs.
package quicklook

import (
	"fmt"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/GlasgowSolarPhysics/crispy/cube"
)

// LineOpts labels a profile plot.
type LineOpts struct {
	Title  string
	XLabel string
	YLabel string
}

// Series is one named line in a multi-line profile plot.
type Series struct {
	Name string
	Vals []float64
}

// Norm maps data values to the displayed range. Zero value means derive the
// range from the finite data. Symlog compresses large magnitudes on both
// sides of zero, linear within LinThresh.
type Norm struct {
	Min, Max  float64
	Symlog    bool
	LinThresh float64
}

func (n Norm) auto() bool { return n.Min == 0 && n.Max == 0 }

func (n Norm) apply(v float64) float64 {
	if math.IsNaN(v) {
		v = n.Min
	}
	if v < n.Min {
		v = n.Min
	}
	if v > n.Max {
		v = n.Max
	}
	if n.Symlog {
		return symlog(v, n.LinThresh)
	}
	return v
}

func symlog(v, linthresh float64) float64 {
	if linthresh <= 0 {
		linthresh = 1
	}
	s := 1.0
	if v < 0 {
		s = -1
	}
	return s * math.Log1p(math.Abs(v)/linthresh)
}

// Extent places a frame's pixels on plot coordinates: the position of pixel
// (0,0) and the per-pixel increments. The zero value plots in pixel units.
type Extent struct {
	X0, DX float64
	Y0, DY float64
	XLabel string
	YLabel string
}

func (e Extent) orDefault() Extent {
	if e.DX == 0 {
		e.DX = 1
	}
	if e.DY == 0 {
		e.DY = 1
	}
	return e
}

// Spectrum plots one line profile: intensity against wavelength.
func Spectrum(wavs, vals []float64, o LineOpts) (*plot.Plot, error) {
	if len(wavs) != len(vals) {
		return nil, fmt.Errorf("quicklook: %d wavelengths for %d samples", len(wavs), len(vals))
	}
	if len(wavs) == 0 {
		return nil, fmt.Errorf("quicklook: empty profile")
	}
	p := plot.New()
	applyLineOpts(p, o)
	line, err := plotter.NewLine(xys(wavs, vals))
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	p.Add(plotter.NewGrid(), line)
	return p, nil
}

// MultiSpectrum plots several profiles over a shared wavelength axis with a
// legend entry per series.
func MultiSpectrum(wavs []float64, series []Series, o LineOpts) (*plot.Plot, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("quicklook: no series to plot")
	}
	p := plot.New()
	applyLineOpts(p, o)
	p.Add(plotter.NewGrid())
	for i, s := range series {
		if len(s.Vals) != len(wavs) {
			return nil, fmt.Errorf("quicklook: series %q has %d samples for %d wavelengths", s.Name, len(s.Vals), len(wavs))
		}
		line, err := plotter.NewLine(xys(wavs, s.Vals))
		if err != nil {
			return nil, err
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}
	p.Legend.Top = true
	return p, nil
}

// Heatmap renders a rank-2 frame. The colormap name is resolved with
// Colormap; an empty name selects the diverging default.
func Heatmap(frame *cube.Cube, ext Extent, n Norm, colormap, title string) (*plot.Plot, error) {
	if frame.Rank() != 2 {
		return nil, fmt.Errorf("quicklook: heatmap needs a rank-2 frame, got rank %d", frame.Rank())
	}
	if colormap == "" {
		colormap = "smooth"
	}
	pal, err := Colormap(colormap, 255)
	if err != nil {
		return nil, err
	}
	if n.auto() {
		n.Min, n.Max = finiteMinMax(frame.Data())
	}
	if n.Max <= n.Min {
		n.Max = n.Min + 1
	}

	sh := frame.Shape()
	g := frameGrid{frame: frame, h: sh[0], w: sh[1], ext: ext.orDefault(), norm: n}
	hm := plotter.NewHeatMap(g, pal)
	hm.Min = n.apply(n.Min)
	hm.Max = n.apply(n.Max)
	hm.NaN = pal.Colors()[0]

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = g.ext.XLabel
	p.Y.Label.Text = g.ext.YLabel
	p.Add(hm)
	return p, nil
}

type frameGrid struct {
	frame *cube.Cube
	h, w  int
	ext   Extent
	norm  Norm
}

func (g frameGrid) Dims() (cols, rows int) { return g.w, g.h }
func (g frameGrid) X(c int) float64        { return g.ext.X0 + float64(c)*g.ext.DX }
func (g frameGrid) Y(r int) float64        { return g.ext.Y0 + float64(r)*g.ext.DY }
func (g frameGrid) Z(c, r int) float64 {
	v, err := g.frame.At(r, c)
	if err != nil {
		return g.norm.Min
	}
	return g.norm.apply(v)
}

// WritePNG renders a plot to PNG.
func WritePNG(w io.Writer, p *plot.Plot, width, height vg.Length) error {
	img := vgimg.New(width, height)
	p.Draw(draw.New(img))
	png := vgimg.PngCanvas{Canvas: img}
	_, err := png.WriteTo(w)
	return err
}

// WriteGridPNG renders a grid of plots onto one PNG canvas. Nil entries
// leave their tile blank.
func WriteGridPNG(w io.Writer, plots [][]*plot.Plot, width, height vg.Length) error {
	if len(plots) == 0 || len(plots[0]) == 0 {
		return fmt.Errorf("quicklook: empty plot grid")
	}
	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: len(plots),
		Cols: len(plots[0]),
		PadX: vg.Millimeter * 2,
		PadY: vg.Millimeter * 2,
	}
	canvases := plot.Align(plots, tiles, dc)
	for i, row := range plots {
		for j, p := range row {
			if p != nil {
				p.Draw(canvases[i][j])
			}
		}
	}
	png := vgimg.PngCanvas{Canvas: img}
	_, err := png.WriteTo(w)
	return err
}

func applyLineOpts(p *plot.Plot, o LineOpts) {
	p.Title.Text = o.Title
	p.X.Label.Text = o.XLabel
	p.Y.Label.Text = o.YLabel
}

func xys(x, y []float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(x))
	for i := range x {
		if math.IsNaN(y[i]) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	return pts
}

func finiteMinMax(vs []float64) (min, max float64) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min > max {
		return 0, 1
	}
	return min, max
}
