package crisp

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/plot"

	"github.com/GlasgowSolarPhysics/crispy/cube"
	"github.com/GlasgowSolarPhysics/crispy/quicklook"
)

// stokesRow maps a Stokes component letter to its row in the leading axis.
var stokesRow = map[byte]int{'I': 0, 'Q': 1, 'U': 2, 'V': 3}

// stokesComponents expands a component selection string. "all" means IQUV;
// otherwise the string must be an ordered subset of "IQUV".
func stokesComponents(sel string, available int) ([]byte, error) {
	if sel == "all" {
		sel = "IQUV"
	}
	if sel == "" {
		return nil, fmt.Errorf("crisp: empty Stokes component selection")
	}
	last := -1
	out := make([]byte, 0, len(sel))
	for i := 0; i < len(sel); i++ {
		row, ok := stokesRow[sel[i]]
		if !ok {
			return nil, fmt.Errorf("crisp: %q is not a Stokes component, expected letters from IQUV", string(sel[i]))
		}
		if row <= last {
			return nil, fmt.Errorf("crisp: Stokes components must appear once, in IQUV order, got %q", sel)
		}
		if row >= available {
			return nil, fmt.Errorf("crisp: component %s not present, data has %d Stokes rows", string(sel[i]), available)
		}
		last = row
		out = append(out, sel[i])
	}
	return out, nil
}

// plotTitle builds the common plot title: line name, wavelength and offset
// from line centre when a spectral position is known.
func (c *Crisp) plotTitle() string {
	h := c.store.Header
	parts := []string{}
	if line := h.Line(); line != "" {
		parts = append(parts, line)
	}
	if idx, ok := c.spectralPinnedIndex(); ok {
		if wl, err := c.Wave(idx); err == nil {
			s := fmt.Sprintf("%.2f Å", wl)
			if cw, ok := h.CentreWavelength(); ok {
				s += fmt.Sprintf(" (Δλ = %.2f Å)", wl-cw)
			}
			parts = append(parts, s)
		}
	}
	if t := h.Time(); t != "" {
		parts = append(parts, t)
	}
	return strings.Join(parts, " ")
}

// spectralPinnedIndex reports whether the recorded selection pins the slice
// to a single wavelength, and the index to feed Wave for it: absolute for a
// pinned index (the spectral grid stays full), relative 0 for a one-sample
// span (the grid is narrowed to it).
func (c *Crisp) spectralPinnedIndex() (int, bool) {
	if c.ind == nil {
		return 0, false
	}
	var s cube.Sel
	switch c.w.NAxes() {
	case 4:
		s = c.ind[1]
	case 3:
		s = c.ind[0]
	default:
		return 0, false
	}
	if s.Index {
		return s.Lo, true
	}
	if !s.Entire && s.Hi-s.Lo == 1 {
		return 0, true
	}
	return 0, false
}

// SpectrumPlot plots the intensity profile of a rank-1 slice against
// wavelength.
func (c *Crisp) SpectrumPlot() (*plot.Plot, error) {
	if c.store.Data.Rank() != 1 {
		return nil, fmt.Errorf("crisp: spectrum plotting needs a single spectral profile (rank 1), data has rank %d; for polarimetric data use StokesPlot", c.store.Data.Rank())
	}
	wavs, err := c.Wavelengths()
	if err != nil {
		return nil, err
	}
	return quicklook.Spectrum(wavs, c.store.Data.Data(), quicklook.LineOpts{
		Title:  c.plotTitle(),
		XLabel: "Wavelength [Å]",
		YLabel: "Intensity [DN]",
	})
}

// StokesPlot plots the selected Stokes profiles of a rank-2
// (component, wavelength) slice over a shared wavelength axis. The
// selection is "all" or an ordered subset of "IQUV".
func (c *Crisp) StokesPlot(components string) (*plot.Plot, error) {
	d := c.store.Data
	if d.Rank() != 2 {
		return nil, fmt.Errorf("crisp: Stokes profile plotting needs rank-2 (component, wavelength) data, got rank %d", d.Rank())
	}
	comps, err := stokesComponents(components, d.Shape()[0])
	if err != nil {
		return nil, err
	}
	wavs, err := c.Wavelengths()
	if err != nil {
		return nil, err
	}
	series := make([]quicklook.Series, 0, len(comps))
	for _, comp := range comps {
		row, err := d.Section(cube.At(stokesRow[comp]), cube.All())
		if err != nil {
			return nil, err
		}
		series = append(series, quicklook.Series{Name: string(comp), Vals: row.Data()})
	}
	return quicklook.MultiSpectrum(wavs, series, quicklook.LineOpts{
		Title:  c.plotTitle(),
		XLabel: "Wavelength [Å]",
		YLabel: "Intensity [DN]",
	})
}

// Frame coordinate conventions for map plots.
const (
	FrameWCS    = "WCS"    // Helioprojective world coordinates
	FrameArcsec = "arcsec" // arcsec offsets from the frame origin
	FramePix    = "pix"    // raw pixel indices
)

func (c *Crisp) mapExtent(frame string) (quicklook.Extent, error) {
	// Rotate-crop resamples pixels off the sky grid, so world coordinates
	// no longer describe them; fall back to relative offsets.
	if frame == FrameWCS && c.rotate {
		frame = FrameArcsec
	}
	switch frame {
	case FramePix, "":
		return quicklook.Extent{XLabel: "x [pixels]", YLabel: "y [pixels]"}, nil
	case FrameWCS, FrameArcsec:
		sub, err := c.spatialWCS()
		if err != nil {
			return quicklook.Extent{}, err
		}
		lat, lon := sub.Axes[0], sub.Axes[1]
		ext := quicklook.Extent{
			DX: lon.Delta, DY: lat.Delta,
			XLabel: "Helioprojective Longitude [arcsec]",
			YLabel: "Helioprojective Latitude [arcsec]",
		}
		if frame == FrameWCS {
			origin, err := sub.ArrayIndexToWorld(0, 0)
			if err != nil {
				return quicklook.Extent{}, err
			}
			ext.Y0, ext.X0 = origin[0], origin[1]
		}
		// The arcsec frame keeps the zero-origin extent.
		return ext, nil
	default:
		return quicklook.Extent{}, fmt.Errorf("crisp: unknown plot frame %q, expected WCS, arcsec or pix", frame)
	}
}

// IntensityMapPlot renders a rank-2 slice as an intensity map in the given
// coordinate frame.
func (c *Crisp) IntensityMapPlot(frame, colormap string) (*plot.Plot, error) {
	return c.intensityMap(frame, colormap, c.plotTitle())
}

func (c *Crisp) intensityMap(frame, colormap, title string) (*plot.Plot, error) {
	d := c.store.Data
	if d.Rank() != 2 {
		return nil, fmt.Errorf("crisp: intensity map plotting needs a rank-2 image slice, got rank %d", d.Rank())
	}
	ext, err := c.mapExtent(frame)
	if err != nil {
		return nil, err
	}
	if colormap == "" {
		colormap = "greyscale"
	}
	return quicklook.Heatmap(d, ext, quicklook.Norm{}, colormap, title)
}

// stokesMapNorm is the display range convention for polarimetric maps:
// Q and U saturate at ±10 DN, V at ±100 DN, and I autoscales with negative
// values masked out.
func stokesMapNorm(comp byte) quicklook.Norm {
	switch comp {
	case 'Q', 'U':
		return quicklook.Norm{Min: -10, Max: 10}
	case 'V':
		return quicklook.Norm{Min: -100, Max: 100}
	default:
		return quicklook.Norm{}
	}
}

// StokesMapPlots renders the selected components of a rank-3
// (component, y, x) slice as maps, one plot per component in selection
// order.
func (c *Crisp) StokesMapPlots(components, frame string) ([]*plot.Plot, error) {
	d := c.store.Data
	if d.Rank() != 3 {
		return nil, fmt.Errorf("crisp: Stokes map plotting needs rank-3 (component, y, x) data, got rank %d", d.Rank())
	}
	comps, err := stokesComponents(components, d.Shape()[0])
	if err != nil {
		return nil, err
	}
	ext, err := c.mapExtent(frame)
	if err != nil {
		return nil, err
	}
	title := c.plotTitle()
	plots := make([]*plot.Plot, 0, len(comps))
	for _, comp := range comps {
		img, err := d.Section(cube.At(stokesRow[comp]), cube.All(), cube.All())
		if err != nil {
			return nil, err
		}
		colormap := "smooth"
		if comp == 'I' {
			// Intensity maps drop unphysical negative pixels.
			img = img.Clone()
			data := img.Data()
			for i, v := range data {
				if v < 0 {
					data[i] = math.NaN()
				}
			}
			colormap = "greyscale"
		}
		p, err := quicklook.Heatmap(img, ext, stokesMapNorm(comp), colormap, fmt.Sprintf("Stokes %s %s", string(comp), title))
		if err != nil {
			return nil, err
		}
		plots = append(plots, p)
	}
	return plots, nil
}
