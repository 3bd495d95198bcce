package crisp

import (
	"gonum.org/v1/plot"

	"github.com/GlasgowSolarPhysics/crispy/cube"
)

// CrispWideband is the broadband context imaging channel: time series of
// rank-2 images with no spectral axis worth dispatching on.
type CrispWideband struct {
	Crisp
}

// OpenWideband reads a wideband context observation.
func OpenWideband(path string, opts Options) (*CrispWideband, error) {
	c, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &CrispWideband{Crisp: *c}, nil
}

// WidebandFromStore wraps in-memory wideband data.
func WidebandFromStore(st *Store, opts Options) (*CrispWideband, error) {
	c, err := FromStore(st, opts)
	if err != nil {
		return nil, err
	}
	return &CrispWideband{Crisp: *c}, nil
}

// Info returns the wideband observation summary.
func (w *CrispWideband) Info() string {
	return w.infoText("CRISP Wideband Context Image")
}

func (w *CrispWideband) String() string { return w.Info() }

// IntensityMapPlot renders the context image; the title names the channel
// rather than a wavelength position.
func (w *CrispWideband) IntensityMapPlot(frame, colormap string) (*plot.Plot, error) {
	title := "Wideband context"
	if line := w.store.Header.Line(); line != "" {
		title += " " + line
	}
	if t := w.store.Header.Time(); t != "" {
		title += " " + t
	}
	return w.intensityMap(frame, colormap, title)
}

// Section keeps the wideband wrapper type across slicing.
func (w *CrispWideband) Section(sels ...cube.Sel) (*CrispWideband, error) {
	c, err := w.Crisp.Section(sels...)
	if err != nil {
		return nil, err
	}
	return &CrispWideband{Crisp: *c}, nil
}
