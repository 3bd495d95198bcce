package crisp

import (
	"fmt"
	"strings"

	"github.com/GlasgowSolarPhysics/crispy/cube"
)

// CrispNonU is a narrowband observation whose spectral axis is not
// uniformly sampled. The wavelength grid comes from the file itself (the
// secondary FITS HDU or the wavels attribute) and wavelength lookups index
// that grid instead of the linear WCS axis.
type CrispNonU struct {
	Crisp
}

// OpenNonU reads a non-uniformly sampled observation. The file must carry
// an explicit wavelength grid.
func OpenNonU(path string, opts Options) (*CrispNonU, error) {
	opts.NonUniform = true
	c, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	if len(c.store.Wavels) == 0 {
		return nil, fmt.Errorf("crisp: %s carries no wavelength grid; a non-uniform observation needs one", path)
	}
	return &CrispNonU{Crisp: *c}, nil
}

// NonUFromStore wraps in-memory non-uniform data; the store must carry the
// wavelength grid.
func NonUFromStore(st *Store, opts Options) (*CrispNonU, error) {
	opts.NonUniform = true
	c, err := FromStore(st, opts)
	if err != nil {
		return nil, err
	}
	if len(c.store.Wavels) == 0 {
		return nil, fmt.Errorf("crisp: store carries no wavelength grid; a non-uniform observation needs one")
	}
	return &CrispNonU{Crisp: *c}, nil
}

// SampledWavelengths returns the full recorded wavelength grid in Å.
func (n *CrispNonU) SampledWavelengths() []float64 {
	out := make([]float64, len(n.store.Wavels))
	copy(out, n.store.Wavels)
	return out
}

// Info returns the observation summary with the sampled grid appended.
func (n *CrispNonU) Info() string {
	var b strings.Builder
	b.WriteString(n.infoText("CRISP Observation (non-uniform spectral sampling)"))
	fmt.Fprintf(&b, "\nSampled wavelengths [Å]: %v", n.store.Wavels)
	return b.String()
}

func (n *CrispNonU) String() string { return n.Info() }

// Section keeps the non-uniform wrapper type across slicing.
func (n *CrispNonU) Section(sels ...cube.Sel) (*CrispNonU, error) {
	c, err := n.Crisp.Section(sels...)
	if err != nil {
		return nil, err
	}
	return &CrispNonU{Crisp: *c}, nil
}
