package crisp

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/astrogo/fitsio"

	"github.com/GlasgowSolarPhysics/crispy/cube"
	"github.com/GlasgowSolarPhysics/crispy/internal/zarr"
)

// Store is the backing data of one observation: the array handle, its
// metadata, and the explicit wavelength grid when the file carries one.
// Wrapper objects share the store; the array is not copied on wrap.
type Store struct {
	Data    *cube.Cube
	Header  Header
	Wavels  []float64
	Uncert  *cube.Cube
	Mask    *cube.Cube
}

// OpenStore reads an observation file, dispatching on the extension:
// .fits/.fit for FITS files, .zarr for zarr directory stores. Anything else
// is rejected.
func OpenStore(path string) (*Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".fits", ".fit":
		return openFITS(path)
	case ".zarr":
		return openZarr(path)
	default:
		return nil, fmt.Errorf("crisp: cannot open %q: only .fits and .zarr inputs are supported", path)
	}
}

func openFITS(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("crisp: %w", err)
	}
	defer f.Close()
	fits, err := fitsio.Open(f)
	if err != nil {
		return nil, fmt.Errorf("crisp: reading %s: %w", path, err)
	}
	defer fits.Close()

	primary := fits.HDU(0)
	img, ok := primary.(fitsio.Image)
	if !ok {
		return nil, fmt.Errorf("crisp: %s: primary HDU is not an image", path)
	}
	data, shape, err := readImageCube(img)
	if err != nil {
		return nil, fmt.Errorf("crisp: %s: %w", path, err)
	}

	hdr := make(Header)
	ih := img.Header()
	for _, key := range ih.Keys() {
		if card := ih.Get(key); card != nil {
			hdr[card.Name] = card.Value
		}
	}
	hdr["NAXIS"] = len(shape)
	for i, n := range shape {
		hdr[fmt.Sprintf("NAXIS%d", len(shape)-i)] = n
	}

	st := &Store{Header: hdr}
	if st.Data, err = cube.New(data, shape...); err != nil {
		return nil, fmt.Errorf("crisp: %s: %w", path, err)
	}

	// Non-uniform observations carry the wavelength grid as a second HDU.
	if len(fits.HDUs()) > 1 {
		if wimg, ok := fits.HDU(1).(fitsio.Image); ok {
			if wdata, wshape, werr := readImageCube(wimg); werr == nil && len(wshape) == 1 {
				st.Wavels = wdata
			}
		}
	}
	return st, nil
}

// readImageCube reads a FITS image HDU into float64 with the shape in array
// order. FITS orders axes fastest-varying first, so the on-disk layout is
// already C order once the axis list is reversed.
func readImageCube(img fitsio.Image) ([]float64, []int, error) {
	hdr := img.Header()
	axes := hdr.Axes()
	if len(axes) == 0 {
		return nil, nil, fmt.Errorf("image HDU has no data axes")
	}
	shape := make([]int, len(axes))
	for i, n := range axes {
		shape[len(axes)-1-i] = n
	}
	n := 1
	for _, s := range shape {
		n *= s
	}

	out := make([]float64, n)
	switch hdr.Bitpix() {
	case 8:
		raw := make([]uint8, n)
		if err := img.Read(&raw); err != nil {
			return nil, nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 16:
		raw := make([]int16, n)
		if err := img.Read(&raw); err != nil {
			return nil, nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 32:
		raw := make([]int32, n)
		if err := img.Read(&raw); err != nil {
			return nil, nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case 64:
		raw := make([]int64, n)
		if err := img.Read(&raw); err != nil {
			return nil, nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case -32:
		raw := make([]float32, n)
		if err := img.Read(&raw); err != nil {
			return nil, nil, err
		}
		for i, v := range raw {
			out[i] = float64(v)
		}
	case -64:
		if err := img.Read(&out); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("BITPIX %d not supported", hdr.Bitpix())
	}
	return out, shape, nil
}

func openZarr(path string) (*Store, error) {
	hdr := make(Header)
	var arr *zarr.Array

	if _, err := os.Stat(filepath.Join(path, ".zarray")); err == nil {
		// The store is a bare array.
		a, err := zarr.OpenArray(path)
		if err != nil {
			return nil, err
		}
		arr = a
	} else {
		g, err := zarr.Open(path)
		if err != nil {
			return nil, err
		}
		for k, v := range g.Attrs {
			hdr[k] = v
		}
		if arr, err = g.Array("data"); err != nil {
			return nil, fmt.Errorf("crisp: %s has no data array: %w", path, err)
		}
	}
	for k, v := range arr.Attrs {
		hdr[k] = v
	}
	if _, ok := hdr["dimensions"]; !ok {
		dims := arr.Shape()
		vs := make([]any, len(dims))
		for i, d := range dims {
			vs[i] = float64(d)
		}
		hdr["dimensions"] = vs
	}

	data, err := arr.Float64s()
	if err != nil {
		return nil, fmt.Errorf("crisp: %s: %w", path, err)
	}
	c, err := cube.New(data, arr.Shape()...)
	if err != nil {
		return nil, fmt.Errorf("crisp: %s: %w", path, err)
	}
	st := &Store{Data: c, Header: hdr}
	st.Wavels, _ = hdr.Wavelengths()
	return st, nil
}
