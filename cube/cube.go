// Package cube provides the N-dimensional float64 array handle that backs
// CRISP observation objects. Data is stored flat in C order (slowest-varying
// axis first), matching the layout of FITS image HDUs and zarr arrays.
package cube

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Sel selects along one axis: a single index, a half-open span, or the
// whole axis. Index selections drop the axis from the result.
type Sel struct {
	Lo, Hi int
	Index  bool
	Entire bool
}

// At selects a single index, dropping the axis.
func At(i int) Sel { return Sel{Lo: i, Index: true} }

// Span selects the half-open range [lo, hi), keeping the axis.
func Span(lo, hi int) Sel { return Sel{Lo: lo, Hi: hi} }

// All keeps the whole axis.
func All() Sel { return Sel{Entire: true} }

// Cube is a dense N-dimensional array of float64 with rank 1 to 4.
type Cube struct {
	data  []float64
	shape []int
}

// New wraps data with the given shape. The data slice is retained, not
// copied.
func New(data []float64, shape ...int) (*Cube, error) {
	if len(shape) < 1 || len(shape) > 4 {
		return nil, fmt.Errorf("cube: rank %d not supported, expected 1 to 4", len(shape))
	}
	n := 1
	for _, s := range shape {
		if s < 1 {
			return nil, fmt.Errorf("cube: invalid axis length %d", s)
		}
		n *= s
	}
	if n != len(data) {
		return nil, fmt.Errorf("cube: shape %v needs %d elements, have %d", shape, n, len(data))
	}
	return &Cube{data: data, shape: shape}, nil
}

// Zeros returns an all-zero cube of the given shape.
func Zeros(shape ...int) (*Cube, error) {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return New(make([]float64, n), shape...)
}

// Rank returns the number of axes.
func (c *Cube) Rank() int { return len(c.shape) }

// Shape returns the axis lengths, slowest-varying first.
func (c *Cube) Shape() []int {
	out := make([]int, len(c.shape))
	copy(out, c.shape)
	return out
}

// Len returns the total number of elements.
func (c *Cube) Len() int { return len(c.data) }

// Data returns the backing slice. Callers must treat it as read-only unless
// they own the cube.
func (c *Cube) Data() []float64 { return c.data }

func (c *Cube) offset(idx []int) (int, error) {
	if len(idx) != len(c.shape) {
		return 0, fmt.Errorf("cube: got %d indices for rank %d", len(idx), len(c.shape))
	}
	off := 0
	for i, ix := range idx {
		if ix < 0 || ix >= c.shape[i] {
			return 0, fmt.Errorf("cube: index %d out of range for axis %d (length %d)", ix, i, c.shape[i])
		}
		off = off*c.shape[i] + ix
	}
	return off, nil
}

// At returns the element at the given indices.
func (c *Cube) At(idx ...int) (float64, error) {
	off, err := c.offset(idx)
	if err != nil {
		return 0, err
	}
	return c.data[off], nil
}

// Set assigns the element at the given indices.
func (c *Cube) Set(v float64, idx ...int) error {
	off, err := c.offset(idx)
	if err != nil {
		return err
	}
	c.data[off] = v
	return nil
}

func (s Sel) bounds(axisLen int) (lo, hi int, err error) {
	switch {
	case s.Entire:
		return 0, axisLen, nil
	case s.Index:
		if s.Lo < 0 || s.Lo >= axisLen {
			return 0, 0, fmt.Errorf("cube: index %d out of range (axis length %d)", s.Lo, axisLen)
		}
		return s.Lo, s.Lo + 1, nil
	default:
		if s.Lo < 0 || s.Hi > axisLen || s.Lo >= s.Hi {
			return 0, 0, fmt.Errorf("cube: span [%d, %d) out of range (axis length %d)", s.Lo, s.Hi, axisLen)
		}
		return s.Lo, s.Hi, nil
	}
}

// Section extracts a sub-cube. One Sel per axis; At selections drop their
// axis, so the result rank is the number of Span/All selections. Selecting
// every axis by index is rejected, use At instead.
func (c *Cube) Section(sels ...Sel) (*Cube, error) {
	if len(sels) != len(c.shape) {
		return nil, fmt.Errorf("cube: got %d selectors for rank %d", len(sels), len(c.shape))
	}
	los := make([]int, len(sels))
	his := make([]int, len(sels))
	var outShape []int
	for i, s := range sels {
		lo, hi, err := s.bounds(c.shape[i])
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		los[i], his[i] = lo, hi
		if !s.Index {
			outShape = append(outShape, hi-lo)
		}
	}
	if len(outShape) == 0 {
		return nil, fmt.Errorf("cube: section drops every axis, use At for single elements")
	}

	out := make([]float64, 0, prod(outShape))
	idx := make([]int, len(sels))
	copy(idx, los)
	for {
		off := 0
		for i, ix := range idx {
			off = off*c.shape[i] + ix
		}
		out = append(out, c.data[off])

		// Advance the odometer over the selected region.
		axis := len(idx) - 1
		for axis >= 0 {
			idx[axis]++
			if idx[axis] < his[axis] {
				break
			}
			idx[axis] = los[axis]
			axis--
		}
		if axis < 0 {
			break
		}
	}
	return New(out, outShape...)
}

// Frame returns the trailing 2-D plane selected by the leading indices.
// A rank-2 cube with no indices returns itself.
func (c *Cube) Frame(lead ...int) (*Cube, error) {
	if len(lead) != len(c.shape)-2 {
		return nil, fmt.Errorf("cube: rank %d frame needs %d leading indices, got %d", len(c.shape), len(c.shape)-2, len(lead))
	}
	if len(lead) == 0 {
		return c, nil
	}
	sels := make([]Sel, len(c.shape))
	for i, ix := range lead {
		sels[i] = At(ix)
	}
	sels[len(sels)-2] = All()
	sels[len(sels)-1] = All()
	return c.Section(sels...)
}

// MinMax returns the extreme values of the cube.
func (c *Cube) MinMax() (min, max float64) {
	return floats.Min(c.data), floats.Max(c.data)
}

// Mean returns the arithmetic mean of the cube.
func (c *Cube) Mean() float64 { return stat.Mean(c.data, nil) }

// Clone returns a deep copy.
func (c *Cube) Clone() *Cube {
	d := make([]float64, len(c.data))
	copy(d, c.data)
	s := make([]int, len(c.shape))
	copy(s, c.shape)
	return &Cube{data: d, shape: s}
}

func prod(xs []int) int {
	n := 1
	for _, x := range xs {
		n *= x
	}
	return n
}
