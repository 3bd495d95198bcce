// Package zarr reads zarr v2 directory stores, covering what CRISP
// observation archives actually use: a group holding float arrays with
// C-order chunks, JSON attributes, and zlib/gzip (or no) compression.
package zarr

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Meta is the decoded .zarray metadata document.
type Meta struct {
	Shape      []int       `json:"shape"`
	Chunks     []int       `json:"chunks"`
	DType      string      `json:"dtype"`
	Compressor *Compressor `json:"compressor"`
	FillValue  any         `json:"fill_value"`
	Order      string      `json:"order"`
	ZarrFormat int         `json:"zarr_format"`
}

// Compressor is the compressor block of .zarray.
type Compressor struct {
	ID    string `json:"id"`
	Level int    `json:"level,omitempty"`
}

// Array is one zarr array inside a store.
type Array struct {
	dir   string
	Meta  Meta
	Attrs map[string]any
}

// Group is a zarr group directory: attributes plus named member arrays.
type Group struct {
	dir   string
	Attrs map[string]any
}

// Open opens a zarr group directory (a path ending in .zarr, typically).
func Open(dir string) (*Group, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("zarr: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("zarr: %s is not a directory store", dir)
	}
	attrs, err := readAttrs(dir)
	if err != nil {
		return nil, err
	}
	return &Group{dir: dir, Attrs: attrs}, nil
}

// Array opens the named member array of the group.
func (g *Group) Array(name string) (*Array, error) {
	return OpenArray(filepath.Join(g.dir, name))
}

// OpenArray opens the array rooted at dir (the directory holding .zarray).
func OpenArray(dir string) (*Array, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ".zarray"))
	if err != nil {
		return nil, fmt.Errorf("zarr: reading array metadata: %w", err)
	}
	var meta Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("zarr: parsing .zarray: %w", err)
	}
	if meta.ZarrFormat != 2 {
		return nil, fmt.Errorf("zarr: format %d not supported, expected 2", meta.ZarrFormat)
	}
	if meta.Order != "" && meta.Order != "C" {
		return nil, fmt.Errorf("zarr: order %q not supported, expected C", meta.Order)
	}
	if len(meta.Shape) == 0 || len(meta.Shape) != len(meta.Chunks) {
		return nil, fmt.Errorf("zarr: shape %v and chunks %v disagree", meta.Shape, meta.Chunks)
	}
	attrs, err := readAttrs(dir)
	if err != nil {
		return nil, err
	}
	return &Array{dir: dir, Meta: meta, Attrs: attrs}, nil
}

// Shape returns the array shape.
func (a *Array) Shape() []int {
	out := make([]int, len(a.Meta.Shape))
	copy(out, a.Meta.Shape)
	return out
}

// Float64s assembles the whole array into a flat C-order float64 slice,
// whatever the stored dtype. Missing chunk files read as the fill value.
func (a *Array) Float64s() ([]float64, error) {
	elemSize, decode, err := dtypeDecoder(a.Meta.DType)
	if err != nil {
		return nil, err
	}
	total := 1
	for _, s := range a.Meta.Shape {
		total *= s
	}
	fill := fillValue(a.Meta.FillValue)
	out := make([]float64, total)
	if fill != 0 || math.IsNaN(fill) {
		for i := range out {
			out[i] = fill
		}
	}

	grid := make([]int, len(a.Meta.Shape))
	for i := range grid {
		grid[i] = (a.Meta.Shape[i] + a.Meta.Chunks[i] - 1) / a.Meta.Chunks[i]
	}
	coord := make([]int, len(grid))
	for {
		if err := a.readChunk(coord, elemSize, decode, out); err != nil {
			return nil, err
		}
		axis := len(coord) - 1
		for axis >= 0 {
			coord[axis]++
			if coord[axis] < grid[axis] {
				break
			}
			coord[axis] = 0
			axis--
		}
		if axis < 0 {
			break
		}
	}
	return out, nil
}

// readChunk decodes one chunk and scatters it into the output array,
// clipping the chunk at the array edge.
func (a *Array) readChunk(coord []int, elemSize int, decode func([]byte) float64, out []float64) error {
	parts := make([]string, len(coord))
	for i, c := range coord {
		parts[i] = strconv.Itoa(c)
	}
	name := strings.Join(parts, ".")
	raw, err := os.ReadFile(filepath.Join(a.dir, name))
	if os.IsNotExist(err) {
		return nil // fill value already in place
	}
	if err != nil {
		return fmt.Errorf("zarr: reading chunk %s: %w", name, err)
	}
	buf, err := a.decompress(raw)
	if err != nil {
		return fmt.Errorf("zarr: chunk %s: %w", name, err)
	}

	chunkLen := 1
	for _, c := range a.Meta.Chunks {
		chunkLen *= c
	}
	if len(buf) < chunkLen*elemSize {
		return fmt.Errorf("zarr: chunk %s holds %d bytes, want %d", name, len(buf), chunkLen*elemSize)
	}

	// Walk chunk-local coordinates, skipping positions past the array edge.
	local := make([]int, len(coord))
	for pos := 0; ; pos++ {
		inside := true
		off := 0
		for i := range local {
			gi := coord[i]*a.Meta.Chunks[i] + local[i]
			if gi >= a.Meta.Shape[i] {
				inside = false
				break
			}
			off = off*a.Meta.Shape[i] + gi
		}
		if inside {
			out[off] = decode(buf[pos*elemSize:])
		}
		axis := len(local) - 1
		for axis >= 0 {
			local[axis]++
			if local[axis] < a.Meta.Chunks[axis] {
				break
			}
			local[axis] = 0
			axis--
		}
		if axis < 0 {
			return nil
		}
	}
}

func (a *Array) decompress(raw []byte) ([]byte, error) {
	if a.Meta.Compressor == nil {
		return raw, nil
	}
	switch a.Meta.Compressor.ID {
	case "zlib":
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("compressor %q not supported", a.Meta.Compressor.ID)
	}
}

func dtypeDecoder(dtype string) (int, func([]byte) float64, error) {
	switch dtype {
	case "<f8":
		return 8, func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }, nil
	case "<f4":
		return 4, func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }, nil
	case "<i8":
		return 8, func(b []byte) float64 { return float64(int64(binary.LittleEndian.Uint64(b))) }, nil
	case "<i4":
		return 4, func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) }, nil
	case "<i2":
		return 2, func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) }, nil
	case "<u2":
		return 2, func(b []byte) float64 { return float64(binary.LittleEndian.Uint16(b)) }, nil
	case "<u4":
		return 4, func(b []byte) float64 { return float64(binary.LittleEndian.Uint32(b)) }, nil
	case "|i1":
		return 1, func(b []byte) float64 { return float64(int8(b[0])) }, nil
	case "|u1":
		return 1, func(b []byte) float64 { return float64(b[0]) }, nil
	default:
		return 0, nil, fmt.Errorf("zarr: dtype %q not supported", dtype)
	}
}

func fillValue(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		switch x {
		case "NaN":
			return math.NaN()
		case "Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
	}
	return 0
}

func readAttrs(dir string) (map[string]any, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ".zattrs"))
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("zarr: reading attributes: %w", err)
	}
	attrs := map[string]any{}
	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, fmt.Errorf("zarr: parsing .zattrs: %w", err)
	}
	return attrs, nil
}
