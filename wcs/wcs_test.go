package wcs

import (
	"math"
	"testing"

	"github.com/GlasgowSolarPhysics/crispy/cube"
)

func crispHeader() map[string]any {
	return map[string]any{
		"NAXIS":  4,
		"NAXIS1": 100, "CTYPE1": "HPLN-TAN", "CRPIX1": 51.0, "CRVAL1": -720.0, "CDELT1": 0.057,
		"NAXIS2": 80, "CTYPE2": "HPLT-TAN", "CRPIX2": 41.0, "CRVAL2": -310.0, "CDELT2": 0.057,
		"NAXIS3": 15, "CTYPE3": "WAVE", "CRPIX3": 8.0, "CRVAL3": 8542.0, "CDELT3": 0.1,
		"NAXIS4": 4, "CTYPE4": "STOKES", "CRPIX4": 1.0, "CRVAL4": 1.0, "CDELT4": 1.0,
	}
}

func TestFromFITSHeaderArrayOrder(t *testing.T) {
	w, err := FromFITSHeader(crispHeader())
	if err != nil {
		t.Fatal(err)
	}
	if w.NAxes() != 4 {
		t.Fatalf("NAxes = %d, want 4", w.NAxes())
	}
	// Array order reverses the FITS axis numbering.
	wantTypes := []string{"STOKES", "WAVE", "HPLT-TAN", "HPLN-TAN"}
	for i, wt := range wantTypes {
		if w.Axes[i].Type != wt {
			t.Errorf("axis %d type = %q, want %q", i, w.Axes[i].Type, wt)
		}
	}
	if got := w.ArrayShape(); got[0] != 4 || got[1] != 15 || got[2] != 80 || got[3] != 100 {
		t.Errorf("shape = %v, want [4 15 80 100]", got)
	}
}

func TestFromFITSHeaderMissingNAXIS(t *testing.T) {
	if _, err := FromFITSHeader(map[string]any{"NAXIS": 2, "NAXIS1": 10}); err == nil {
		t.Error("expected error for missing NAXIS2")
	}
	if _, err := FromFITSHeader(map[string]any{}); err == nil {
		t.Error("expected error for missing NAXIS")
	}
}

func TestFromObsAttrs(t *testing.T) {
	attrs := map[string]any{
		"dimensions":  []any{15.0, 80.0, 100.0},
		"crval":       []any{8542.0, -310.0, -720.0},
		"pixel_scale": 0.057,
	}
	w, err := FromObsAttrs(attrs, false)
	if err != nil {
		t.Fatal(err)
	}
	if w.Axes[0].Type != "WAVE" || w.Axes[1].Type != "HPLT-TAN" || w.Axes[2].Type != "HPLN-TAN" {
		t.Errorf("inferred types = %v %v %v", w.Axes[0].Type, w.Axes[1].Type, w.Axes[2].Type)
	}
	if w.Axes[1].Delta != 0.057 || w.Axes[2].Delta != 0.057 {
		t.Errorf("spatial deltas = %v %v, want pixel_scale", w.Axes[1].Delta, w.Axes[2].Delta)
	}
	if w.Axes[0].RefVal != 8542.0 {
		t.Errorf("spectral crval = %v", w.Axes[0].RefVal)
	}
}

func TestFromObsAttrsNonUniformZeroesSpectralDelta(t *testing.T) {
	attrs := map[string]any{
		"dimensions":  []any{15.0, 80.0, 100.0},
		"crval":       []any{8542.0, -310.0, -720.0},
		"cdelt":       []any{0.1, 0.057, 0.057},
		"pixel_scale": 0.057,
	}
	w, err := FromObsAttrs(attrs, true)
	if err != nil {
		t.Fatal(err)
	}
	// A non-uniform grid makes any spectral increment a lie.
	if w.Axes[0].Delta != 0 {
		t.Errorf("spectral delta = %v, want 0", w.Axes[0].Delta)
	}
	if w.Axes[1].Delta != 0.057 || w.Axes[2].Delta != 0.057 {
		t.Errorf("spatial deltas = %v %v, want untouched", w.Axes[1].Delta, w.Axes[2].Delta)
	}
	if _, err := w.WorldToArrayIndex(8542, -310, -720); err == nil {
		t.Error("expected zero increment error on the spectral axis")
	}
}

func TestFromObsAttrsRankOneIsSpectral(t *testing.T) {
	attrs := map[string]any{
		"dimensions": []any{15.0},
		"crval":      []any{8542.0},
	}
	w, err := FromObsAttrs(attrs, false)
	if err != nil {
		t.Fatal(err)
	}
	if w.Axes[0].Type != "WAVE" {
		t.Errorf("rank-1 inferred type = %q, want WAVE", w.Axes[0].Type)
	}
}

func TestRoundTrip(t *testing.T) {
	w, err := FromFITSHeader(crispHeader())
	if err != nil {
		t.Fatal(err)
	}
	idx := []int{2, 7, 40, 50}
	world, err := w.ArrayIndexToWorld(idx...)
	if err != nil {
		t.Fatal(err)
	}
	back, err := w.WorldToArrayIndex(world...)
	if err != nil {
		t.Fatal(err)
	}
	for i := range idx {
		if back[i] != idx[i] {
			t.Errorf("axis %d: round trip %d -> %v -> %d", i, idx[i], world[i], back[i])
		}
	}
	// CRPIX3=8 means index 7 sits exactly at CRVAL3.
	if math.Abs(world[1]-8542.0) > 1e-9 {
		t.Errorf("wavelength at reference pixel = %v, want 8542", world[1])
	}
}

func TestSubDropsAndShifts(t *testing.T) {
	w, err := FromFITSHeader(crispHeader())
	if err != nil {
		t.Fatal(err)
	}
	sub, err := w.Sub(cube.At(0), cube.All(), cube.Span(10, 50), cube.All())
	if err != nil {
		t.Fatal(err)
	}
	if sub.NAxes() != 3 {
		t.Fatalf("NAxes = %d, want 3", sub.NAxes())
	}
	if sub.Axes[0].Type != "WAVE" {
		t.Errorf("first remaining axis = %q, want WAVE", sub.Axes[0].Type)
	}
	if sub.Axes[1].Len != 40 {
		t.Errorf("shifted axis length = %d, want 40", sub.Axes[1].Len)
	}
	// World value of new index 0 must equal old index 10.
	origWorld, _ := w.ArrayIndexToWorld(0, 0, 10, 0)
	subWorld, _ := sub.ArrayIndexToWorld(0, 0, 0)
	if math.Abs(subWorld[1]-origWorld[2]) > 1e-9 {
		t.Errorf("shifted axis world = %v, want %v", subWorld[1], origWorld[2])
	}
}

func TestSubErrors(t *testing.T) {
	w, _ := FromFITSHeader(crispHeader())
	if _, err := w.Sub(cube.All()); err == nil {
		t.Error("expected selector count error")
	}
	if _, err := w.Sub(cube.At(0), cube.At(0), cube.At(0), cube.At(0)); err == nil {
		t.Error("expected error when every axis is dropped")
	}
	if _, err := w.Sub(cube.All(), cube.Span(0, 99), cube.All(), cube.All()); err == nil {
		t.Error("expected span range error")
	}
}

func TestWorldToArrayIndexZeroDelta(t *testing.T) {
	w := &WCS{Axes: []Axis{{Type: "WAVE", RefPix: 1, RefVal: 8542, Delta: 0, Len: 10}}}
	if _, err := w.WorldToArrayIndex(8542); err == nil {
		t.Error("expected zero increment error")
	}
}
