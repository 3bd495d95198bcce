package inversion

import (
	"bytes"
	"strings"
	"testing"

	"gonum.org/v1/plot/vg"

	"github.com/GlasgowSolarPhysics/crispy/crisp"
	"github.com/GlasgowSolarPhysics/crispy/cube"
)

func testCubes(t *testing.T) (ne, temp, vel, errs *cube.Cube, z []float64) {
	t.Helper()
	nz, ny, nx := 4, 5, 6
	mk := func(scale float64) *cube.Cube {
		data := make([]float64, nz*ny*nx)
		for i := range data {
			data[i] = scale * float64(i%13)
		}
		c, err := cube.New(data, nz, ny, nx)
		if err != nil {
			t.Fatal(err)
		}
		return c
	}
	vd := make([]float64, nz*ny*nx)
	for i := range vd {
		vd[i] = float64(i%21) - 10
	}
	v, err := cube.New(vd, nz, ny, nx)
	if err != nil {
		t.Fatal(err)
	}
	return mk(1), mk(0.5), v, mk(0.1), []float64{0.5, 1.0, 1.5, 2.0}
}

func TestNewValidation(t *testing.T) {
	ne, temp, vel, errs, z := testCubes(t)
	if _, err := New(ne, temp, vel, errs, z, nil); err != nil {
		t.Fatalf("valid inputs rejected: %v", err)
	}
	if _, err := New(nil, temp, vel, errs, z, nil); err == nil {
		t.Error("expected missing parameter error")
	}
	small, _ := cube.Zeros(4, 5, 5)
	if _, err := New(ne, small, vel, errs, z, nil); err == nil {
		t.Error("expected shape mismatch error")
	}
	if _, err := New(ne, temp, vel, errs, []float64{1, 2}, nil); err == nil {
		t.Error("expected height axis mismatch error")
	}
	if _, err := New(ne, temp, vel, errs, nil, nil); err == nil {
		t.Error("expected empty height grid error")
	}
}

func TestInfoWithAndWithoutHeader(t *testing.T) {
	ne, temp, vel, errs, z := testCubes(t)
	bare, err := New(ne, temp, vel, errs, z, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(bare.Info(), "No observation metadata") {
		t.Errorf("bare Info() = %q", bare.Info())
	}
	hdr := crisp.Header{"date_obs": "2014-08-21", "time_obs": "11:00:01", "element": "Halpha"}
	withHdr, err := New(ne, temp, vel, errs, z, hdr)
	if err != nil {
		t.Fatal(err)
	}
	info := withHdr.Info()
	for _, want := range []string{"2014-08-21", "11:00:01", "Halpha", "0.50 to 2.00 Mm"} {
		if !strings.Contains(info, want) {
			t.Errorf("Info() missing %q:\n%s", want, info)
		}
	}
}

func TestProfileAndMapPlots(t *testing.T) {
	ne, temp, vel, errs, z := testCubes(t)
	inv, err := New(ne, temp, vel, errs, z, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := inv.NeProfilePlot(2, 3); err != nil {
		t.Errorf("ne profile: %v", err)
	}
	if _, err := inv.TempProfilePlot(0, 0); err != nil {
		t.Errorf("temp profile: %v", err)
	}
	if _, err := inv.VelProfilePlot(4, 5); err != nil {
		t.Errorf("vel profile: %v", err)
	}
	if _, err := inv.NeProfilePlot(9, 0); err == nil {
		t.Error("expected out of range pixel error")
	}
	if _, err := inv.NeMapPlot(1); err != nil {
		t.Errorf("ne map: %v", err)
	}
	if _, err := inv.VelMapPlot(0); err != nil {
		t.Errorf("vel map: %v", err)
	}
	if _, err := inv.TempMapPlot(7); err == nil {
		t.Error("expected height index error")
	}
}

func TestCombinedFigures(t *testing.T) {
	ne, temp, vel, errs, z := testCubes(t)
	inv, err := New(ne, temp, vel, errs, z, nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := inv.WriteParamsFigure(&buf, 1, 9*vg.Inch, 3*vg.Inch); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Error("params figure is not a PNG")
	}
	buf.Reset()
	if err := inv.WriteProfilesFigure(&buf, 1, 1, 9*vg.Inch, 3*vg.Inch); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Error("empty profiles figure")
	}
}

func TestFlatten(t *testing.T) {
	data := [][]float32{{1, 2, 3}, {4, 5, 6}}
	flat, shape, err := flatten(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(shape) != 2 || shape[0] != 2 || shape[1] != 3 {
		t.Fatalf("shape = %v", shape)
	}
	if flat[0] != 1 || flat[5] != 6 {
		t.Errorf("flat = %v", flat)
	}
	if _, _, err := flatten([][]string{{"a"}}); err == nil {
		t.Error("expected non-numeric error")
	}
	if _, _, err := flatten([][]float64{}); err == nil {
		t.Error("expected empty dimension error")
	}
}
