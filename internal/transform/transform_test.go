package transform

import (
	"math"
	"testing"

	"github.com/GlasgowSolarPhysics/crispy/cube"
)

// uprightFrame builds an h x w NaN frame with a filled rectangle of value v.
func uprightFrame(h, w, yMin, yMax, xMin, xMax int, v float64) *cube.Cube {
	data := make([]float64, h*w)
	for i := range data {
		data[i] = math.NaN()
	}
	for y := yMin; y < yMax; y++ {
		for x := xMin; x < xMax; x++ {
			data[y*w+x] = v
		}
	}
	c, _ := cube.New(data, h, w)
	return c
}

func TestDetectCropUpright(t *testing.T) {
	c := uprightFrame(20, 30, 5, 15, 8, 24, 3)
	cr, err := DetectCrop(c)
	if err != nil {
		t.Fatal(err)
	}
	if cr.YMin != 5 || cr.YMax != 15 || cr.XMin != 8 || cr.XMax != 24 {
		t.Errorf("box = %+v", cr)
	}
	if cr.FrameY != 20 || cr.FrameX != 30 {
		t.Errorf("frame dims = %d x %d", cr.FrameY, cr.FrameX)
	}
	if cr.Angle != 0 {
		t.Errorf("angle = %v, want 0 for an upright region", cr.Angle)
	}
}

func TestDetectCropEmpty(t *testing.T) {
	data := make([]float64, 12)
	for i := range data {
		data[i] = math.NaN()
	}
	c, _ := cube.New(data, 3, 4)
	if _, err := DetectCrop(c); err == nil {
		t.Error("expected error for all-NaN frame")
	}
}

func TestRotateCropUprightIsIdentityCrop(t *testing.T) {
	c := uprightFrame(20, 30, 5, 15, 8, 24, 7)
	cr, err := DetectCrop(c)
	if err != nil {
		t.Fatal(err)
	}
	out, err := RotateCrop(c, cr)
	if err != nil {
		t.Fatal(err)
	}
	if sh := out.Shape(); sh[0] != 10 || sh[1] != 16 {
		t.Fatalf("cropped shape = %v, want [10 16]", sh)
	}
	for _, v := range out.Data() {
		if v != 7 {
			t.Fatalf("cropped value = %v, want 7", v)
		}
	}
}

func TestReconstructRoundTrip(t *testing.T) {
	h, w := 20, 30
	data := make([]float64, h*w)
	for i := range data {
		data[i] = math.NaN()
	}
	// Distinguishable interior values.
	for y := 5; y < 15; y++ {
		for x := 8; x < 24; x++ {
			data[y*w+x] = float64(y*100 + x)
		}
	}
	c, _ := cube.New(data, h, w)
	cr, err := DetectCrop(c)
	if err != nil {
		t.Fatal(err)
	}
	cropped, err := RotateCrop(c, cr)
	if err != nil {
		t.Fatal(err)
	}
	full, err := ReconstructFullFrame(cropped, cr)
	if err != nil {
		t.Fatal(err)
	}
	if sh := full.Shape(); sh[0] != h || sh[1] != w {
		t.Fatalf("reconstructed shape = %v", sh)
	}
	// Interior pixels away from the edge must come back exactly (angle 0,
	// integer-aligned sampling).
	for y := 6; y < 14; y++ {
		for x := 9; x < 23; x++ {
			got, _ := full.At(y, x)
			if math.Abs(got-float64(y*100+x)) > 1e-9 {
				t.Fatalf("pixel (%d,%d) = %v, want %v", y, x, got, float64(y*100+x))
			}
		}
	}
	// Background stays NaN.
	if v, _ := full.At(0, 0); !math.IsNaN(v) {
		t.Errorf("background pixel = %v, want NaN", v)
	}
}

func TestResampleDimensionChecks(t *testing.T) {
	c := uprightFrame(20, 30, 5, 15, 8, 24, 1)
	cr, _ := DetectCrop(c)
	wrong, _ := cube.Zeros(4, 4)
	if _, err := ReconstructFullFrame(wrong, cr); err == nil {
		t.Error("expected crop size mismatch error")
	}
	if _, err := RotateCrop(wrong, cr); err == nil {
		t.Error("expected frame size mismatch error")
	}
	line, _ := cube.Zeros(5)
	if _, err := RotateCrop(line, cr); err == nil {
		t.Error("expected rank error")
	}
}

func TestRotateCropMultiPlane(t *testing.T) {
	h, w := 10, 12
	planes := 3
	data := make([]float64, planes*h*w)
	for i := range data {
		data[i] = math.NaN()
	}
	for p := 0; p < planes; p++ {
		for y := 2; y < 8; y++ {
			for x := 3; x < 9; x++ {
				data[p*h*w+y*w+x] = float64(p + 1)
			}
		}
	}
	c, _ := cube.New(data, planes, h, w)
	cr := Crop{FrameY: h, FrameX: w, YMin: 2, YMax: 8, XMin: 3, XMax: 9}
	out, err := RotateCrop(c, cr)
	if err != nil {
		t.Fatal(err)
	}
	if sh := out.Shape(); sh[0] != 3 || sh[1] != 6 || sh[2] != 6 {
		t.Fatalf("shape = %v", sh)
	}
	for p := 0; p < planes; p++ {
		v, _ := out.At(p, 3, 3)
		if v != float64(p+1) {
			t.Errorf("plane %d value = %v, want %d", p, v, p+1)
		}
	}
}
