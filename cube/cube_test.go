package cube

import (
	"math"
	"testing"
)

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)
	}
	return out
}

func TestNewShapeMismatch(t *testing.T) {
	if _, err := New(seq(5), 2, 3); err == nil {
		t.Fatal("expected error for 5 elements with shape 2x3")
	}
	if _, err := New(seq(32), 2, 2, 2, 2, 2); err == nil {
		t.Fatal("expected error for rank 5")
	}
}

func TestAt(t *testing.T) {
	c, err := New(seq(24), 2, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	v, err := c.At(1, 2, 3)
	if err != nil {
		t.Fatal(err)
	}
	if v != 23 {
		t.Errorf("At(1,2,3) = %v, want 23", v)
	}
	if _, err := c.At(0, 3, 0); err == nil {
		t.Error("expected out of range error")
	}
	if _, err := c.At(0, 0); err == nil {
		t.Error("expected index count error")
	}
}

func TestSectionDropAxis(t *testing.T) {
	c, _ := New(seq(24), 2, 3, 4)
	s, err := c.Section(At(1), All(), All())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Shape(); got[0] != 3 || got[1] != 4 || len(got) != 2 {
		t.Fatalf("shape = %v, want [3 4]", got)
	}
	v, _ := s.At(0, 0)
	if v != 12 {
		t.Errorf("section[0,0] = %v, want 12", v)
	}
}

func TestSectionSpan(t *testing.T) {
	c, _ := New(seq(24), 2, 3, 4)
	s, err := c.Section(All(), Span(1, 3), At(2))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Shape(); len(got) != 2 || got[0] != 2 || got[1] != 2 {
		t.Fatalf("shape = %v, want [2 2]", got)
	}
	// Original indices (0,1,2), (0,2,2), (1,1,2), (1,2,2).
	want := []float64{6, 10, 18, 22}
	for i, w := range want {
		if s.Data()[i] != w {
			t.Errorf("data[%d] = %v, want %v", i, s.Data()[i], w)
		}
	}
}

func TestFrame(t *testing.T) {
	c, _ := New(seq(24), 2, 3, 4)
	f, err := c.Frame(1)
	if err != nil {
		t.Fatal(err)
	}
	if got := f.Shape(); got[0] != 3 || got[1] != 4 {
		t.Fatalf("frame shape = %v", got)
	}
	if _, err := c.Frame(); err == nil {
		t.Error("expected leading index count error")
	}
}

func TestStats(t *testing.T) {
	c, _ := New([]float64{1, -2, 3, 0}, 2, 2)
	min, max := c.MinMax()
	if min != -2 || max != 3 {
		t.Errorf("MinMax = %v, %v", min, max)
	}
	if m := c.Mean(); math.Abs(m-0.5) > 1e-12 {
		t.Errorf("Mean = %v, want 0.5", m)
	}
}

func TestCloneIndependent(t *testing.T) {
	c, _ := New(seq(4), 2, 2)
	d := c.Clone()
	d.Set(99, 0, 0)
	v, _ := c.At(0, 0)
	if v != 0 {
		t.Error("Clone shares backing data")
	}
}
