// Package transform rotates and crops observation frames. CRISP frames are
// stored as a rotated rectangle of science pixels inside a NaN-padded full
// camera frame; these routines find that region, resample it upright, and
// reverse the operation.
package transform

import (
	"fmt"
	"math"

	"github.com/GlasgowSolarPhysics/crispy/cube"
)

// Crop records the geometry of the science region inside a full frame, in
// pixels: the bounding box of finite data, the rotation angle in degrees,
// and the full frame dimensions needed to reverse the crop.
type Crop struct {
	FrameY, FrameX int
	YMin, YMax     int // half-open
	XMin, XMax     int
	Angle          float64
}

// DetectCrop scans the trailing plane of c for the rotated science region.
// The background must be NaN. The angle is estimated from how far the top
// edge of the finite region is displaced from the bounding box corner.
func DetectCrop(c *cube.Cube) (Crop, error) {
	if c.Rank() < 2 {
		return Crop{}, fmt.Errorf("transform: rank %d cube has no frame to scan", c.Rank())
	}
	sh := c.Shape()
	h, w := sh[len(sh)-2], sh[len(sh)-1]
	plane := c.Data()[:h*w]

	cr := Crop{FrameY: h, FrameX: w, YMin: h, XMin: w}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if math.IsNaN(plane[y*w+x]) {
				continue
			}
			if y < cr.YMin {
				cr.YMin = y
			}
			if y >= cr.YMax {
				cr.YMax = y + 1
			}
			if x < cr.XMin {
				cr.XMin = x
			}
			if x >= cr.XMax {
				cr.XMax = x + 1
			}
		}
	}
	if cr.YMin >= cr.YMax || cr.XMin >= cr.XMax {
		return Crop{}, fmt.Errorf("transform: frame holds no finite pixels")
	}

	// Leftmost finite pixel of the top row, and topmost finite pixel of the
	// left column. For an upright region both sit at the box corner.
	xTop := cr.XMax - 1
	for x := cr.XMin; x < cr.XMax; x++ {
		if !math.IsNaN(plane[cr.YMin*w+x]) {
			xTop = x
			break
		}
	}
	yLeft := cr.YMax - 1
	for y := cr.YMin; y < cr.YMax; y++ {
		if !math.IsNaN(plane[y*w+cr.XMin]) {
			yLeft = y
			break
		}
	}
	cr.Angle = math.Atan2(float64(xTop-cr.XMin), float64(yLeft-cr.YMin)) * 180 / math.Pi
	return cr, nil
}

// RotateCrop resamples every trailing plane of c so the science region sits
// upright, cropped to its bounding box. Pixels sampled from outside the
// frame come back NaN.
func RotateCrop(c *cube.Cube, cr Crop) (*cube.Cube, error) {
	return resample(c, cr, false)
}

// ReconstructFullFrame reverses RotateCrop: cropped upright planes are
// rotated back into NaN-padded full camera frames.
func ReconstructFullFrame(c *cube.Cube, cr Crop) (*cube.Cube, error) {
	return resample(c, cr, true)
}

func resample(c *cube.Cube, cr Crop, inverse bool) (*cube.Cube, error) {
	if c.Rank() < 2 {
		return nil, fmt.Errorf("transform: rank %d cube has no frames", c.Rank())
	}
	sh := c.Shape()
	srcH, srcW := sh[len(sh)-2], sh[len(sh)-1]
	cropH, cropW := cr.YMax-cr.YMin, cr.XMax-cr.XMin
	if cropH < 1 || cropW < 1 || cr.FrameY < 1 || cr.FrameX < 1 {
		return nil, fmt.Errorf("transform: degenerate crop geometry %+v", cr)
	}

	var dstH, dstW int
	if inverse {
		if srcH != cropH || srcW != cropW {
			return nil, fmt.Errorf("transform: plane is %dx%d but crop region is %dx%d", srcH, srcW, cropH, cropW)
		}
		dstH, dstW = cr.FrameY, cr.FrameX
	} else {
		if srcH != cr.FrameY || srcW != cr.FrameX {
			return nil, fmt.Errorf("transform: plane is %dx%d but full frame is %dx%d", srcH, srcW, cr.FrameY, cr.FrameX)
		}
		dstH, dstW = cropH, cropW
	}

	outShape := append([]int{}, sh[:len(sh)-2]...)
	outShape = append(outShape, dstH, dstW)
	nPlanes := 1
	for _, s := range sh[:len(sh)-2] {
		nPlanes *= s
	}

	rad := cr.Angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	// Rotation centre: the middle of the science bounding box in frame
	// coordinates, which maps to the middle of the cropped plane.
	fy := float64(cr.YMin) + float64(cropH-1)/2
	fx := float64(cr.XMin) + float64(cropW-1)/2
	cy := float64(cropH-1) / 2
	cx := float64(cropW-1) / 2

	out := make([]float64, nPlanes*dstH*dstW)
	src := c.Data()
	for p := 0; p < nPlanes; p++ {
		sp := src[p*srcH*srcW : (p+1)*srcH*srcW]
		op := out[p*dstH*dstW : (p+1)*dstH*dstW]
		for y := 0; y < dstH; y++ {
			for x := 0; x < dstW; x++ {
				var sy, sx float64
				if inverse {
					// Frame pixel -> crop coordinates.
					dy, dx := float64(y)-fy, float64(x)-fx
					sy = cos*dy - sin*dx + cy
					sx = sin*dy + cos*dx + cx
				} else {
					// Crop pixel -> frame coordinates.
					dy, dx := float64(y)-cy, float64(x)-cx
					sy = cos*dy + sin*dx + fy
					sx = -sin*dy + cos*dx + fx
				}
				op[y*dstW+x] = bilinear(sp, srcH, srcW, sy, sx)
			}
		}
	}
	return cube.New(out, outShape...)
}

// bilinear samples the plane at fractional coordinates, NaN outside.
func bilinear(plane []float64, h, w int, y, x float64) float64 {
	if y < 0 || x < 0 || y > float64(h-1) || x > float64(w-1) {
		return math.NaN()
	}
	y0, x0 := int(y), int(x)
	y1, x1 := y0+1, x0+1
	if y1 > h-1 {
		y1 = h - 1
	}
	if x1 > w-1 {
		x1 = w - 1
	}
	fy, fx := y-float64(y0), x-float64(x0)
	// Zero-weight neighbors must not pull in NaN from outside the region.
	top := plane[y0*w+x0]
	if fx > 0 {
		top += (plane[y0*w+x1] - top) * fx
	}
	if fy == 0 {
		return top
	}
	bot := plane[y1*w+x0]
	if fx > 0 {
		bot += (plane[y1*w+x1] - bot) * fx
	}
	return top + (bot-top)*fy
}
