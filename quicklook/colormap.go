package quicklook

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
)

// controlPoint is one stop of a colormap ramp. Position and channel values
// are percentages.
type controlPoint struct {
	position uint8
	red      uint8
	green    uint8
	blue     uint8
}

type rampPalette struct {
	colors []color.Color
}

func (p rampPalette) Colors() []color.Color { return p.colors }

// Colormap returns an n-color palette for the named map, interpolating
// linearly between its control points. "smooth" is the perceptual
// blue-to-red diverging map used for signed quantities; the rest are
// classic ramp maps.
func Colormap(name string, n int) (palette.Palette, error) {
	if n < 2 {
		return nil, fmt.Errorf("quicklook: palette needs at least 2 colors, got %d", n)
	}
	if name == "smooth" {
		return moreland.SmoothBlueRed().Palette(n), nil
	}
	points, err := colorControlPoints(name)
	if err != nil {
		return nil, err
	}
	colors := make([]color.Color, n)
	for i := range colors {
		pos := float64(i) * 100 / float64(n-1)
		colors[i] = rampAt(points, pos)
	}
	return rampPalette{colors: colors}, nil
}

func rampAt(points []controlPoint, pos float64) color.Color {
	lo := points[0]
	for _, hi := range points[1:] {
		if pos > float64(hi.position) {
			lo = hi
			continue
		}
		span := float64(hi.position) - float64(lo.position)
		t := 0.0
		if span > 0 {
			t = (pos - float64(lo.position)) / span
		}
		return color.RGBA{
			R: pctChannel(float64(lo.red) + t*(float64(hi.red)-float64(lo.red))),
			G: pctChannel(float64(lo.green) + t*(float64(hi.green)-float64(lo.green))),
			B: pctChannel(float64(lo.blue) + t*(float64(hi.blue)-float64(lo.blue))),
			A: 255,
		}
	}
	return color.RGBA{R: pctChannel(float64(lo.red)), G: pctChannel(float64(lo.green)), B: pctChannel(float64(lo.blue)), A: 255}
}

func pctChannel(pct float64) uint8 {
	return uint8(math.Round(pct * 255 / 100))
}

func colorControlPoints(name string) ([]controlPoint, error) {
	switch name {
	case "greyscale":
		return []controlPoint{
			{0, 0, 0, 0},
			{60, 50, 50, 50},
			{100, 100, 100, 100},
		}, nil
	case "ramp":
		return []controlPoint{
			{0, 0, 0, 15},
			{10, 0, 0, 50},
			{31, 0, 65, 75},
			{50, 0, 80, 0},
			{70, 75, 80, 0},
			{83, 100, 60, 0},
			{100, 100, 0, 0},
		}, nil
	case "spectrum":
		return []controlPoint{
			{0, 0, 75, 0},
			{22, 0, 90, 90},
			{37, 0, 0, 85},
			{49, 90, 0, 85},
			{68, 90, 0, 0},
			{80, 90, 90, 0},
			{100, 95, 95, 95},
		}, nil
	default:
		return nil, fmt.Errorf("quicklook: unknown colormap %q", name)
	}
}
