package depth

import "math"

// MinimumDepth is the floor used whenever an image carries no positive
// depth at all (meters).
const MinimumDepth = 0.15

// Grid is a width*height field of depth values in meters, row-major,
// top-to-bottom. A value of exactly 0 means "no data"; values are never
// negative.
type Grid struct {
	Width  int
	Height int
	Values []float32
}

// Stats summarizes the strictly positive values of a grid.
type Stats struct {
	Min float32
	Max float32
}

// NewGrid allocates a zeroed grid.
func NewGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Values: make([]float32, width*height)}
}

// At returns the value at (x, y), clamping coordinates to the grid boundary
// rather than wrapping.
func (g *Grid) At(x, y int) float32 {
	if x < 0 {
		x = 0
	} else if x >= g.Width {
		x = g.Width - 1
	}
	if y < 0 {
		y = 0
	} else if y >= g.Height {
		y = g.Height - 1
	}
	return g.Values[y*g.Width+x]
}

// Set writes the value at (x, y); coordinates must be in range.
func (g *Grid) Set(x, y int, v float32) {
	g.Values[y*g.Width+x] = v
}

// SampleBilinear interpolates the grid at fractional coordinates. When the
// interpolated value is non-positive (missing data bleeding into the lerp),
// it falls back to the floor cell's top-left sample, then to fallback. This
// top-left fallback is observable downstream and deliberately kept as is.
func (g *Grid) SampleBilinear(fx, fy float64, fallback float32) float32 {
	if fx < 0 {
		fx = 0
	} else if fx > float64(g.Width-1) {
		fx = float64(g.Width - 1)
	}
	if fy < 0 {
		fy = 0
	} else if fy > float64(g.Height-1) {
		fy = float64(g.Height - 1)
	}

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	d00 := float64(g.At(x0, y0))
	d10 := float64(g.At(x0+1, y0))
	d01 := float64(g.At(x0, y0+1))
	d11 := float64(g.At(x0+1, y0+1))

	top := d00 + (d10-d00)*tx
	bottom := d01 + (d11-d01)*tx
	v := float32(top + (bottom-top)*ty)
	if v > 0 {
		return v
	}
	if nearest := g.At(x0, y0); nearest > 0 {
		return nearest
	}
	return fallback
}

// ComputeStats scans the grid for the minimum and maximum strictly positive
// value. A grid with no positive values falls back to MinimumDepth and
// MinimumDepth+1.
func (g *Grid) ComputeStats() Stats {
	min := float32(math.Inf(1))
	max := float32(math.Inf(-1))
	found := false
	for _, v := range g.Values {
		if v <= 0 {
			continue
		}
		found = true
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if !found {
		return Stats{Min: MinimumDepth, Max: MinimumDepth + 1}
	}
	return Stats{Min: min, Max: max}
}
