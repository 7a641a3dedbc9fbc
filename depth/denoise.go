package depth

import (
	"image"
	"math"
	"sort"
)

// Denoiser thresholds. Distances are meters except the color terms, which
// operate on normalized RGB (Euclidean, range [0, sqrt(3)]).
const (
	spikeThreshold  = 0.45 // Pass A: center-vs-median gate
	stableTolerance = 0.12 // Pass A: neighbor-vs-median tolerance
	stableMinimum   = 5    // Pass A: stable neighbors required (of 8)
	colorGate       = 0.1  // Pass A: mean color distance gate
	depthSigma      = 0.35 // Pass B: depth-similarity Gaussian sigma
	colorSigma      = 0.08 // Pass B: color-similarity Gaussian sigma
	smoothingBlend  = 0.3  // Pass B: blend toward the weighted average
)

// 3x3 spatial Gaussian kernel, sums to 1.
var spatialKernel = [3][3]float64{
	{1 / 16.0, 2 / 16.0, 1 / 16.0},
	{2 / 16.0, 4 / 16.0, 2 / 16.0},
	{1 / 16.0, 2 / 16.0, 1 / 16.0},
}

// Denoise removes spike noise and gently smooths a depth grid while
// preserving color-aligned depth edges. color must match the grid
// dimensions; pixels with non-positive depth pass through unchanged. The
// input grid is never mutated.
func Denoise(g *Grid, color *image.NRGBA) *Grid {
	despiked := rejectSpikes(g, color)
	return smoothBilateral(despiked, color)
}

// rejectSpikes replaces isolated depth outliers with the neighborhood
// median. A pixel only counts as a spike when its neighbors agree with each
// other (stable) and with its color; a jump surrounded by inconsistent color
// is a genuine object edge and stays.
func rejectSpikes(g *Grid, color *image.NRGBA) *Grid {
	out := NewGrid(g.Width, g.Height)
	var window [9]float64
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			center := g.At(x, y)
			out.Set(x, y, center)
			if center <= 0 {
				continue
			}

			i := 0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					window[i] = float64(g.At(x+kx, y+ky))
					i++
				}
			}
			med := median9(window)
			if math.Abs(float64(center)-med) <= spikeThreshold {
				continue
			}

			stable := 0
			colorSum := 0.0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					if kx == 0 && ky == 0 {
						continue
					}
					if math.Abs(float64(g.At(x+kx, y+ky))-med) <= stableTolerance {
						stable++
					}
					colorSum += colorDistance(color, x, y, x+kx, y+ky)
				}
			}
			if stable >= stableMinimum && colorSum/8 < colorGate {
				out.Set(x, y, float32(med))
			}
		}
	}
	return out
}

// smoothBilateral blends every positive pixel 30% toward a joint bilateral
// average of its 3x3 neighborhood, guided by both depth and color
// similarity so depth never bleeds across color boundaries.
func smoothBilateral(g *Grid, color *image.NRGBA) *Grid {
	out := NewGrid(g.Width, g.Height)
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			center := float64(g.At(x, y))
			if center <= 0 {
				out.Set(x, y, g.At(x, y))
				continue
			}

			sum := 0.0
			weightSum := 0.0
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					d := float64(g.At(x+kx, y+ky))
					dd := d - center
					cd := colorDistance(color, x, y, x+kx, y+ky)
					w := spatialKernel[ky+1][kx+1] *
						math.Exp(-(dd*dd)/(2*depthSigma*depthSigma)) *
						math.Exp(-(cd*cd)/(2*colorSigma*colorSigma))
					sum += d * w
					weightSum += w
				}
			}
			avg := sum / weightSum
			out.Set(x, y, float32(center+smoothingBlend*(avg-center)))
		}
	}
	return out
}

// colorDistance is the Euclidean distance between two pixels in normalized
// RGB. Coordinates clamp to the image boundary like Grid.At.
func colorDistance(img *image.NRGBA, x0, y0, x1, y1 int) float64 {
	r0, g0, b0 := nrgbAt(img, x0, y0)
	r1, g1, b1 := nrgbAt(img, x1, y1)
	dr := r0 - r1
	dg := g0 - g1
	db := b0 - b1
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func nrgbAt(img *image.NRGBA, x, y int) (r, g, b float64) {
	w := img.Rect.Dx()
	h := img.Rect.Dy()
	if x < 0 {
		x = 0
	} else if x >= w {
		x = w - 1
	}
	if y < 0 {
		y = 0
	} else if y >= h {
		y = h - 1
	}
	i := y*img.Stride + x*4
	return float64(img.Pix[i]) / 255, float64(img.Pix[i+1]) / 255, float64(img.Pix[i+2]) / 255
}

func median9(w [9]float64) float64 {
	s := w[:]
	sort.Float64s(s)
	return s[4]
}
