package rgbde

import (
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/amariichi/Image-To-DepthWebViewer/depth"
)

// DepthPreview renders a grid as a grayscale image normalized over its
// positive range (near = bright, missing = black) and downscales it so the
// longest edge stays within maxSize. Meant for inspection output, not for
// any pipeline stage.
func DepthPreview(g *depth.Grid, stats depth.Stats, maxSize int) *image.Gray {
	gray := image.NewGray(image.Rect(0, 0, g.Width, g.Height))
	span := float64(stats.Max - stats.Min)
	if span <= 0 {
		span = 1
	}
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			v := g.At(x, y)
			if v <= 0 {
				continue
			}
			t := (float64(v) - float64(stats.Min)) / span
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
			gray.SetGray(x, y, color.Gray{Y: uint8((1 - t) * 255)})
		}
	}

	longest := g.Width
	if g.Height > longest {
		longest = g.Height
	}
	if maxSize <= 0 || longest <= maxSize {
		return gray
	}
	scale := float64(maxSize) / float64(longest)
	resized := image.NewGray(image.Rect(0, 0, int(float64(g.Width)*scale), int(float64(g.Height)*scale)))
	xdraw.CatmullRom.Scale(resized, resized.Bounds(), gray, gray.Bounds(), xdraw.Over, nil)
	return resized
}
