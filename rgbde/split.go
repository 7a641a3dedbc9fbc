package rgbde

import (
	"fmt"
	"image"

	"github.com/amariichi/Image-To-DepthWebViewer/depth"
)

// Asset is the unit of loaded state: one decoded RGBDE image. Created
// wholesale on every successful decode; a new asset fully replaces any
// previous one.
type Asset struct {
	Width  int
	Height int
	Color  *image.NRGBA
	Depth  *depth.Grid
	Stats  depth.Stats
}

// depthScale converts the 32-bit fixed-point encoding to meters
// (0.1 mm resolution).
const depthScale = 10000.0

// Split treats the decoded buffer as two horizontally concatenated halves of
// equal width: the left half is copied verbatim as color, the right half is
// reinterpreted per pixel as a little-endian fixed-point depth,
// (A<<24 | B<<16 | G<<8 | R) / 10000 meters. The returned grid is the raw,
// un-denoised depth field with its positive-value stats.
func Split(pb *PixelBuffer) (*Asset, error) {
	if pb.Width%2 != 0 {
		return nil, FormatError(fmt.Sprintf("odd width %d", pb.Width))
	}
	w := pb.Width / 2
	h := pb.Height

	color := image.NewNRGBA(image.Rect(0, 0, w, h))
	grid := depth.NewGrid(w, h)
	for y := 0; y < h; y++ {
		row := pb.Pix[y*pb.Width*4 : (y+1)*pb.Width*4]
		copy(color.Pix[y*color.Stride:y*color.Stride+w*4], row[:w*4])
		for x := 0; x < w; x++ {
			p := row[(w+x)*4:]
			encoded := uint32(p[3])<<24 | uint32(p[2])<<16 | uint32(p[1])<<8 | uint32(p[0])
			grid.Set(x, y, float32(float64(encoded)/depthScale))
		}
	}

	return &Asset{
		Width:  w,
		Height: h,
		Color:  color,
		Depth:  grid,
		Stats:  grid.ComputeStats(),
	}, nil
}
