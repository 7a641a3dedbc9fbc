package inference

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"github.com/amariichi/Image-To-DepthWebViewer/util"
)

// maxUploadEdge caps the longest edge sent to the depth service; larger
// inputs only slow inference down without improving the depth field.
const maxUploadEdge = 4096

// Preprocess validates and normalizes an image before upload: only JPG and
// PNG inputs are accepted (the service rejects everything else), and
// oversized images are Lanczos-downscaled and re-encoded as PNG.
func Preprocess(filename string, data []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg", ".png":
	default:
		return nil, fmt.Errorf("unsupported input %q: only JPG and PNG are accepted", filename)
	}

	img, err := util.DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	longest := max(w, h)
	if longest <= maxUploadEdge {
		return data, nil
	}

	scale := float64(maxUploadEdge) / float64(longest)
	resized := resize.Resize(uint(float64(w)*scale), uint(float64(h)*scale), img, resize.Lanczos3)
	return encodePNG(resized)
}

func encodePNG(img image.Image) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
