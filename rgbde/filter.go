package rgbde

import "fmt"

// Per-scanline prediction filters. Each row of the inflated stream starts
// with a 1-byte selector followed by width*4 filtered bytes; reconstruction
// only ever reads already-reconstructed bytes (left, up, up-left), with row 0
// and column 0 neighbors taken as zero.
const (
	filterNone    = 0
	filterSub     = 1
	filterUp      = 2
	filterAverage = 3
	filterPaeth   = 4
)

func defilter(stream []byte, width, height int) ([]uint8, error) {
	rowBytes := width * bytesPerPixel
	if len(stream) != (rowBytes+1)*height {
		return nil, FormatError(fmt.Sprintf("pixel stream is %d bytes, want %d", len(stream), (rowBytes+1)*height))
	}

	pix := make([]uint8, rowBytes*height)
	for y := 0; y < height; y++ {
		selector := stream[y*(rowBytes+1)]
		src := stream[y*(rowBytes+1)+1 : (y+1)*(rowBytes+1)]
		cur := pix[y*rowBytes : (y+1)*rowBytes]
		var prev []uint8
		if y > 0 {
			prev = pix[(y-1)*rowBytes : y*rowBytes]
		}

		switch selector {
		case filterNone:
			copy(cur, src)
		case filterSub:
			reconstructSub(cur, src)
		case filterUp:
			reconstructUp(cur, src, prev)
		case filterAverage:
			reconstructAverage(cur, src, prev)
		case filterPaeth:
			reconstructPaeth(cur, src, prev)
		default:
			return nil, FormatError(fmt.Sprintf("unknown scanline filter %d in row %d", selector, y))
		}
	}
	return pix, nil
}

func reconstructSub(cur, src []uint8) {
	for i := range src {
		var left uint8
		if i >= bytesPerPixel {
			left = cur[i-bytesPerPixel]
		}
		cur[i] = src[i] + left
	}
}

func reconstructUp(cur, src, prev []uint8) {
	for i := range src {
		var up uint8
		if prev != nil {
			up = prev[i]
		}
		cur[i] = src[i] + up
	}
}

func reconstructAverage(cur, src, prev []uint8) {
	for i := range src {
		var left, up int
		if i >= bytesPerPixel {
			left = int(cur[i-bytesPerPixel])
		}
		if prev != nil {
			up = int(prev[i])
		}
		cur[i] = src[i] + uint8((left+up)/2)
	}
}

func reconstructPaeth(cur, src, prev []uint8) {
	for i := range src {
		var left, up, upLeft uint8
		if i >= bytesPerPixel {
			left = cur[i-bytesPerPixel]
			if prev != nil {
				upLeft = prev[i-bytesPerPixel]
			}
		}
		if prev != nil {
			up = prev[i]
		}
		cur[i] = src[i] + paethPredictor(left, up, upLeft)
	}
}

func paethPredictor(a, b, c uint8) uint8 {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
