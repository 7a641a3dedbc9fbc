// Package rgbde decodes RGBDE containers: a lossless chunked bitmap whose
// left half is color and whose right half packs a 32-bit fixed-point depth
// value into the four 8-bit channels.
package rgbde

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// 8-byte container signature.
var signature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

const (
	chunkHeader   = "IHDR"
	chunkData     = "IDAT"
	chunkEnd      = "IEND"
	bytesPerPixel = 4 // RGBA, 8 bits per channel
)

// PixelBuffer is the flat, uncompressed result of a container decode:
// width*height RGBA samples, row-major, top-to-bottom. Immutable once
// returned by Decode.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// Inflater decompresses one raw compressed stream. It is the pipeline's only
// suspension point: implementations may block on ctx (e.g. hand the work to
// an external service or a worker) and must honor cancellation.
type Inflater interface {
	Inflate(ctx context.Context, data []byte) ([]byte, error)
}

type zlibInflater struct{}

func (zlibInflater) Inflate(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compressed stream: %w", err)
	}
	defer func() {
		_ = zr.Close()
	}()
	return io.ReadAll(zr)
}

// NewZlibInflater returns the default Inflater.
func NewZlibInflater() Inflater { return zlibInflater{} }

// Decoder parses RGBDE containers into pixel buffers.
type Decoder struct {
	inflater Inflater
}

// NewDecoder returns a Decoder using inflater for the decompression step.
// Pass nil when the environment has no inflate capability; Decode then fails
// with UnsupportedEncodingError instead of panicking mid-pipeline.
func NewDecoder(inflater Inflater) *Decoder {
	return &Decoder{inflater: inflater}
}

type header struct {
	width     int
	height    int
	bitDepth  uint8
	colorType uint8
	interlace uint8
}

// Decode parses raw container bytes into a PixelBuffer. It validates the
// signature and metadata, concatenates every compressed data chunk in file
// order into one logical stream, inflates it, and undoes the per-scanline
// prediction filter.
func (d *Decoder) Decode(ctx context.Context, raw []byte) (*PixelBuffer, error) {
	if len(raw) < len(signature) || !bytes.Equal(raw[:len(signature)], signature) {
		return nil, FormatError("missing signature")
	}

	var (
		hdr        *header
		compressed []byte
		pos        = len(signature)
	)

chunks:
	for {
		if pos+8 > len(raw) {
			return nil, FormatError("truncated chunk header")
		}
		length := int(binary.BigEndian.Uint32(raw[pos : pos+4]))
		typ := string(raw[pos+4 : pos+8])
		pos += 8
		if pos+length+4 > len(raw) {
			return nil, FormatError("truncated chunk data")
		}
		data := raw[pos : pos+length]
		pos += length + 4 // skip payload and CRC; CRCs are not verified

		switch typ {
		case chunkHeader:
			h, err := parseHeader(data)
			if err != nil {
				return nil, err
			}
			hdr = h
		case chunkData:
			if hdr == nil {
				return nil, FormatError("data chunk before metadata")
			}
			// A single logical stream may be split across several chunks.
			compressed = append(compressed, data...)
		case chunkEnd:
			break chunks
		default:
			// Ancillary chunk, skip.
		}
	}

	if hdr == nil {
		return nil, FormatError("no metadata chunk before terminator")
	}
	if len(compressed) == 0 {
		return nil, FormatError("no data chunks before terminator")
	}
	if d.inflater == nil {
		return nil, UnsupportedEncodingError("no inflate capability available")
	}

	inflated, err := d.inflater.Inflate(ctx, compressed)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}

	pix, err := defilter(inflated, hdr.width, hdr.height)
	if err != nil {
		return nil, err
	}
	return &PixelBuffer{Width: hdr.width, Height: hdr.height, Pix: pix}, nil
}

func parseHeader(data []byte) (*header, error) {
	if len(data) < 13 {
		return nil, FormatError("short metadata chunk")
	}
	h := &header{
		width:     int(binary.BigEndian.Uint32(data[0:4])),
		height:    int(binary.BigEndian.Uint32(data[4:8])),
		bitDepth:  data[8],
		colorType: data[9],
		interlace: data[12],
	}
	if h.width <= 0 || h.height <= 0 {
		return nil, FormatError("non-positive dimensions")
	}
	// Color and depth halves sit side by side, so the raw width must split
	// evenly. Reject before any decompression work happens.
	if h.width%2 != 0 {
		return nil, FormatError(fmt.Sprintf("odd width %d", h.width))
	}
	if h.bitDepth != 8 {
		return nil, UnsupportedEncodingError(fmt.Sprintf("bit depth %d", h.bitDepth))
	}
	if h.colorType != 6 { // 4-channel with alpha
		return nil, UnsupportedEncodingError(fmt.Sprintf("color type %d", h.colorType))
	}
	if data[10] != 0 {
		return nil, UnsupportedEncodingError(fmt.Sprintf("compression method %d", data[10]))
	}
	if data[11] != 0 {
		return nil, UnsupportedEncodingError(fmt.Sprintf("filter method %d", data[11]))
	}
	if h.interlace != 0 {
		return nil, UnsupportedEncodingError("interlaced data")
	}
	return h, nil
}
