package rgbde

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildContainer assembles a minimal valid container around the given pixel
// bytes, filtering every scanline with the same selector.
func buildContainer(t *testing.T, width, height int, pix []byte, filter byte) []byte {
	t.Helper()
	return buildContainerRaw(t, containerParams{
		width: width, height: height,
		bitDepth: 8, colorType: 6,
		stream: filterStream(width, height, pix, filter),
	})
}

type containerParams struct {
	width, height int
	bitDepth      byte
	colorType     byte
	compression   byte
	filterMethod  byte
	interlace     byte
	stream        []byte
	splitData     int // number of IDAT chunks to spread the stream over
}

func buildContainerRaw(t *testing.T, p containerParams) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	buf.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(p.width))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(p.height))
	ihdr[8] = p.bitDepth
	ihdr[9] = p.colorType
	ihdr[10] = p.compression
	ihdr[11] = p.filterMethod
	ihdr[12] = p.interlace
	writeChunk(buf, "IHDR", ihdr)

	compressed := &bytes.Buffer{}
	zw := zlib.NewWriter(compressed)
	_, err := zw.Write(p.stream)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	chunks := p.splitData
	if chunks < 1 {
		chunks = 1
	}
	data := compressed.Bytes()
	per := (len(data) + chunks - 1) / chunks
	for i := 0; i < len(data); i += per {
		end := i + per
		if end > len(data) {
			end = len(data)
		}
		writeChunk(buf, "IDAT", data[i:end])
	}

	writeChunk(buf, "IEND", nil)
	return buf.Bytes()
}

func writeChunk(buf *bytes.Buffer, typ string, data []byte) {
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], uint32(len(data)))
	buf.Write(length[:])
	buf.WriteString(typ)
	buf.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	var sum [4]byte
	binary.BigEndian.PutUint32(sum[:], crc.Sum32())
	buf.Write(sum[:])
}

// filterStream applies a forward scanline filter so the decoder's
// reconstruction can be exercised per variant.
func filterStream(width, height int, pix []byte, filter byte) []byte {
	rowBytes := width * 4
	out := make([]byte, 0, (rowBytes+1)*height)
	for y := 0; y < height; y++ {
		cur := pix[y*rowBytes : (y+1)*rowBytes]
		var prev []byte
		if y > 0 {
			prev = pix[(y-1)*rowBytes : y*rowBytes]
		}
		out = append(out, filter)
		for i := 0; i < rowBytes; i++ {
			var left, up, upLeft byte
			if i >= 4 {
				left = cur[i-4]
				if prev != nil {
					upLeft = prev[i-4]
				}
			}
			if prev != nil {
				up = prev[i]
			}
			var predicted byte
			switch filter {
			case filterNone:
			case filterSub:
				predicted = left
			case filterUp:
				predicted = up
			case filterAverage:
				predicted = byte((int(left) + int(up)) / 2)
			case filterPaeth:
				predicted = paethPredictor(left, up, upLeft)
			default:
				predicted = 0 // written as-is to provoke FormatError
			}
			out = append(out, cur[i]-predicted)
		}
	}
	return out
}

func testPixels(width, height int) []byte {
	pix := make([]byte, width*height*4)
	for i := range pix {
		pix[i] = byte(i*7 + i/13)
	}
	return pix
}

func TestDecode_AllFilters(t *testing.T) {
	t.Parallel()

	const width, height = 6, 5
	pix := testPixels(width, height)

	for _, filter := range []byte{filterNone, filterSub, filterUp, filterAverage, filterPaeth} {
		raw := buildContainer(t, width, height, pix, filter)
		pb, err := NewDecoder(NewZlibInflater()).Decode(context.Background(), raw)
		require.NoError(t, err, "filter %d", filter)
		assert.Equal(t, width, pb.Width)
		assert.Equal(t, height, pb.Height)
		assert.Equal(t, pix, pb.Pix, "filter %d", filter)
	}
}

func TestDecode_SplitDataChunks(t *testing.T) {
	t.Parallel()

	const width, height = 8, 4
	pix := testPixels(width, height)
	raw := buildContainerRaw(t, containerParams{
		width: width, height: height,
		bitDepth: 8, colorType: 6,
		stream:    filterStream(width, height, pix, filterNone),
		splitData: 5,
	})

	pb, err := NewDecoder(NewZlibInflater()).Decode(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, pix, pb.Pix)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	const width, height = 4, 2
	pix := testPixels(width, height)
	valid := buildContainer(t, width, height, pix, filterNone)

	tests := []struct {
		name       string
		raw        func(t *testing.T) []byte
		wantFormat bool // else UnsupportedEncodingError
	}{
		{
			name: "bad signature",
			raw: func(t *testing.T) []byte {
				bad := append([]byte(nil), valid...)
				bad[0] = 0
				return bad
			},
			wantFormat: true,
		},
		{
			name: "truncated",
			raw: func(t *testing.T) []byte {
				return valid[:len(valid)-6]
			},
			wantFormat: true,
		},
		{
			name: "no metadata chunk",
			raw: func(t *testing.T) []byte {
				buf := &bytes.Buffer{}
				buf.Write([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
				writeChunk(buf, "IEND", nil)
				return buf.Bytes()
			},
			wantFormat: true,
		},
		{
			name: "unknown scanline filter",
			raw: func(t *testing.T) []byte {
				return buildContainer(t, width, height, pix, 9)
			},
			wantFormat: true,
		},
		{
			name: "bit depth 16",
			raw: func(t *testing.T) []byte {
				return buildContainerRaw(t, containerParams{
					width: width, height: height,
					bitDepth: 16, colorType: 6,
					stream: filterStream(width, height, pix, filterNone),
				})
			},
		},
		{
			name: "color type without alpha",
			raw: func(t *testing.T) []byte {
				return buildContainerRaw(t, containerParams{
					width: width, height: height,
					bitDepth: 8, colorType: 2,
					stream: filterStream(width, height, pix, filterNone),
				})
			},
		},
		{
			name: "non-zlib compression method",
			raw: func(t *testing.T) []byte {
				return buildContainerRaw(t, containerParams{
					width: width, height: height,
					bitDepth: 8, colorType: 6, compression: 1,
					stream: filterStream(width, height, pix, filterNone),
				})
			},
		},
		{
			name: "nonstandard filter method",
			raw: func(t *testing.T) []byte {
				return buildContainerRaw(t, containerParams{
					width: width, height: height,
					bitDepth: 8, colorType: 6, filterMethod: 64,
					stream: filterStream(width, height, pix, filterNone),
				})
			},
		},
		{
			name: "interlaced",
			raw: func(t *testing.T) []byte {
				return buildContainerRaw(t, containerParams{
					width: width, height: height,
					bitDepth: 8, colorType: 6, interlace: 1,
					stream: filterStream(width, height, pix, filterNone),
				})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := NewDecoder(NewZlibInflater()).Decode(context.Background(), tt.raw(t))
			require.Error(t, err)
			var formatErr FormatError
			var encodingErr UnsupportedEncodingError
			if tt.wantFormat {
				assert.True(t, errors.As(err, &formatErr), "want FormatError, got %v", err)
			} else {
				assert.True(t, errors.As(err, &encodingErr), "want UnsupportedEncodingError, got %v", err)
			}
		})
	}
}

// An odd width must be rejected before the decompression step ever runs:
// decoding with no inflate capability still reports FormatError, not the
// missing capability.
func TestDecode_OddWidthRejectedEarly(t *testing.T) {
	t.Parallel()

	pix := testPixels(3, 2)
	raw := buildContainer(t, 3, 2, pix, filterNone)

	_, err := NewDecoder(nil).Decode(context.Background(), raw)
	require.Error(t, err)
	var formatErr FormatError
	require.True(t, errors.As(err, &formatErr), "got %v", err)
	assert.Contains(t, err.Error(), "odd width")
}

func TestDecode_NoInflateCapability(t *testing.T) {
	t.Parallel()

	raw := buildContainer(t, 4, 2, testPixels(4, 2), filterNone)
	_, err := NewDecoder(nil).Decode(context.Background(), raw)
	require.Error(t, err)
	var encodingErr UnsupportedEncodingError
	assert.True(t, errors.As(err, &encodingErr), "got %v", err)
}

func TestDecode_CancelledContext(t *testing.T) {
	t.Parallel()

	raw := buildContainer(t, 4, 2, testPixels(4, 2), filterNone)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDecoder(NewZlibInflater()).Decode(ctx, raw)
	assert.ErrorIs(t, err, context.Canceled)
}
