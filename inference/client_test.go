package inference

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nhttp "github.com/amariichi/Image-To-DepthWebViewer/util/http"
)

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{byte(x), byte(y), 100, 255})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func TestClient_Status(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/status", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok", "device": "cuda"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "cuda", status.Device)
}

func TestClient_Process(t *testing.T) {
	t.Parallel()

	input := encodeTestPNG(t, 16, 16)
	rgbdeBytes := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/process", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		require.Equal(t, "multipart/form-data", mediaType)

		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		require.NoError(t, err)
		assert.Equal(t, "image", part.FormName())
		uploaded, err := io.ReadAll(part)
		require.NoError(t, err)
		assert.Equal(t, input, uploaded, "small inputs upload unmodified")

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(rgbdeBytes)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	out, err := client.Process(context.Background(), "photo.png", input)
	require.NoError(t, err)
	assert.Equal(t, rgbdeBytes, out)
}

// The service is opaque and never retried: one failing call means exactly
// one request on the wire.
func TestClient_ProcessNoRetry(t *testing.T) {
	t.Parallel()

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Depth generation failed."))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)
	_, err := client.Process(context.Background(), "photo.png", encodeTestPNG(t, 8, 8))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

type fakeClient struct {
	param *nhttp.RequestParam
	err   error
}

func (f *fakeClient) DoHTTPRequest(ctx context.Context, requestParam *nhttp.RequestParam) error {
	f.param = requestParam
	return f.err
}

func TestClient_ProcessRequestShape(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{}
	client := NewClient("http://depth.local", fake)
	_, err := client.Process(context.Background(), "photo.jpg", encodeJPEGLike(t))
	require.NoError(t, err)

	require.NotNil(t, fake.param)
	assert.Equal(t, "http://depth.local/api/process", fake.param.RequestURI)
	assert.Equal(t, "POST", fake.param.Method)
	assert.Contains(t, fake.param.Header["Content-Type"], "multipart/form-data")
}

// a tiny real JPEG is overkill; a PNG with a .jpg name exercises the same
// path because Preprocess sniffs content via image.Decode.
func encodeJPEGLike(t *testing.T) []byte {
	return encodeTestPNG(t, 4, 4)
}

func TestClient_ProcessError(t *testing.T) {
	t.Parallel()

	fake := &fakeClient{err: fmt.Errorf("HTTP request failed with status 500")}
	client := NewClient("http://depth.local", fake)
	_, err := client.Process(context.Background(), "photo.png", encodeTestPNG(t, 4, 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
