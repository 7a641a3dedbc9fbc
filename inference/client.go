// Package inference talks to the remote depth service: it uploads a flat 2D
// image and receives back a freshly generated RGBDE container. The service
// is an opaque collaborator; calls are made once and never retried here.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	nhttp "github.com/amariichi/Image-To-DepthWebViewer/util/http"
)

const (
	statusPath  = "/api/status"
	processPath = "/api/process"
)

type Client struct {
	baseURL string
	cli     nhttp.IClient
}

// NewClient creates a client for the depth service at baseURL (no trailing
// slash). A nil cli falls back to the default HTTP client.
func NewClient(baseURL string, cli nhttp.IClient) *Client {
	if cli == nil {
		cli = nhttp.NewHTTPClient()
	}
	return &Client{baseURL: baseURL, cli: cli}
}

// StatusResponse is the service health payload.
type StatusResponse struct {
	Status string `json:"status"`
	Device string `json:"device"`
}

// Status checks service availability and which device the model runs on.
func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	out := &StatusResponse{}
	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + statusPath,
		Method:     "GET",
		Response:   out,
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return out, nil
}

// Process uploads image bytes (JPG or PNG) and returns the generated RGBDE
// container bytes. The image is downscaled first when it exceeds the
// service's input limit; see Preprocess.
func (c *Client) Process(ctx context.Context, filename string, image []byte) ([]byte, error) {
	prepared, err := Preprocess(filename, image)
	if err != nil {
		return nil, err
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(prepared)); err != nil {
		return nil, fmt.Errorf("copy form file: %w", err)
	}
	_ = writer.Close()

	rgbde := &bytes.Buffer{}
	reqParam := &nhttp.RequestParam{
		RequestURI: c.baseURL + processPath,
		Method:     "POST",
		Header:     map[string]string{"Content-Type": writer.FormDataContentType()},
		Body:       body,
		Response:   rgbde,
	}
	if err := c.cli.DoHTTPRequest(ctx, reqParam); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	slog.Debug("depth service responded", "filename", filename, "bytes", rgbde.Len())
	return rgbde.Bytes(), nil
}
