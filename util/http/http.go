package http

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/http.go -package=mocks . IClient
type IClient interface {
	DoHTTPRequest(ctx context.Context, requestParam *RequestParam) error
}

// RequestParam describes one HTTP call. Body may be an io.Reader or []byte
// (sent verbatim) or any other value (JSON-encoded). Response, when set, is
// either an io.Writer that receives the raw body or a pointer that the JSON
// body is unmarshaled into.
type RequestParam struct {
	RequestURI string
	Method     string
	Header     map[string]string
	Body       interface{}
	Response   interface{}

	Timeout time.Duration
}
