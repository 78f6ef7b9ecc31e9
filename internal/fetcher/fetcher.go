// Package fetcher performs rate-limited, retried HTTP GETs against SEC EDGAR.
package fetcher

import (
	"context"
	"net/http"
)

// Response is a fully read HTTP response body.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	// ContentLength is the declared length, or -1 when the server sent none
	// or the transport decompressed the body.
	ContentLength int64
	Body          []byte
}

// ContentType returns the response media type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Fetcher retrieves remote documents.
type Fetcher interface {
	// Get fetches url and returns its full body. Non-2xx statuses are
	// returned as *model.NetworkError; transient failures are retried first.
	Get(ctx context.Context, url string) (*Response, error)
}
