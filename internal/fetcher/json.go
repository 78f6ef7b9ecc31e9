package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONObject decodes a single JSON value from a reader.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}

// GetJSON fetches url with f and decodes the body as T.
func GetJSON[T any](ctx context.Context, f Fetcher, url string) (*T, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	obj, err := DecodeJSONObject[T](bytes.NewReader(resp.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "decode %s", url)
	}
	return obj, nil
}
