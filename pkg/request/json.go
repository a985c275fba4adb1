package request

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// DoJSON executes the request and decodes the JSON payload into out.
// A nil out discards the payload after validation.
func (e *Executor) DoJSON(ctx context.Context, opts Options, out any) error {
	payload, err := e.Do(ctx, opts)
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}

	if err := json.Unmarshal(payload, out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return &DecodeError{URL: e.baseURL + opts.Path, Err: err}
	}
	return nil
}

// GetJSON performs a cached GET and decodes the JSON payload into out.
func (e *Executor) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	return e.DoJSON(ctx, Options{Path: path, Query: query, UseCache: true}, out)
}

// PostJSON performs a POST with a JSON body and decodes the response into
// out. POST responses are never cached.
func (e *Executor) PostJSON(ctx context.Context, path string, body, out any) error {
	return e.DoJSON(ctx, Options{Method: http.MethodPost, Path: path, Body: body}, out)
}

// PutJSON performs a PUT with a JSON body, discarding any response payload.
func (e *Executor) PutJSON(ctx context.Context, path string, body any) error {
	return e.DoJSON(ctx, Options{Method: http.MethodPut, Path: path, Body: body}, nil)
}

// GetRaw performs an uncached GET and returns the payload verbatim,
// skipping JSON validation. Used for diff downloads.
func (e *Executor) GetRaw(ctx context.Context, path string, query url.Values, header http.Header) ([]byte, error) {
	return e.Do(ctx, Options{Path: path, Query: query, Header: header, Raw: true})
}
