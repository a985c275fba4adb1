package request

import (
	"errors"
	"fmt"
)

// Common errors returned by the executor.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled during
	// a backoff or rate-limit wait.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass classifies request failures for metrics and logging.
type ErrorClass string

const (
	// ErrorClassClient represents terminal 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents retryable 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents provider rate-limit rejections.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents transport/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents success responses with unparseable bodies.
	ErrorClassDecode ErrorClass = "decode"
)

// maxErrorBody limits how much of an error response body is kept on the
// error value.
const maxErrorBody = 1000

// HTTPError is a terminal HTTP response error.
type HTTPError struct {
	StatusCode int
	Body       string // truncated to maxErrorBody characters
	URL        string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// DecodeError reports a success response whose body was not valid JSON.
// It is terminal: the upstream answered, so retrying cannot help.
type DecodeError struct {
	URL string
	Err error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response from %s: %v", e.URL, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// truncateBody trims an error response body to maxErrorBody characters.
func truncateBody(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody])
	}
	return string(body)
}
