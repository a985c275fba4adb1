package request

import (
	"errors"
	"strings"
	"testing"
)

func TestHTTPError_Error(t *testing.T) {
	err := &HTTPError{StatusCode: 404, Body: "Not Found", URL: "https://api.github.com/repos/acme/gone"}

	want := "HTTP 404 from https://api.github.com/repos/acme/gone: Not Found"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestDecodeError_Unwrap(t *testing.T) {
	inner := errors.New("unexpected end of JSON input")
	err := &DecodeError{URL: "https://api.example.com/user", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("DecodeError should unwrap to the inner error")
	}
	if !strings.Contains(err.Error(), "unexpected end of JSON input") {
		t.Errorf("Error() = %q, want inner message included", err.Error())
	}
}

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLen int
	}{
		{name: "short body unchanged", body: "oops", wantLen: 4},
		{name: "exactly at limit", body: strings.Repeat("a", 1000), wantLen: 1000},
		{name: "over limit truncated", body: strings.Repeat("a", 5000), wantLen: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateBody([]byte(tt.body)); len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}
