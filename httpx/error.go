package httpx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// Error represents an HTTP or transport error with observability-friendly fields.
type Error struct {
	Method string
	URL    string

	// StatusCode is the HTTP status code. It is 0 when the request failed before receiving a response.
	StatusCode int

	RequestID string

	// RetryAfter is parsed from Retry-After when present.
	RetryAfter time.Duration

	// RawBody is a truncated copy of the response body (only for non-2xx responses).
	RawBody []byte

	// Attempts is the number of attempts made before giving up.
	Attempts int

	// Cause is the underlying error (transport error, context cancellation, etc).
	Cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var b strings.Builder
	if e.Method != "" {
		b.WriteString(e.Method)
		b.WriteString(" ")
	}
	if e.URL != "" {
		b.WriteString(e.URL)
		b.WriteString(": ")
	}
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf("http %d", e.StatusCode))
		if t := http.StatusText(e.StatusCode); t != "" {
			b.WriteString(" ")
			b.WriteString(t)
		}
	} else {
		b.WriteString("request failed")
	}
	if e.RequestID != "" {
		b.WriteString(" request_id=")
		b.WriteString(e.RequestID)
	}
	if e.Cause != nil && e.StatusCode == 0 {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Timeout reports whether the request failed because a deadline passed,
// either the client timeout or a transport level timeout.
func (e *Error) Timeout() bool {
	if e == nil {
		return false
	}
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusGatewayTimeout {
		return true
	}
	if errors.Is(e.Cause, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Cause, &ne) && ne.Timeout()
}

// AsError extracts *Error.
func AsError(err error) (*Error, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

func IsHTTPStatus(err error, code int) bool {
	he, ok := AsError(err)
	return ok && he.StatusCode == code
}
