package llm

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrKindMissingCredential ErrorKind = "missing_credential"
	ErrKindTimeout           ErrorKind = "timeout"
	ErrKindAuth              ErrorKind = "auth"
	ErrKindRateLimit         ErrorKind = "rate_limit"
	ErrKindNotFound          ErrorKind = "not_found"
	ErrKindServer            ErrorKind = "server"
	ErrKindMalformed         ErrorKind = "malformed_response"
	ErrKindCanceled          ErrorKind = "canceled"
	ErrKindUnknown           ErrorKind = "unknown"
)

// LLMError is a provider-agnostic error container.
type LLMError struct {
	Provider Provider
	Kind     ErrorKind

	HTTPStatus   int
	ProviderCode string
	Message      string

	// Raw is an optional raw error payload (e.g. the HTTP response body).
	Raw []byte

	Cause error
}

func (e *LLMError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.HTTPStatus != 0 {
		msg = fmt.Sprintf("http %d: %s", e.HTTPStatus, msg)
	}
	if e.Provider != "" {
		return fmt.Sprintf("llm %s: %s", e.Provider, msg)
	}
	return fmt.Sprintf("llm: %s", msg)
}

func (e *LLMError) Unwrap() error { return e.Cause }

func AsLLMError(err error) (*LLMError, bool) {
	var e *LLMError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or ErrKindUnknown when err is not an *LLMError.
func KindOf(err error) ErrorKind {
	if e, ok := AsLLMError(err); ok {
		return e.Kind
	}
	return ErrKindUnknown
}
