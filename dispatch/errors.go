package dispatch

import (
	"errors"
	"fmt"

	"github.com/lgc202/assistant/llm"
)

// ErrorPrefix marks assistant messages that carry an error.
const ErrorPrefix = "Error: "

// Error is a failed question, ready to show to the user.
type Error struct {
	Kind     llm.ErrorKind
	Provider llm.Provider
	Status   int
	Text     string
	Cause    error
}

func (e *Error) Error() string { return e.Text }

func (e *Error) Unwrap() error { return e.Cause }

func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Describe maps an adapter error to the fixed text shown to the user.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if de, ok := AsError(err); ok {
		return de.Text
	}
	le, ok := llm.AsLLMError(err)
	if !ok {
		return ErrorPrefix + fmt.Sprintf("request failed: %v", err)
	}
	detail := le.Message
	if detail == "" {
		detail = string(le.Kind)
	}
	switch le.Kind {
	case llm.ErrKindMissingCredential:
		return ErrorPrefix + fmt.Sprintf("no %s API token configured, please add one in the settings", providerLabel(le.Provider))
	case llm.ErrKindTimeout:
		return ErrorPrefix + fmt.Sprintf("API request timed out (%ds), check your network connection or try again later", int(llm.DefaultTimeout.Seconds()))
	case llm.ErrKindAuth:
		return ErrorPrefix + "API authentication failed, check that the API token is correct: " + detail
	case llm.ErrKindRateLimit:
		return ErrorPrefix + "API rate limit exceeded, please try again later: " + detail
	case llm.ErrKindNotFound:
		return ErrorPrefix + "API endpoint not found: " + detail
	case llm.ErrKindServer:
		return ErrorPrefix + fmt.Sprintf("API server error (%d): %s", le.HTTPStatus, detail)
	case llm.ErrKindMalformed:
		return ErrorPrefix + "unexpected API response format: missing answer content"
	default:
		if le.HTTPStatus != 0 {
			return ErrorPrefix + fmt.Sprintf("API call failed (%d): %s", le.HTTPStatus, detail)
		}
		return ErrorPrefix + "API call failed: " + detail
	}
}

func providerLabel(p llm.Provider) string {
	for _, m := range llm.Models() {
		if m.Provider == p {
			return m.ProviderLabel
		}
	}
	if p == "" {
		return "provider"
	}
	return string(p)
}
