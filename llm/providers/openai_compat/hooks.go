package openai_compat

import "net/http"

type Option func(*options)

type options struct {
	hooks Hooks
}

// Hooks adjust the wire request of an OpenAI-compatible provider.
type Hooks struct {
	PatchHeaders func(h http.Header)

	// PatchRequest allows mutating the final JSON request map.
	// This is the escape hatch for "OpenAI-compatible" providers.
	PatchRequest func(m map[string]any)
}

func WithHooks(h Hooks) Option {
	return func(o *options) {
		prev := o.hooks
		o.hooks.PatchHeaders = chain(prev.PatchHeaders, h.PatchHeaders)
		o.hooks.PatchRequest = chain(prev.PatchRequest, h.PatchRequest)
	}
}

// WithHeader sets a fixed header on every request.
func WithHeader(key, value string) Option {
	return WithHooks(Hooks{PatchHeaders: func(h http.Header) { h.Set(key, value) }})
}

// WithField sets a fixed top-level body field on every request.
func WithField(key string, value any) Option {
	return WithHooks(Hooks{PatchRequest: func(m map[string]any) { m[key] = value }})
}

func chain[T any](a, b func(T)) func(T) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(v T) {
		a(v)
		b(v)
	}
}
