package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lgc202/assistant/httpx"
	"github.com/lgc202/assistant/version"
)

// DefaultTimeout bounds one Send call.
const DefaultTimeout = httpx.DefaultTimeout

// Adapter sends conversations to the providers it has a Profile for.
// It is safe for concurrent use.
type Adapter struct {
	profiles map[Provider]Profile
	http     *httpx.Client
	params   Params
	logger   *slog.Logger
}

type adapterConfig struct {
	httpOpts  []httpx.Option
	params    Params
	logger    *slog.Logger
	endpoints map[Provider]string
}

type AdapterOption func(*adapterConfig)

// WithHTTPOptions forwards options to the underlying httpx client.
func WithHTTPOptions(opts ...httpx.Option) AdapterOption {
	return func(c *adapterConfig) { c.httpOpts = append(c.httpOpts, opts...) }
}

func WithTransport(rt http.RoundTripper) AdapterOption {
	return WithHTTPOptions(httpx.WithTransport(rt))
}

func WithParams(p Params) AdapterOption {
	return func(c *adapterConfig) { c.params = p }
}

func WithLogger(logger *slog.Logger) AdapterOption {
	return func(c *adapterConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetry lets Send repeat a request that failed with a retryable status or
// a transport timeout. Empty Methods means POST, which every provider uses.
// Without this option each Send makes exactly one attempt.
func WithRetry(rc httpx.RetryConfig) AdapterOption {
	if len(rc.Methods) == 0 {
		rc.Methods = map[string]bool{http.MethodPost: true}
	}
	return WithHTTPOptions(httpx.WithRetry(rc))
}

// WithEndpoint overrides the URL of one provider, e.g. to go through a proxy.
func WithEndpoint(p Provider, url string) AdapterOption {
	return func(c *adapterConfig) {
		if c.endpoints == nil {
			c.endpoints = make(map[Provider]string)
		}
		c.endpoints[p] = url
	}
}

func NewAdapter(profiles []Profile, opts ...AdapterOption) (*Adapter, error) {
	cfg := adapterConfig{
		params: DefaultParams(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}

	a := &Adapter{
		profiles: make(map[Provider]Profile, len(profiles)),
		params:   cfg.params,
		logger:   cfg.logger,
	}
	for _, p := range profiles {
		if u, ok := cfg.endpoints[p.Provider]; ok {
			p.URL = u
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		if _, dup := a.profiles[p.Provider]; dup {
			return nil, fmt.Errorf("llm: duplicate profile for %q", p.Provider)
		}
		a.profiles[p.Provider] = p
	}

	httpOpts := append([]httpx.Option{
		httpx.WithTimeout(DefaultTimeout),
		httpx.WithUserAgent(version.Get().UserAgent()),
		httpx.WithLogger(cfg.logger),
		httpx.WithRetry(httpx.RetryConfig{MaxAttempts: 1}),
	}, cfg.httpOpts...)
	a.http = httpx.New(httpOpts...)
	return a, nil
}

// Providers lists the providers this adapter can reach.
func (a *Adapter) Providers() []Provider {
	out := make([]Provider, 0, len(a.profiles))
	for p := range a.profiles {
		out = append(out, p)
	}
	return out
}

// Send performs one request and returns the answer text. A blank credential
// fails with ErrKindMissingCredential before anything is sent.
func (a *Adapter) Send(ctx context.Context, provider Provider, model, credential string, conv []Message) (string, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", &LLMError{Provider: provider, Kind: ErrKindMissingCredential, Message: "no credential configured"}
	}
	p, ok := a.profiles[provider]
	if !ok {
		return "", &LLMError{Provider: provider, Kind: ErrKindUnknown, Message: "unsupported provider"}
	}

	hdr := make(http.Header)
	if p.Authorize != nil {
		p.Authorize(hdr, credential)
	}

	a.logger.Debug("llm request", "provider", provider, "model", model, "messages", len(conv))
	raw, err := a.http.PostJSON(ctx, p.URL, hdr, p.Body(model, conv, a.params))
	if err != nil {
		return "", mapError(provider, err)
	}

	text, err := p.Extract(raw)
	if err != nil {
		return "", &LLMError{Provider: provider, Kind: ErrKindMalformed, Message: err.Error(), Raw: raw, Cause: err}
	}
	return text, nil
}

func mapError(provider Provider, err error) error {
	if errors.Is(err, context.Canceled) {
		return &LLMError{Provider: provider, Kind: ErrKindCanceled, Message: "request canceled", Cause: err}
	}

	he, ok := httpx.AsError(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return &LLMError{Provider: provider, Kind: ErrKindTimeout, Message: "request deadline exceeded", Cause: err}
		}
		return &LLMError{Provider: provider, Kind: ErrKindUnknown, Message: err.Error(), Cause: err}
	}

	if he.StatusCode == 0 {
		if he.Timeout() {
			return &LLMError{Provider: provider, Kind: ErrKindTimeout, Message: "request deadline exceeded", Cause: err}
		}
		msg := err.Error()
		if he.Cause != nil {
			msg = he.Cause.Error()
		}
		return &LLMError{Provider: provider, Kind: ErrKindUnknown, Message: msg, Cause: err}
	}

	msg, code := parseErrorEnvelope(he.RawBody)
	if msg == "" {
		msg = http.StatusText(he.StatusCode)
	}
	return &LLMError{
		Provider:     provider,
		Kind:         classifyHTTP(he.StatusCode),
		HTTPStatus:   he.StatusCode,
		ProviderCode: code,
		Message:      msg,
		Raw:          append([]byte(nil), he.RawBody...),
		Cause:        err,
	}
}

func classifyHTTP(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrKindAuth
	case http.StatusTooManyRequests:
		return ErrKindRateLimit
	case http.StatusNotFound:
		return ErrKindNotFound
	case http.StatusRequestTimeout:
		return ErrKindTimeout
	default:
		if status >= 500 {
			return ErrKindServer
		}
		return ErrKindUnknown
	}
}

// errorEnvelope covers both {"error":{"message":..}} shapes used upstream.
type errorEnvelope struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func parseErrorEnvelope(raw []byte) (message string, code string) {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return "", ""
	}
	message = env.Error.Message
	switch c := env.Error.Code.(type) {
	case nil:
		code = env.Error.Type
	case string:
		code = c
	default:
		b, _ := json.Marshal(c)
		code = string(b)
	}
	return message, code
}
