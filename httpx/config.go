package httpx

import (
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// DefaultTimeout bounds a whole request including retries and body read.
const DefaultTimeout = 60 * time.Second

const DefaultMaxErrorBodyBytes int64 = 64 << 10 // 64KiB

// DefaultMaxBodyBytes caps successful response bodies.
const DefaultMaxBodyBytes int64 = 8 << 20 // 8MiB

// Config configures a Client. Use DefaultConfig() as a baseline.
type Config struct {
	// Timeout sets an upper bound for the whole request including retries.
	// If the request context already has a deadline, the earlier one wins.
	Timeout time.Duration

	// Transport is the underlying RoundTripper. If nil, DefaultTransport() is used.
	Transport http.RoundTripper

	// DefaultHeaders are copied into every request (caller headers win).
	DefaultHeaders http.Header

	// UserAgent is set when the request does not already have a User-Agent header.
	UserAgent string

	// Retry configures automatic retries. The zero value performs a single attempt.
	Retry RetryConfig

	// MaxErrorBodyBytes limits how many bytes are kept in Error.RawBody.
	MaxErrorBodyBytes int64

	// MaxBodyBytes limits how many bytes of a successful response are read.
	MaxBodyBytes int64

	// RequestIDHeader carries a generated correlation id. Empty disables it.
	RequestIDHeader string

	Logger *slog.Logger
}

func DefaultConfig() Config {
	return Config{
		Timeout:           DefaultTimeout,
		DefaultHeaders:    make(http.Header),
		Retry:             RetryConfig{MaxAttempts: 1},
		MaxErrorBodyBytes: DefaultMaxErrorBodyBytes,
		MaxBodyBytes:      DefaultMaxBodyBytes,
		RequestIDHeader:   "X-Request-ID",
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

type Option func(*Config)

func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithTransport(rt http.RoundTripper) Option {
	return func(c *Config) { c.Transport = rt }
}

func WithDefaultHeader(key, value string) Option {
	return func(c *Config) {
		if c.DefaultHeaders == nil {
			c.DefaultHeaders = make(http.Header)
		}
		c.DefaultHeaders.Set(key, value)
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Config) { c.UserAgent = ua }
}

func WithRetry(cfg RetryConfig) Option {
	return func(c *Config) { c.Retry = cfg }
}

func WithMaxErrorBodyBytes(n int64) Option {
	return func(c *Config) { c.MaxErrorBodyBytes = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// RoundTripperFunc adapts a function to an http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// DefaultTransport returns a tuned clone of http.DefaultTransport.
func DefaultTransport() *http.Transport {
	base, _ := http.DefaultTransport.(*http.Transport)
	if base == nil {
		return &http.Transport{}
	}
	t := base.Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = 10 * time.Second
	// LLM completions can take most of the request budget before the first header byte.
	t.ResponseHeaderTimeout = 0
	t.ExpectContinueTimeout = 1 * time.Second
	t.IdleConnTimeout = 90 * time.Second
	t.ForceAttemptHTTP2 = true
	return t
}
