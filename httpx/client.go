package httpx

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

type Client struct {
	httpClient *http.Client

	timeout        time.Duration
	defaultHeaders http.Header
	userAgent      string

	retry      RetryConfig
	maxErrBody int64
	maxBody    int64

	requestIDHeader string
	logger          *slog.Logger
}

// New constructs a Client from DefaultConfig() plus the provided options.
func New(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	return NewWithConfig(cfg)
}

func NewWithConfig(cfg Config) *Client {
	rt := cfg.Transport
	if rt == nil {
		rt = DefaultTransport()
	}
	maxErrBody := cfg.MaxErrorBodyBytes
	if maxErrBody == 0 {
		maxErrBody = DefaultMaxErrorBodyBytes
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient:      &http.Client{Transport: rt},
		timeout:         cfg.Timeout,
		defaultHeaders:  cfg.DefaultHeaders.Clone(),
		userAgent:       cfg.UserAgent,
		retry:           cfg.Retry,
		maxErrBody:      maxErrBody,
		maxBody:         maxBody,
		requestIDHeader: cfg.RequestIDHeader,
		logger:          logger,
	}
}

// PostJSON marshals body, POSTs it to rawURL and returns the response body.
// Non-2xx responses and transport failures are returned as *Error; the body
// of a failed response is available in Error.RawBody.
func (c *Client) PostJSON(ctx context.Context, rawURL string, header http.Header, body any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("httpx: encode request body: %w", err)
	}
	return c.Do(ctx, http.MethodPost, rawURL, header, b)
}

// Do sends body to rawURL with the given method, retrying according to the
// client's RetryConfig. The returned bytes are the full response body.
func (c *Client) Do(ctx context.Context, method, rawURL string, header http.Header, body []byte) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if !u.IsAbs() {
		return nil, &url.Error{Op: "parse", URL: rawURL, Err: errors.New("url must be absolute")}
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	attempts := c.retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	requestID := ""
	if c.requestIDHeader != "" {
		requestID = header.Get(c.requestIDHeader)
		if requestID == "" {
			requestID = newRequestID()
		}
	}

	for attempt := 1; ; attempt++ {
		req, err := c.newRequest(ctx, method, u, header, body, requestID)
		if err != nil {
			return nil, err
		}

		t0 := time.Now()
		resp, err := c.httpClient.Do(req)
		dur := time.Since(t0)

		if err != nil {
			c.logAttempt(req, 0, dur, attempt, err)
			if attempt < attempts && c.retry.canRetryMethod(method) && shouldRetryNetErr(err) {
				if serr := sleep(ctx, c.retry.wait(attempt, nil)); serr != nil {
					return nil, c.transportError(req, serr, attempt)
				}
				continue
			}
			return nil, c.transportError(req, err, attempt)
		}

		c.logAttempt(req, resp.StatusCode, dur, attempt, nil)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			defer resp.Body.Close()
			raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
			if err != nil {
				return nil, c.transportError(req, err, attempt)
			}
			return raw, nil
		}

		herr := c.statusError(req, resp, attempt)
		if attempt < attempts && c.retry.canRetryMethod(method) && c.retry.canRetryStatus(resp.StatusCode) {
			if serr := sleep(ctx, c.retry.wait(attempt, resp)); serr != nil {
				return nil, herr
			}
			continue
		}
		return nil, herr
	}
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, header http.Header, body []byte, requestID string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	// Default headers first, then request headers override.
	for k, vv := range c.defaultHeaders {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	for k, vv := range header {
		req.Header.Del(k)
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if c.userAgent != "" && req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if requestID != "" {
		req.Header.Set(c.requestIDHeader, requestID)
	}
	return req, nil
}

func (c *Client) statusError(req *http.Request, resp *http.Response, attempt int) *Error {
	defer resp.Body.Close()
	var raw []byte
	if c.maxErrBody > 0 {
		raw, _ = io.ReadAll(io.LimitReader(resp.Body, c.maxErrBody))
	}
	// Drain for connection reuse.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	rid := resp.Header.Get(c.requestIDHeader)
	if rid == "" && c.requestIDHeader != "" {
		rid = req.Header.Get(c.requestIDHeader)
	}
	ra, _ := parseRetryAfter(resp, time.Now())
	return &Error{
		Method:     req.Method,
		URL:        redactURL(req.URL),
		StatusCode: resp.StatusCode,
		RequestID:  rid,
		RetryAfter: ra,
		RawBody:    raw,
		Attempts:   attempt,
		Cause:      errors.New(http.StatusText(resp.StatusCode)),
	}
}

func (c *Client) transportError(req *http.Request, err error, attempt int) *Error {
	rid := ""
	if c.requestIDHeader != "" {
		rid = req.Header.Get(c.requestIDHeader)
	}
	return &Error{
		Method:    req.Method,
		URL:       redactURL(req.URL),
		RequestID: rid,
		Attempts:  attempt,
		Cause:     err,
	}
}

func (c *Client) logAttempt(req *http.Request, status int, dur time.Duration, attempt int, err error) {
	attrs := []any{
		"method", req.Method,
		"url", redactURL(req.URL),
		"attempt", attempt,
		"duration", dur,
	}
	if c.requestIDHeader != "" {
		attrs = append(attrs, "request_id", req.Header.Get(c.requestIDHeader))
	}
	if err != nil {
		c.logger.Warn("http request failed", append(attrs, "err", err)...)
		return
	}
	attrs = append(attrs, "status", status)
	if status >= 400 {
		c.logger.Warn("http request returned error status", attrs...)
		return
	}
	c.logger.Debug("http request", attrs...)
}

// redactURL drops query and userinfo; some gateways accept keys as query params.
func redactURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	v := *u
	v.User = nil
	v.RawQuery = ""
	v.Fragment = ""
	return v.String()
}

func newRequestID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
