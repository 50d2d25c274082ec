package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls repeated attempts. The zero value and MaxAttempts 1
// both mean a single attempt, which is what the provider adapter uses.
type RetryConfig struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int

	// Methods eligible for retry. Empty means GET, HEAD, PUT, DELETE and
	// OPTIONS; POST is only retried when listed.
	Methods map[string]bool

	// StatusCodes eligible for retry. Empty means 408, 429, 500, 502, 503
	// and 504.
	StatusCodes map[int]bool

	// Backoff between attempts. Nil means ExponentialBackoff{}.
	Backoff Backoff

	// RespectRetryAfter waits for the Retry-After of a 429 or 503 instead,
	// capped by MaxRetryAfter when that is set.
	RespectRetryAfter bool
	MaxRetryAfter     time.Duration
}

type Backoff interface {
	// Next returns the wait before retry number attempt, starting at 1.
	Next(attempt int) time.Duration
}

// ExponentialBackoff doubles Base per retry up to Max. Zero fields default
// to 500ms and 5s.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Next(attempt int) time.Duration {
	base, max := b.Base, b.Max
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if max <= 0 {
		max = 5 * time.Second
	}
	d := base
	for i := 1; i < attempt && d < max; i++ {
		d *= 2
	}
	if d > max {
		d = max
	}
	return d
}

func (c RetryConfig) canRetryMethod(method string) bool {
	if c.MaxAttempts <= 1 {
		return false
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if len(c.Methods) > 0 {
		return c.Methods[method]
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func (c RetryConfig) canRetryStatus(code int) bool {
	if len(c.StatusCodes) > 0 {
		return c.StatusCodes[code]
	}
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c RetryConfig) wait(attempt int, resp *http.Response) time.Duration {
	b := c.Backoff
	if b == nil {
		b = ExponentialBackoff{}
	}
	d := b.Next(attempt)
	if !c.RespectRetryAfter || resp == nil {
		return d
	}
	if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode != http.StatusServiceUnavailable {
		return d
	}
	if ra, ok := parseRetryAfter(resp, time.Now()); ok {
		d = ra
		if c.MaxRetryAfter > 0 && d > c.MaxRetryAfter {
			d = c.MaxRetryAfter
		}
	}
	return d
}

// shouldRetryNetErr reports transport timeouts; cancellation and the
// caller's deadline are final.
func shouldRetryNetErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(resp *http.Response, now time.Time) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second, true
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return 0, false
	}
	return max(t.Sub(now), 0), true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
