package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestPostJSON_SendsBodyAndHeaders(t *testing.T) {
	var gotBody, gotCT, gotUA, gotRID, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotCT = r.Header.Get("Content-Type")
		gotUA = r.Header.Get("User-Agent")
		gotRID = r.Header.Get("X-Request-ID")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(srv.Close)

	c := New(WithUserAgent("test-agent/1"), WithDefaultHeader("Authorization", "Bearer default"))
	hdr := make(http.Header)
	hdr.Set("Authorization", "Bearer override")

	raw, err := c.PostJSON(context.Background(), srv.URL+"/v1/chat", hdr, map[string]any{"model": "m"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("raw=%q", raw)
	}
	if gotBody != `{"model":"m"}` {
		t.Fatalf("body=%q", gotBody)
	}
	if gotCT != "application/json" {
		t.Fatalf("Content-Type=%q", gotCT)
	}
	if gotUA != "test-agent/1" {
		t.Fatalf("User-Agent=%q", gotUA)
	}
	if gotRID == "" {
		t.Fatalf("expected generated request id")
	}
	if gotAuth != "Bearer override" {
		t.Fatalf("Authorization=%q", gotAuth)
	}
}

func TestPostJSON_RejectsRelativeURL(t *testing.T) {
	c := New()
	if _, err := c.PostJSON(context.Background(), "/v1/chat", nil, map[string]any{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPostJSON_NoRetryByDefault(t *testing.T) {
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&n, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)

	_, err := New().PostJSON(context.Background(), srv.URL, nil, map[string]any{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsHTTPStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := atomic.LoadInt32(&n); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestPostJSON_RetriesWhenPOSTAllowed(t *testing.T) {
	var n int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&n, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	c := New(WithRetry(RetryConfig{
		MaxAttempts: 3,
		Methods:     map[string]bool{http.MethodPost: true},
		Backoff:     ExponentialBackoff{Base: time.Millisecond, Max: 2 * time.Millisecond},
	}))
	raw, err := c.PostJSON(context.Background(), srv.URL, nil, map[string]any{})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if string(raw) != "ok" {
		t.Fatalf("raw=%q", raw)
	}
	if got := atomic.LoadInt32(&n); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestPostJSON_ErrorBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	t.Cleanup(srv.Close)

	_, err := New(WithMaxErrorBodyBytes(10)).PostJSON(context.Background(), srv.URL, nil, map[string]any{})
	he, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *httpx.Error, got %T", err)
	}
	if len(he.RawBody) != 10 {
		t.Fatalf("expected RawBody len=10, got %d", len(he.RawBody))
	}
	if he.RetryAfter != 7*time.Second {
		t.Fatalf("RetryAfter=%v", he.RetryAfter)
	}
	if he.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("StatusCode=%d", he.StatusCode)
	}
}

func TestPostJSON_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := New(WithTimeout(50*time.Millisecond)).PostJSON(context.Background(), srv.URL, nil, map[string]any{})
	he, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *httpx.Error, got %T (%v)", err, err)
	}
	if !he.Timeout() {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestRoundTripperFunc(t *testing.T) {
	var seen string
	rt := RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.URL.String()
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}")), Header: make(http.Header), Request: r}, nil
	})
	c := New(WithTransport(rt))
	if _, err := c.PostJSON(context.Background(), "https://example.test/x?key=secret", nil, map[string]any{}); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if seen != "https://example.test/x?key=secret" {
		t.Fatalf("url=%q", seen)
	}
	if got := redactURL(mustParse(t, seen)); got != "https://example.test/x" {
		t.Fatalf("redactURL=%q", got)
	}
}

func mustParse(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	return u
}

func TestExponentialBackoff(t *testing.T) {
	b := ExponentialBackoff{Base: 100 * time.Millisecond, Max: 350 * time.Millisecond}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := b.Next(i + 1); got != w {
			t.Fatalf("Next(%d)=%v, want %v", i+1, got, w)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		header string
		want   time.Duration
		ok     bool
	}{
		{name: "seconds", header: "7", want: 7 * time.Second, ok: true},
		{name: "date", header: now.Add(3 * time.Second).Format(http.TimeFormat), want: 3 * time.Second, ok: true},
		{name: "past date", header: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, ok: true},
		{name: "missing", header: "", ok: false},
		{name: "garbage", header: "soon", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			got, ok := parseRetryAfter(resp, now)
			if ok != tt.ok || got != tt.want {
				t.Fatalf("parseRetryAfter()=%v,%v want %v,%v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
