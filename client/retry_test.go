package client

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

type transportResult struct {
	status  int
	body    string
	headers map[string]string
	err     error
}

type sequenceTransport struct {
	t       *testing.T
	results []transportResult
	calls   int
}

func (s *sequenceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	i := s.calls - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	r := s.results[i]
	if r.err != nil {
		return nil, r.err
	}

	h := make(http.Header)
	for k, v := range r.headers {
		h.Set(k, v)
	}

	return &http.Response{
		StatusCode: r.status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(r.body)),
		Request:    req,
	}, nil
}

func newTestClient(t *testing.T, tr http.RoundTripper) *Client {
	t.Helper()
	c := New("test-token", false)
	c.HTTPClient = &http.Client{Transport: tr}
	c.sleep = func(time.Duration) {}
	c.randInt63n = func(n int64) int64 { return 0 }
	return c
}

func getRequest() (*http.Request, error) {
	return http.NewRequest("GET", "https://files.test.local/book.xlsx", nil)
}

func TestDoWithRetry_RetriesTransientStatusThenSuccess(t *testing.T) {
	tr := &sequenceTransport{
		t: t,
		results: []transportResult{
			{status: http.StatusServiceUnavailable, body: "busy"},
			{status: http.StatusBadGateway, body: "gateway"},
			{status: http.StatusOK, body: "ok"},
		},
	}
	c := newTestClient(t, tr)

	raw, err := c.doWithRetry(context.Background(), getRequest)
	if err != nil {
		t.Fatalf("doWithRetry failed: %v", err)
	}
	if tr.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", tr.calls)
	}
	if raw.StatusCode != http.StatusOK || string(raw.Body) != "ok" {
		t.Fatalf("unexpected response: status=%d body=%q", raw.StatusCode, string(raw.Body))
	}
}

func TestDoWithRetry_DoesNotRetryNonRetryableStatus(t *testing.T) {
	tr := &sequenceTransport{
		t:       t,
		results: []transportResult{{status: http.StatusBadRequest, body: "bad"}},
	}
	c := newTestClient(t, tr)

	raw, err := c.doWithRetry(context.Background(), getRequest)
	if err != nil {
		t.Fatalf("doWithRetry failed: %v", err)
	}
	if tr.calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", tr.calls)
	}
	if raw.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", raw.StatusCode)
	}
}

func TestDoWithRetry_RetriesTransportTimeoutThenSuccess(t *testing.T) {
	tr := &sequenceTransport{
		t: t,
		results: []transportResult{
			{err: &url.Error{Op: "Get", URL: "https://files.test.local/book.xlsx", Err: context.DeadlineExceeded}},
			{status: http.StatusOK, body: "ok"},
		},
	}
	c := newTestClient(t, tr)

	raw, err := c.doWithRetry(context.Background(), getRequest)
	if err != nil {
		t.Fatalf("doWithRetry failed: %v", err)
	}
	if tr.calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", tr.calls)
	}
	if raw.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", raw.StatusCode)
	}
}

func TestDoWithRetry_StopsWhenContextCancelled(t *testing.T) {
	tr := &sequenceTransport{
		t: t,
		results: []transportResult{
			{err: &url.Error{Op: "Get", URL: "https://files.test.local/book.xlsx", Err: context.DeadlineExceeded}},
			{status: http.StatusOK, body: "ok"},
		},
	}
	c := newTestClient(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.doWithRetry(ctx, getRequest); err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if tr.calls > 1 {
		t.Fatalf("expected no retries, got %d attempts", tr.calls)
	}
}

func TestDoWithRetry_HonorsRetryAfterHeader(t *testing.T) {
	tr := &sequenceTransport{
		t: t,
		results: []transportResult{
			{status: http.StatusTooManyRequests, body: "rate limited", headers: map[string]string{"Retry-After": "2"}},
			{status: http.StatusOK, body: "ok"},
		},
	}
	c := newTestClient(t, tr)

	var slept []time.Duration
	c.sleep = func(d time.Duration) {
		slept = append(slept, d)
	}

	if _, err := c.doWithRetry(context.Background(), getRequest); err != nil {
		t.Fatalf("doWithRetry failed: %v", err)
	}
	if len(slept) != 1 {
		t.Fatalf("expected one sleep, got %d", len(slept))
	}
	if slept[0] != 2*time.Second {
		t.Fatalf("expected sleep of 2s, got %s", slept[0])
	}
}

func TestSleepWithBackoff_ExponentialCapped(t *testing.T) {
	c := newTestClient(t, &sequenceTransport{t: t})
	c.randInt63n = nil
	c.baseBackoff = 100 * time.Millisecond
	c.maxBackoff = 350 * time.Millisecond

	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	for attempt := 1; attempt <= 4; attempt++ {
		c.sleepWithBackoff(attempt, "")
	}

	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("attempt %d: expected %s, got %s", i+1, want[i], slept[i])
		}
	}
}

func TestDoWithRetry_ReturnsRetryAfterOnTerminalRateLimit(t *testing.T) {
	tr := &sequenceTransport{
		t: t,
		results: []transportResult{
			{status: http.StatusTooManyRequests, body: "rate limited", headers: map[string]string{"Retry-After": "7"}},
		},
	}
	c := newTestClient(t, tr)
	c.maxAttempts = 1

	raw, err := c.doWithRetry(context.Background(), getRequest)
	if err != nil {
		t.Fatalf("doWithRetry failed: %v", err)
	}
	if raw.RetryAfter != "7" {
		t.Fatalf("expected Retry-After header to be preserved, got %q", raw.RetryAfter)
	}
}

func TestParseAPIError_RateLimitMessage(t *testing.T) {
	err := parseAPIError(http.StatusTooManyRequests, []byte(`{"error":{"message":"too many requests","code":"rate_limited"}}`), "9")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if got := apiErr.Error(); got != "rate limited by server; retry after 9" {
		t.Fatalf("unexpected rate-limit message: %q", got)
	}

	err = parseAPIError(http.StatusTooManyRequests, []byte("rate limited"), "")
	apiErr, ok = err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %T", err)
	}
	if got := apiErr.Error(); got != "rate limited by server; retry in a moment" {
		t.Fatalf("unexpected rate-limit fallback message: %q", got)
	}
}

func TestParseAPIError_PlainBody(t *testing.T) {
	err := parseAPIError(http.StatusForbidden, nil, "")
	if got := err.Error(); got != "server error 403: Forbidden" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestFetch_SendsTokenAndCachesByETag(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("unexpected Authorization header %q", got)
		}
		if r.Header.Get("If-None-Match") == `"rev1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"rev1"`)
		w.Write([]byte("workbook-bytes"))
	}))
	defer srv.Close()

	c := New("test-token", false)
	c.cache = newMemoryCache()

	first, err := c.Fetch(context.Background(), srv.URL+"/book.xlsx")
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.FromCache || string(first.Body) != "workbook-bytes" || first.ETag != `"rev1"` {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := c.Fetch(context.Background(), srv.URL+"/book.xlsx")
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !second.FromCache || string(second.Body) != "workbook-bytes" {
		t.Fatalf("expected cached body, got %+v", second)
	}
	if n := requests.Load(); n != 2 {
		t.Fatalf("expected 2 requests, got %d", n)
	}
}

func TestFetch_NotFoundEvictsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"not_found","message":"gone"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("", false)
	c.cache = newMemoryCache()
	key := srv.URL + "/book.xlsx"
	c.cache.Put(key, CacheEntry{ETag: `"old"`}, []byte("stale"))

	_, err := c.Fetch(context.Background(), key)
	if !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, ok := c.cache.Get(key); ok {
		t.Fatal("expected entry to be evicted")
	}
}

func TestFetch_NoCacheIgnoresValidators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			t.Errorf("unexpected conditional request")
		}
		w.Header().Set("ETag", `"x"`)
		w.Write([]byte("data"))
	}))
	defer srv.Close()

	c := New("", false)
	for i := 0; i < 2; i++ {
		res, err := c.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if res.FromCache {
			t.Fatalf("fetch %d served from cache", i)
		}
	}
}
