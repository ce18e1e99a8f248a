package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultRequestTimeout = 60 * time.Second
	defaultMaxAttempts    = 3
	defaultBaseBackoff    = 200 * time.Millisecond
	defaultMaxBackoff     = 2 * time.Second
	defaultUserAgent      = "sheetview/dev"
)

// Client downloads workbooks over HTTP
type Client struct {
	Token      string
	UserAgent  string
	HTTPClient *http.Client
	cache      *FileCache // nil when caching is off

	requestTimeout time.Duration
	maxAttempts    int
	baseBackoff    time.Duration
	maxBackoff     time.Duration
	sleep          func(time.Duration)
	randInt63n     func(int64) int64
	now            func() time.Time
}

type rawResponse struct {
	StatusCode  int
	ContentType string
	RetryAfter  string
	ETag        string
	Body        []byte
}

// FetchResult is a downloaded workbook.
type FetchResult struct {
	Body      []byte
	ETag      string
	FromCache bool
}

// New creates a client. With useCache, downloads are kept in a local
// ETag cache and revalidated with conditional requests.
func New(token string, useCache bool) *Client {
	c := &Client{
		Token:          token,
		UserAgent:      defaultUserAgent,
		HTTPClient:     &http.Client{},
		requestTimeout: defaultRequestTimeout,
		maxAttempts:    defaultMaxAttempts,
		baseBackoff:    defaultBaseBackoff,
		maxBackoff:     defaultMaxBackoff,
		sleep:          time.Sleep,
		randInt63n:     rand.Int63n,
		now:            time.Now,
	}
	if useCache {
		c.cache = NewFileCache()
	}
	return c
}

// Fetch downloads the workbook at rawURL.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	var cached CacheEntry
	var haveCached bool
	if c.cache != nil {
		cached, haveCached = c.cache.Get(rawURL)
	}

	raw, err := c.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if haveCached && cached.ETag != "" {
			req.Header.Set("If-None-Match", cached.ETag)
		}
		c.setCommonHeaders(req)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	switch raw.StatusCode {
	case http.StatusNotModified:
		if haveCached {
			if body, ok := c.cache.Blob(rawURL); ok {
				return &FetchResult{Body: body, ETag: cached.ETag, FromCache: true}, nil
			}
			c.cache.Evict(rawURL)
		}
		return nil, &APIError{StatusCode: raw.StatusCode, Message: "not modified but no cached copy"}
	case http.StatusOK:
	default:
		if raw.StatusCode == http.StatusNotFound && haveCached {
			c.cache.Evict(rawURL)
		}
		return nil, parseAPIError(raw.StatusCode, raw.Body, raw.RetryAfter)
	}

	if c.cache != nil && raw.ETag != "" {
		c.cache.Put(rawURL, CacheEntry{ETag: raw.ETag, Bytes: int64(len(raw.Body))}, raw.Body)
	}
	return &FetchResult{Body: raw.Body, ETag: raw.ETag}, nil
}

func (c *Client) doWithRetry(ctx context.Context, makeRequest func() (*http.Request, error)) (*rawResponse, error) {
	maxAttempts := c.maxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := makeRequest()
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}

		timeout := c.requestTimeout
		if timeout <= 0 {
			timeout = defaultRequestTimeout
		}
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		req = req.WithContext(attemptCtx)

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			cancel()
			if attempt < maxAttempts && ctx.Err() == nil && isRetryableTransportError(err) {
				c.sleepWithBackoff(attempt, "")
				continue
			}
			return nil, fmt.Errorf("request failed after %d attempt(s): %w", attempt, err)
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		if readErr != nil {
			if attempt < maxAttempts && ctx.Err() == nil && isRetryableTransportError(readErr) {
				c.sleepWithBackoff(attempt, "")
				continue
			}
			return nil, fmt.Errorf("reading response after %d attempt(s): %w", attempt, readErr)
		}

		if attempt < maxAttempts && shouldRetryStatus(resp.StatusCode) {
			c.sleepWithBackoff(attempt, resp.Header.Get("Retry-After"))
			continue
		}

		return &rawResponse{
			StatusCode:  resp.StatusCode,
			ContentType: resp.Header.Get("Content-Type"),
			RetryAfter:  resp.Header.Get("Retry-After"),
			ETag:        resp.Header.Get("ETag"),
			Body:        body,
		}, nil
	}

	return nil, fmt.Errorf("request failed after %d attempt(s)", maxAttempts)
}

func isRetryableTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

func shouldRetryStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) sleepWithBackoff(attempt int, retryAfterHeader string) {
	if d, ok := c.parseRetryAfter(retryAfterHeader); ok {
		c.sleep(d)
		return
	}

	base := c.baseBackoff
	if base <= 0 {
		base = defaultBaseBackoff
	}
	delay := base << (attempt - 1)
	if delay <= 0 {
		delay = defaultMaxBackoff
	}

	maxBackoff := c.maxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	delay = min(delay, maxBackoff)

	// Full jitter in [0, delay).
	if c.randInt63n != nil {
		delay = time.Duration(c.randInt63n(int64(delay)))
	}
	c.sleep(delay)
}

func (c *Client) parseRetryAfter(headerValue string) (time.Duration, bool) {
	v := strings.TrimSpace(headerValue)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		now := time.Now
		if c.now != nil {
			now = c.now
		}
		if d := t.Sub(now()); d > 0 {
			return d, true
		}
	}
	return 0, false
}

// APIError is a non-success HTTP response.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.StatusCode == http.StatusTooManyRequests {
		if e.RetryAfter != "" {
			return fmt.Sprintf("rate limited by server; retry after %s", e.RetryAfter)
		}
		return "rate limited by server; retry in a moment"
	}
	if e.Code != "" {
		return fmt.Sprintf("server error %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound returns true if the error is a 404 APIError.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseAPIError(statusCode int, body []byte, retryAfter string) error {
	var resp errorResponse
	if json.Unmarshal(body, &resp) == nil && resp.Error.Message != "" {
		return &APIError{
			StatusCode: statusCode,
			Code:       resp.Error.Code,
			Message:    resp.Error.Message,
			RetryAfter: retryAfter,
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg, RetryAfter: retryAfter}
}

func (c *Client) setCommonHeaders(req *http.Request) {
	userAgent := strings.TrimSpace(c.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet, */*")

	if c.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
}
