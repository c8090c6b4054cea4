package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Denis-Evseev/google-daily-trends/pkg/config"
	"github.com/Denis-Evseev/google-daily-trends/pkg/logger"
	"github.com/Denis-Evseev/google-daily-trends/pkg/redis"
)

// ErrRetriesExhausted is returned when every attempt hit a retryable status
var ErrRetriesExhausted = errors.New("retries exhausted")

// StatusError carries a non-2xx upstream response
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.Code)
}

// Client is an HTTP client wrapper with retry, rate limiting, a cookie jar
// and logging
// ⭐ SSOT: 모든 외부 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	retryConfig  RetryConfig
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
	userAgent    string

	// sleep is swapped in tests to avoid real backoff waits
	sleep func(ctx context.Context, d time.Duration) error
}

// RetryConfig holds retry configuration.
// Backoff is linear: Base + attempt*Increment (attempt starts at 0).
type RetryConfig struct {
	MaxRetries int
	Base       time.Duration
	Increment  time.Duration
	Enabled    bool
}

// Delay returns the wait before retry number attempt
func (r RetryConfig) Delay(attempt int) time.Duration {
	return r.Base + time.Duration(attempt)*r.Increment
}

// New creates a new HTTP client from the trends section of config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Trends.Timeout,
			Jar:     jar,
		},
		logger: log.WithComponent("httputil"),
		retryConfig: RetryConfig{
			MaxRetries: cfg.Trends.RetryMax,
			Base:       cfg.Trends.RetryBase,
			Increment:  cfg.Trends.RetryStep,
			Enabled:    cfg.Trends.RetryMax > 0,
		},
		userAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		sleep:     sleepCtx,
	}
	if c.httpClient.Timeout <= 0 {
		c.httpClient.Timeout = 30 * time.Second
	}
	if cfg.Trends.RatePerMin > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Trends.RatePerMin)), 1)
	}
	return c
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, base, increment time.Duration) *Client {
	c.retryConfig = RetryConfig{
		MaxRetries: maxRetries,
		Base:       base,
		Increment:  increment,
		Enabled:    maxRetries > 0,
	}
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithLimiter replaces the in-process token bucket (nil disables it)
func (c *Client) WithLimiter(l *rate.Limiter) *Client {
	c.limiter = l
	return c
}

// WithRateLimiter adds a Redis backed limiter shared between processes
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// Jar exposes the cookie jar so callers can check the session state
func (c *Client) Jar() http.CookieJar {
	return c.httpClient.Jar
}

// Get performs a GET request with query parameters.
// The caller owns the response body.
func (c *Client) Get(ctx context.Context, rawURL string, query url.Values) (*http.Response, error) {
	if len(query) > 0 {
		rawURL = rawURL + "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	return c.do(req)
}

// GetBytes performs a GET and returns the body of a 2xx response.
// Any other status becomes a *StatusError.
func (c *Client) GetBytes(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Method: http.MethodGet,
			URL:    resp.Request.URL.Path,
			Code:   resp.StatusCode,
			Body:   truncate(string(body), 256),
		}
	}
	return body, nil
}

// do executes the request with rate limiting, retry and logging
func (c *Client) do(req *http.Request) (*http.Response, error) {
	startTime := time.Now()
	log := c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"path":   req.URL.Path,
	})

	log.Debug("HTTP request started")

	var (
		resp *http.Response
		err  error
	)
	if c.retryConfig.Enabled {
		resp, err = c.doWithRetry(req)
	} else {
		resp, err = c.attempt(req)
	}

	duration := time.Since(startTime)
	if err != nil {
		log.WithError(err).WithField("duration", duration).Error("HTTP request failed")
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration":    duration,
	}).Debug("HTTP request completed")

	return resp, nil
}

// attempt waits for both limiters and sends the request once
func (c *Client) attempt(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		if err := c.rateLimiter.Wait(ctx, *c.rateLimitCfg); err != nil {
			return nil, fmt.Errorf("shared rate limit wait failed: %w", err)
		}
	}
	return c.httpClient.Do(req)
}

// doWithRetry retries on 429 / 5xx and transport errors with linear backoff
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var lastStatus int

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		resp, err := c.attempt(req)
		if err == nil && !IsRetryableError(resp.StatusCode) {
			return resp, nil
		}
		if req.Context().Err() != nil {
			return nil, req.Context().Err()
		}

		if err == nil {
			lastStatus = resp.StatusCode
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		if attempt == c.retryConfig.MaxRetries {
			if err != nil {
				return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
			}
			break
		}

		delay := c.retryConfig.Delay(attempt)
		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
			"status":  lastStatus,
			"path":    req.URL.Path,
		}).Warn("Retrying HTTP request")

		if err := c.sleep(req.Context(), delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, c.retryConfig.MaxRetries+1,
		&StatusError{Method: req.Method, URL: req.URL.Path, Code: lastStatus})
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

func sleepCtx(ctx context.Context, d time.Duration) error {
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

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
