// Package github is a minimal GitHub REST v3 client covering the issue
// metadata this tool needs, with retries and rate-limit handling.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultBaseURL    = "https://api.github.com"
	defaultUserAgent  = "relnotes"
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryBase  = 500 * time.Millisecond

	backoffCeiling = 30 * time.Second
	maxBodyBytes   = 1 << 20
	errTailBytes   = 2048
)

// ErrNotFound indicates the requested item does not exist or is gone.
var ErrNotFound = errors.New("github: not found")

// ErrRateLimited indicates the rate limit budget stayed exhausted across all
// retry attempts.
var ErrRateLimited = errors.New("github: rate limited")

// StatusError wraps a response status the client has no handling for.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("github: unexpected status %d: %s", e.Status, e.Body)
}

// Options configures the Client.
type Options struct {
	BaseURL   string
	UserAgent string

	// Token authenticates requests. Empty means unauthenticated, which has a
	// very low quota.
	Token string

	Timeout    time.Duration
	MaxRetries int
	RetryBase  time.Duration

	Logger *slog.Logger
}

// Client is a GitHub REST client with retry and rate-limit support.
type Client struct {
	http   *http.Client
	opts   Options
	logger *slog.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// NewClient creates a Client with sane defaults for unset options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}

	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}

	if opts.RetryBase <= 0 {
		opts.RetryBase = defaultRetryBase
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Client{
		http:   &http.Client{Timeout: opts.Timeout},
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// do issues one request with auth headers, retrying transport errors,
// transient server errors, and rate-limit responses.
func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	url := c.opts.BaseURL + path

	for attempt := 0; ; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req, reqErr := http.NewRequestWithContext(ctx, method, url, nil)
		if reqErr != nil {
			return nil, fmt.Errorf("github: building request: %w", reqErr)
		}

		req.Header.Set("User-Agent", c.opts.UserAgent)
		req.Header.Set("Accept", "application/vnd.github+json")

		if c.opts.Token != "" {
			req.Header.Set("Authorization", "token "+c.opts.Token)
		}

		resp, doErr := c.http.Do(req)
		if doErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			if !c.shouldRetry(attempt) {
				return nil, fmt.Errorf("github: request failed: %w", doErr)
			}

			wait := c.backoff(attempt)
			c.logger.Warn("github transport error, retrying", "attempt", attempt, "retry_in", wait, "error", doErr)
			c.sleep(wait)
			attempt++

			continue
		}

		remaining, reset, retryAfter := parseRateHeaders(resp.Header)
		c.logger.Debug("github response",
			"method", method, "path", path, "status", resp.StatusCode,
			"attempt", attempt, "rate_remaining", remaining)

		switch resp.StatusCode {
		case http.StatusOK:
			return resp, nil

		case http.StatusNotFound, http.StatusGone:
			drainAndClose(resp.Body)

			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)

		case http.StatusTooManyRequests, http.StatusForbidden:
			drainAndClose(resp.Body)

			if !c.shouldRetry(attempt) {
				return nil, fmt.Errorf("%w: %s", ErrRateLimited, path)
			}

			wait := computeWait(remaining, reset, retryAfter, c.now())
			if wait <= 0 {
				wait = c.backoff(attempt)
			}

			c.logger.Warn("github rate limited, backing off", "sleep", wait, "path", path)
			c.sleep(wait)
			attempt++

		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			drainAndClose(resp.Body)

			if !c.shouldRetry(attempt) {
				return nil, &StatusError{Status: resp.StatusCode, Body: "transient server error"}
			}

			wait := c.backoff(attempt)
			c.logger.Warn("github transient error, retrying", "attempt", attempt, "retry_in", wait)
			c.sleep(wait)
			attempt++

		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, errTailBytes))
			_ = resp.Body.Close()

			return nil, &StatusError{Status: resp.StatusCode, Body: string(tail)}
		}
	}
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

// backoff is exponential in the attempt number, capped at backoffCeiling.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.opts.RetryBase << uint(attempt)
	if d > backoffCeiling || d <= 0 {
		d = backoffCeiling
	}

	return d
}

func parseRateHeaders(h http.Header) (remaining int, reset time.Time, retryAfter int) {
	remaining = atoi(h.Get("X-RateLimit-Remaining"))

	if sec := atoi(h.Get("X-RateLimit-Reset")); sec > 0 {
		reset = time.Unix(int64(sec), 0).UTC()
	}

	retryAfter = atoi(h.Get("Retry-After"))

	return remaining, reset, retryAfter
}

// computeWait picks a sleep duration from rate-limit headers: Retry-After
// wins, then the time until the window resets.
func computeWait(remaining int, reset time.Time, retryAfter int, now time.Time) time.Duration {
	if retryAfter > 0 {
		return time.Duration(retryAfter) * time.Second
	}

	if remaining <= 0 && !reset.IsZero() && reset.After(now) {
		return reset.Sub(now)
	}

	return 0
}

func atoi(s string) int {
	if s == "" {
		return 0
	}

	i, _ := strconv.Atoi(s)

	return i
}

func drainAndClose(rc io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(rc, 512))
	_ = rc.Close()
}
