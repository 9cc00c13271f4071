package fetch

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"charm.land/log/v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RetryPolicy controls how failed request attempts back off.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// Delay returns the backoff before retrying after the given attempt
// (1-based), growing exponentially and capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if m := float64(p.MaxDelay); p.MaxDelay > 0 && d > m {
		d = m
	}
	return time.Duration(d)
}

// SessionOptions configures a Session. Zero values fall back to sane
// defaults; a nil Limiter disables rate limiting.
type SessionOptions struct {
	Limiter   *Limiter
	Retry     RetryPolicy
	Timeout   time.Duration
	UserAgent string
	Logger    *log.Logger
}

// Session is a pooled HTTP client. Every request first takes a rate-limiter
// slot; throttling and server errors (429, 500, 502, 503, 504) retry with
// exponential backoff up to the attempt ceiling. Connections are reused for
// the lifetime of the session.
type Session struct {
	client    *http.Client
	limiter   *Limiter
	retry     RetryPolicy
	userAgent string
	logger    *log.Logger
}

func NewSession(opts SessionOptions) *Session {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Session{
		client:    &http.Client{Timeout: opts.Timeout, Transport: transport},
		limiter:   opts.Limiter,
		retry:     opts.Retry,
		userAgent: opts.UserAgent,
		logger:    opts.Logger,
	}
}

// Get fetches url. The caller owns the response body.
func (s *Session) Get(ctx context.Context, url string) (*http.Response, error) {
	return s.do(ctx, http.MethodGet, url)
}

// Head probes url without transferring a body.
func (s *Session) Head(ctx context.Context, url string) (*http.Response, error) {
	return s.do(ctx, http.MethodHead, url)
}

func (s *Session) do(ctx context.Context, method, url string) (*http.Response, error) {
	var lastErr error
	for attempt := 1; ; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Acquire(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, fmt.Errorf("build %s %s: %w", method, url, err)
		}
		req.Header.Set("User-Agent", s.userAgent)

		resp, err := s.client.Do(req)
		switch {
		case err != nil:
			lastErr = err
		case !retryableStatus(resp.StatusCode):
			return resp, nil
		default:
			if attempt >= s.retry.MaxAttempts {
				// Out of attempts; hand the throttled response to the caller.
				return resp, nil
			}
			lastErr = fmt.Errorf("%s %s: status %d", method, url, resp.StatusCode)
			drain(resp)
		}

		if attempt >= s.retry.MaxAttempts {
			return nil, lastErr
		}

		delay := s.retry.Delay(attempt)
		s.logger.Debug("retrying request",
			"method", method, "url", url, "attempt", attempt, "delay", delay, "err", lastErr)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// CloseIdle releases pooled connections held by the session.
func (s *Session) CloseIdle() {
	s.client.CloseIdleConnections()
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// drain discards a response body so the connection can be reused for the
// retry.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	_ = resp.Body.Close()
}
