// Package transport sends HTTP requests to the marketplace and invoicing APIs.
// A 429 answer is retried exactly once after a backoff; a second 429 is a *model.RateLimitError.
package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/rezonia/trendyol-invoicer/internal/model"
)

const (
	// DefaultBackoff is the wait before retrying a rate limited request
	DefaultBackoff = 60 * time.Second
	// DefaultTimeout bounds a single HTTP exchange
	DefaultTimeout = 30 * time.Second

	maxResponseSize = 32 << 20
	maxAttempts     = 2
)

// Doer executes HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestFunc builds a fresh request for every attempt
type RequestFunc func(ctx context.Context) (*http.Request, error)

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Client wraps a Doer with the rate limit policy of one remote service
type Client struct {
	service     string
	doer        Doer
	clock       clockwork.Clock
	backoff     time.Duration
	logger      *zap.Logger
	onRateLimit func(service string)
}

// Option configures a Client
type Option func(*Client)

// WithDoer sets the underlying HTTP client
func WithDoer(d Doer) Option {
	return func(c *Client) {
		c.doer = d
	}
}

// WithClock sets the clock used for backoff waits
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) {
		c.clock = clock
	}
}

// WithBackoff sets the wait before the single retry
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimitHook registers a callback invoked on every 429
func WithRateLimitHook(fn func(service string)) Option {
	return func(c *Client) {
		c.onRateLimit = fn
	}
}

// New creates a client for the named service
func New(service string, opts ...Option) *Client {
	c := &Client{
		service: service,
		doer:    &http.Client{Timeout: DefaultTimeout},
		clock:   clockwork.NewRealClock(),
		backoff: DefaultBackoff,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Service returns the service name used in errors and metrics
func (c *Client) Service() string {
	return c.service
}

// Do sends the request built by build. Non-2xx statuses other than 429 are returned
// as a Response for the caller to interpret.
func (c *Client) Do(ctx context.Context, build RequestFunc) (*Response, error) {
	for attempt := 1; ; attempt++ {
		resp, err := c.once(ctx, build)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if c.onRateLimit != nil {
			c.onRateLimit(c.service)
		}
		if attempt >= maxAttempts {
			c.logger.Warn("rate limit persisted after retry",
				zap.String("service", c.service),
				zap.Int("attempts", attempt),
			)
			return nil, model.NewRateLimitError(c.service, attempt)
		}

		c.logger.Warn("rate limited, backing off",
			zap.String("service", c.service),
			zap.Duration("backoff", c.backoff),
		)
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
	}
}

func (c *Client) once(ctx context.Context, build RequestFunc) (*Response, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", c.service, err)
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response: %w", c.service, err)
	}

	c.logger.Debug("http exchange",
		zap.String("service", c.service),
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
	)

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) wait(ctx context.Context) error {
	return Sleep(ctx, c.clock, c.backoff)
}

// Sleep waits d on clock, returning early with ctx.Err() when ctx is done
func Sleep(ctx context.Context, clock clockwork.Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
