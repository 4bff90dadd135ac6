package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kosarica/deal-planner/internal/http/ratelimit"
)

// UserAgent is sent with every outgoing request.
const UserAgent = "DealPlanner/1.0"

// Client is an HTTP client that throttles outgoing requests. It performs a
// single attempt per call; retries belong to the caller, which knows which
// failures are transient for its protocol.
type Client struct {
	httpClient  *http.Client
	rateLimiter *ratelimit.RateLimiter
}

// NewClient creates a client with the given per-request timeout.
func NewClient(cfg ratelimit.Config, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: ratelimit.NewRateLimiter(cfg),
	}
}

// NewClientWithHTTP wraps an existing *http.Client, for tests and custom transports.
func NewClientWithHTTP(cfg ratelimit.Config, hc *http.Client) *Client {
	return &Client{httpClient: hc, rateLimiter: ratelimit.NewRateLimiter(cfg)}
}

// Do throttles, sets default headers and sends req with ctx attached.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if err := c.rateLimiter.Throttle(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", UserAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	return c.httpClient.Do(req)
}
