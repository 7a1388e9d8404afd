// Package fetch provides the rate limited, retrying HTTP transport shared by market sources.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tidwall/gjson"
	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/time/rate"

	"tradequest-api/pkg/market"
)

const (
	defaultHTTPTimeout     = 10 * time.Second
	defaultMaxRetries      = 3
	defaultInitialInterval = 250 * time.Millisecond
	defaultMaxInterval     = 4 * time.Second
	maxErrorBody           = 256
)

// Client performs GET requests against one upstream provider.
type Client struct {
	provider        string
	httpClient      *http.Client
	limiter         *rate.Limiter
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	headers         http.Header
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithMaxRetries adjusts the retry budget. Zero disables retries.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// WithRequestsPerMinute installs a token bucket limiter. Non-positive values disable limiting.
func WithRequestsPerMinute(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)
		}
	}
}

// WithBackoff overrides the exponential backoff bounds.
func WithBackoff(initial, max time.Duration) Option {
	return func(c *Client) {
		if initial > 0 {
			c.initialInterval = initial
		}
		if max > 0 {
			c.maxInterval = max
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if key != "" && value != "" {
			c.headers.Set(key, value)
		}
	}
}

// NewClient constructs a transport for the named provider.
func NewClient(provider string, opts ...Option) *Client {
	c := &Client{
		provider:        provider,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
		limiter:         rate.NewLimiter(rate.Inf, 1),
		maxRetries:      defaultMaxRetries,
		initialInterval: defaultInitialInterval,
		maxInterval:     defaultMaxInterval,
		headers:         make(http.Header),
	}
	c.headers.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider name used in errors.
func (c *Client) Provider() string { return c.provider }

// Get fetches rawURL and returns the body of a 2xx JSON response.
// Failures are *market.FetchError except caller cancellation, which returns ctx.Err().
// Network errors, 429 and 5xx are retried with exponential backoff.
func (c *Client) Get(ctx context.Context, rawURL, symbol string) ([]byte, error) {
	var body []byte
	attempt := 0
	op := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return backoff.Permanent(c.fail(market.KindRateLimited, symbol, 0, err))
		}
		data, err := c.do(ctx, rawURL, symbol)
		if err != nil {
			var fe *market.FetchError
			if errors.As(err, &fe) && isTransient(fe) {
				return err
			}
			return backoff.Permanent(err)
		}
		body = data
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	policy.MaxInterval = c.maxInterval
	policy.MaxElapsedTime = 0
	notify := func(err error, wait time.Duration) {
		logx.WithContext(ctx).Infof("fetch: retrying provider=%s symbol=%s attempt=%d wait=%s err=%v",
			c.provider, symbol, attempt, wait, err)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxRetries)), ctx), notify)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// GetJSON fetches rawURL and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL, symbol string, out any) ([]byte, error) {
	body, err := c.Get(ctx, rawURL, symbol)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return nil, c.fail(market.KindMalformedResponse, symbol, 0, fmt.Errorf("decode: %w", err))
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, rawURL, symbol string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, c.fail(market.KindProviderError, symbol, 0, fmt.Errorf("build request: %w", err))
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.fail(market.KindNetworkUnavailable, symbol, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.fail(market.KindNetworkUnavailable, symbol, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.fail(StatusKind(resp.StatusCode), symbol, resp.StatusCode,
			fmt.Errorf("http status %d: %s", resp.StatusCode, truncate(data)))
	}
	if !gjson.ValidBytes(data) {
		return nil, c.fail(market.KindMalformedResponse, symbol, resp.StatusCode, fmt.Errorf("invalid json: %s", truncate(data)))
	}
	return data, nil
}

func (c *Client) fail(kind market.ErrorKind, symbol string, status int, err error) *market.FetchError {
	fe := market.NewFetchError(kind, c.provider, symbol, err)
	fe.StatusCode = status
	return fe
}

// StatusKind maps a non-2xx HTTP status to an error kind.
func StatusKind(status int) market.ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return market.KindRateLimited
	case status == http.StatusNotFound:
		return market.KindSymbolNotFound
	default:
		return market.KindProviderError
	}
}

func isTransient(fe *market.FetchError) bool {
	switch fe.Kind {
	case market.KindNetworkUnavailable, market.KindRateLimited:
		return true
	case market.KindProviderError:
		return fe.StatusCode >= 500
	default:
		return false
	}
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

// BuildURL joins base and path and encodes query.
func BuildURL(base, path string, query url.Values) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}
