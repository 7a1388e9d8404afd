package twelvedata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const (
	defaultBaseURL           = "https://api.twelvedata.com"
	defaultRequestsPerMinute = 8
)

var datetimeLayouts = []string{"2006-01-02 15:04:05", "2006-01-02"}

// Client wraps the Twelve Data REST API.
type Client struct {
	name    string
	baseURL string
	apiKey  string

	fetchOpts []fetch.Option
	http      *fetch.Client
}

// Option configures a new Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAPIKey sets the apikey query parameter.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return WithFetchOptions(fetch.WithHTTPClient(hc))
}

// WithFetchOptions passes options to the shared transport.
func WithFetchOptions(opts ...fetch.Option) Option {
	return func(c *Client) {
		c.fetchOpts = append(c.fetchOpts, opts...)
	}
}

// NewClient constructs a Twelve Data client.
func NewClient(name string, opts ...Option) *Client {
	c := &Client{name: name, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	c.http = fetch.NewClient(name, append([]fetch.Option{fetch.WithRequestsPerMinute(defaultRequestsPerMinute)}, c.fetchOpts...)...)
	return c
}

func (c *Client) query(symbol string) url.Values {
	q := url.Values{}
	q.Set("symbol", symbol)
	if c.apiKey != "" {
		q.Set("apikey", c.apiKey)
	}
	return q
}

func (c *Client) requireKey(symbol string) error {
	if c.apiKey == "" {
		return market.NewFetchError(market.KindUnsupported, c.name, symbol, errors.New("api_key not configured"))
	}
	return nil
}

// Quote fetches GET /quote for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (*QuoteResponse, error) {
	if err := c.requireKey(symbol); err != nil {
		return nil, err
	}
	var resp QuoteResponse
	if _, err := c.http.GetJSON(ctx, fetch.BuildURL(c.baseURL, "/quote", c.query(symbol)), symbol, &resp); err != nil {
		return nil, err
	}
	if err := c.statusError(resp.apiStatus, symbol); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TimeSeries fetches GET /time_series and returns points oldest first.
func (c *Client) TimeSeries(ctx context.Context, symbol, interval string, outputSize int) ([]market.PricePoint, *TimeSeriesResponse, error) {
	if err := c.requireKey(symbol); err != nil {
		return nil, nil, err
	}
	q := c.query(symbol)
	q.Set("interval", interval)
	q.Set("outputsize", strconv.Itoa(outputSize))
	var resp TimeSeriesResponse
	if _, err := c.http.GetJSON(ctx, fetch.BuildURL(c.baseURL, "/time_series", q), symbol, &resp); err != nil {
		return nil, nil, err
	}
	if err := c.statusError(resp.apiStatus, symbol); err != nil {
		return nil, nil, err
	}
	if len(resp.Values) == 0 {
		return nil, nil, market.NewFetchError(market.KindMalformedResponse, c.name, symbol, fmt.Errorf("time_series values empty"))
	}

	loc := time.UTC
	if tz := strings.TrimSpace(resp.Meta.ExchangeTimezone); tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	points := make([]market.PricePoint, 0, len(resp.Values))
	for _, v := range resp.Values {
		ts, ok := parseDatetime(v.Datetime, loc)
		if !ok {
			continue
		}
		price, ok := parseFloat(v.Close)
		if !ok {
			continue
		}
		points = append(points, market.PricePoint{
			TimestampMs: ts.UnixMilli(),
			Price:       price,
			Volume:      optionalFloat(v.Volume),
		})
	}
	points = market.NormalizePoints(points)
	if len(points) == 0 {
		return nil, nil, market.NewFetchError(market.KindMalformedResponse, c.name, symbol, fmt.Errorf("time_series values unparseable"))
	}
	return points, &resp, nil
}

// statusError converts {"status":"error"} payloads into FetchErrors.
func (c *Client) statusError(st apiStatus, symbol string) error {
	if !strings.EqualFold(st.Status, "error") {
		return nil
	}
	kind := market.KindProviderError
	msg := strings.ToLower(st.Message)
	switch {
	case st.Code == http.StatusTooManyRequests || strings.Contains(msg, "api credits"):
		kind = market.KindRateLimited
	case st.Code == http.StatusNotFound || (st.Code == http.StatusBadRequest && strings.Contains(msg, "symbol")):
		kind = market.KindSymbolNotFound
	}
	fe := market.NewFetchError(kind, c.name, symbol, fmt.Errorf("%s", st.Message))
	fe.StatusCode = st.Code
	return fe
}

func parseDatetime(raw string, loc *time.Location) (time.Time, bool) {
	for _, layout := range datetimeLayouts {
		if t, err := time.ParseInLocation(layout, strings.TrimSpace(raw), loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
