package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const (
	defaultBaseURL   = "https://query1.finance.yahoo.com/v8/finance"
	defaultUserAgent = "Mozilla/5.0"
)

// Client wraps the Yahoo Finance chart endpoint.
type Client struct {
	name    string
	baseURL string

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

// NewClient constructs a Yahoo chart client.
func NewClient(name string, opts ...Option) *Client {
	c := &Client{name: name, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	c.http = fetch.NewClient(name, append([]fetch.Option{fetch.WithHeader("User-Agent", defaultUserAgent)}, c.fetchOpts...)...)
	return c
}

// Chart is the first result of a chart response.
type Chart struct {
	Meta   gjson.Result
	Points []market.PricePoint
}

// Chart fetches /chart/{symbol} with the given interval and range.
func (c *Client) Chart(ctx context.Context, symbol, interval, rng string) (*Chart, error) {
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("range", rng)
	body, err := c.http.Get(ctx, fetch.BuildURL(c.baseURL, "/chart/"+url.PathEscape(symbol), q), symbol)
	if err != nil {
		return nil, err
	}

	if chartErr := gjson.GetBytes(body, "chart.error"); chartErr.IsObject() {
		kind := market.KindProviderError
		if strings.EqualFold(chartErr.Get("code").String(), "Not Found") {
			kind = market.KindSymbolNotFound
		}
		return nil, market.NewFetchError(kind, c.name, symbol, fmt.Errorf("%s", chartErr.Get("description").String()))
	}
	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, market.NewFetchError(market.KindMalformedResponse, c.name, symbol, fmt.Errorf("chart.result empty"))
	}

	timestamps := result.Get("timestamp").Array()
	closes := result.Get("indicators.quote.0.close").Array()
	volumes := result.Get("indicators.quote.0.volume").Array()
	points := make([]market.PricePoint, 0, len(timestamps))
	for i, ts := range timestamps {
		if i >= len(closes) || closes[i].Type != gjson.Number {
			continue // null bars on halted sessions
		}
		point := market.PricePoint{TimestampMs: ts.Int() * 1000, Price: closes[i].Float()}
		if i < len(volumes) && volumes[i].Type == gjson.Number {
			point.Volume = market.Float(volumes[i].Float())
		}
		points = append(points, point)
	}
	return &Chart{Meta: result.Get("meta"), Points: market.NormalizePoints(points)}, nil
}
