package exchangerate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const defaultBaseURL = "https://api.exchangerate-api.com/v4"

// RatesResponse mirrors /latest/{base} and /history/{base}/{date}.
type RatesResponse struct {
	Result          string             `json:"result"`
	ErrorType       string             `json:"error-type"`
	Base            string             `json:"base"`
	Date            string             `json:"date"`
	TimeLastUpdated int64              `json:"time_last_updated"`
	Rates           map[string]float64 `json:"rates"`
}

// Client wraps the ExchangeRate-API v4 endpoints.
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

// NewClient constructs an ExchangeRate-API client.
func NewClient(name string, opts ...Option) *Client {
	c := &Client{name: name, baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(c)
	}
	c.http = fetch.NewClient(name, c.fetchOpts...)
	return c
}

// Latest fetches the current rates table for base.
func (c *Client) Latest(ctx context.Context, base string) (*RatesResponse, error) {
	base = strings.ToUpper(base)
	return c.rates(ctx, "/latest/"+base, base)
}

// OnDate fetches the rates table for base on day.
func (c *Client) OnDate(ctx context.Context, base string, day time.Time) (*RatesResponse, error) {
	base = strings.ToUpper(base)
	return c.rates(ctx, "/history/"+base+"/"+day.Format("2006-01-02"), base)
}

func (c *Client) rates(ctx context.Context, path, base string) (*RatesResponse, error) {
	var resp RatesResponse
	if _, err := c.http.GetJSON(ctx, fetch.BuildURL(c.baseURL, path, nil), base, &resp); err != nil {
		return nil, err
	}
	if strings.EqualFold(resp.Result, "error") {
		kind := market.KindProviderError
		if resp.ErrorType == "unsupported-code" {
			kind = market.KindSymbolNotFound
		}
		return nil, market.NewFetchError(kind, c.name, base, fmt.Errorf("%s", resp.ErrorType))
	}
	if len(resp.Rates) == 0 {
		return nil, market.NewFetchError(market.KindMalformedResponse, c.name, base, fmt.Errorf("rates missing"))
	}
	return &resp, nil
}

// Day returns the calendar day the table refers to, falling back to time_last_updated.
func (r *RatesResponse) Day() time.Time {
	if d, err := time.Parse("2006-01-02", r.Date); err == nil {
		return d
	}
	if r.TimeLastUpdated > 0 {
		t := time.Unix(r.TimeLastUpdated, 0).UTC()
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
