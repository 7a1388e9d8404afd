package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const (
	defaultBaseURL           = "https://api.coingecko.com/api/v3"
	defaultCurrency          = "EUR"
	defaultRequestsPerMinute = 50
	demoKeyHeader            = "x-cg-demo-api-key"
)

// Client wraps the CoinGecko public REST API.
type Client struct {
	name     string
	baseURL  string
	currency string
	apiKey   string

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

// WithCurrency sets the vs_currency used for prices.
func WithCurrency(ccy string) Option {
	return func(c *Client) {
		if ccy != "" {
			c.currency = strings.ToUpper(ccy)
		}
	}
}

// WithAPIKey sends a demo API key with every request.
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

// NewClient constructs a CoinGecko client.
func NewClient(name string, opts ...Option) *Client {
	c := &Client{
		name:     name,
		baseURL:  defaultBaseURL,
		currency: defaultCurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	fetchOpts := []fetch.Option{fetch.WithRequestsPerMinute(defaultRequestsPerMinute)}
	if c.apiKey != "" {
		fetchOpts = append(fetchOpts, fetch.WithHeader(demoKeyHeader, c.apiKey))
	}
	c.http = fetch.NewClient(name, append(fetchOpts, c.fetchOpts...)...)
	return c
}

func (c *Client) vs() string {
	return strings.ToLower(c.currency)
}

// Coin fetches /coins/{id} and maps market_data into a Quote.
func (c *Client) Coin(ctx context.Context, id string) (*market.Quote, error) {
	q := url.Values{}
	q.Set("localization", "false")
	q.Set("tickers", "false")
	q.Set("market_data", "true")
	q.Set("community_data", "false")
	q.Set("developer_data", "false")
	q.Set("sparkline", "false")
	body, err := c.http.Get(ctx, fetch.BuildURL(c.baseURL, "/coins/"+url.PathEscape(id), q), id)
	if err != nil {
		return nil, err
	}
	if err := c.apiError(body, id); err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	md := root.Get("market_data")
	if !md.Exists() {
		return nil, c.malformed(id, "market_data missing")
	}
	ccy := c.vs()
	price, ok := currencyValue(md.Get("current_price"), ccy)
	if !ok || price <= 0 {
		return nil, c.malformed(id, "current_price missing or not positive")
	}

	quote := &market.Quote{
		ID:        root.Get("id").String(),
		Symbol:    strings.ToUpper(root.Get("symbol").String()),
		Name:      root.Get("name").String(),
		Class:     market.Crypto,
		Currency:  c.currency,
		Price:     price,
		Provider:  c.name,
		FetchedAt: time.Now().UTC(),
	}
	if quote.ID == "" {
		quote.ID = id
	}

	change, hasChange := currencyValue(md.Get("price_change_24h_in_currency"), ccy)
	if !hasChange && ccy == "usd" {
		// The bare field is always quoted in USD.
		change, hasChange = currencyValue(md.Get("price_change_24h"), "")
	}
	pct, ok := currencyValue(md.Get("price_change_percentage_24h_in_currency"), ccy)
	if !ok {
		pct, ok = currencyValue(md.Get("price_change_percentage_24h"), "")
	}
	switch {
	case ok:
		quote.ChangePercent24h = pct
		if hasChange {
			quote.Change24h = change
		} else {
			quote.Change24h = price - price/(1+pct/100)
		}
	case hasChange:
		quote.Change24h = change
		if p, valid := market.ChangePercent(price, price-change); valid {
			quote.ChangePercent24h = p
		}
	default:
		return nil, c.malformed(id, "price_change_percentage_24h missing")
	}

	quote.MarketCap = optional(md.Get("market_cap"), ccy)
	quote.Volume24h = optional(md.Get("total_volume"), ccy)
	quote.High24h = optional(md.Get("high_24h"), ccy)
	quote.Low24h = optional(md.Get("low_24h"), ccy)
	quote.High52w = optional(md.Get("ath"), ccy)
	quote.Low52w = optional(md.Get("atl"), ccy)
	if rank := root.Get("market_cap_rank"); rank.Type == gjson.Number {
		r := int(rank.Int())
		quote.MarketCapRank = &r
	}
	return quote, nil
}

// MarketChart fetches /coins/{id}/market_chart for the given number of days.
func (c *Client) MarketChart(ctx context.Context, id string, days int, interval string) ([]market.PricePoint, error) {
	q := url.Values{}
	q.Set("vs_currency", c.vs())
	q.Set("days", strconv.Itoa(days))
	if interval != "" {
		q.Set("interval", interval)
	}
	body, err := c.http.Get(ctx, fetch.BuildURL(c.baseURL, "/coins/"+url.PathEscape(id)+"/market_chart", q), id)
	if err != nil {
		return nil, err
	}
	if err := c.apiError(body, id); err != nil {
		return nil, err
	}
	prices := gjson.GetBytes(body, "prices")
	if !prices.IsArray() {
		return nil, c.malformed(id, "prices array missing")
	}

	volumes := make(map[int64]float64)
	gjson.GetBytes(body, "total_volumes").ForEach(func(_, pair gjson.Result) bool {
		if row := pair.Array(); len(row) == 2 {
			volumes[row[0].Int()] = row[1].Float()
		}
		return true
	})

	points := make([]market.PricePoint, 0, len(prices.Array()))
	for _, pair := range prices.Array() {
		row := pair.Array()
		if len(row) != 2 || row[1].Type != gjson.Number {
			continue
		}
		ts := row[0].Int()
		point := market.PricePoint{TimestampMs: ts, Price: row[1].Float()}
		if v, ok := volumes[ts]; ok {
			point.Volume = market.Float(v)
		}
		points = append(points, point)
	}
	return market.NormalizePoints(points), nil
}

// Markets fetches /coins/markets ordered by market cap.
func (c *Client) Markets(ctx context.Context, perPage int) ([]market.Quote, error) {
	q := url.Values{}
	q.Set("vs_currency", c.vs())
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", "1")
	q.Set("sparkline", "false")
	body, err := c.http.Get(ctx, fetch.BuildURL(c.baseURL, "/coins/markets", q), "")
	if err != nil {
		return nil, err
	}
	if err := c.apiError(body, ""); err != nil {
		return nil, err
	}
	rows := gjson.ParseBytes(body)
	if !rows.IsArray() {
		return nil, c.malformed("", "markets response is not an array")
	}
	now := time.Now().UTC()
	out := make([]market.Quote, 0, len(rows.Array()))
	for _, row := range rows.Array() {
		price := row.Get("current_price").Float()
		if price <= 0 {
			continue
		}
		quote := market.Quote{
			ID:               row.Get("id").String(),
			Symbol:           strings.ToUpper(row.Get("symbol").String()),
			Name:             row.Get("name").String(),
			Class:            market.Crypto,
			Currency:         c.currency,
			Price:            price,
			Change24h:        row.Get("price_change_24h").Float(),
			ChangePercent24h: row.Get("price_change_percentage_24h").Float(),
			MarketCap:        optional(row.Get("market_cap"), ""),
			Volume24h:        optional(row.Get("total_volume"), ""),
			High24h:          optional(row.Get("high_24h"), ""),
			Low24h:           optional(row.Get("low_24h"), ""),
			Provider:         c.name,
			FetchedAt:        now,
		}
		if rank := row.Get("market_cap_rank"); rank.Type == gjson.Number {
			r := int(rank.Int())
			quote.MarketCapRank = &r
		}
		out = append(out, quote)
	}
	return out, nil
}

// apiError detects {"error": "..."} and {"status": {"error_code": ...}} payloads.
func (c *Client) apiError(body []byte, id string) error {
	if msg := gjson.GetBytes(body, "error"); msg.Exists() && msg.Type == gjson.String {
		kind := market.KindProviderError
		if strings.Contains(strings.ToLower(msg.String()), "not found") {
			kind = market.KindSymbolNotFound
		}
		return market.NewFetchError(kind, c.name, id, fmt.Errorf("%s", msg.String()))
	}
	if code := gjson.GetBytes(body, "status.error_code"); code.Exists() {
		kind := market.KindProviderError
		if code.Int() == http.StatusTooManyRequests {
			kind = market.KindRateLimited
		}
		return market.NewFetchError(kind, c.name, id, fmt.Errorf("%s", gjson.GetBytes(body, "status.error_message").String()))
	}
	return nil
}

func (c *Client) malformed(id, msg string) error {
	return market.NewFetchError(market.KindMalformedResponse, c.name, id, fmt.Errorf("%s", msg))
}

// currencyValue reads a bare number or a currency keyed object such as {"eur": 1}.
func currencyValue(res gjson.Result, ccy string) (float64, bool) {
	switch {
	case res.Type == gjson.Number:
		return res.Float(), true
	case res.IsObject() && ccy != "":
		v := res.Get(ccy)
		if v.Type == gjson.Number {
			return v.Float(), true
		}
	}
	return 0, false
}

func optional(res gjson.Result, ccy string) *float64 {
	if v, ok := currencyValue(res, ccy); ok {
		return market.Float(v)
	}
	return nil
}
