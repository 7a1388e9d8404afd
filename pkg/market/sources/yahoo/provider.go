package yahoo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const defaultProviderTimeout = 8 * time.Second

var builtinSymbols = map[string]string{
	"SPX":    "^GSPC",
	"SPX500": "^GSPC",
	"SP500":  "^GSPC",
	"NDX":    "^NDX",
	"DJI":    "^DJI",
	"CAC40":  "^FCHI",
	"DAX":    "^GDAXI",
}

type chartParams struct {
	interval string
	rng      string
}

var periodTable = map[market.Period]chartParams{
	market.Period1D:  {interval: "5m", rng: "1d"},
	market.Period7D:  {interval: "1h", rng: "5d"},
	market.Period30D: {interval: "1d", rng: "1mo"},
	market.Period90D: {interval: "1d", rng: "3mo"},
	market.Period1Y:  {interval: "1d", rng: "1y"},
}

// Provider serves stock quotes and history from Yahoo Finance.
type Provider struct {
	name      string
	client    *Client
	timeout   time.Duration
	symbols   market.SymbolMap
	watchlist []string
}

type providerConfig struct {
	timeout   time.Duration
	symbolMap map[string]string
	watchlist []string
	clientOps []Option
}

// ProviderOption customises the Yahoo provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithSymbolMap merges extra ticker mappings.
func WithSymbolMap(m map[string]string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.symbolMap = m
	}
}

// WithWatchlist sets the symbols returned by ListAssets.
func WithWatchlist(symbols []string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.watchlist = symbols
	}
}

// WithClientOptions passes options to the underlying client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientOps = append(cfg.clientOps, options...)
	}
}

// NewProvider constructs a Yahoo market provider.
func NewProvider(name string, opts ...ProviderOption) *Provider {
	cfg := &providerConfig{timeout: defaultProviderTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		name:      name,
		client:    NewClient(name, cfg.clientOps...),
		timeout:   cfg.timeout,
		symbols:   market.NewSymbolMap(builtinSymbols, cfg.symbolMap),
		watchlist: cfg.watchlist,
	}
}

func init() {
	market.RegisterProvider("yahoo", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{WithSymbolMap(cfg.SymbolMap), WithWatchlist(cfg.Watchlist)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		clientOptions := []Option{WithBaseURL(cfg.BaseURL)}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithFetchOptions(fetch.WithMaxRetries(cfg.MaxRetries)))
		}
		if cfg.RequestsPerMinute > 0 {
			clientOptions = append(clientOptions, WithFetchOptions(fetch.WithRequestsPerMinute(cfg.RequestsPerMinute)))
		}
		opts = append(opts, WithClientOptions(clientOptions...))
		return NewProvider(name, opts...), nil
	})
}

// Ticker maps a display symbol to the Yahoo ticker.
func (p *Provider) Ticker(symbol string) string {
	if id, ok := p.symbols.Resolve(symbol); ok {
		return id
	}
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Display maps a Yahoo ticker back to its display symbol, so aliases such as
// SPX and SP500 report one symbol.
func (p *Provider) Display(ticker string) string {
	if sym, ok := p.symbols.Reverse(ticker); ok {
		return sym
	}
	return ticker
}

// Quote implements market.Provider using the chart meta block.
func (p *Provider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	ticker := p.Ticker(symbol)
	chart, err := p.client.Chart(ctx, ticker, "1d", "1d")
	if err != nil {
		return nil, err
	}
	meta := chart.Meta
	price := meta.Get("regularMarketPrice").Float()
	if price <= 0 {
		return nil, market.NewFetchError(market.KindMalformedResponse, p.name, ticker, fmt.Errorf("regularMarketPrice missing or not positive"))
	}
	prev := meta.Get("previousClose").Float()
	if prev <= 0 {
		prev = meta.Get("chartPreviousClose").Float()
	}
	pct, ok := market.ChangePercent(price, prev)
	if !ok {
		return nil, market.NewFetchError(market.KindMalformedResponse, p.name, ticker, fmt.Errorf("previousClose missing"))
	}

	name := meta.Get("longName").String()
	if name == "" {
		name = meta.Get("shortName").String()
	}
	quote := &market.Quote{
		ID:               ticker,
		Symbol:           p.Display(ticker),
		Name:             name,
		Class:            market.Stocks,
		Currency:         strings.ToUpper(meta.Get("currency").String()),
		Price:            price,
		Change24h:        price - prev,
		ChangePercent24h: pct,
		Volume24h:        optional(meta.Get("regularMarketVolume")),
		High24h:          optional(meta.Get("regularMarketDayHigh")),
		Low24h:           optional(meta.Get("regularMarketDayLow")),
		High52w:          optional(meta.Get("fiftyTwoWeekHigh")),
		Low52w:           optional(meta.Get("fiftyTwoWeekLow")),
		Provider:         p.name,
		FetchedAt:        time.Now().UTC(),
	}
	market.Annotate(quote)
	return quote, nil
}

// History implements market.Provider.
func (p *Provider) History(ctx context.Context, symbol string, period market.Period) (*market.Series, error) {
	params, ok := periodTable[period]
	if !ok {
		return nil, market.NewFetchError(market.KindUnsupported, p.name, symbol, nil)
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	ticker := p.Ticker(symbol)
	chart, err := p.client.Chart(ctx, ticker, params.interval, params.rng)
	if err != nil {
		return nil, err
	}
	if len(chart.Points) == 0 {
		return nil, market.NewFetchError(market.KindMalformedResponse, p.name, ticker, fmt.Errorf("chart has no closes"))
	}
	return &market.Series{
		Symbol:   p.Display(ticker),
		Class:    market.Stocks,
		Period:   period,
		Provider: p.name,
		Currency: strings.ToUpper(chart.Meta.Get("currency").String()),
		Points:   chart.Points,
	}, nil
}

// ListAssets implements market.Provider with the configured watchlist.
func (p *Provider) ListAssets(_ context.Context) ([]market.Asset, error) {
	assets := make([]market.Asset, 0, len(p.watchlist))
	for _, symbol := range p.watchlist {
		ticker := p.Ticker(symbol)
		assets = append(assets, market.Asset{
			Symbol: p.Display(ticker),
			ID:     ticker,
			Class:  market.Stocks,
		})
	}
	return assets, nil
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}

func optional(res gjson.Result) *float64 {
	if res.Type != gjson.Number {
		return nil
	}
	return market.Float(res.Float())
}
