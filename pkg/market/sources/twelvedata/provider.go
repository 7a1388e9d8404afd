package twelvedata

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const defaultProviderTimeout = 10 * time.Second

var builtinSymbols = map[string]string{
	"EURUSD": "EUR/USD",
	"GBPUSD": "GBP/USD",
	"USDJPY": "USD/JPY",
	"USDCHF": "USD/CHF",
	"AUDUSD": "AUD/USD",
	"USDCAD": "USD/CAD",
	"NZDUSD": "NZD/USD",
	"EURGBP": "EUR/GBP",
	"EURJPY": "EUR/JPY",
	"GBPJPY": "GBP/JPY",
}

var isoCurrencies = map[string]struct{}{
	"EUR": {}, "USD": {}, "GBP": {}, "JPY": {}, "CHF": {}, "AUD": {}, "CAD": {}, "NZD": {},
	"CNY": {}, "SEK": {}, "NOK": {}, "DKK": {}, "PLN": {}, "HKD": {}, "SGD": {}, "MXN": {},
	"ZAR": {}, "TRY": {}, "INR": {}, "BRL": {},
}

type seriesParams struct {
	interval   string
	outputSize int
}

var periodTable = map[market.Period]seriesParams{
	market.Period1D:  {interval: "1h", outputSize: 24},
	market.Period7D:  {interval: "1h", outputSize: 168},
	market.Period30D: {interval: "1day", outputSize: 30},
	market.Period90D: {interval: "1day", outputSize: 90},
	market.Period1Y:  {interval: "1day", outputSize: 365},
}

// Provider serves stock and forex data from Twelve Data.
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

// ProviderOption customises the Twelve Data provider.
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

// NewProvider constructs a Twelve Data market provider.
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
	market.RegisterProvider("twelvedata", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		if cfg.APIKey == "" {
			logx.Infof("twelvedata %s: api_key not set, requests will be refused until it is configured", name)
		}
		opts := []ProviderOption{WithSymbolMap(cfg.SymbolMap), WithWatchlist(cfg.Watchlist)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		clientOptions := []Option{WithBaseURL(cfg.BaseURL), WithAPIKey(cfg.APIKey)}
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

// Ticker maps a display symbol to the Twelve Data symbol, e.g. EURUSD -> EUR/USD.
func (p *Provider) Ticker(symbol string) string {
	if id, ok := p.symbols.Resolve(symbol); ok {
		return id
	}
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if len(s) == 6 && isCurrency(s[:3]) && isCurrency(s[3:]) {
		return s[:3] + "/" + s[3:]
	}
	return s
}

// Display maps a Twelve Data symbol back to the configured display ticker.
// Currency pairs keep the BASE/QUOTE form.
func (p *Provider) Display(ticker string) string {
	if classOf(ticker) == market.Forex {
		return ticker
	}
	if sym, ok := p.symbols.Reverse(ticker); ok {
		return sym
	}
	return ticker
}

func classOf(ticker string) market.AssetClass {
	if base, quote, ok := strings.Cut(ticker, "/"); ok && isCurrency(base) && isCurrency(quote) {
		return market.Forex
	}
	return market.Stocks
}

func isCurrency(code string) bool {
	_, ok := isoCurrencies[strings.ToUpper(code)]
	return ok
}

// Quote implements market.Provider.
func (p *Provider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	ticker := p.Ticker(symbol)
	resp, err := p.client.Quote(ctx, ticker)
	if err != nil {
		return nil, err
	}

	price, ok := parseFloat(resp.Close)
	if !ok || price <= 0 {
		return nil, market.NewFetchError(market.KindMalformedResponse, p.name, ticker, fmt.Errorf("close missing or not positive"))
	}
	class := classOf(ticker)
	quote := &market.Quote{
		ID:        ticker,
		Symbol:    p.Display(ticker),
		Name:      resp.Name,
		Class:     class,
		Currency:  strings.ToUpper(resp.Currency),
		Price:     price,
		Volume24h: optionalFloat(resp.Volume),
		High24h:   optionalFloat(resp.High),
		Low24h:    optionalFloat(resp.Low),
		High52w:   optionalFloat(resp.FiftyTwoWeek.High),
		Low52w:    optionalFloat(resp.FiftyTwoWeek.Low),
		Provider:  p.name,
		FetchedAt: time.Now().UTC(),
	}
	if class == market.Forex {
		_, quoteCcy, _ := strings.Cut(ticker, "/")
		quote.Currency = quoteCcy
		quote.Volume24h = nil
	}

	prev, hasPrev := parseFloat(resp.PreviousClose)
	if pct, ok := parseFloat(resp.PercentChange); ok {
		quote.ChangePercent24h = pct
	} else if pct, ok := market.ChangePercent(price, prev); hasPrev && ok {
		quote.ChangePercent24h = pct
	} else {
		return nil, market.NewFetchError(market.KindMalformedResponse, p.name, ticker, fmt.Errorf("previous_close missing"))
	}
	if change, ok := parseFloat(resp.Change); ok {
		quote.Change24h = change
	} else if hasPrev {
		quote.Change24h = price - prev
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
	points, resp, err := p.client.TimeSeries(ctx, ticker, params.interval, params.outputSize)
	if err != nil {
		return nil, err
	}
	class := classOf(ticker)
	currency := strings.ToUpper(resp.Meta.Currency)
	if class == market.Forex {
		// meta.currency_quote carries a display name, not a code.
		_, currency, _ = strings.Cut(ticker, "/")
	}
	return &market.Series{
		Symbol:   p.Display(ticker),
		Class:    class,
		Period:   period,
		Provider: p.name,
		Currency: currency,
		Points:   points,
	}, nil
}

// ListAssets implements market.Provider with the configured watchlist.
func (p *Provider) ListAssets(ctx context.Context) ([]market.Asset, error) {
	assets := make([]market.Asset, 0, len(p.watchlist))
	for _, symbol := range p.watchlist {
		ticker := p.Ticker(symbol)
		assets = append(assets, market.Asset{
			Symbol: p.Display(ticker),
			ID:     ticker,
			Class:  classOf(ticker),
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
