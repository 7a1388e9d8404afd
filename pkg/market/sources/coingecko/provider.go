package coingecko

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const (
	defaultProviderTimeout = 8 * time.Second
	defaultListSize        = 10
	maxListSize            = 250
)

var builtinSymbols = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"BNB":   "binancecoin",
	"ADA":   "cardano",
	"SOL":   "solana",
	"DOT":   "polkadot",
	"LINK":  "chainlink",
	"LTC":   "litecoin",
	"XRP":   "ripple",
	"MATIC": "matic-network",
	"AVAX":  "avalanche-2",
	"UNI":   "uniswap",
	"ATOM":  "cosmos",
	"DOGE":  "dogecoin",
	"USDT":  "tether",
}

type chartParams struct {
	days     int
	interval string
}

var periodTable = map[market.Period]chartParams{
	market.Period1D:  {days: 1, interval: "hourly"},
	market.Period7D:  {days: 7, interval: "hourly"},
	market.Period30D: {days: 30, interval: "daily"},
	market.Period90D: {days: 90, interval: "daily"},
	market.Period1Y:  {days: 365, interval: "daily"},
}

// Provider serves crypto quotes and history from CoinGecko.
type Provider struct {
	name    string
	client  *Client
	timeout time.Duration
	symbols market.SymbolMap
}

type providerConfig struct {
	timeout   time.Duration
	symbolMap map[string]string
	clientOps []Option
}

// ProviderOption customises the CoinGecko provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithSymbolMap merges extra ticker to coin id mappings.
func WithSymbolMap(m map[string]string) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.symbolMap = m
	}
}

// WithClientOptions passes options to the underlying client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientOps = append(cfg.clientOps, options...)
	}
}

// NewProvider constructs a CoinGecko market provider.
func NewProvider(name string, opts ...ProviderOption) *Provider {
	cfg := &providerConfig{timeout: defaultProviderTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		name:    name,
		client:  NewClient(name, cfg.clientOps...),
		timeout: cfg.timeout,
		symbols: market.NewSymbolMap(builtinSymbols, cfg.symbolMap),
	}
}

func init() {
	market.RegisterProvider("coingecko", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{WithSymbolMap(cfg.SymbolMap)}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		clientOptions := []Option{
			WithBaseURL(cfg.BaseURL),
			WithCurrency(cfg.Currency),
			WithAPIKey(cfg.APIKey),
		}
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

// CoinID resolves a display ticker or coin id to a CoinGecko coin id.
func (p *Provider) CoinID(symbol string) string {
	if id, ok := p.symbols.Resolve(symbol); ok {
		return id
	}
	return strings.ToLower(strings.TrimSpace(symbol))
}

// Quote implements market.Provider.
func (p *Provider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	quote, err := p.client.Coin(ctx, p.CoinID(symbol))
	if err != nil {
		return nil, err
	}
	if quote.Symbol == "" {
		quote.Symbol = strings.ToUpper(symbol)
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
	points, err := p.client.MarketChart(ctx, p.CoinID(symbol), params.days, params.interval)
	if err != nil {
		return nil, err
	}
	return &market.Series{
		Symbol:   strings.ToUpper(symbol),
		Class:    market.Crypto,
		Period:   period,
		Provider: p.name,
		Currency: p.client.currency,
		Points:   points,
	}, nil
}

// ListAssets implements market.Provider with the top coins by market cap.
func (p *Provider) ListAssets(ctx context.Context) ([]market.Asset, error) {
	return p.ListTopAssets(ctx, defaultListSize)
}

// ListTopAssets implements market.SizedLister. limit is clamped to the
// largest page /coins/markets serves.
func (p *Provider) ListTopAssets(ctx context.Context, limit int) ([]market.Asset, error) {
	switch {
	case limit <= 0:
		limit = defaultListSize
	case limit > maxListSize:
		limit = maxListSize
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	quotes, err := p.client.Markets(ctx, limit)
	if err != nil {
		return nil, err
	}
	assets := make([]market.Asset, 0, len(quotes))
	for _, q := range quotes {
		meta := map[string]any{
			"changePercent24h": q.ChangePercent24h,
		}
		if q.MarketCap != nil {
			meta["marketCap"] = *q.MarketCap
		}
		if q.MarketCapRank != nil {
			meta["marketCapRank"] = *q.MarketCapRank
		}
		if q.Volume24h != nil {
			meta["volume24h"] = *q.Volume24h
		}
		assets = append(assets, market.Asset{
			Symbol:      q.Symbol,
			ID:          q.ID,
			Name:        q.Name,
			Class:       market.Crypto,
			Price:       q.Price,
			RawMetadata: meta,
		})
	}
	return assets, nil
}

// Currency reports the vs_currency of returned prices.
func (p *Provider) Currency() string {
	return p.client.currency
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}
