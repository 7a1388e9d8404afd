package exchangerate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const (
	defaultProviderTimeout = 8 * time.Second
	ratesCacheTTL          = 10 * time.Minute
)

// Provider serves forex quotes and conversion rates from ExchangeRate-API.
// It has no intraday history endpoint; History reports KindUnsupported.
type Provider struct {
	name      string
	client    *Client
	timeout   time.Duration
	watchlist []string

	cacheMu sync.RWMutex
	latest  map[string]cachedRates
}

type cachedRates struct {
	Rates   *RatesResponse
	Fetched time.Time
}

type providerConfig struct {
	timeout   time.Duration
	watchlist []string
	clientOps []Option
}

// ProviderOption customises the provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithWatchlist sets the pairs returned by ListAssets.
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

// NewProvider constructs an ExchangeRate-API provider.
func NewProvider(name string, opts ...ProviderOption) *Provider {
	cfg := &providerConfig{timeout: defaultProviderTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		name:      name,
		client:    NewClient(name, cfg.clientOps...),
		timeout:   cfg.timeout,
		watchlist: cfg.watchlist,
		latest:    make(map[string]cachedRates),
	}
}

func init() {
	market.RegisterProvider("exchangerate", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{WithWatchlist(cfg.Watchlist)}
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

// SplitPair parses "EURUSD", "EUR/USD" or "EUR-USD" into base and quote codes.
func SplitPair(symbol string) (string, string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.NewReplacer("/", "", "-", "", "_", "").Replace(s)
	if len(s) != 6 {
		return "", "", fmt.Errorf("exchangerate: %q is not a currency pair", symbol)
	}
	return s[:3], s[3:], nil
}

// Quote implements market.Provider. The 24h change compares against the previous
// day's table; when that lookup fails the quote fails too.
func (p *Provider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	base, quoteCcy, err := SplitPair(symbol)
	if err != nil {
		return nil, market.NewFetchError(market.KindSymbolNotFound, p.name, symbol, err)
	}
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	latest, err := p.client.Latest(ctx, base)
	if err != nil {
		return nil, err
	}
	p.storeLatest(base, latest)
	rate, ok := latest.Rates[quoteCcy]
	if !ok || rate <= 0 {
		return nil, market.NewFetchError(market.KindSymbolNotFound, p.name, symbol, fmt.Errorf("no rate for %s", quoteCcy))
	}

	previous, err := p.client.OnDate(ctx, base, latest.Day().AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	prevRate, ok := previous.Rates[quoteCcy]
	if !ok || prevRate <= 0 {
		return nil, market.NewFetchError(market.KindMalformedResponse, p.name, symbol, fmt.Errorf("no previous rate for %s", quoteCcy))
	}
	pct, _ := market.ChangePercent(rate, prevRate)

	pair := base + "/" + quoteCcy
	quote := &market.Quote{
		ID:               pair,
		Symbol:           pair,
		Class:            market.Forex,
		Currency:         quoteCcy,
		Price:            rate,
		Change24h:        rate - prevRate,
		ChangePercent24h: pct,
		Provider:         p.name,
		FetchedAt:        time.Now().UTC(),
	}
	market.Annotate(quote)
	return quote, nil
}

// History implements market.Provider.
func (p *Provider) History(_ context.Context, symbol string, _ market.Period) (*market.Series, error) {
	return nil, market.NewFetchError(market.KindUnsupported, p.name, symbol, fmt.Errorf("history not available"))
}

// ListAssets implements market.Provider with the configured pairs.
func (p *Provider) ListAssets(_ context.Context) ([]market.Asset, error) {
	assets := make([]market.Asset, 0, len(p.watchlist))
	for _, symbol := range p.watchlist {
		base, quoteCcy, err := SplitPair(symbol)
		if err != nil {
			continue
		}
		pair := base + "/" + quoteCcy
		assets = append(assets, market.Asset{Symbol: pair, ID: pair, Class: market.Forex})
	}
	return assets, nil
}

// Rate implements market.RateSource: the amount of to per unit of from.
func (p *Provider) Rate(ctx context.Context, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return 1, nil
	}
	table, ok := p.loadLatest(from)
	if !ok {
		ctx, cancel := p.withTimeout(ctx)
		defer cancel()
		fresh, err := p.client.Latest(ctx, from)
		if err != nil {
			return 0, err
		}
		p.storeLatest(from, fresh)
		table = fresh
	}
	rate, ok := table.Rates[to]
	if !ok || rate <= 0 {
		return 0, market.NewFetchError(market.KindSymbolNotFound, p.name, from+to, fmt.Errorf("no rate for %s", to))
	}
	return rate, nil
}

func (p *Provider) loadLatest(base string) (*RatesResponse, bool) {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	entry, ok := p.latest[base]
	if !ok || time.Since(entry.Fetched) > ratesCacheTTL {
		return nil, false
	}
	return entry.Rates, true
}

func (p *Provider) storeLatest(base string, rates *RatesResponse) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.latest[base] = cachedRates{Rates: rates, Fetched: time.Now()}
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}
