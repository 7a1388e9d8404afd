package demo

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"
	"time"

	"tradequest-api/pkg/market"
)

// Provider generates deterministic synthetic market data. Every value it
// returns is flagged Synthetic so callers can label it in the UI.
type Provider struct {
	name      string
	seed      int64
	currency  string
	watchlist []string
	now       func() time.Time
}

// Option customises the demo provider.
type Option func(*Provider)

// WithSeed changes the generator seed.
func WithSeed(seed int64) Option {
	return func(p *Provider) { p.seed = seed }
}

// WithCurrency sets the currency reported for crypto and stock data.
func WithCurrency(ccy string) Option {
	return func(p *Provider) {
		if ccy = strings.ToUpper(strings.TrimSpace(ccy)); ccy != "" {
			p.currency = ccy
		}
	}
}

// WithWatchlist sets the symbols returned by ListAssets.
func WithWatchlist(symbols []string) Option {
	return func(p *Provider) { p.watchlist = symbols }
}

// WithClock pins the reference time used to lay out series.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProvider constructs a demo provider.
func NewProvider(name string, opts ...Option) *Provider {
	p := &Provider{
		name:      name,
		currency:  "EUR",
		watchlist: []string{"BTC", "ETH", "AAPL", "MSFT", "EUR/USD", "GBP/USD"},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func init() {
	market.RegisterProvider("demo", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []Option{WithSeed(cfg.Seed), WithCurrency(cfg.Currency)}
		if len(cfg.Watchlist) > 0 {
			opts = append(opts, WithWatchlist(cfg.Watchlist))
		}
		return NewProvider(name, opts...), nil
	})
}

var basePrices = map[string]float64{
	"BTC":     43000,
	"ETH":     2300,
	"SOL":     95,
	"ADA":     0.52,
	"XRP":     0.58,
	"DOGE":    0.085,
	"AAPL":    185,
	"MSFT":    375,
	"GOOGL":   140,
	"TSLA":    240,
	"AMZN":    150,
	"EUR/USD": 1.09,
	"GBP/USD": 1.27,
	"USD/JPY": 148,
	"EUR/GBP": 0.86,
}

var cryptoSymbols = map[string]bool{
	"BTC": true, "ETH": true, "SOL": true, "ADA": true, "XRP": true, "DOGE": true,
	"BNB": true, "DOT": true, "LINK": true, "LTC": true, "AVAX": true, "MATIC": true,
}

// Quote implements market.Provider.
func (p *Provider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sym, class, err := p.classify(symbol)
	if err != nil {
		return nil, err
	}
	points := p.path(sym, market.Period1D)
	last := points[len(points)-1].Price
	first := points[0].Price
	pct, _ := market.ChangePercent(last, first)

	low, high := last, last
	for _, pt := range points {
		low = math.Min(low, pt.Price)
		high = math.Max(high, pt.Price)
	}
	quote := &market.Quote{
		ID:               sym,
		Symbol:           sym,
		Name:             sym + " (demo)",
		Class:            class,
		Currency:         p.currencyFor(sym, class),
		Price:            last,
		Change24h:        last - first,
		ChangePercent24h: pct,
		High24h:          market.Float(high),
		Low24h:           market.Float(low),
		Provider:         p.name,
		FetchedAt:        p.now().UTC(),
		Synthetic:        true,
	}
	if class != market.Forex {
		quote.Volume24h = market.Float(last * 1e5)
	}
	market.Annotate(quote)
	return quote, nil
}

// History implements market.Provider.
func (p *Provider) History(ctx context.Context, symbol string, period market.Period) (*market.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if period.Days() == 0 {
		return nil, market.NewFetchError(market.KindUnsupported, p.name, symbol, nil)
	}
	sym, class, err := p.classify(symbol)
	if err != nil {
		return nil, err
	}
	return &market.Series{
		Symbol:    sym,
		Class:     class,
		Period:    period,
		Provider:  p.name,
		Currency:  p.currencyFor(sym, class),
		Points:    p.path(sym, period),
		Synthetic: true,
	}, nil
}

// ListAssets implements market.Provider.
func (p *Provider) ListAssets(ctx context.Context) ([]market.Asset, error) {
	assets := make([]market.Asset, 0, len(p.watchlist))
	for _, symbol := range p.watchlist {
		quote, err := p.Quote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		assets = append(assets, market.Asset{
			Symbol:      quote.Symbol,
			ID:          quote.ID,
			Name:        quote.Name,
			Class:       quote.Class,
			Price:       quote.Price,
			RawMetadata: map[string]any{"synthetic": true},
		})
	}
	return assets, nil
}

func (p *Provider) classify(symbol string) (string, market.AssetClass, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	compact := strings.NewReplacer("/", "", "-", "").Replace(sym)
	switch {
	case compact == "":
		return "", "", market.NewFetchError(market.KindSymbolNotFound, p.name, symbol, errors.New("empty symbol"))
	case cryptoSymbols[sym]:
		return sym, market.Crypto, nil
	case isCurrencyPair(compact):
		return compact[:3] + "/" + compact[3:], market.Forex, nil
	case strings.Contains(sym, "/"):
		return "", "", market.NewFetchError(market.KindSymbolNotFound, p.name, symbol, errors.New("not a known currency pair"))
	default:
		return sym, market.Stocks, nil
	}
}

func isCurrencyPair(s string) bool {
	if len(s) != 6 {
		return false
	}
	known := map[string]bool{"EUR": true, "USD": true, "GBP": true, "JPY": true, "CHF": true, "CAD": true, "AUD": true, "NZD": true}
	return known[s[:3]] && known[s[3:]]
}

func (p *Provider) currencyFor(sym string, class market.AssetClass) string {
	if class == market.Forex {
		return sym[4:]
	}
	return p.currency
}

// path lays out a smooth deterministic walk ending at the current step.
func (p *Provider) path(sym string, period market.Period) []market.PricePoint {
	step, count := stepFor(period)
	end := p.now().UTC().Truncate(step)

	h := fnv.New64a()
	_, _ = h.Write([]byte(sym))
	hash := h.Sum64() ^ uint64(p.seed)
	phase := float64(hash%628) / 100
	drift := (float64(hash>>16%200) - 100) / 1e5
	amplitude := 0.01 + float64(hash>>32%40)/1000

	base, ok := basePrices[sym]
	if !ok {
		base = 50 + float64(hash%450)
	}

	points := make([]market.PricePoint, 0, count)
	for i := 0; i < count; i++ {
		ts := end.Add(-time.Duration(count-1-i) * step)
		x := float64(ts.Unix()/int64(step.Seconds())) / 6
		price := base * (1 + amplitude*math.Sin(x+phase) + amplitude/3*math.Sin(x/5+phase*2) + drift*float64(i-count+1))
		if price <= 0 {
			price = base * 0.01
		}
		points = append(points, market.PricePoint{TimestampMs: ts.UnixMilli(), Price: price})
	}
	return points
}

func stepFor(period market.Period) (time.Duration, int) {
	switch period {
	case market.Period1D:
		return time.Hour, 25
	case market.Period7D:
		return time.Hour, 7*24 + 1
	default:
		return 24 * time.Hour, period.Days() + 1
	}
}
