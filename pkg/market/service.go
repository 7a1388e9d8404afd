package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/syncx"
	"github.com/zeromicro/go-zero/core/threading"
	"golang.org/x/sync/errgroup"

	"tradequest-api/pkg/market/indicators"
)

const (
	persistTimeout      = 5 * time.Second
	defaultFetchTimeout = 30 * time.Second
)

// Overview bundles a quote, its price history and the derived indicators.
type Overview struct {
	Quote      *Quote
	Series     *Series
	Indicators *indicators.Result
	Synthetic  bool
}

// Service is the single entry point used by HTTP handlers and jobs.
type Service struct {
	router     *Router
	converter  *Converter
	indicators indicators.Config

	demo       Provider
	demoName   string
	demoAlways bool

	cache        OverviewCache
	cacheTTL     time.Duration
	flight       syncx.SingleFlight
	fetchTimeout time.Duration

	persistence Persistence
}

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithOverviewCache replaces the cache used for overviews.
func WithOverviewCache(cache OverviewCache) ServiceOption {
	return func(s *Service) { s.cache = cache }
}

// WithPersistence records every fetched quote and series through p.
func WithPersistence(p Persistence) ServiceOption {
	return func(s *Service) { s.persistence = p }
}

// WithFetchTimeout bounds a shared upstream fetch, which outlives the
// cancellation of the caller that started it.
func WithFetchTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithConverter overrides the currency converter.
func WithConverter(c *Converter) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.converter = c
		}
	}
}

// NewService wires routing, conversion, caching and demo mode from cfg.
func NewService(cfg *Config, providers map[string]Provider, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("market service: config is nil")
	}
	router, err := NewRouter(cfg, providers)
	if err != nil {
		return nil, err
	}

	var rates RateSource
	if cfg.Rates != "" {
		src, ok := providers[cfg.Rates].(RateSource)
		if !ok {
			return nil, fmt.Errorf("market service: provider %q cannot quote exchange rates", cfg.Rates)
		}
		rates = src
	}

	s := &Service{
		router:     router,
		converter:  NewConverter(cfg.DefaultCurrency, cfg.Rates, rates),
		indicators: cfg.Indicators.WithDefaults(),
		demoAlways: cfg.Demo,
		cacheTTL:   cfg.CacheTTL,
		flight:     syncx.NewSingleFlight(),

		fetchTimeout: defaultFetchTimeout,
	}
	if name := cfg.DemoProviderName(); name != "" {
		s.demo = providers[name]
		s.demoName = name
	}
	if s.demoAlways && s.demo == nil {
		return nil, errors.New("market service: demo mode enabled but no demo provider configured")
	}
	if s.cacheTTL > 0 {
		mem, err := NewMemoryCache(s.cacheTTL)
		if err != nil {
			return nil, err
		}
		s.cache = mem
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Currency returns the currency quotes are converted to.
func (s *Service) Currency() string { return s.converter.Target() }

// Convert restates amount from one currency in another through the rate provider.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	return s.converter.Convert(ctx, amount, from, to)
}

// DemoAvailable reports whether a demo provider is configured.
func (s *Service) DemoAvailable() bool { return s.demo != nil }

type request struct {
	demo bool
}

// RequestOption tunes a single service call.
type RequestOption func(*request)

// WithDemo asks for synthetic data from the demo provider.
func WithDemo(on bool) RequestOption {
	return func(r *request) { r.demo = on }
}

func (s *Service) request(opts []RequestOption) (request, error) {
	req := request{demo: s.demoAlways}
	for _, opt := range opts {
		opt(&req)
	}
	if req.demo && s.demo == nil {
		return req, NewFetchError(KindUnsupported, "", "", errors.New("demo mode is not enabled"))
	}
	return req, nil
}

func (s *Service) quoteProvider(class AssetClass, req request) (string, Provider, error) {
	if req.demo {
		return s.demoName, s.demo, nil
	}
	return s.router.Quote(class)
}

func (s *Service) historyProvider(class AssetClass, req request) (string, Provider, error) {
	if req.demo {
		return s.demoName, s.demo, nil
	}
	return s.router.History(class)
}

// Quote fetches and converts the latest quote for symbol.
func (s *Service) Quote(ctx context.Context, class AssetClass, symbol string, opts ...RequestOption) (*Quote, error) {
	req, err := s.request(opts)
	if err != nil {
		return nil, err
	}
	symbol = strings.TrimSpace(symbol)
	key := "quote:" + OverviewKey(class, symbol, "", req.demo)
	v, err := s.shared(ctx, key, func(fctx context.Context) (any, error) {
		return s.fetchQuote(fctx, class, symbol, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Quote), nil
}

// History fetches and converts the price series for symbol over period.
func (s *Service) History(ctx context.Context, class AssetClass, symbol string, period Period, opts ...RequestOption) (*Series, error) {
	req, err := s.request(opts)
	if err != nil {
		return nil, err
	}
	symbol = strings.TrimSpace(symbol)
	key := "history:" + OverviewKey(class, symbol, period, req.demo)
	v, err := s.shared(ctx, key, func(fctx context.Context) (any, error) {
		return s.fetchSeries(fctx, class, symbol, period, req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Series), nil
}

// ListAssets returns the listing of the provider routed for class.
func (s *Service) ListAssets(ctx context.Context, class AssetClass, limit int, opts ...RequestOption) ([]Asset, error) {
	req, err := s.request(opts)
	if err != nil {
		return nil, err
	}
	var provider Provider
	if req.demo {
		provider = s.demo
	} else if _, provider, err = s.router.Assets(class); err != nil {
		return nil, err
	}
	var assets []Asset
	if sized, ok := provider.(SizedLister); ok && limit > 0 {
		assets, err = sized.ListTopAssets(ctx, limit)
	} else {
		assets, err = provider.ListAssets(ctx)
	}
	if err != nil {
		return nil, err
	}
	filtered := assets[:0:0]
	for _, a := range assets {
		if a.Class == "" || a.Class == class {
			filtered = append(filtered, a)
		}
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// Overview fetches quote and series concurrently and derives indicators.
// Identical concurrent calls share one upstream fetch; results are cached
// for the configured TTL.
func (s *Service) Overview(ctx context.Context, class AssetClass, symbol string, period Period, opts ...RequestOption) (*Overview, error) {
	req, err := s.request(opts)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = DefaultPeriod
	}
	symbol = strings.TrimSpace(symbol)
	key := OverviewKey(class, symbol, period, req.demo)

	if s.cache != nil {
		if ov, ok, err := s.cache.Get(ctx, key); err != nil {
			logx.WithContext(ctx).Errorf("market: overview cache get %s: %v", key, err)
		} else if ok {
			return ov, nil
		}
	}

	v, err := s.shared(ctx, key, func(fctx context.Context) (any, error) {
		return s.loadOverview(fctx, class, symbol, period, req)
	})
	if err != nil {
		return nil, err
	}
	ov := v.(*Overview)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ov, s.cacheTTL); err != nil {
			logx.WithContext(ctx).Errorf("market: overview cache set %s: %v", key, err)
		}
	}
	return ov, nil
}

// shared runs fn once per key for all concurrent callers. fn gets a context
// detached from the first caller and bounded by fetchTimeout; each caller
// stops waiting when its own ctx is done.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	type result struct {
		val any
		err error
	}
	done := make(chan result, 1)
	detached := context.WithoutCancel(ctx)
	threading.GoSafe(func() {
		val, err := s.flight.Do(key, func() (any, error) {
			fctx, cancel := context.WithTimeout(detached, s.fetchTimeout)
			defer cancel()
			return fn(fctx)
		})
		done <- result{val: val, err: err}
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.val, r.err
	}
}

func (s *Service) loadOverview(ctx context.Context, class AssetClass, symbol string, period Period, req request) (*Overview, error) {
	var (
		quote  *Quote
		series *Series
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := s.fetchQuote(gctx, class, symbol, req)
		quote = q
		return err
	})
	g.Go(func() error {
		sr, err := s.fetchSeries(gctx, class, symbol, period, req)
		series = sr
		return err
	})
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}

	result, err := indicators.Compute(series.Prices(), s.indicators)
	if err != nil {
		if errors.Is(err, indicators.ErrInsufficientData) {
			return nil, NewFetchError(KindInsufficientData, series.Provider, symbol, err)
		}
		return nil, err
	}
	return &Overview{
		Quote:      quote,
		Series:     series,
		Indicators: result,
		Synthetic:  quote.Synthetic || series.Synthetic,
	}, nil
}

func (s *Service) fetchQuote(ctx context.Context, class AssetClass, symbol string, req request) (*Quote, error) {
	name, provider, err := s.quoteProvider(class, req)
	if err != nil {
		return nil, err
	}
	q, err := provider.Quote(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if q == nil || q.Price <= 0 {
		return nil, NewFetchError(KindMalformedResponse, name, symbol, errors.New("quote without positive price"))
	}
	q.Class = class
	q.Provider = name
	s.recordQuote(ctx, name, q)
	return s.converter.Quote(ctx, q)
}

func (s *Service) fetchSeries(ctx context.Context, class AssetClass, symbol string, period Period, req request) (*Series, error) {
	name, provider, err := s.historyProvider(class, req)
	if err != nil {
		return nil, err
	}
	series, err := provider.History(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	if series == nil || len(series.Points) == 0 {
		return nil, NewFetchError(KindInsufficientData, name, symbol, errors.New("empty series"))
	}
	series.Class = class
	series.Provider = name
	s.recordSeries(ctx, name, series)
	return s.converter.Series(ctx, series)
}

// recordQuote persists in the background; failures are logged only.
func (s *Service) recordQuote(ctx context.Context, provider string, q *Quote) {
	if s.persistence == nil || q.Synthetic {
		return
	}
	pctx := context.WithoutCancel(ctx)
	threading.GoSafe(func() {
		c, cancel := context.WithTimeout(pctx, persistTimeout)
		defer cancel()
		if err := s.persistence.RecordQuote(c, provider, q); err != nil {
			logx.WithContext(c).Errorf("market: record quote %s/%s: %v", provider, q.Symbol, err)
		}
	})
}

func (s *Service) recordSeries(ctx context.Context, provider string, series *Series) {
	if s.persistence == nil || series.Synthetic {
		return
	}
	pctx := context.WithoutCancel(ctx)
	threading.GoSafe(func() {
		c, cancel := context.WithTimeout(pctx, persistTimeout)
		defer cancel()
		if err := s.persistence.RecordSeries(c, provider, series); err != nil {
			logx.WithContext(c).Errorf("market: record series %s/%s: %v", provider, series.Symbol, err)
		}
	})
}
