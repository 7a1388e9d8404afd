// Package watch refreshes a configured watchlist on a schedule.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	"golang.org/x/sync/errgroup"

	"tradequest-api/internal/config"
	"tradequest-api/internal/publisher"
	"tradequest-api/pkg/market"
)

const (
	defaultRunTimeout  = 2 * time.Minute
	defaultConcurrency = 4
)

// ErrRunInProgress is returned when a previous run still holds the lock.
var ErrRunInProgress = errors.New("watch: run already in progress")

// Overviews is the market surface the job refreshes through.
type Overviews interface {
	Overview(ctx context.Context, class market.AssetClass, symbol string, period market.Period, opts ...market.RequestOption) (*market.Overview, error)
}

// Locker guards a run across processes.
type Locker interface {
	AcquireCtx(ctx context.Context) (bool, error)
	ReleaseCtx(ctx context.Context) (bool, error)
}

// Target is one symbol to refresh.
type Target struct {
	Class  market.AssetClass
	Symbol string
}

// Report summarises one run.
type Report struct {
	Refreshed int
	Published int
	Failures  map[string]error
}

// Job refreshes every target once per Run.
type Job struct {
	market      Overviews
	publisher   publisher.Publisher
	lock        Locker
	targets     []Target
	period      market.Period
	timeout     time.Duration
	concurrency int
	running     atomic.Bool
}

// Option customises a Job.
type Option func(*Job)

// WithLocker serialises runs across instances.
func WithLocker(l Locker) Option {
	return func(j *Job) { j.lock = l }
}

// WithPublisher forwards refreshed quotes.
func WithPublisher(p publisher.Publisher) Option {
	return func(j *Job) {
		if p != nil {
			j.publisher = p
		}
	}
}

// WithTimeout bounds a single run.
func WithTimeout(d time.Duration) Option {
	return func(j *Job) {
		if d > 0 {
			j.timeout = d
		}
	}
}

// WithConcurrency caps parallel upstream fetches.
func WithConcurrency(n int) Option {
	return func(j *Job) {
		if n > 0 {
			j.concurrency = n
		}
	}
}

// TargetsFromConfig expands the configured watch list, dropping duplicates.
func TargetsFromConfig(cfg config.WatchConf) ([]Target, error) {
	seen := make(map[string]struct{})
	var out []Target
	for _, t := range cfg.Targets {
		class, err := market.ParseAssetClass(t.Class)
		if err != nil {
			return nil, err
		}
		for _, raw := range t.Symbols {
			symbol := strings.ToUpper(strings.TrimSpace(raw))
			if symbol == "" {
				continue
			}
			key := market.OverviewKey(class, symbol, "", false)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, Target{Class: class, Symbol: symbol})
		}
	}
	return out, nil
}

// NewJob builds a job refreshing targets at period.
func NewJob(m Overviews, targets []Target, period market.Period, opts ...Option) *Job {
	j := &Job{
		market:      m,
		publisher:   publisher.Nop{},
		targets:     targets,
		period:      period,
		timeout:     defaultRunTimeout,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Targets returns the configured targets.
func (j *Job) Targets() []Target { return j.targets }

// Run refreshes every target. A failing target does not stop the others.
func (j *Job) Run(ctx context.Context) (*Report, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer j.running.Store(false)

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	if j.lock != nil {
		ok, err := j.lock.AcquireCtx(ctx)
		if err != nil {
			return nil, fmt.Errorf("watch: acquire lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer func() {
			if _, err := j.lock.ReleaseCtx(context.WithoutCancel(ctx)); err != nil {
				logx.WithContext(ctx).Errorf("watch: release lock: %v", err)
			}
		}()
	}

	var (
		mu       sync.Mutex
		events   []publisher.QuoteEvent
		failures = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.concurrency)
	for _, target := range j.targets {
		target := target
		g.Go(func() error {
			ov, err := j.market.Overview(gctx, target.Class, target.Symbol, j.period)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[string(target.Class)+":"+target.Symbol] = err
				return nil
			}
			event := publisher.NewQuoteEvent(ov.Quote)
			if ov.Indicators != nil {
				event.RSI = ov.Indicators.RSI
				event.Trend = string(ov.Indicators.Trend)
			}
			events = append(events, event)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.Slice(events, func(a, b int) bool { return events[a].Key() < events[b].Key() })
	report := &Report{Refreshed: len(events), Failures: failures}
	for key, err := range failures {
		logx.WithContext(ctx).Errorf("watch: refresh %s: %v", key, err)
	}
	if err := j.publisher.Publish(ctx, events...); err != nil {
		return report, err
	}
	if _, nop := j.publisher.(publisher.Nop); !nop {
		report.Published = len(events)
	}
	logx.WithContext(ctx).Infof("watch: refreshed=%d failed=%d published=%d", report.Refreshed, len(failures), report.Published)
	return report, nil
}
