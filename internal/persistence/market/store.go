package marketpersist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "tradequest-api/internal/cache"
	"tradequest-api/pkg/market"
	"tradequest-api/pkg/portfolio"
)

// Store mirrors fetched market data and executed paper trades into SQL, with
// an optional Redis copy of the latest quote.
type Store struct {
	conn    sqlx.SqlConn
	dialect Dialect
	cache   gocache.Cache
	ttl     cachekeys.TTLSet
}

// Config enumerates Store dependencies.
type Config struct {
	Conn    sqlx.SqlConn
	Dialect Dialect
	Cache   gocache.Cache
	TTL     cachekeys.TTLSet
}

// NewStore returns nil when no connection is configured.
func NewStore(cfg Config) *Store {
	if cfg.Conn == nil {
		return nil
	}
	if cfg.Dialect == "" {
		cfg.Dialect = Postgres
	}
	return &Store{conn: cfg.Conn, dialect: cfg.Dialect, cache: cfg.Cache, ttl: cfg.TTL}
}

const upsertQuote = `
INSERT INTO quote_latest (provider, class, symbol, currency, price, change_pct, volume, market_cap, sentiment, fetched_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (provider, class, symbol) DO UPDATE SET
    currency = excluded.currency,
    price = excluded.price,
    change_pct = excluded.change_pct,
    volume = excluded.volume,
    market_cap = excluded.market_cap,
    sentiment = excluded.sentiment,
    fetched_ms = excluded.fetched_ms`

// RecordQuote implements market.Persistence.
func (s *Store) RecordQuote(ctx context.Context, provider string, q *market.Quote) error {
	if s == nil || q == nil || strings.TrimSpace(q.Symbol) == "" {
		return nil
	}
	fetched := q.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now().UTC()
	}
	if _, err := s.conn.ExecCtx(ctx, s.dialect.rebind(upsertQuote),
		provider, string(q.Class), q.Symbol, q.Currency, q.Price, q.ChangePercent24h,
		nullFloat(q.Volume24h), nullFloat(q.MarketCap), string(q.Sentiment), fetched.UnixMilli(),
	); err != nil {
		return err
	}
	s.cacheQuote(ctx, provider, q)
	return nil
}

const upsertPoint = `
INSERT INTO price_points (provider, symbol, ts_ms, price, volume)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (provider, symbol, ts_ms) DO UPDATE SET
    price = excluded.price,
    volume = excluded.volume`

// RecordSeries implements market.Persistence.
func (s *Store) RecordSeries(ctx context.Context, provider string, series *market.Series) error {
	if s == nil || series == nil || len(series.Points) == 0 {
		return nil
	}
	query := s.dialect.rebind(upsertPoint)
	return s.conn.TransactCtx(ctx, func(ctx context.Context, session sqlx.Session) error {
		stmt, err := session.PrepareCtx(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range series.Points {
			if _, err := stmt.ExecCtx(ctx, provider, series.Symbol, p.TimestampMs, p.Price, nullFloat(p.Volume)); err != nil {
				return err
			}
		}
		return nil
	})
}

const insertTrade = `
INSERT INTO paper_trades (id, account, class, symbol, side, quantity, price, amount, realized_pnl, currency, executed_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// RecordTrade implements portfolio.Journal.
func (s *Store) RecordTrade(ctx context.Context, t *portfolio.Trade) error {
	if s == nil || t == nil {
		return nil
	}
	_, err := s.conn.ExecCtx(ctx, s.dialect.rebind(insertTrade),
		t.ID, t.Account, string(t.Class), t.Symbol, string(t.Side),
		t.Quantity.String(), t.Price.String(), t.Amount.String(), t.RealizedPnL.String(),
		t.Currency, t.ExecutedAt.UnixMilli(),
	)
	return err
}

type latestRow struct {
	Provider  string          `db:"provider"`
	Class     string          `db:"class"`
	Symbol    string          `db:"symbol"`
	Currency  string          `db:"currency"`
	Price     float64         `db:"price"`
	ChangePct float64         `db:"change_pct"`
	Volume    sql.NullFloat64 `db:"volume"`
	MarketCap sql.NullFloat64 `db:"market_cap"`
	Sentiment string          `db:"sentiment"`
	FetchedMs int64           `db:"fetched_ms"`
}

// ErrNotFound is returned when no row matches.
var ErrNotFound = errors.New("marketpersist: not found")

// Latest returns the most recent quote recorded for class and symbol by any
// provider. It implements portfolio.LastKnownQuotes.
func (s *Store) Latest(ctx context.Context, class market.AssetClass, symbol string) (*market.Quote, error) {
	if s == nil {
		return nil, ErrNotFound
	}
	var row latestRow
	query := s.dialect.rebind(`SELECT provider, class, symbol, currency, price, change_pct, volume, market_cap, sentiment, fetched_ms
FROM quote_latest WHERE class = ? AND symbol = ? ORDER BY fetched_ms DESC LIMIT 1`)
	err := s.conn.QueryRowCtx(ctx, &row, query, string(class), symbol)
	if errors.Is(err, sqlx.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	q := &market.Quote{
		Symbol:           row.Symbol,
		Class:            market.AssetClass(row.Class),
		Currency:         row.Currency,
		Price:            row.Price,
		ChangePercent24h: row.ChangePct,
		Sentiment:        market.Sentiment(row.Sentiment),
		FetchedAt:        time.UnixMilli(row.FetchedMs).UTC(),
	}
	if row.Volume.Valid {
		q.Volume24h = market.Float(row.Volume.Float64)
	}
	if row.MarketCap.Valid {
		q.MarketCap = market.Float(row.MarketCap.Float64)
	}
	return q, nil
}

type tradeRow struct {
	ID         string `db:"id"`
	Account    string `db:"account"`
	Class      string `db:"class"`
	Symbol     string `db:"symbol"`
	Side       string `db:"side"`
	Quantity   string `db:"quantity"`
	Price      string `db:"price"`
	Amount     string `db:"amount"`
	Realized   string `db:"realized_pnl"`
	Currency   string `db:"currency"`
	ExecutedMs int64  `db:"executed_ms"`
}

const tradeColumns = `id, account, class, symbol, side, quantity, price, amount, realized_pnl, currency, executed_ms`

// AllTrades returns every journaled trade, oldest first, for replay at startup.
func (s *Store) AllTrades(ctx context.Context) ([]portfolio.Trade, error) {
	var rows []tradeRow
	query := `SELECT ` + tradeColumns + ` FROM paper_trades ORDER BY executed_ms, id`
	if err := s.conn.QueryRowsCtx(ctx, &rows, query); err != nil {
		return nil, err
	}
	return toTrades(rows)
}

func toTrades(rows []tradeRow) ([]portfolio.Trade, error) {
	out := make([]portfolio.Trade, 0, len(rows))
	for _, r := range rows {
		amounts := make([]decimal.Decimal, 4)
		for i, raw := range []string{r.Quantity, r.Price, r.Amount, r.Realized} {
			d, err := decimal.NewFromString(raw)
			if err != nil {
				return nil, fmt.Errorf("marketpersist: trade %s: %w", r.ID, err)
			}
			amounts[i] = d
		}
		out = append(out, portfolio.Trade{
			ID:          r.ID,
			Account:     r.Account,
			Class:       market.AssetClass(r.Class),
			Symbol:      r.Symbol,
			Side:        portfolio.Side(r.Side),
			Quantity:    amounts[0],
			Price:       amounts[1],
			Amount:      amounts[2],
			RealizedPnL: amounts[3],
			Currency:    r.Currency,
			ExecutedAt:  time.UnixMilli(r.ExecutedMs).UTC(),
		})
	}
	return out, nil
}

func (s *Store) cacheQuote(ctx context.Context, provider string, q *market.Quote) {
	if s.cache == nil {
		return
	}
	ttl := cachekeys.QuoteTTL(s.ttl)
	if ttl <= 0 {
		return
	}
	key := cachekeys.QuoteLatestKey(provider, string(q.Class), q.Symbol)
	payload := map[string]any{
		"price":      q.Price,
		"currency":   q.Currency,
		"change_pct": q.ChangePercent24h,
		"ts":         q.FetchedAt.UnixMilli(),
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, payload, ttl); err != nil {
		logx.WithContext(ctx).Errorf("marketpersist: cache quote key=%s err=%v", key, err)
	}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
