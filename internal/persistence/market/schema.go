package marketpersist

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeromicro/go-zero/core/stores/sqlx"
)

// Dialect selects placeholder style and driver name.
type Dialect string

const (
	Postgres Dialect = "pgx"
	SQLite   Dialect = "sqlite"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS quote_latest (
    provider    TEXT NOT NULL,
    class       TEXT NOT NULL,
    symbol      TEXT NOT NULL,
    currency    TEXT NOT NULL,
    price       DOUBLE PRECISION NOT NULL,
    change_pct  DOUBLE PRECISION NOT NULL,
    volume      DOUBLE PRECISION,
    market_cap  DOUBLE PRECISION,
    sentiment   TEXT NOT NULL,
    fetched_ms  BIGINT NOT NULL,
    PRIMARY KEY (provider, class, symbol)
)`,
	`CREATE TABLE IF NOT EXISTS price_points (
    provider TEXT NOT NULL,
    symbol   TEXT NOT NULL,
    ts_ms    BIGINT NOT NULL,
    price    DOUBLE PRECISION NOT NULL,
    volume   DOUBLE PRECISION,
    PRIMARY KEY (provider, symbol, ts_ms)
)`,
	`CREATE TABLE IF NOT EXISTS paper_trades (
    id           TEXT PRIMARY KEY,
    account      TEXT NOT NULL,
    class        TEXT NOT NULL,
    symbol       TEXT NOT NULL,
    side         TEXT NOT NULL,
    quantity     TEXT NOT NULL,
    price        TEXT NOT NULL,
    amount       TEXT NOT NULL,
    realized_pnl TEXT NOT NULL,
    currency     TEXT NOT NULL,
    executed_ms  BIGINT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS paper_trades_account_idx ON paper_trades (account, executed_ms)`,
}

// Migrate creates the tables used by Store.
func Migrate(ctx context.Context, conn sqlx.SqlConn) error {
	for _, stmt := range schema {
		if _, err := conn.ExecCtx(ctx, stmt); err != nil {
			return fmt.Errorf("marketpersist: migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
