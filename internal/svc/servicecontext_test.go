package svc

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradequest-api/internal/config"
	"tradequest-api/pkg/confkit"
	marketpkg "tradequest-api/pkg/market"
	"tradequest-api/pkg/portfolio"
)

const demoMarketYAML = `
default_currency: EUR
cache_ttl: 30s
routes:
  crypto:
    quote: sandbox
providers:
  sandbox:
    type: demo
    seed: 7
`

func testConfig(t *testing.T, dsn string) config.Config {
	t.Helper()
	marketCfg, err := marketpkg.LoadConfigFromReader(strings.NewReader(demoMarketYAML))
	require.NoError(t, err)
	c := config.Config{
		Env:       "test",
		Portfolio: config.PortfolioConf{InitialCash: 5000},
		Market:    confkit.Section[marketpkg.Config]{File: "market.yaml", Value: marketCfg},
	}
	if dsn != "" {
		c.Database = config.DatabaseConf{Driver: "sqlite", DSN: dsn, MaxOpen: 1, MaxIdle: 1, Migrate: true}
	}
	return c
}

func TestNewServiceContextWithoutStores(t *testing.T) {
	svc, err := NewServiceContext(testConfig(t, ""))
	require.NoError(t, err)
	require.Nil(t, svc.DBConn)
	require.Nil(t, svc.Store)
	require.Nil(t, svc.Redis)
	require.Len(t, svc.MarketProviders, 1)
	require.True(t, svc.Market.DemoAvailable())
	require.Equal(t, "EUR", svc.Market.Currency())

	acc := svc.Trader.Book().Account("alice")
	require.True(t, acc.Cash.Equal(decimal.NewFromInt(5000)))
}

func TestNewServiceContextRequiresMarket(t *testing.T) {
	_, err := NewServiceContext(config.Config{})
	require.Error(t, err)
}

func TestNewServiceContextReplaysJournal(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "tq.db")
	first, err := NewServiceContext(testConfig(t, dsn))
	require.NoError(t, err)
	require.NotNil(t, first.Store)

	trade, err := first.Trader.Book().Execute("alice", portfolio.Order{
		Symbol: "BTC", Class: marketpkg.Crypto, Side: portfolio.Buy, Quantity: decimal.NewFromInt(1),
	}, decimal.NewFromInt(1000))
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, first.Store.RecordTrade(ctx, trade))

	second, err := NewServiceContext(testConfig(t, dsn))
	require.NoError(t, err)
	acc := second.Trader.Book().Account("alice")
	require.True(t, acc.Cash.Equal(decimal.NewFromInt(4000)), acc.Cash.String())
	require.Len(t, acc.Positions, 1)
	require.Equal(t, trade.ID, acc.Trades[0].ID)
}
