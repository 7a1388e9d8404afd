package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradequest-api/pkg/market"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
}

func TestDemoHistoryIsDeterministicAndSynthetic(t *testing.T) {
	p1 := NewProvider("demo", WithClock(fixedClock), WithSeed(7))
	p2 := NewProvider("demo", WithClock(fixedClock), WithSeed(7))

	s1, err := p1.History(context.Background(), "btc", market.Period30D)
	require.NoError(t, err)
	s2, err := p2.History(context.Background(), "BTC", market.Period30D)
	require.NoError(t, err)

	require.True(t, s1.Synthetic)
	require.Equal(t, market.Crypto, s1.Class)
	require.Len(t, s1.Points, 31)
	require.Equal(t, s1.Points, s2.Points)
	for i := 1; i < len(s1.Points); i++ {
		assert.Greater(t, s1.Points[i].TimestampMs, s1.Points[i-1].TimestampMs)
		assert.Greater(t, s1.Points[i].Price, 0.0)
	}
}

func TestDemoSeedChangesPath(t *testing.T) {
	a, err := NewProvider("demo", WithClock(fixedClock), WithSeed(1)).History(context.Background(), "AAPL", market.Period7D)
	require.NoError(t, err)
	b, err := NewProvider("demo", WithClock(fixedClock), WithSeed(2)).History(context.Background(), "AAPL", market.Period7D)
	require.NoError(t, err)
	require.NotEqual(t, a.Prices(), b.Prices())
}

func TestDemoQuoteMatchesDayPath(t *testing.T) {
	p := NewProvider("demo", WithClock(fixedClock), WithCurrency("usd"))
	quote, err := p.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	day, err := p.History(context.Background(), "AAPL", market.Period1D)
	require.NoError(t, err)

	require.True(t, quote.Synthetic)
	require.Equal(t, market.Stocks, quote.Class)
	require.Equal(t, "USD", quote.Currency)
	require.Equal(t, day.Points[len(day.Points)-1].Price, quote.Price)
	require.InDelta(t, quote.Price-day.Points[0].Price, quote.Change24h, 1e-9)
	require.NotEmpty(t, quote.Sentiment)
}

func TestDemoForexPair(t *testing.T) {
	p := NewProvider("demo", WithClock(fixedClock))
	quote, err := p.Quote(context.Background(), "eurusd")
	require.NoError(t, err)
	require.Equal(t, "EUR/USD", quote.Symbol)
	require.Equal(t, market.Forex, quote.Class)
	require.Equal(t, "USD", quote.Currency)
	require.Nil(t, quote.Volume24h)
	require.InDelta(t, 1.09, quote.Price, 0.2)
}

func TestDemoRejectsMalformedPairs(t *testing.T) {
	p := NewProvider("demo", WithClock(fixedClock))
	for _, symbol := range []string{"A/B", "/", "", "  ", "EUR/XYZ", "EUR/USDT"} {
		t.Run(symbol, func(t *testing.T) {
			_, err := p.Quote(context.Background(), symbol)
			require.ErrorIs(t, err, market.ErrSymbolNotFound)
			_, err = p.History(context.Background(), symbol, market.Period7D)
			require.ErrorIs(t, err, market.ErrSymbolNotFound)
		})
	}

	quote, err := p.Quote(context.Background(), "gbp-usd")
	require.NoError(t, err)
	require.Equal(t, "GBP/USD", quote.Symbol)
}

func TestDemoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewProvider("demo").Quote(ctx, "BTC")
	require.ErrorIs(t, err, context.Canceled)
}

func TestDemoListAssets(t *testing.T) {
	p := NewProvider("demo", WithClock(fixedClock), WithWatchlist([]string{"ETH", "TSLA"}))
	assets, err := p.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, market.Crypto, assets[0].Class)
	require.Equal(t, market.Stocks, assets[1].Class)
	require.Equal(t, true, assets[0].RawMetadata["synthetic"])
}
