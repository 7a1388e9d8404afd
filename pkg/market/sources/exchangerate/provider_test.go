package exchangerate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

func newMockProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Provider) {
	t.Helper()
	server := httptest.NewServer(handler)
	provider := NewProvider("exchangerate",
		WithWatchlist([]string{"EURUSD", "gbp/jpy", "bogus"}),
		WithClientOptions(
			WithBaseURL(server.URL),
			WithFetchOptions(fetch.WithBackoff(time.Millisecond, time.Millisecond), fetch.WithMaxRetries(1)),
		),
	)
	return server, provider
}

func TestSplitPair(t *testing.T) {
	for _, in := range []string{"EURUSD", "eur/usd", "EUR-USD", " eur_usd "} {
		base, quote, err := SplitPair(in)
		require.NoError(t, err, in)
		require.Equal(t, "EUR", base)
		require.Equal(t, "USD", quote)
	}
	_, _, err := SplitPair("EURO")
	require.Error(t, err)
}

func TestProviderQuoteComparesWithPreviousDay(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/latest/EUR":
			_, _ = w.Write([]byte(`{"base":"EUR","date":"2024-03-15","rates":{"USD":1.0950,"GBP":0.8550}}`))
		case "/history/EUR/2024-03-14":
			_, _ = w.Write([]byte(`{"base":"EUR","date":"2024-03-14","rates":{"USD":1.0900,"GBP":0.8560}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
	defer server.Close()

	quote, err := provider.Quote(context.Background(), "eurusd")
	require.NoError(t, err)
	require.Equal(t, "EUR/USD", quote.Symbol)
	require.Equal(t, market.Forex, quote.Class)
	require.Equal(t, "USD", quote.Currency)
	require.InDelta(t, 1.095, quote.Price, 1e-9)
	require.InDelta(t, 0.005, quote.Change24h, 1e-9)
	require.InDelta(t, 0.458716, quote.ChangePercent24h, 1e-6)
	require.Equal(t, market.SentimentBullish, quote.Sentiment)
	require.Nil(t, quote.Volume24h)
}

func TestProviderQuoteFailsWhenHistoryFails(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/latest/EUR" {
			_, _ = w.Write([]byte(`{"base":"EUR","date":"2024-03-15","rates":{"USD":1.0950}}`))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer server.Close()

	_, err := provider.Quote(context.Background(), "EURUSD")
	require.ErrorIs(t, err, market.ErrProviderError)
}

func TestProviderQuoteUnknownCurrency(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","error-type":"unsupported-code"}`))
	})
	defer server.Close()

	_, err := provider.Quote(context.Background(), "XXXUSD")
	require.ErrorIs(t, err, market.ErrSymbolNotFound)

	_, err = provider.Quote(context.Background(), "nope")
	require.ErrorIs(t, err, market.ErrSymbolNotFound)
}

func TestProviderHistoryUnsupported(t *testing.T) {
	provider := NewProvider("exchangerate")
	_, err := provider.History(context.Background(), "EURUSD", market.Period30D)
	require.ErrorIs(t, err, market.ErrUnsupported)
}

func TestProviderRateCachesLatestTable(t *testing.T) {
	var calls int32
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		require.Equal(t, "/latest/USD", r.URL.Path)
		_, _ = w.Write([]byte(`{"base":"USD","date":"2024-03-15","rates":{"EUR":0.92}}`))
	})
	defer server.Close()

	rate, err := provider.Rate(context.Background(), "usd", "eur")
	require.NoError(t, err)
	require.InDelta(t, 0.92, rate, 1e-9)

	rate, err = provider.Rate(context.Background(), "USD", "EUR")
	require.NoError(t, err)
	require.InDelta(t, 0.92, rate, 1e-9)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))

	rate, err = provider.Rate(context.Background(), "EUR", "EUR")
	require.NoError(t, err)
	require.Equal(t, 1.0, rate)

	_, err = provider.Rate(context.Background(), "USD", "XYZ")
	require.ErrorIs(t, err, market.ErrSymbolNotFound)
}

func TestProviderListAssetsSkipsInvalidPairs(t *testing.T) {
	provider := NewProvider("exchangerate", WithWatchlist([]string{"EURUSD", "gbp/jpy", "bogus"}))
	assets, err := provider.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, "EUR/USD", assets[0].Symbol)
	require.Equal(t, "GBP/JPY", assets[1].Symbol)
}

func TestRatesResponseDayFallsBackToTimestamp(t *testing.T) {
	r := &RatesResponse{TimeLastUpdated: 1710460801}
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), r.Day())
}
