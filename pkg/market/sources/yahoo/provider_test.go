package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"currency":"USD","symbol":"AAPL","longName":"Apple Inc.","regularMarketPrice":189.5,"previousClose":187.0,
          "chartPreviousClose":185.0,"regularMarketVolume":51234000,"fiftyTwoWeekHigh":199.62,"fiftyTwoWeekLow":164.08},
  "timestamp":[1704465000,1704378600,1704292200,1704205800],
  "indicators":{"quote":[{"close":[181.18,181.91,null,185.64],"volume":[62303300,71983600,null,82488700]}]}
}],"error":null}}`

func newMockProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Provider) {
	t.Helper()
	server := httptest.NewServer(handler)
	provider := NewProvider("yahoo",
		WithWatchlist([]string{"aapl", "sp500"}),
		WithClientOptions(
			WithBaseURL(server.URL),
			WithFetchOptions(fetch.WithBackoff(time.Millisecond, time.Millisecond), fetch.WithMaxRetries(1)),
		),
	)
	return server, provider
}

func TestProviderQuote(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chart/AAPL", r.URL.Path)
		require.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		require.Equal(t, "1d", r.URL.Query().Get("interval"))
		require.Equal(t, "1d", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(chartBody))
	})
	defer server.Close()

	quote, err := provider.Quote(context.Background(), "aapl")
	require.NoError(t, err)
	require.Equal(t, "AAPL", quote.Symbol)
	require.Equal(t, "Apple Inc.", quote.Name)
	require.Equal(t, "USD", quote.Currency)
	require.InDelta(t, 189.5, quote.Price, 1e-9)
	require.InDelta(t, 2.5, quote.Change24h, 1e-9)
	require.InDelta(t, 1.336898, quote.ChangePercent24h, 1e-6)
	require.NotNil(t, quote.Volume24h)
	require.NotNil(t, quote.High52w)
	require.Nil(t, quote.High24h)
	require.Nil(t, quote.MarketCap)
}

func TestProviderQuoteFallsBackToChartPreviousClose(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"currency":"USD","regularMarketPrice":110,"chartPreviousClose":100}}]}}`))
	})
	defer server.Close()

	quote, err := provider.Quote(context.Background(), "MSFT")
	require.NoError(t, err)
	require.InDelta(t, 10.0, quote.ChangePercent24h, 1e-9)
}

func TestProviderQuoteChartError(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	})
	defer server.Close()

	_, err := provider.Quote(context.Background(), "ZZZZ")
	require.ErrorIs(t, err, market.ErrSymbolNotFound)
}

func TestProviderHistorySkipsNullBars(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1d", r.URL.Query().Get("interval"))
		require.Equal(t, "3mo", r.URL.Query().Get("range"))
		_, _ = w.Write([]byte(chartBody))
	})
	defer server.Close()

	series, err := provider.History(context.Background(), "AAPL", market.Period90D)
	require.NoError(t, err)
	require.Len(t, series.Points, 3)
	require.Equal(t, int64(1704205800000), series.Points[0].TimestampMs)
	require.InDelta(t, 185.64, series.Points[0].Price, 1e-9)
	require.InDelta(t, 181.18, series.Points[2].Price, 1e-9)
	require.Equal(t, "USD", series.Currency)
}

func TestProviderHistoryNetworkFailureIsTyped(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	server.Close()

	_, err := provider.History(context.Background(), "AAPL", market.Period1D)
	require.ErrorIs(t, err, market.ErrNetworkUnavailable)
}

func TestProviderListAssetsMapsIndexes(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {})
	defer server.Close()

	assets, err := provider.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, "AAPL", assets[0].ID)
	require.Equal(t, "^GSPC", assets[1].ID)
	require.Equal(t, "SP500", assets[1].Symbol)
}

func TestProviderAliasesReportOneSymbol(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chart/^GSPC", r.URL.Path)
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"currency":"USD","regularMarketPrice":5100,"previousClose":5000}}]}}`))
	})
	defer server.Close()

	for _, alias := range []string{"spx", "SPX500", "sp500"} {
		quote, err := provider.Quote(context.Background(), alias)
		require.NoError(t, err)
		require.Equal(t, "SP500", quote.Symbol)
		require.Equal(t, "^GSPC", quote.ID)
	}
}
