package twelvedata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/fetch"
)

func newMockProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Provider) {
	t.Helper()
	server := httptest.NewServer(handler)
	provider := NewProvider("twelvedata",
		WithWatchlist([]string{"AAPL", "EURUSD"}),
		WithClientOptions(
			WithBaseURL(server.URL),
			WithAPIKey("test-key"),
			WithFetchOptions(
				fetch.WithRequestsPerMinute(60000),
				fetch.WithBackoff(time.Millisecond, time.Millisecond),
				fetch.WithMaxRetries(1),
			),
		),
	)
	return server, provider
}

func TestProviderQuoteComputesChangeFromPreviousClose(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/quote", r.URL.Path)
		require.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		require.Equal(t, "test-key", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{"symbol":"AAPL","name":"Apple Inc","exchange":"NASDAQ","currency":"USD",
			"close":"50000","previous_close":"49000","volume":"1200","high":"50100","low":"48900",
			"fifty_two_week":{"low":"30000","high":"51000"}}`))
	})
	defer server.Close()

	quote, err := provider.Quote(context.Background(), "aapl")
	require.NoError(t, err)
	require.Equal(t, "AAPL", quote.Symbol)
	require.Equal(t, market.Stocks, quote.Class)
	require.Equal(t, "USD", quote.Currency)
	require.InDelta(t, 2.04, quote.ChangePercent24h, 0.01)
	require.InDelta(t, 1000.0, quote.Change24h, 1e-9)
	require.NotNil(t, quote.Volume24h)
	require.NotNil(t, quote.High52w)
	require.InDelta(t, 51000.0, *quote.High52w, 1e-9)
	require.Nil(t, quote.MarketCap)
	require.Equal(t, market.SentimentBullish, quote.Sentiment)
}

func TestProviderQuoteForex(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "EUR/USD", r.URL.Query().Get("symbol"))
		_, _ = w.Write([]byte(`{"symbol":"EUR/USD","name":"Euro / US Dollar","close":"1.0850","previous_close":"1.0840","percent_change":"0.0922","change":"0.0010"}`))
	})
	defer server.Close()

	quote, err := provider.Quote(context.Background(), "EURUSD")
	require.NoError(t, err)
	require.Equal(t, market.Forex, quote.Class)
	require.Equal(t, "EUR/USD", quote.Symbol)
	require.Equal(t, "USD", quote.Currency)
	require.InDelta(t, 0.0922, quote.ChangePercent24h, 1e-9)
	require.Equal(t, market.SentimentBullish, quote.Sentiment)
	require.InDelta(t, 51.844, quote.ConfidenceScore, 1e-9)
}

func TestProviderQuoteErrorStatus(t *testing.T) {
	cases := []struct {
		body string
		want error
	}{
		{`{"code":404,"message":"symbol not found","status":"error"}`, market.ErrSymbolNotFound},
		{`{"code":400,"message":"**symbol** or **figi** parameter is missing or invalid","status":"error"}`, market.ErrSymbolNotFound},
		{`{"code":429,"message":"You have run out of API credits for the current minute","status":"error"}`, market.ErrRateLimited},
		{`{"code":401,"message":"apikey is incorrect","status":"error"}`, market.ErrProviderError},
	}
	for _, tc := range cases {
		server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(tc.body))
		})
		_, err := provider.Quote(context.Background(), "ZZZZ")
		require.ErrorIs(t, err, tc.want, tc.body)
		server.Close()
	}
}

func TestProviderQuoteMissingClose(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"AAPL","previous_close":"100"}`))
	})
	defer server.Close()

	_, err := provider.Quote(context.Background(), "AAPL")
	require.ErrorIs(t, err, market.ErrMalformedResponse)
}

func TestProviderHistoryReversesValues(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/time_series", r.URL.Path)
		require.Equal(t, "1day", r.URL.Query().Get("interval"))
		require.Equal(t, "30", r.URL.Query().Get("outputsize"))
		_, _ = w.Write([]byte(`{"meta":{"symbol":"AAPL","interval":"1day","currency":"USD","exchange_timezone":"America/New_York"},
			"values":[
				{"datetime":"2024-01-05","close":"181.18","volume":"62303300"},
				{"datetime":"2024-01-04","close":"181.91","volume":"71983600"},
				{"datetime":"2024-01-03","close":"184.25","volume":"58414500"}
			],"status":"ok"}`))
	})
	defer server.Close()

	series, err := provider.History(context.Background(), "AAPL", market.Period30D)
	require.NoError(t, err)
	require.Equal(t, "USD", series.Currency)
	require.Len(t, series.Points, 3)
	require.InDelta(t, 184.25, series.Points[0].Price, 1e-9)
	require.InDelta(t, 181.18, series.Points[2].Price, 1e-9)
	require.Less(t, series.Points[0].TimestampMs, series.Points[1].TimestampMs)
	require.Less(t, series.Points[1].TimestampMs, series.Points[2].TimestampMs)

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	require.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, ny).UnixMilli(), series.Points[0].TimestampMs)
}

func TestProviderHistoryIntradayForex(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "1h", r.URL.Query().Get("interval"))
		require.Equal(t, "24", r.URL.Query().Get("outputsize"))
		_, _ = w.Write([]byte(`{"meta":{"symbol":"EUR/USD","currency_base":"Euro","currency_quote":"US Dollar"},
			"values":[{"datetime":"2024-01-05 15:00:00","close":"1.0942"},{"datetime":"2024-01-05 14:00:00","close":"1.0938"}],"status":"ok"}`))
	})
	defer server.Close()

	series, err := provider.History(context.Background(), "EURUSD", market.Period1D)
	require.NoError(t, err)
	require.Equal(t, market.Forex, series.Class)
	require.Equal(t, "USD", series.Currency)
	require.Len(t, series.Points, 2)
	require.InDelta(t, 1.0938, series.Points[0].Price, 1e-9)
}

func TestProviderHistoryServerErrorIsTyped(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	series, err := provider.History(context.Background(), "AAPL", market.Period7D)
	require.Nil(t, series)
	require.ErrorIs(t, err, market.ErrProviderError)
}

func TestProviderListAssets(t *testing.T) {
	server, provider := newMockProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("ListAssets must not hit the network")
	})
	defer server.Close()

	assets, err := provider.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	require.Equal(t, market.Stocks, assets[0].Class)
	require.Equal(t, "EUR/USD", assets[1].Symbol)
	require.Equal(t, market.Forex, assets[1].Class)
}

func TestBuilderWithoutAPIKeyRefusesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("requests without a key must not reach the API")
	}))
	defer server.Close()

	t.Setenv("TD_KEY_FOR_TEST", "")
	t.Setenv("TD_URL_FOR_TEST", server.URL)
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
providers:
  td:
    type: twelvedata
    base_url: ${TD_URL_FOR_TEST}
    api_key: ${TD_KEY_FOR_TEST}
`))
	require.NoError(t, err)
	providers, err := cfg.BuildProviders()
	require.NoError(t, err)

	_, err = providers["td"].Quote(context.Background(), "AAPL")
	require.ErrorIs(t, err, market.ErrUnsupported)
	_, err = providers["td"].History(context.Background(), "EURUSD", market.Period7D)
	require.ErrorIs(t, err, market.ErrUnsupported)
}

func TestProviderDisplayUsesSymbolMap(t *testing.T) {
	provider := NewProvider("twelvedata", WithSymbolMap(map[string]string{"BRKB": "BRK.B"}))
	require.Equal(t, "BRK.B", provider.Ticker("brkb"))
	require.Equal(t, "BRKB", provider.Display("BRK.B"))
	require.Equal(t, "EUR/USD", provider.Display(provider.Ticker("EURUSD")))
	require.Equal(t, "MSFT", provider.Display("MSFT"))
}
