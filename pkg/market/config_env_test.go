package market_test

import (
	"strings"
	"testing"

	market "tradequest-api/pkg/market"
	_ "tradequest-api/pkg/market/sources/twelvedata"
)

// Ensures env placeholders are expanded and durations parsed.
func TestMarketConfig_EnvExpansionAndDurations(t *testing.T) {
	t.Setenv("TD_BASE", "https://api.twelvedata.test")
	t.Setenv("TWELVE_DATA_API_KEY", "from-env")
	t.Setenv("TOUT", "9s")
	t.Setenv("HTTP_TOUT", "13s")

	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
default: td
providers:
  td:
    type: twelvedata
    base_url: ${TD_BASE}
    api_key: ${TWELVE_DATA_API_KEY}
    currency: usd
    timeout: ${TOUT}
    http_timeout: ${HTTP_TOUT}
`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	p := cfg.Providers["td"]
	if p == nil {
		t.Fatalf("provider td missing")
	}
	if p.BaseURL != "https://api.twelvedata.test" || p.APIKey != "from-env" {
		t.Fatalf("env not expanded, base=%q key=%q", p.BaseURL, p.APIKey)
	}
	if p.Currency != "USD" {
		t.Fatalf("currency not normalised: %q", p.Currency)
	}
	if p.Timeout.String() != "9s" || p.HTTPTimeout.String() != "13s" {
		t.Fatalf("durations not parsed, timeout=%s http_timeout=%s", p.Timeout, p.HTTPTimeout)
	}
}
