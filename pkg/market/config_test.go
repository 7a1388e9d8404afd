package market_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	market "tradequest-api/pkg/market"
	_ "tradequest-api/pkg/market/sources/coingecko"
	_ "tradequest-api/pkg/market/sources/demo"
	_ "tradequest-api/pkg/market/sources/exchangerate"
	_ "tradequest-api/pkg/market/sources/twelvedata"
	_ "tradequest-api/pkg/market/sources/yahoo"
)

const routedConfig = `
default_currency: eur
cache_ttl: 30s
rates: fx
routes:
  crypto:
    quote: coingecko
  stocks:
    quote: yahoo
    history: yahoo
    assets: yahoo
  forex:
    quote: fx
    history: twelve
providers:
  coingecko:
    type: coingecko
    timeout: 6s
    http_timeout: 12s
    max_retries: 4
    requests_per_minute: 30
    symbol_map:
      pepe: pepe
  yahoo:
    type: yahoo
    watchlist: [AAPL, MSFT]
  fx:
    type: exchangerate
    watchlist: [EURUSD]
  twelve:
    type: twelvedata
    api_key: secret
  sandbox:
    type: demo
    seed: 42
indicators:
  sma_short: 10
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "market.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMarketConfig(t *testing.T) {
	cfg, err := market.LoadConfig(writeConfig(t, routedConfig))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.DefaultCurrency != "EUR" {
		t.Fatalf("unexpected currency: %s", cfg.DefaultCurrency)
	}
	if cfg.CacheTTL.String() != "30s" {
		t.Fatalf("cache ttl not parsed: %s", cfg.CacheTTL)
	}
	crypto := cfg.Routes[market.Crypto]
	if crypto.History != "coingecko" || crypto.Assets != "coingecko" {
		t.Fatalf("crypto route not defaulted to quote provider: %+v", crypto)
	}
	if cfg.Indicators.SMAShort != 10 || cfg.Indicators.SMALong != 50 || cfg.Indicators.RSIPeriod != 14 {
		t.Fatalf("indicator defaults not applied: %+v", cfg.Indicators)
	}
	if got := cfg.DemoProviderName(); got != "sandbox" {
		t.Fatalf("demo provider = %q", got)
	}

	providers, err := cfg.BuildProviders()
	if err != nil {
		t.Fatalf("BuildProviders error: %v", err)
	}
	if len(providers) != 5 {
		t.Fatalf("expected 5 providers, got %d", len(providers))
	}
	if _, ok := providers["fx"].(market.RateSource); !ok {
		t.Fatalf("fx provider cannot serve rates")
	}

	svc, err := market.NewService(cfg, providers)
	if err != nil {
		t.Fatalf("NewService error: %v", err)
	}
	router, err := market.NewRouter(cfg, providers)
	if err != nil {
		t.Fatalf("NewRouter error: %v", err)
	}
	if name, _, err := router.History(market.Forex); err != nil || name != "twelve" {
		t.Fatalf("forex history routed to %q (%v)", name, err)
	}
	if !svc.DemoAvailable() {
		t.Fatalf("demo provider not wired")
	}
}

func TestMarketConfigInvalidType(t *testing.T) {
	_, err := market.LoadConfig(writeConfig(t, `
providers:
  demo:
    type: foobar
`))
	if err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported type error, got %v", err)
	}
	if !strings.Contains(err.Error(), "coingecko, demo, exchangerate, twelvedata, yahoo") {
		t.Fatalf("expected registered types in error, got %v", err)
	}
}

func TestMarketConfigRejectsBrokenReferences(t *testing.T) {
	cases := map[string]string{
		"route": `
routes:
  crypto:
    quote: missing
providers:
  cg:
    type: coingecko
`,
		"rates": `
rates: nowhere
providers:
  cg:
    type: coingecko
`,
		"class": `
routes:
  bonds:
    quote: cg
providers:
  cg:
    type: coingecko
`,
		"retries": `
providers:
  cg:
    type: coingecko
    max_retries: -1
`,
		"thresholds": `
indicators:
  overbought: 20
  oversold: 40
providers:
  cg:
    type: coingecko
`,
		"duration": `
providers:
  cg:
    type: coingecko
    timeout: -3s
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := market.LoadConfigFromReader(strings.NewReader(body)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestTwelveDataRequiresKey(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
providers:
  twelve:
    type: twelvedata
`))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if _, err := cfg.BuildProviders(); err == nil {
		t.Fatalf("expected missing api_key error")
	}
}

func TestMarketConfigKeepsZeroOversold(t *testing.T) {
	cfg, err := market.LoadConfigFromReader(strings.NewReader(`
indicators:
  oversold: 0
providers:
  cg:
    type: coingecko
`))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if got := cfg.Indicators.OversoldLevel(); got != 0 {
		t.Fatalf("oversold = %g, want 0", got)
	}
	if got := cfg.Indicators.OverboughtLevel(); got != 70 {
		t.Fatalf("overbought = %g, want default 70", got)
	}
}
