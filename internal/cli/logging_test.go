package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradequest-api/internal/config"
	"tradequest-api/pkg/confkit"
	marketpkg "tradequest-api/pkg/market"
)

func TestConfigSummaryLinesHidesSecrets(t *testing.T) {
	cfg := &config.Config{
		Env:      "dev",
		Database: config.DatabaseConf{Driver: "pgx", DSN: "postgres://u:secret@db/tq"},
		Market: confkit.Section[marketpkg.Config]{
			File: "/etc/market.yaml",
			Value: &marketpkg.Config{
				DefaultCurrency: "EUR",
				Providers: map[string]*marketpkg.ProviderConfig{
					"twelve": {Type: "twelvedata", APIKey: "td-secret"},
				},
				Routes: map[marketpkg.AssetClass]*marketpkg.Route{
					marketpkg.Stocks: {Quote: "twelve", History: "twelve", Assets: "twelve"},
				},
			},
		},
	}
	lines := ConfigSummaryLines(cfg)
	joined := strings.Join(lines, "\n")
	assert.NotContains(t, joined, "secret")
	assert.Contains(t, joined, "Database: pgx configured")
	assert.Contains(t, joined, "Market config: /etc/market.yaml")
	assert.Contains(t, joined, "Market provider twelve: type=twelvedata api_key=configured")
	assert.Contains(t, joined, "Market route stocks: quote=twelve")
}

func TestConfigSummaryLinesNil(t *testing.T) {
	require.Equal(t, []string{"Configuration: <nil>"}, ConfigSummaryLines(nil))
}
