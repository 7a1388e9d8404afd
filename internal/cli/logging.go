package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/config"
	"tradequest-api/pkg/confkit"
	marketpkg "tradequest-api/pkg/market"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
// Secrets are never printed, only whether they are present.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Listen: %s:%d", cfg.Host, cfg.Port),
		fmt.Sprintf("Database: %s", databaseLine(cfg.Database)),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("TTL (short/medium/long): %ds / %ds / %ds", cfg.TTL.Short, cfg.TTL.Medium, cfg.TTL.Long),
		fmt.Sprintf("Watch: cron=%q period=%s targets=%d kafka=%s",
			cfg.Watch.Cron, cfg.Watch.Period, len(cfg.Watch.Targets), presence(len(cfg.Watch.Kafka.Brokers) > 0)),
		fmt.Sprintf("Portfolio initial cash: %.2f", cfg.Portfolio.InitialCash),
		sectionLine("Market config", cfg.Market),
	}
	if m := cfg.Market.Value; m != nil {
		lines = append(lines, marketLines(m)...)
	}
	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func marketLines(m *marketpkg.Config) []string {
	lines := []string{
		fmt.Sprintf("Market currency: %s, cache_ttl=%s, demo=%t", m.DefaultCurrency, m.CacheTTL, m.Demo),
	}
	names := make([]string, 0, len(m.Providers))
	for name := range m.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		p := m.Providers[name]
		lines = append(lines, fmt.Sprintf("Market provider %s: type=%s api_key=%s", name, p.Type, presence(p.APIKey != "")))
	}
	for _, class := range marketpkg.AssetClasses {
		if r, ok := m.Routes[class]; ok {
			lines = append(lines, fmt.Sprintf("Market route %s: quote=%s history=%s assets=%s", class, r.Quote, r.History, r.Assets))
		}
	}
	return lines
}

func databaseLine(db config.DatabaseConf) string {
	if strings.TrimSpace(db.DSN) == "" {
		return "not configured"
	}
	return fmt.Sprintf("%s configured", db.Driver)
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: inline", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
