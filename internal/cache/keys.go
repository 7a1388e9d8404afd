package cache

import (
	"strings"
	"time"

	"tradequest-api/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "tq"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort  TTLClass = "short"
	TTLMedium TTLClass = "medium"
	TTLLong   TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short:  seconds(cfg.Short, 30*time.Second),
		Medium: seconds(cfg.Medium, time.Minute),
		Long:   seconds(cfg.Long, 10*time.Minute),
	}
}

func seconds(n int, fallback time.Duration) time.Duration {
	switch {
	case n < 0:
		return 0
	case n == 0:
		return fallback
	default:
		return time.Duration(n) * time.Second
	}
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLMedium:
		return t.Medium
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// OverviewTTL is how long an assembled overview stays in Redis.
func OverviewTTL(t TTLSet) time.Duration { return t.Short }

// QuoteTTL is how long the latest quote mirror stays in Redis.
func QuoteTTL(t TTLSet) time.Duration { return t.Medium }

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		if clean := strings.TrimSpace(part); clean != "" {
			values = append(values, clean)
		}
	}
	return strings.Join(values, ":")
}

// OverviewKey wraps a market overview key (class:SYMBOL:period[:demo]).
func OverviewKey(marketKey string) string {
	return formatKey("overview", marketKey)
}

// QuoteLatestKey stores the last recorded quote per provider and symbol.
func QuoteLatestKey(provider, class, symbol string) string {
	return formatKey("quote", "latest", provider, class, strings.ToUpper(symbol))
}

// WatchLockKey guards a watch run so overlapping schedules skip.
func WatchLockKey() string {
	return formatKey("lock", "watch")
}
