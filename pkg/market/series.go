package market

import (
	"math"
	"sort"
	"strings"
)

// NormalizePoints sorts points ascending by time, drops non-positive or NaN
// prices and keeps the last sample for duplicated timestamps.
func NormalizePoints(points []PricePoint) []PricePoint {
	clean := make([]PricePoint, 0, len(points))
	for _, p := range points {
		if p.TimestampMs <= 0 || p.Price <= 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
			continue
		}
		clean = append(clean, p)
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].TimestampMs < clean[j].TimestampMs })

	out := clean[:0]
	for _, p := range clean {
		if n := len(out); n > 0 && out[n-1].TimestampMs == p.TimestampMs {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

// SymbolMap maps display tickers to provider identifiers. Keys are upper case.
type SymbolMap map[string]string

// NewSymbolMap merges overrides over builtin, normalising keys.
func NewSymbolMap(builtin, overrides map[string]string) SymbolMap {
	m := make(SymbolMap, len(builtin)+len(overrides))
	for k, v := range builtin {
		m[symbolKey(k)] = v
	}
	for k, v := range overrides {
		if strings.TrimSpace(v) == "" {
			continue
		}
		m[symbolKey(k)] = strings.TrimSpace(v)
	}
	return m
}

// Resolve returns the provider identifier for symbol, or ok=false when unmapped.
func (m SymbolMap) Resolve(symbol string) (string, bool) {
	id, ok := m[symbolKey(symbol)]
	return id, ok
}

// Reverse returns the display ticker registered for a provider identifier.
func (m SymbolMap) Reverse(id string) (string, bool) {
	best := ""
	for k, v := range m {
		if strings.EqualFold(v, id) && (best == "" || k < best) {
			best = k
		}
	}
	return best, best != ""
}

func symbolKey(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
