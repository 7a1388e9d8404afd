package indicators

import "fmt"

type signalRule struct {
	match   func(r *Result, cfg Config) bool
	message func(r *Result, cfg Config) string
}

func fixed(msg string) func(*Result, Config) string {
	return func(*Result, Config) string { return msg }
}

// Rules run in order. Every matching rule emits its message, conflicts included.
var signalRules = []signalRule{
	{
		match: func(r *Result, cfg Config) bool { return r.RSI != nil && *r.RSI > cfg.OverboughtLevel() },
		message: func(_ *Result, cfg Config) string {
			return fmt.Sprintf("RSI above %g: overbought", cfg.OverboughtLevel())
		},
	},
	{
		match: func(r *Result, cfg Config) bool { return r.RSI != nil && *r.RSI < cfg.OversoldLevel() },
		message: func(_ *Result, cfg Config) string {
			return fmt.Sprintf("RSI below %g: oversold", cfg.OversoldLevel())
		},
	},
	{
		match:   func(r *Result, _ Config) bool { return r.RSI == nil },
		message: fixed("Not enough history for RSI"),
	},
	{
		match:   func(r *Result, _ Config) bool { return r.Trend == Bullish },
		message: fixed("Price above short and long moving averages: bullish trend"),
	},
	{
		match:   func(r *Result, _ Config) bool { return r.Trend == Bearish },
		message: fixed("Price below short and long moving averages: bearish trend"),
	},
	{
		match:   func(r *Result, _ Config) bool { return r.SMAShort > r.SMALong },
		message: fixed("Short moving average above long moving average"),
	},
	{
		match:   func(r *Result, _ Config) bool { return r.SMAShort < r.SMALong },
		message: fixed("Short moving average below long moving average"),
	},
	{
		match:   func(r *Result, _ Config) bool { return r.Resistance > r.Support && r.Current >= r.Resistance },
		message: fixed("Price testing resistance"),
	},
	{
		match:   func(r *Result, _ Config) bool { return r.Resistance > r.Support && r.Current <= r.Support },
		message: fixed("Price testing support"),
	},
}

// Signals evaluates the rule list against r.
func Signals(r *Result, cfg Config) []string {
	out := []string{}
	if r == nil {
		return out
	}
	for _, rule := range signalRules {
		if rule.match(r, cfg) {
			out = append(out, rule.message(r, cfg))
		}
	}
	return out
}
