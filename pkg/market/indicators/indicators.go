package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
)

// RSI returns the relative strength index of prices over the last period deltas.
// Gains and losses are averaged over a single trailing window without smoothing.
// It reports false when fewer than period+1 prices are available.
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || len(prices) < period+1 {
		return 0, false
	}
	deltas := len(prices) - 1
	var gain, loss float64
	for i := deltas - period + 1; i <= deltas; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// SMA returns the arithmetic mean of the last window prices.
// With fewer samples than window it falls back to the most recent price.
func SMA(prices []float64, window int) (float64, bool) {
	if len(prices) == 0 {
		return 0, false
	}
	if window <= 0 || len(prices) < window {
		return prices[len(prices)-1], true
	}
	if window == 1 {
		return prices[len(prices)-1], true
	}
	tail := prices[len(prices)-window:]
	out := talib.Sma(tail, window)
	return out[len(out)-1], true
}

// Range returns the min and max over the trailing window (or the full series if shorter).
func Range(prices []float64, window int) (support, resistance float64, ok bool) {
	if len(prices) == 0 {
		return 0, 0, false
	}
	tail := prices
	if window > 0 && len(prices) > window {
		tail = prices[len(prices)-window:]
	}
	if len(tail) < 2 {
		return tail[0], tail[0], true
	}
	lows := talib.Min(tail, len(tail))
	highs := talib.Max(tail, len(tail))
	return lows[len(lows)-1], highs[len(highs)-1], true
}

// Trend labels the relationship between price and the two moving averages.
type Trend string

const (
	Bullish Trend = "bullish"
	Bearish Trend = "bearish"
	Neutral Trend = "neutral"
)

// Classify returns Bullish when current > short > long, Bearish for the reverse.
func Classify(current, short, long float64) Trend {
	switch {
	case current > short && short > long:
		return Bullish
	case current < short && short < long:
		return Bearish
	default:
		return Neutral
	}
}

func finite(prices []float64) []float64 {
	out := prices[:0:0]
	for _, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			continue
		}
		out = append(out, p)
	}
	return out
}
