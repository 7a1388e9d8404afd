package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeTrendingSeries(t *testing.T) {
	res, err := Compute(trendingCloses, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, res.RSI)
	require.InDelta(t, 70.0, *res.RSI, 1e-9)
	require.Equal(t, 160.0, res.Current)
	require.Equal(t, Bullish, res.Trend)
	require.Equal(t, len(trendingCloses), res.Samples)
	require.Equal(t, []string{
		"Price above short and long moving averages: bullish trend",
		"Short moving average above long moving average",
	}, res.Signals)
}

func TestComputeShortExampleSeries(t *testing.T) {
	prices := []float64{100, 102, 101, 105, 107, 104, 108, 110, 109, 112, 115, 113, 117, 120}

	res, err := Compute(prices, DefaultConfig())
	require.NoError(t, err)
	require.Nil(t, res.RSI, "14 points cannot satisfy period 14")
	// Both averages fall back to the latest price.
	require.Equal(t, 120.0, res.SMAShort)
	require.Equal(t, 120.0, res.SMALong)
	require.Equal(t, Neutral, res.Trend)
	require.Equal(t, 100.0, res.Support)
	require.Equal(t, 120.0, res.Resistance)
	require.Equal(t, []string{"Not enough history for RSI", "Price testing resistance"}, res.Signals)

	cfg := DefaultConfig()
	cfg.RSIPeriod = 13
	res, err = Compute(prices, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.RSI)
	require.InDelta(t, 79.411765, *res.RSI, 1e-6)
	require.GreaterOrEqual(t, *res.RSI, 0.0)
	require.LessOrEqual(t, *res.RSI, 100.0)

	cfg.SMAShort, cfg.SMALong = 5, 10
	res, err = Compute(prices, cfg)
	require.NoError(t, err)
	require.InDelta(t, 115.4, res.SMAShort, 1e-9)
	require.InDelta(t, 111.5, res.SMALong, 1e-9)
	require.Equal(t, Bullish, res.Trend)
	require.Equal(t, []string{
		"RSI above 70: overbought",
		"Price above short and long moving averages: bullish trend",
		"Short moving average above long moving average",
		"Price testing resistance",
	}, res.Signals)
}

func TestComputeEmitsConflictingSignals(t *testing.T) {
	// Falling series: oversold, bearish, and sitting on support all at once.
	prices := make([]float64, 60)
	for i := range prices {
		prices[i] = 200 - float64(i)
	}
	res, err := Compute(prices, DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, res.RSI)
	require.Equal(t, 0.0, *res.RSI)
	require.Equal(t, Bearish, res.Trend)
	require.Equal(t, []string{
		"RSI below 30: oversold",
		"Price below short and long moving averages: bearish trend",
		"Short moving average below long moving average",
		"Price testing support",
	}, res.Signals)
}

func TestComputeEmptySeries(t *testing.T) {
	_, err := Compute(nil, DefaultConfig())
	require.ErrorIs(t, err, ErrInsufficientData)

	_, err = Compute([]float64{math.NaN(), math.NaN()}, DefaultConfig())
	require.ErrorIs(t, err, ErrInsufficientData)
}

func TestComputeSkipsNaN(t *testing.T) {
	res, err := Compute([]float64{10, math.NaN(), 12}, DefaultConfig())
	require.NoError(t, err)
	require.Equal(t, 2, res.Samples)
	require.Equal(t, 12.0, res.Current)
	require.Equal(t, 10.0, res.Support)
}

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := Config{SMAShort: 10}.WithDefaults()
	require.Equal(t, 14, cfg.RSIPeriod)
	require.Equal(t, 10, cfg.SMAShort)
	require.Equal(t, 50, cfg.SMALong)
	require.NoError(t, cfg.Validate())

	require.Equal(t, 70.0, cfg.OverboughtLevel())
	require.Equal(t, 30.0, cfg.OversoldLevel())

	cfg.Oversold, cfg.Overbought = Level(80), Level(20)
	require.Error(t, cfg.Validate())
}

func TestZeroAndFullThresholdsAreKept(t *testing.T) {
	falling := make([]float64, 20)
	rising := make([]float64, 20)
	for i := range falling {
		falling[i] = 100 - float64(i)
		rising[i] = 100 + float64(i)
	}

	res, err := Compute(falling, Config{})
	require.NoError(t, err)
	require.Equal(t, 0.0, *res.RSI)
	require.Contains(t, res.Signals, "RSI below 30: oversold")

	extremes := Config{Oversold: Level(0), Overbought: Level(100)}
	require.NoError(t, extremes.WithDefaults().Validate())
	require.Equal(t, 0.0, extremes.WithDefaults().OversoldLevel())

	res, err = Compute(falling, extremes)
	require.NoError(t, err)
	require.NotContains(t, res.Signals, "RSI below 0: oversold")
	require.NotContains(t, res.Signals, "RSI below 30: oversold")

	res, err = Compute(rising, extremes)
	require.NoError(t, err)
	require.Equal(t, 100.0, *res.RSI)
	require.NotContains(t, res.Signals, "RSI above 100: overbought")
}
