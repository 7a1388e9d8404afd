package indicators

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when a series carries no usable price.
var ErrInsufficientData = errors.New("indicators: insufficient data")

// Config holds indicator windows and thresholds. Nil thresholds take the
// defaults, so an explicit 0 is honoured.
type Config struct {
	RSIPeriod   int      `yaml:"rsi_period" json:"rsiPeriod"`
	SMAShort    int      `yaml:"sma_short" json:"smaShort"`
	SMALong     int      `yaml:"sma_long" json:"smaLong"`
	RangeWindow int      `yaml:"range_window" json:"rangeWindow"`
	Overbought  *float64 `yaml:"overbought" json:"overbought,omitempty"`
	Oversold    *float64 `yaml:"oversold" json:"oversold,omitempty"`
}

const (
	defaultOverbought = 70
	defaultOversold   = 30
)

// Level returns a pointer to v for use as a threshold.
func Level(v float64) *float64 { return &v }

// DefaultConfig returns RSI 14, SMA 20/50, a 20 sample range and 70/30 thresholds.
func DefaultConfig() Config {
	return Config{
		RSIPeriod:   14,
		SMAShort:    20,
		SMALong:     50,
		RangeWindow: 20,
		Overbought:  Level(defaultOverbought),
		Oversold:    Level(defaultOversold),
	}
}

// WithDefaults fills zero windows and unset thresholds from DefaultConfig.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.RSIPeriod == 0 {
		c.RSIPeriod = def.RSIPeriod
	}
	if c.SMAShort == 0 {
		c.SMAShort = def.SMAShort
	}
	if c.SMALong == 0 {
		c.SMALong = def.SMALong
	}
	if c.RangeWindow == 0 {
		c.RangeWindow = def.RangeWindow
	}
	if c.Overbought == nil {
		c.Overbought = def.Overbought
	}
	if c.Oversold == nil {
		c.Oversold = def.Oversold
	}
	return c
}

// OverboughtLevel is the RSI above which a series reads overbought.
func (c Config) OverboughtLevel() float64 {
	if c.Overbought == nil {
		return defaultOverbought
	}
	return *c.Overbought
}

// OversoldLevel is the RSI below which a series reads oversold.
func (c Config) OversoldLevel() float64 {
	if c.Oversold == nil {
		return defaultOversold
	}
	return *c.Oversold
}

// Validate rejects negative windows and inverted thresholds.
func (c Config) Validate() error {
	if c.RSIPeriod < 0 || c.SMAShort < 0 || c.SMALong < 0 || c.RangeWindow < 0 {
		return fmt.Errorf("indicators: windows cannot be negative")
	}
	low, high := c.OversoldLevel(), c.OverboughtLevel()
	if low < 0 || high > 100 || low >= high {
		return fmt.Errorf("indicators: thresholds must satisfy 0 <= oversold < overbought <= 100")
	}
	return nil
}

// Result is the derived view of one price series.
type Result struct {
	RSI        *float64 `json:"rsi"`
	SMAShort   float64  `json:"smaShort"`
	SMALong    float64  `json:"smaLong"`
	Support    float64  `json:"support"`
	Resistance float64  `json:"resistance"`
	Current    float64  `json:"current"`
	Trend      Trend    `json:"trend"`
	Signals    []string `json:"signals"`
	Samples    int      `json:"samples"`
}

// Compute derives indicators from prices ordered oldest to newest.
// NaN samples are ignored. An empty series yields ErrInsufficientData; a series
// shorter than RSIPeriod+1 yields a nil RSI with everything else populated.
func Compute(prices []float64, cfg Config) (*Result, error) {
	cfg = cfg.WithDefaults()
	prices = finite(prices)
	if len(prices) == 0 {
		return nil, ErrInsufficientData
	}

	res := &Result{
		Current: prices[len(prices)-1],
		Samples: len(prices),
	}
	if rsi, ok := RSI(prices, cfg.RSIPeriod); ok {
		res.RSI = &rsi
	}
	res.SMAShort, _ = SMA(prices, cfg.SMAShort)
	res.SMALong, _ = SMA(prices, cfg.SMALong)
	res.Support, res.Resistance, _ = Range(prices, cfg.RangeWindow)
	res.Trend = Classify(res.Current, res.SMAShort, res.SMALong)
	res.Signals = Signals(res, cfg)
	return res, nil
}
