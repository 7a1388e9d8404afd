package twelvedata

import (
	"strconv"
	"strings"
)

// apiStatus is embedded in every Twelve Data payload.
type apiStatus struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// QuoteResponse mirrors GET /quote. Numeric fields arrive as strings.
type QuoteResponse struct {
	apiStatus
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Exchange      string `json:"exchange"`
	Currency      string `json:"currency"`
	Datetime      string `json:"datetime"`
	Timestamp     int64  `json:"timestamp"`
	Open          string `json:"open"`
	High          string `json:"high"`
	Low           string `json:"low"`
	Close         string `json:"close"`
	Volume        string `json:"volume"`
	PreviousClose string `json:"previous_close"`
	Change        string `json:"change"`
	PercentChange string `json:"percent_change"`
	FiftyTwoWeek  struct {
		Low  string `json:"low"`
		High string `json:"high"`
	} `json:"fifty_two_week"`
}

// TimeSeriesResponse mirrors GET /time_series. Values arrive newest first.
type TimeSeriesResponse struct {
	apiStatus
	Meta struct {
		Symbol           string `json:"symbol"`
		Interval         string `json:"interval"`
		Currency         string `json:"currency"`
		CurrencyBase     string `json:"currency_base"`
		CurrencyQuote    string `json:"currency_quote"`
		ExchangeTimezone string `json:"exchange_timezone"`
		Type             string `json:"type"`
	} `json:"meta"`
	Values []TimeSeriesValue `json:"values"`
}

// TimeSeriesValue is one bar of a time series.
type TimeSeriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func optionalFloat(s string) *float64 {
	if v, ok := parseFloat(s); ok {
		return &v
	}
	return nil
}
