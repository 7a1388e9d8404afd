package market

import (
	"fmt"
	"strings"
)

// AssetClass selects the provider family and field mapping.
type AssetClass string

const (
	Crypto AssetClass = "crypto"
	Stocks AssetClass = "stocks"
	Forex  AssetClass = "forex"
)

// AssetClasses lists every supported class in display order.
var AssetClasses = []AssetClass{Crypto, Stocks, Forex}

// ParseAssetClass normalises user input into an AssetClass.
func ParseAssetClass(raw string) (AssetClass, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "crypto", "cryptocurrency", "cryptos":
		return Crypto, nil
	case "stocks", "stock", "equity", "equities":
		return Stocks, nil
	case "forex", "fx", "currency", "currencies":
		return Forex, nil
	default:
		return "", fmt.Errorf("market: unknown asset class %q", raw)
	}
}

// Period enumerates the supported history windows.
type Period string

const (
	Period1D  Period = "1D"
	Period7D  Period = "7D"
	Period30D Period = "30D"
	Period90D Period = "90D"
	Period1Y  Period = "1Y"

	DefaultPeriod = Period30D
)

// Periods lists every supported period, shortest first.
var Periods = []Period{Period1D, Period7D, Period30D, Period90D, Period1Y}

// ParsePeriod accepts case-insensitive period labels. Empty input yields DefaultPeriod.
func ParsePeriod(raw string) (Period, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "":
		return DefaultPeriod, nil
	case "1D":
		return Period1D, nil
	case "7D", "1W":
		return Period7D, nil
	case "30D", "1M":
		return Period30D, nil
	case "90D", "3M":
		return Period90D, nil
	case "1Y", "365D":
		return Period1Y, nil
	default:
		return "", fmt.Errorf("market: unknown period %q", raw)
	}
}

// Days returns the calendar length of the period.
func (p Period) Days() int {
	switch p {
	case Period1D:
		return 1
	case Period7D:
		return 7
	case Period30D:
		return 30
	case Period90D:
		return 90
	case Period1Y:
		return 365
	default:
		return 0
	}
}
