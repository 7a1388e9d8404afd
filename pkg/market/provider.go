package market

import (
	"context"
	"time"
)

// Provider exposes exchange-agnostic market data for one upstream source.
type Provider interface {
	// Quote returns the latest normalized quote for the supplied symbol.
	Quote(ctx context.Context, symbol string) (*Quote, error)
	// History returns an ascending price series covering the requested period.
	History(ctx context.Context, symbol string, period Period) (*Series, error)
	// ListAssets returns the instruments the provider can serve.
	ListAssets(ctx context.Context) ([]Asset, error)
}

// SizedLister is implemented by providers whose listing endpoint takes a page
// size, so the requested limit reaches the upstream call.
type SizedLister interface {
	ListTopAssets(ctx context.Context, limit int) ([]Asset, error)
}

// Quote is a normalized snapshot of one tradable instrument.
type Quote struct {
	ID               string     // Provider identifier, e.g. "bitcoin" or "AAPL"
	Symbol           string     // Display ticker, e.g. "BTC", "EUR/USD"
	Name             string     // Human readable name when known
	Class            AssetClass // crypto | stocks | forex
	Currency         string     // ISO currency of the price fields
	Price            float64    // Latest price, always > 0 on success
	Change24h        float64    // Absolute change over 24h
	ChangePercent24h float64    // Signed percent change over 24h
	Volume24h        *float64   // Optional, nil when the provider omits it
	MarketCap        *float64
	MarketCapRank    *int
	High24h          *float64
	Low24h           *float64
	High52w          *float64 // 52 week or all-time high depending on source
	Low52w           *float64
	Sentiment        Sentiment
	ConfidenceScore  float64
	Provider         string
	FetchedAt        time.Time
	Synthetic        bool // true only for demo data
}

// PricePoint is one sample of a historical series.
type PricePoint struct {
	TimestampMs int64
	Price       float64
	Volume      *float64
}

// Series is a time ordered price history. Points are strictly ascending by TimestampMs.
type Series struct {
	Symbol    string
	Class     AssetClass
	Period    Period
	Provider  string
	Currency  string
	Points    []PricePoint
	Synthetic bool
}

// Prices returns the close prices oldest to newest.
func (s *Series) Prices() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Asset describes a tradeable instrument.
type Asset struct {
	Symbol      string // Display ticker
	ID          string // Provider identifier
	Name        string // Optional long name
	Class       AssetClass
	Price       float64        // Last known price when the listing carries one
	RawMetadata map[string]any // Provider specific fields
}

// Float returns a pointer to v. Convenience for optional numeric fields.
func Float(v float64) *float64 {
	return &v
}
