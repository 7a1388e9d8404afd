package market

import "context"

// Persistence hooks allow the service to record fetched market data in external stores.
type Persistence interface {
	// RecordQuote persists the latest quote for a provider.
	RecordQuote(ctx context.Context, provider string, quote *Quote) error
	// RecordSeries persists price points of a fetched history.
	RecordSeries(ctx context.Context, provider string, series *Series) error
}
