package errorx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"tradequest-api/pkg/market"
	"tradequest-api/pkg/portfolio"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"not found", market.NewFetchError(market.KindSymbolNotFound, "yahoo", "ZZZ", nil), http.StatusNotFound, "symbol_not_found", false},
		{"rate limited", market.NewFetchError(market.KindRateLimited, "twelvedata", "AAPL", nil), http.StatusTooManyRequests, "rate_limited", true},
		{"provider", fmt.Errorf("wrapped: %w", market.NewFetchError(market.KindProviderError, "coingecko", "BTC", nil)), http.StatusBadGateway, "provider_error", true},
		{"malformed", market.NewFetchError(market.KindMalformedResponse, "yahoo", "AAPL", nil), http.StatusBadGateway, "malformed_response", false},
		{"network", market.NewFetchError(market.KindNetworkUnavailable, "yahoo", "AAPL", nil), http.StatusServiceUnavailable, "network_unavailable", true},
		{"insufficient data", market.NewFetchError(market.KindInsufficientData, "yahoo", "AAPL", nil), http.StatusUnprocessableEntity, "insufficient_data", false},
		{"bad request", BadRequest(errors.New("bad period")), http.StatusBadRequest, "bad_request", false},
		{"cash", fmt.Errorf("%w: need 1", portfolio.ErrInsufficientCash), http.StatusUnprocessableEntity, "insufficient_cash", false},
		{"quantity", portfolio.ErrInvalidQuantity, http.StatusBadRequest, "invalid_order", false},
		{"synthetic", portfolio.ErrSyntheticQuote, http.StatusConflict, "synthetic_quote", false},
		{"unconvertible", fmt.Errorf("%w: JPY to EUR", portfolio.ErrUnconvertible), http.StatusBadGateway, "currency_unavailable", false},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout", true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := Render(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, body.Code)
			assert.Equal(t, tt.retryable, body.Retryable)
		})
	}
}

func TestBadRequestNil(t *testing.T) {
	assert.NoError(t, BadRequest(nil))
}
