// Package errorx maps domain failures onto HTTP responses.
package errorx

import (
	"context"
	"errors"
	"net/http"

	"github.com/zeromicro/go-zero/core/logx"

	"tradequest-api/internal/types"
	"tradequest-api/pkg/market"
	"tradequest-api/pkg/portfolio"
)

// CodeError is an error with a fixed HTTP status.
type CodeError struct {
	Status int
	Code   string
	Msg    string
}

func (e *CodeError) Error() string { return e.Msg }

// BadRequest wraps invalid client input.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}
	return &CodeError{Status: http.StatusBadRequest, Code: "bad_request", Msg: err.Error()}
}

var kindStatus = map[market.ErrorKind]int{
	market.KindSymbolNotFound:     http.StatusNotFound,
	market.KindRateLimited:        http.StatusTooManyRequests,
	market.KindProviderError:      http.StatusBadGateway,
	market.KindMalformedResponse:  http.StatusBadGateway,
	market.KindNetworkUnavailable: http.StatusServiceUnavailable,
	market.KindInsufficientData:   http.StatusUnprocessableEntity,
	market.KindUnsupported:        http.StatusNotImplemented,
}

// Handler is installed with httpx.SetErrorHandlerCtx.
func Handler(ctx context.Context, err error) (int, any) {
	status, body := Render(err)
	if status >= http.StatusInternalServerError {
		logx.WithContext(ctx).Errorf("request failed: %v", err)
	}
	return status, body
}

// Render converts err into a status code and response body.
func Render(err error) (int, *types.ErrorResponse) {
	var ce *CodeError
	if errors.As(err, &ce) {
		return ce.Status, &types.ErrorResponse{Code: ce.Code, Message: ce.Msg}
	}

	if kind := market.KindOf(err); kind != "" {
		status, ok := kindStatus[kind]
		if !ok {
			status = http.StatusBadGateway
		}
		return status, &types.ErrorResponse{Code: string(kind), Message: err.Error(), Retryable: kind.Retryable()}
	}

	switch {
	case errors.Is(err, context.Canceled):
		return 499, &types.ErrorResponse{Code: "canceled", Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &types.ErrorResponse{Code: "timeout", Message: err.Error(), Retryable: true}
	case errors.Is(err, portfolio.ErrInvalidQuantity),
		errors.Is(err, portfolio.ErrInvalidPrice),
		errors.Is(err, portfolio.ErrInvalidSide):
		return http.StatusBadRequest, &types.ErrorResponse{Code: "invalid_order", Message: err.Error()}
	case errors.Is(err, portfolio.ErrInsufficientCash):
		return http.StatusUnprocessableEntity, &types.ErrorResponse{Code: "insufficient_cash", Message: err.Error()}
	case errors.Is(err, portfolio.ErrInsufficientHoldings):
		return http.StatusUnprocessableEntity, &types.ErrorResponse{Code: "insufficient_holdings", Message: err.Error()}
	case errors.Is(err, portfolio.ErrUnconvertible):
		return http.StatusBadGateway, &types.ErrorResponse{Code: "currency_unavailable", Message: err.Error()}
	case errors.Is(err, portfolio.ErrSyntheticQuote):
		return http.StatusConflict, &types.ErrorResponse{Code: "synthetic_quote", Message: err.Error()}
	}
	return http.StatusInternalServerError, &types.ErrorResponse{Code: "internal", Message: "internal error"}
}
