package market

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures so callers can pick a UI state.
type ErrorKind string

const (
	KindNetworkUnavailable ErrorKind = "network_unavailable"
	KindRateLimited        ErrorKind = "rate_limited"
	KindProviderError      ErrorKind = "provider_error"
	KindSymbolNotFound     ErrorKind = "symbol_not_found"
	KindMalformedResponse  ErrorKind = "malformed_response"
	KindInsufficientData   ErrorKind = "insufficient_data"
	KindUnsupported        ErrorKind = "unsupported"
)

// Sentinels for errors.Is matching against *FetchError.
var (
	ErrNetworkUnavailable = errors.New("market: network unavailable")
	ErrRateLimited        = errors.New("market: provider rate limited")
	ErrProviderError      = errors.New("market: provider error")
	ErrSymbolNotFound     = errors.New("market: symbol not found")
	ErrMalformedResponse  = errors.New("market: malformed response")
	ErrInsufficientData   = errors.New("market: insufficient data")
	ErrUnsupported        = errors.New("market: operation not supported")
)

var kindSentinels = map[ErrorKind]error{
	KindNetworkUnavailable: ErrNetworkUnavailable,
	KindRateLimited:        ErrRateLimited,
	KindProviderError:      ErrProviderError,
	KindSymbolNotFound:     ErrSymbolNotFound,
	KindMalformedResponse:  ErrMalformedResponse,
	KindInsufficientData:   ErrInsufficientData,
	KindUnsupported:        ErrUnsupported,
}

// FetchError is the typed failure returned by every provider operation.
type FetchError struct {
	Kind       ErrorKind
	Provider   string
	Symbol     string
	StatusCode int // upstream HTTP status, 0 when not applicable
	Err        error
}

// NewFetchError builds a FetchError. err may be nil.
func NewFetchError(kind ErrorKind, provider, symbol string, err error) *FetchError {
	return &FetchError{Kind: kind, Provider: provider, Symbol: symbol, Err: err}
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("market: %s", e.Kind)
	if e.Provider != "" {
		msg += " provider=" + e.Provider
	}
	if e.Symbol != "" {
		msg += " symbol=" + e.Symbol
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status=%d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is matches the kind sentinels, e.g. errors.Is(err, ErrRateLimited).
func (e *FetchError) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// Retryable reports whether repeating the request may succeed.
func (e *FetchError) Retryable() bool { return e.Kind.Retryable() }

// Retryable reports whether failures of this kind are transient.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindNetworkUnavailable, KindRateLimited, KindProviderError:
		return true
	default:
		return false
	}
}

// KindOf extracts the ErrorKind from err, or "" when err is not a FetchError.
func KindOf(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}
