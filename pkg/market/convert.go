package market

import (
	"context"
	"fmt"
	"strings"
)

// RateSource quotes the amount of `to` bought by one unit of `from`.
type RateSource interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// Converter restates quotes and series in the product currency.
// Forex quotes are left alone: their price is the rate itself.
type Converter struct {
	target string
	rates  RateSource
	name   string
}

// NewConverter builds a converter to target. rates may be nil, in which case
// anything not already in target fails with ProviderError.
func NewConverter(target string, rateProvider string, rates RateSource) *Converter {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" {
		target = defaultCurrency
	}
	return &Converter{target: target, rates: rates, name: rateProvider}
}

// Target returns the product currency.
func (c *Converter) Target() string { return c.target }

func (c *Converter) needs(class AssetClass, currency string) bool {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	return class != Forex && currency != "" && currency != c.target
}

func (c *Converter) rate(ctx context.Context, from, to, symbol string) (float64, error) {
	if c.rates == nil {
		return 0, NewFetchError(KindProviderError, c.name, symbol, fmt.Errorf("no rate source to convert %s to %s", from, to))
	}
	r, err := c.rates.Rate(ctx, from, to)
	if err != nil {
		return 0, NewFetchError(KindProviderError, c.name, symbol, fmt.Errorf("rate %s/%s: %w", from, to, err))
	}
	if r <= 0 {
		return 0, NewFetchError(KindProviderError, c.name, symbol, fmt.Errorf("rate %s/%s not positive", from, to))
	}
	return r, nil
}

// Convert restates amount from one currency in another. Any asset class,
// forex included, goes through the rate source.
func (c *Converter) Convert(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount, nil
	}
	r, err := c.rate(ctx, from, to, from+to)
	if err != nil {
		return 0, err
	}
	return amount * r, nil
}

// Quote returns q expressed in the target currency. Volume is not scaled.
func (c *Converter) Quote(ctx context.Context, q *Quote) (*Quote, error) {
	if q == nil || !c.needs(q.Class, q.Currency) {
		return q, nil
	}
	r, err := c.rate(ctx, strings.ToUpper(q.Currency), c.target, q.Symbol)
	if err != nil {
		return nil, err
	}
	out := *q
	out.Currency = c.target
	out.Price *= r
	out.Change24h *= r
	out.MarketCap = scale(q.MarketCap, r)
	out.High24h = scale(q.High24h, r)
	out.Low24h = scale(q.Low24h, r)
	out.High52w = scale(q.High52w, r)
	out.Low52w = scale(q.Low52w, r)
	return &out, nil
}

// Series returns s with every price expressed in the target currency.
func (c *Converter) Series(ctx context.Context, s *Series) (*Series, error) {
	if s == nil || !c.needs(s.Class, s.Currency) {
		return s, nil
	}
	r, err := c.rate(ctx, strings.ToUpper(s.Currency), c.target, s.Symbol)
	if err != nil {
		return nil, err
	}
	out := *s
	out.Currency = c.target
	out.Points = make([]PricePoint, len(s.Points))
	for i, p := range s.Points {
		p.Price *= r
		out.Points[i] = p
	}
	return &out, nil
}

func scale(v *float64, r float64) *float64 {
	if v == nil {
		return nil
	}
	return Float(*v * r)
}
