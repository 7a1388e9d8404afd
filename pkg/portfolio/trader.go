package portfolio

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"

	"tradequest-api/pkg/market"
)

// QuoteSource prices orders and positions.
type QuoteSource interface {
	Quote(ctx context.Context, class market.AssetClass, symbol string, opts ...market.RequestOption) (*market.Quote, error)
}

// Journal records executed trades outside the in-memory book.
type Journal interface {
	RecordTrade(ctx context.Context, trade *Trade) error
}

// CurrencyConverter restates an amount quoted in one currency in another.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// LastKnownQuotes returns the most recently recorded quote for a symbol.
type LastKnownQuotes interface {
	Latest(ctx context.Context, class market.AssetClass, symbol string) (*market.Quote, error)
}

// Trader executes orders at live quotes.
type Trader struct {
	book      *Book
	quotes    QuoteSource
	journal   Journal
	converter CurrencyConverter
	lastKnown LastKnownQuotes
}

// TraderOption customises a Trader.
type TraderOption func(*Trader)

// WithConverter prices quotes that are not in the book currency.
func WithConverter(c CurrencyConverter) TraderOption {
	return func(t *Trader) { t.converter = c }
}

// WithLastKnown values positions at their last recorded quote when the live
// quote is unavailable. Such holdings are still reported Stale.
func WithLastKnown(l LastKnownQuotes) TraderOption {
	return func(t *Trader) { t.lastKnown = l }
}

// NewTrader wires a book to a quote source. journal may be nil.
func NewTrader(book *Book, quotes QuoteSource, journal Journal, opts ...TraderOption) *Trader {
	t := &Trader{book: book, quotes: quotes, journal: journal}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Book exposes the underlying book.
func (t *Trader) Book() *Book { return t.book }

// Place prices order with a fresh quote, restated in the book currency, and
// executes it. The position is keyed by the symbol the quote reports, so
// aliases of one instrument share a holding.
func (t *Trader) Place(ctx context.Context, accountID string, order Order) (*Trade, error) {
	if strings.TrimSpace(order.Symbol) == "" {
		return nil, fmt.Errorf("portfolio: symbol is required")
	}
	if !order.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	quote, err := t.quotes.Quote(ctx, order.Class, order.Symbol)
	if err != nil {
		return nil, err
	}
	if quote.Synthetic {
		return nil, ErrSyntheticQuote
	}
	price, err := t.bookPrice(ctx, quote)
	if err != nil {
		return nil, err
	}
	if sym := strings.TrimSpace(quote.Symbol); sym != "" {
		order.Symbol = sym
	}
	trade, err := t.book.Execute(accountID, order, price)
	if err != nil {
		return nil, err
	}
	if t.journal != nil {
		if err := t.journal.RecordTrade(ctx, trade); err != nil {
			logx.WithContext(ctx).Errorf("portfolio: journal trade %s: %v", trade.ID, err)
		}
	}
	return trade, nil
}

// Holding is a position marked to market.
type Holding struct {
	Position
	Price       decimal.Decimal
	MarketValue decimal.Decimal
	Unrealized  decimal.Decimal
	Stale       bool // quote unavailable, valued at cost
}

// Valuation is an account marked to market.
type Valuation struct {
	Account
	Holdings    []Holding
	MarketValue decimal.Decimal
	Unrealized  decimal.Decimal
	Equity      decimal.Decimal
	ReturnPct   decimal.Decimal
}

// Value marks every position of accountID at live quotes. Positions whose quote
// fails are flagged Stale and valued at the last recorded quote, or at cost.
func (t *Trader) Value(ctx context.Context, accountID string) (*Valuation, error) {
	acc := t.book.Account(accountID)

	holdings, err := mr.MapReduce(func(source chan<- Position) {
		for _, pos := range acc.Positions {
			source <- pos
		}
	}, func(pos Position, writer mr.Writer[Holding], cancel func(error)) {
		writer.Write(t.mark(ctx, pos))
	}, func(pipe <-chan Holding, writer mr.Writer[[]Holding], cancel func(error)) {
		var out []Holding
		for h := range pipe {
			out = append(out, h)
		}
		writer.Write(out)
	}, mr.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	sortHoldings(holdings)

	v := &Valuation{
		Account:     acc,
		Holdings:    holdings,
		MarketValue: decimal.Zero,
		Unrealized:  decimal.Zero,
	}
	for _, h := range holdings {
		v.MarketValue = v.MarketValue.Add(h.MarketValue)
		v.Unrealized = v.Unrealized.Add(h.Unrealized)
	}
	v.Equity = acc.Cash.Add(v.MarketValue)
	if acc.InitialCash.IsPositive() {
		v.ReturnPct = v.Equity.Sub(acc.InitialCash).Div(acc.InitialCash).Mul(decimal.NewFromInt(100)).Round(4)
	}
	return v, nil
}

// bookPrice returns the quote price in the book currency. A quote without a
// currency is taken to be in the book currency already.
func (t *Trader) bookPrice(ctx context.Context, quote *market.Quote) (decimal.Decimal, error) {
	from := strings.ToUpper(strings.TrimSpace(quote.Currency))
	to := t.book.Currency()
	if from == "" || from == to {
		return decimal.NewFromFloat(quote.Price), nil
	}
	if t.converter == nil {
		return decimal.Zero, fmt.Errorf("%w: %s to %s", ErrUnconvertible, from, to)
	}
	price, err := t.converter.Convert(ctx, quote.Price, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(price), nil
}

func (t *Trader) mark(ctx context.Context, pos Position) Holding {
	h := Holding{Position: pos, Price: pos.AvgCost}
	quote, err := t.quotes.Quote(ctx, pos.Class, pos.Symbol)
	if err == nil && !quote.Synthetic {
		var price decimal.Decimal
		if price, err = t.bookPrice(ctx, quote); err == nil {
			h.Price = price
		}
	}
	switch {
	case err != nil:
		h.Stale = true
		if price, ok := t.lastKnownPrice(ctx, pos); ok {
			logx.WithContext(ctx).Infof("portfolio: mark %s at last recorded quote: %v", pos.Symbol, err)
			h.Price = price
		} else {
			logx.WithContext(ctx).Infof("portfolio: mark %s at cost: %v", pos.Symbol, err)
		}
	case quote.Synthetic:
		h.Stale = true
	}
	h.MarketValue = pos.Quantity.Mul(h.Price)
	h.Unrealized = h.MarketValue.Sub(pos.Cost())
	return h
}

func (t *Trader) lastKnownPrice(ctx context.Context, pos Position) (decimal.Decimal, bool) {
	if t.lastKnown == nil {
		return decimal.Zero, false
	}
	quote, err := t.lastKnown.Latest(ctx, pos.Class, pos.Symbol)
	if err != nil || quote == nil || quote.Price <= 0 {
		return decimal.Zero, false
	}
	price, err := t.bookPrice(ctx, quote)
	if err != nil {
		return decimal.Zero, false
	}
	return price, true
}

func sortHoldings(hs []Holding) {
	sort.Slice(hs, func(i, j int) bool {
		return positionKey(hs[i].Class, hs[i].Symbol) < positionKey(hs[j].Class, hs[j].Symbol)
	})
}
