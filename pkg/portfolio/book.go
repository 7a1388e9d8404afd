// Package portfolio keeps paper-trading accounts: cash, long-only positions at
// weighted average cost and the realized result of every sell.
package portfolio

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradequest-api/pkg/market"
)

var (
	ErrInvalidQuantity      = errors.New("portfolio: quantity must be positive")
	ErrInvalidPrice         = errors.New("portfolio: price must be positive")
	ErrInvalidSide          = errors.New("portfolio: side must be buy or sell")
	ErrInsufficientCash     = errors.New("portfolio: insufficient cash")
	ErrInsufficientHoldings = errors.New("portfolio: insufficient holdings")
	ErrSyntheticQuote       = errors.New("portfolio: demo quotes cannot be traded")
	ErrUnconvertible        = errors.New("portfolio: quote currency cannot be converted")
)

// DefaultInitialCash is the starting balance of a new account.
var DefaultInitialCash = decimal.NewFromInt(10_000)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide normalises user input.
func ParseSide(raw string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(raw))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", ErrInvalidSide
	}
}

// Order is a request to trade Quantity units of Symbol at the current price.
type Order struct {
	Symbol   string
	Class    market.AssetClass
	Side     Side
	Quantity decimal.Decimal
}

// Trade is an executed order.
type Trade struct {
	ID          string
	Account     string
	Symbol      string
	Class       market.AssetClass
	Side        Side
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Amount      decimal.Decimal // Quantity * Price
	RealizedPnL decimal.Decimal // non-zero on sells only
	Currency    string
	ExecutedAt  time.Time
}

// Position is a long holding.
type Position struct {
	Symbol   string
	Class    market.AssetClass
	Quantity decimal.Decimal
	AvgCost  decimal.Decimal
}

// Cost returns the book value of the position.
func (p Position) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.AvgCost)
}

// Account is a snapshot of one paper-trading account.
type Account struct {
	ID          string
	Currency    string
	InitialCash decimal.Decimal
	Cash        decimal.Decimal
	Realized    decimal.Decimal
	Positions   []Position
	Trades      []Trade
}

type account struct {
	id        string
	cash      decimal.Decimal
	realized  decimal.Decimal
	positions map[string]*Position
	trades    []Trade
}

// Book holds every account in memory.
type Book struct {
	mu          sync.Mutex
	accounts    map[string]*account
	initialCash decimal.Decimal
	currency    string
	now         func() time.Time
}

// BookOption customises a Book.
type BookOption func(*Book)

// WithInitialCash overrides the opening balance of new accounts.
func WithInitialCash(cash decimal.Decimal) BookOption {
	return func(b *Book) {
		if cash.IsPositive() {
			b.initialCash = cash
		}
	}
}

// WithCurrency sets the account currency.
func WithCurrency(ccy string) BookOption {
	return func(b *Book) {
		if ccy = strings.ToUpper(strings.TrimSpace(ccy)); ccy != "" {
			b.currency = ccy
		}
	}
}

// WithClock overrides the trade timestamp source.
func WithClock(now func() time.Time) BookOption {
	return func(b *Book) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBook creates an empty book.
func NewBook(opts ...BookOption) *Book {
	b := &Book{
		accounts:    make(map[string]*account),
		initialCash: DefaultInitialCash,
		currency:    "EUR",
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func positionKey(class market.AssetClass, symbol string) string {
	return string(class) + ":" + strings.ToUpper(strings.TrimSpace(symbol))
}

func (b *Book) accountLocked(id string) *account {
	acc, ok := b.accounts[id]
	if !ok {
		acc = &account{id: id, cash: b.initialCash, positions: make(map[string]*Position)}
		b.accounts[id] = acc
	}
	return acc
}

// Execute fills order for accountID at price. Accounts are opened on first use.
func (b *Book) Execute(accountID string, order Order, price decimal.Decimal) (*Trade, error) {
	if !order.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if !price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if order.Side != Buy && order.Side != Sell {
		return nil, ErrInvalidSide
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	acc := b.accountLocked(accountID)
	key := positionKey(order.Class, order.Symbol)
	amount := order.Quantity.Mul(price)
	trade := Trade{
		ID:          uuid.NewString(),
		Account:     accountID,
		Symbol:      strings.ToUpper(strings.TrimSpace(order.Symbol)),
		Class:       order.Class,
		Side:        order.Side,
		Quantity:    order.Quantity,
		Price:       price,
		Amount:      amount,
		RealizedPnL: decimal.Zero,
		Currency:    b.currency,
		ExecutedAt:  b.now().UTC(),
	}

	if err := acc.apply(key, &trade); err != nil {
		return nil, err
	}
	return &trade, nil
}

// apply books trade against acc. On sells it fills trade.RealizedPnL.
func (acc *account) apply(key string, trade *Trade) error {
	amount := trade.Amount
	switch trade.Side {
	case Buy:
		if amount.GreaterThan(acc.cash) {
			return fmt.Errorf("%w: need %s, have %s", ErrInsufficientCash, amount.StringFixed(2), acc.cash.StringFixed(2))
		}
		pos, ok := acc.positions[key]
		if !ok {
			pos = &Position{Symbol: trade.Symbol, Class: trade.Class, Quantity: decimal.Zero, AvgCost: decimal.Zero}
			acc.positions[key] = pos
		}
		total := pos.Quantity.Add(trade.Quantity)
		pos.AvgCost = pos.Cost().Add(amount).Div(total)
		pos.Quantity = total
		acc.cash = acc.cash.Sub(amount)
	case Sell:
		pos, ok := acc.positions[key]
		if !ok || pos.Quantity.LessThan(trade.Quantity) {
			held := decimal.Zero
			if ok {
				held = pos.Quantity
			}
			return fmt.Errorf("%w: want %s, hold %s", ErrInsufficientHoldings, trade.Quantity, held)
		}
		trade.RealizedPnL = trade.Price.Sub(pos.AvgCost).Mul(trade.Quantity)
		pos.Quantity = pos.Quantity.Sub(trade.Quantity)
		if pos.Quantity.IsZero() {
			delete(acc.positions, key)
		}
		acc.cash = acc.cash.Add(amount)
		acc.realized = acc.realized.Add(trade.RealizedPnL)
	default:
		return ErrInvalidSide
	}
	acc.trades = append(acc.trades, *trade)
	return nil
}

// Replay rebuilds accounts from journaled trades, oldest first. Replay stops at
// the first trade the book cannot apply.
func (b *Book) Replay(trades []Trade) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range trades {
		trade := trades[i]
		acc := b.accountLocked(trade.Account)
		if err := acc.apply(positionKey(trade.Class, trade.Symbol), &trade); err != nil {
			return fmt.Errorf("portfolio: replay trade %s: %w", trade.ID, err)
		}
	}
	return nil
}

// Currency returns the currency cash and prices are booked in.
func (b *Book) Currency() string { return b.currency }

// Account returns a copy of the account, opening it when unknown.
func (b *Book) Account(accountID string) Account {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc := b.accountLocked(accountID)
	out := Account{
		ID:          acc.id,
		Currency:    b.currency,
		InitialCash: b.initialCash,
		Cash:        acc.cash,
		Realized:    acc.realized,
		Positions:   make([]Position, 0, len(acc.positions)),
		Trades:      append([]Trade(nil), acc.trades...),
	}
	for _, pos := range acc.positions {
		out.Positions = append(out.Positions, *pos)
	}
	sort.Slice(out.Positions, func(i, j int) bool {
		return positionKey(out.Positions[i].Class, out.Positions[i].Symbol) < positionKey(out.Positions[j].Class, out.Positions[j].Symbol)
	})
	return out
}
