package portfolio

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"tradequest-api/pkg/market"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestBookBuyAveragesCost(t *testing.T) {
	at := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
	book := NewBook(WithClock(func() time.Time { return at }))

	_, err := book.Execute("alice", Order{Symbol: "btc", Class: market.Crypto, Side: Buy, Quantity: dec("0.1")}, dec("40000"))
	require.NoError(t, err)
	trade, err := book.Execute("alice", Order{Symbol: "BTC", Class: market.Crypto, Side: Buy, Quantity: dec("0.1")}, dec("44000"))
	require.NoError(t, err)
	require.NotEmpty(t, trade.ID)
	require.Equal(t, at, trade.ExecutedAt)
	require.True(t, trade.Amount.Equal(dec("4400")))

	acc := book.Account("alice")
	require.True(t, acc.Cash.Equal(dec("1600")), acc.Cash.String())
	require.Len(t, acc.Positions, 1)
	require.True(t, acc.Positions[0].Quantity.Equal(dec("0.2")))
	require.True(t, acc.Positions[0].AvgCost.Equal(dec("42000")))
	require.Len(t, acc.Trades, 2)
}

func TestBookSellRealizesAgainstAverageCost(t *testing.T) {
	book := NewBook()
	_, err := book.Execute("bob", Order{Symbol: "AAPL", Class: market.Stocks, Side: Buy, Quantity: dec("10")}, dec("150"))
	require.NoError(t, err)

	trade, err := book.Execute("bob", Order{Symbol: "AAPL", Class: market.Stocks, Side: Sell, Quantity: dec("4")}, dec("160"))
	require.NoError(t, err)
	require.True(t, trade.RealizedPnL.Equal(dec("40")))

	_, err = book.Execute("bob", Order{Symbol: "AAPL", Class: market.Stocks, Side: Sell, Quantity: dec("6")}, dec("140"))
	require.NoError(t, err)

	acc := book.Account("bob")
	require.Empty(t, acc.Positions)
	require.True(t, acc.Realized.Equal(dec("-20")))
	require.True(t, acc.Cash.Equal(dec("9980")))
}

func TestBookRejectsInvalidOrders(t *testing.T) {
	book := NewBook(WithInitialCash(dec("100")))

	_, err := book.Execute("c", Order{Symbol: "AAPL", Side: Buy, Quantity: dec("0")}, dec("1"))
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = book.Execute("c", Order{Symbol: "AAPL", Side: Buy, Quantity: dec("1")}, dec("-1"))
	require.ErrorIs(t, err, ErrInvalidPrice)
	_, err = book.Execute("c", Order{Symbol: "AAPL", Side: "hold", Quantity: dec("1")}, dec("1"))
	require.ErrorIs(t, err, ErrInvalidSide)
	_, err = book.Execute("c", Order{Symbol: "AAPL", Side: Buy, Quantity: dec("1")}, dec("100.01"))
	require.ErrorIs(t, err, ErrInsufficientCash)
	_, err = book.Execute("c", Order{Symbol: "AAPL", Side: Sell, Quantity: dec("1")}, dec("10"))
	require.ErrorIs(t, err, ErrInsufficientHoldings)

	acc := book.Account("c")
	require.True(t, acc.Cash.Equal(dec("100")))
	require.Empty(t, acc.Trades)
}

func TestBookSeparatesClasses(t *testing.T) {
	book := NewBook()
	_, err := book.Execute("d", Order{Symbol: "ETH", Class: market.Crypto, Side: Buy, Quantity: dec("1")}, dec("2000"))
	require.NoError(t, err)
	_, err = book.Execute("d", Order{Symbol: "ETH", Class: market.Stocks, Side: Sell, Quantity: dec("1")}, dec("2000"))
	require.ErrorIs(t, err, ErrInsufficientHoldings)
}

func TestParseSide(t *testing.T) {
	side, err := ParseSide(" SELL ")
	require.NoError(t, err)
	require.Equal(t, Sell, side)
	_, err = ParseSide("short")
	require.ErrorIs(t, err, ErrInvalidSide)
}

func TestBookReplayRebuildsAccounts(t *testing.T) {
	source := NewBook()
	_, err := source.Execute("carol", Order{Symbol: "ETH", Class: market.Crypto, Side: Buy, Quantity: dec("2")}, dec("3000"))
	require.NoError(t, err)
	_, err = source.Execute("carol", Order{Symbol: "ETH", Class: market.Crypto, Side: Sell, Quantity: dec("1")}, dec("3100"))
	require.NoError(t, err)
	want := source.Account("carol")

	replayed := NewBook()
	require.NoError(t, replayed.Replay(want.Trades))
	got := replayed.Account("carol")
	require.True(t, want.Cash.Equal(got.Cash))
	require.True(t, want.Realized.Equal(got.Realized))
	require.Len(t, got.Positions, 1)
	require.True(t, got.Positions[0].AvgCost.Equal(dec("3000")))
	require.Equal(t, want.Trades[0].ID, got.Trades[0].ID)

	bad := []Trade{{ID: "x", Account: "dave", Symbol: "ETH", Class: market.Crypto, Side: Sell, Quantity: dec("1"), Price: dec("1"), Amount: dec("1")}}
	require.ErrorIs(t, NewBook().Replay(bad), ErrInsufficientHoldings)
}
