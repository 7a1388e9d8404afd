package portfolio

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tradequest-api/pkg/market"
)

// XPPerLevel is the experience needed to advance one level.
const XPPerLevel = 1000

const (
	xpPerTrade          = 10
	xpPerProfitableSell = 50
	favoriteAssetCount  = 3
	classBadgeTrades    = 10
	forexBadgeTrades    = 5
	streakDays          = 7
	riskMasterSells     = 10
	riskMasterRatePct   = 60
)

// Badge names.
const (
	BadgeFirstTrade      = "first_trade"
	BadgeWeekStreak      = "week_streak"
	BadgeProfitableMonth = "profitable_month"
	BadgeRiskMaster      = "risk_master"
	BadgeCryptoExpert    = "crypto_expert"
	BadgeStockWizard     = "stock_wizard"
	BadgeForexTrader     = "forex_trader"
)

// TradeStats summarises the trade journal of an account.
type TradeStats struct {
	TotalTrades      int
	SuccessfulTrades int             // sells closed at a gain
	SuccessRate      decimal.Decimal // percent of sells closed at a gain
	FavoriteAssets   []string        // most traded symbols first
}

// Profile is the gamified view of a paper-trading account.
type Profile struct {
	Account       string
	Level         int
	Experience    int
	NextLevelXP   int
	Badges        []string
	Stats         TradeStats
	TotalInvested decimal.Decimal // cost of open positions
	Performance   decimal.Decimal // return on initial cash, percent
}

// BuildProfile derives a Profile from a marked account.
func BuildProfile(v *Valuation) Profile {
	p := Profile{
		Account:       v.ID,
		Badges:        []string{},
		TotalInvested: decimal.Zero,
		Performance:   v.ReturnPct,
	}
	for _, pos := range v.Positions {
		p.TotalInvested = p.TotalInvested.Add(pos.Cost())
	}

	var sells int
	perClass := make(map[market.AssetClass]int)
	perSymbol := make(map[string]int)
	lastTraded := make(map[string]time.Time)
	for _, t := range v.Trades {
		p.Experience += xpPerTrade
		perClass[t.Class]++
		perSymbol[t.Symbol]++
		if t.ExecutedAt.After(lastTraded[t.Symbol]) {
			lastTraded[t.Symbol] = t.ExecutedAt
		}
		if t.Side != Sell {
			continue
		}
		sells++
		if t.RealizedPnL.IsPositive() {
			p.Stats.SuccessfulTrades++
			p.Experience += xpPerProfitableSell
		}
	}
	p.Stats.TotalTrades = len(v.Trades)
	p.Stats.SuccessRate = decimal.Zero
	if sells > 0 {
		p.Stats.SuccessRate = decimal.NewFromInt(int64(p.Stats.SuccessfulTrades)).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(int64(sells))).
			Round(2)
	}
	p.Stats.FavoriteAssets = favorites(perSymbol, lastTraded)

	p.Level = p.Experience/XPPerLevel + 1
	p.NextLevelXP = XPPerLevel - p.Experience%XPPerLevel

	if len(v.Trades) > 0 {
		p.Badges = append(p.Badges, BadgeFirstTrade)
	}
	if longestStreak(v.Trades) >= streakDays {
		p.Badges = append(p.Badges, BadgeWeekStreak)
	}
	if profitableMonth(v.Trades) {
		p.Badges = append(p.Badges, BadgeProfitableMonth)
	}
	if sells >= riskMasterSells && p.Stats.SuccessRate.GreaterThanOrEqual(decimal.NewFromInt(riskMasterRatePct)) {
		p.Badges = append(p.Badges, BadgeRiskMaster)
	}
	if perClass[market.Crypto] >= classBadgeTrades {
		p.Badges = append(p.Badges, BadgeCryptoExpert)
	}
	if perClass[market.Stocks] >= classBadgeTrades {
		p.Badges = append(p.Badges, BadgeStockWizard)
	}
	if perClass[market.Forex] >= forexBadgeTrades {
		p.Badges = append(p.Badges, BadgeForexTrader)
	}
	return p
}

// Profile marks accountID to market and derives its gamified profile.
func (t *Trader) Profile(ctx context.Context, accountID string) (*Profile, error) {
	v, err := t.Value(ctx, accountID)
	if err != nil {
		return nil, err
	}
	p := BuildProfile(v)
	return &p, nil
}

// favorites ranks symbols by trade count, then by most recent trade.
func favorites(counts map[string]int, last map[string]time.Time) []string {
	symbols := make([]string, 0, len(counts))
	for s := range counts {
		symbols = append(symbols, s)
	}
	sort.Slice(symbols, func(i, j int) bool {
		a, b := symbols[i], symbols[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if !last[a].Equal(last[b]) {
			return last[a].After(last[b])
		}
		return a < b
	})
	if len(symbols) > favoriteAssetCount {
		symbols = symbols[:favoriteAssetCount]
	}
	return symbols
}

// longestStreak counts consecutive UTC days with at least one trade.
func longestStreak(trades []Trade) int {
	const day = int64(24 * time.Hour / time.Second)
	days := make(map[int64]struct{}, len(trades))
	for _, t := range trades {
		days[t.ExecutedAt.Unix()/day] = struct{}{}
	}
	best := 0
	for d := range days {
		if _, ok := days[d-1]; ok {
			continue
		}
		n := int64(1)
		for {
			if _, ok := days[d+n]; !ok {
				break
			}
			n++
		}
		if int(n) > best {
			best = int(n)
		}
	}
	return best
}

// profitableMonth reports whether realized gains of any calendar month
// (UTC) sum to more than zero.
func profitableMonth(trades []Trade) bool {
	months := make(map[string]decimal.Decimal)
	for _, t := range trades {
		if t.Side != Sell {
			continue
		}
		key := t.ExecutedAt.UTC().Format("2006-01")
		months[key] = months[key].Add(t.RealizedPnL)
	}
	for _, total := range months {
		if total.IsPositive() {
			return true
		}
	}
	return false
}
