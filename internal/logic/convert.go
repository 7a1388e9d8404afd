package logic

import (
	"fmt"
	"strings"

	"tradequest-api/internal/errorx"
	"tradequest-api/internal/types"
	"tradequest-api/pkg/market"
	"tradequest-api/pkg/market/indicators"
	"tradequest-api/pkg/portfolio"
)

func parseTarget(class, symbol string) (market.AssetClass, string, error) {
	c, err := market.ParseAssetClass(class)
	if err != nil {
		return "", "", errorx.BadRequest(err)
	}
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return "", "", errorx.BadRequest(fmt.Errorf("symbol is required"))
	}
	return c, symbol, nil
}

func parsePeriod(raw string) (market.Period, error) {
	p, err := market.ParsePeriod(raw)
	if err != nil {
		return "", errorx.BadRequest(err)
	}
	return p, nil
}

func toQuote(q *market.Quote) types.Quote {
	return types.Quote{
		Symbol:           q.Symbol,
		Id:               q.ID,
		Name:             q.Name,
		Class:            string(q.Class),
		Currency:         q.Currency,
		Price:            q.Price,
		Change24h:        q.Change24h,
		ChangePercent24h: q.ChangePercent24h,
		Volume24h:        q.Volume24h,
		MarketCap:        q.MarketCap,
		MarketCapRank:    q.MarketCapRank,
		High24h:          q.High24h,
		Low24h:           q.Low24h,
		High52w:          q.High52w,
		Low52w:           q.Low52w,
		Sentiment:        string(q.Sentiment),
		ConfidenceScore:  q.ConfidenceScore,
		Provider:         q.Provider,
		FetchedAt:        q.FetchedAt.UnixMilli(),
		Synthetic:        q.Synthetic,
	}
}

func toSeries(s *market.Series) types.Series {
	out := types.Series{
		Symbol:    s.Symbol,
		Class:     string(s.Class),
		Period:    string(s.Period),
		Currency:  s.Currency,
		Provider:  s.Provider,
		Points:    make([]types.PricePoint, len(s.Points)),
		Synthetic: s.Synthetic,
	}
	for i, p := range s.Points {
		out.Points[i] = types.PricePoint{Timestamp: p.TimestampMs, Price: p.Price, Volume: p.Volume}
	}
	return out
}

func toIndicators(r *indicators.Result) types.Indicators {
	if r == nil {
		return types.Indicators{Signals: []string{}}
	}
	signals := r.Signals
	if signals == nil {
		signals = []string{}
	}
	return types.Indicators{
		Rsi:        r.RSI,
		SmaShort:   r.SMAShort,
		SmaLong:    r.SMALong,
		Support:    r.Support,
		Resistance: r.Resistance,
		Current:    r.Current,
		Trend:      string(r.Trend),
		Signals:    signals,
		Samples:    r.Samples,
	}
}

func toTrade(t *portfolio.Trade) types.Trade {
	return types.Trade{
		Id:          t.ID,
		Symbol:      t.Symbol,
		Class:       string(t.Class),
		Side:        string(t.Side),
		Quantity:    t.Quantity.String(),
		Price:       t.Price.String(),
		Amount:      t.Amount.StringFixed(2),
		RealizedPnl: t.RealizedPnL.StringFixed(2),
		Currency:    t.Currency,
		ExecutedAt:  t.ExecutedAt.UnixMilli(),
	}
}

// requestOptions only forces demo mode on; an absent flag keeps the configured default.
func requestOptions(demo bool) []market.RequestOption {
	if !demo {
		return nil
	}
	return []market.RequestOption{market.WithDemo(true)}
}
