package market

import "math"

// Sentiment is a coarse reading of the 24h move.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

type sentimentRule struct {
	threshold float64 // percent move needed to leave neutral
	weight    float64 // confidence points per percent
}

var sentimentRules = map[AssetClass]sentimentRule{
	Crypto: {threshold: 0.1, weight: 5},
	Stocks: {threshold: 0.1, weight: 8},
	Forex:  {threshold: 0.05, weight: 20},
}

// Annotate fills Sentiment and ConfidenceScore from ChangePercent24h.
func Annotate(q *Quote) {
	if q == nil {
		return
	}
	rule, ok := sentimentRules[q.Class]
	if !ok {
		rule = sentimentRules[Stocks]
	}
	switch {
	case q.ChangePercent24h > rule.threshold:
		q.Sentiment = SentimentBullish
	case q.ChangePercent24h < -rule.threshold:
		q.Sentiment = SentimentBearish
	default:
		q.Sentiment = SentimentNeutral
	}
	q.ConfidenceScore = math.Max(0, math.Min(100, 50+q.ChangePercent24h*rule.weight))
}

// ChangePercent returns (current-previous)/previous*100, or false when previous is not positive.
func ChangePercent(current, previous float64) (float64, bool) {
	if previous <= 0 || math.IsNaN(previous) || math.IsNaN(current) {
		return 0, false
	}
	return (current - previous) / previous * 100, true
}
