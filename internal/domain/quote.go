package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote represents the current simulated market data for one currency.
// The quote set is fixed at startup; quotes are mutated in place by the
// feed generator and never deleted.
type Quote struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name"`
	Price            decimal.Decimal `json:"price"`
	Change24h        decimal.Decimal `json:"change_24h"`
	ChangePercent24h decimal.Decimal `json:"change_percent_24h"`
	Volume24h        decimal.Decimal `json:"volume_24h"`
	MarketCap        decimal.Decimal `json:"market_cap"`
	LastUpdated      time.Time       `json:"last_updated"`
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (q *Quote) ChangeDirection() string {
	if q.ChangePercent24h.IsPositive() {
		return "positive"
	}
	if q.ChangePercent24h.IsNegative() {
		return "negative"
	}
	return "neutral"
}

// MarketSummary aggregates market-wide statistics over the quote set.
// Recomputed wholesale on each aggregation tick; no independent identity.
type MarketSummary struct {
	TotalMarketCap decimal.Decimal `json:"total_market_cap"`
	TotalVolume24h decimal.Decimal `json:"total_volume_24h"`
	BTCDominance   decimal.Decimal `json:"btc_dominance"`   // [0,100]
	SentimentIndex int             `json:"sentiment_index"` // [0,100]
	ComputedAt     time.Time       `json:"computed_at"`
}

// SentimentLabel maps the sentiment index to its fear/greed band.
func (m *MarketSummary) SentimentLabel() string {
	switch {
	case m.SentimentIndex <= 25:
		return "Extreme Fear"
	case m.SentimentIndex <= 45:
		return "Fear"
	case m.SentimentIndex <= 55:
		return "Neutral"
	case m.SentimentIndex <= 75:
		return "Greed"
	default:
		return "Extreme Greed"
	}
}

// SentimentColor returns the display color for the sentiment band.
func (m *MarketSummary) SentimentColor() string {
	switch {
	case m.SentimentIndex <= 25:
		return "#ef4444" // Red
	case m.SentimentIndex <= 45:
		return "#f97316" // Orange
	case m.SentimentIndex <= 55:
		return "#eab308" // Yellow
	case m.SentimentIndex <= 75:
		return "#22c55e" // Green
	default:
		return "#10b981" // Dark Green
	}
}
