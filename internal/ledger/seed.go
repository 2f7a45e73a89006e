package ledger

import (
	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
)

// DefaultBalances returns the demo holdings the wallet starts with when
// no persisted snapshot exists. Available equals amount; nothing is
// reserved at rest.
func DefaultBalances() []domain.Balance {
	seed := []struct {
		symbol string
		amount string
	}{
		{"BTC", "0.54321"},
		{"ETH", "12.5"},
		{"ADA", "2500"},
		{"DOT", "150"},
		{"SOL", "25"},
		{"LINK", "75"},
	}

	out := make([]domain.Balance, 0, len(seed))
	for _, s := range seed {
		amount := decimal.RequireFromString(s.amount)
		out = append(out, domain.Balance{
			Symbol:    s.symbol,
			Amount:    amount,
			Available: amount,
			InOrders:  decimal.Zero,
		})
	}
	return out
}
