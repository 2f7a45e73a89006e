package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Balance represents one asset's holdings, split into a spendable and a
// reserved (in-orders) portion. Created once per supported symbol at
// wallet initialization and never removed; mutated only through the
// ledger's reservation/release primitives.
//
// Amount is deliberately not adjusted when reserved funds leave custody
// on sell/withdrawal settlement; only Available and InOrders move. See
// CheckInvariant.
type Balance struct {
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	Available decimal.Decimal `json:"available"`
	InOrders  decimal.Decimal `json:"in_orders"`
}

// Reserve moves funds from spendable to locked for an in-flight order.
// Both fields are clamped at zero individually; the balance never
// auto-reconciles a caller that over-reserves.
func (b *Balance) Reserve(amount decimal.Decimal) {
	b.Available = clampZero(b.Available.Sub(amount))
	b.InOrders = clampZero(b.InOrders.Add(amount))
}

// Release clears a reservation after settlement or cancellation. It does
// not re-credit Available: reserved funds have left custody.
func (b *Balance) Release(amount decimal.Decimal) {
	b.InOrders = clampZero(b.InOrders.Sub(amount))
}

// Credit adds confirmed funds to the spendable portion.
func (b *Balance) Credit(amount decimal.Decimal) {
	b.Available = b.Available.Add(amount)
}

// ValueUSD returns the holding's value at the given unit price.
func (b *Balance) ValueUSD(price decimal.Decimal) decimal.Decimal {
	return b.Amount.Mul(price)
}

// CheckInvariant verifies amount == available + inOrders. A violation at
// rest is a programming error in the caller (an unpaired reserve), not a
// recoverable runtime state.
func (b *Balance) CheckInvariant() error {
	if !b.Amount.Equal(b.Available.Add(b.InOrders)) {
		return fmt.Errorf("balance invariant broken for %s: amount=%s available=%s in_orders=%s",
			b.Symbol, b.Amount, b.Available, b.InOrders)
	}
	return nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
