package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AllocationPalette is the fixed color cycle for allocation slices.
var AllocationPalette = [...]string{
	"#3b82f6", // Blue
	"#ef4444", // Red
	"#10b981", // Green
	"#f59e0b", // Yellow
	"#8b5cf6", // Purple
	"#06b6d4", // Cyan
	"#f97316", // Orange
	"#84cc16", // Lime
	"#ec4899", // Pink
	"#6b7280", // Gray
}

// AllocationSlice is one asset's share of the portfolio value. Only
// balances with positive USD value produce a slice.
type AllocationSlice struct {
	Symbol     string          `json:"symbol"`
	Percentage decimal.Decimal `json:"percentage"`
	Value      decimal.Decimal `json:"value"`
	Color      string          `json:"color"`
}

// Portfolio is a pure projection of the balance set joined with the
// quote set. It is never stored; recompute on every input change.
type Portfolio struct {
	TotalValue            decimal.Decimal   `json:"total_value"`
	TotalChange24h        decimal.Decimal   `json:"total_change_24h"`
	TotalChangePercent24h decimal.Decimal   `json:"total_change_percent_24h"`
	Balances              []Balance         `json:"balances"`
	Allocation            []AllocationSlice `json:"allocation"`
}

// BuildPortfolio values the balances against the quote set. A balance
// whose symbol has no quote contributes zero. Slice colors are assigned
// by position among the positive-value balances in balance-slice order
// (pre-sort), then slices are ordered by descending value.
func BuildPortfolio(balances []Balance, quotes map[string]Quote) Portfolio {
	totalValue := decimal.Zero
	totalChange := decimal.Zero

	values := make([]decimal.Decimal, len(balances))
	for i, b := range balances {
		q, ok := quotes[b.Symbol]
		if !ok {
			continue
		}
		values[i] = b.ValueUSD(q.Price)
		totalValue = totalValue.Add(values[i])
		totalChange = totalChange.Add(b.Amount.Mul(q.Change24h))
	}

	changePct := decimal.Zero
	if totalValue.IsPositive() {
		changePct = totalChange.Div(totalValue).Mul(decimal.NewFromInt(100))
	}

	// Colors index the filtered sequence: zero-value balances do not
	// consume a palette slot.
	allocation := make([]AllocationSlice, 0, len(balances))
	for i, b := range balances {
		if !values[i].IsPositive() {
			continue
		}
		pct := decimal.Zero
		if totalValue.IsPositive() {
			pct = values[i].Div(totalValue).Mul(decimal.NewFromInt(100))
		}
		allocation = append(allocation, AllocationSlice{
			Symbol:     b.Symbol,
			Percentage: pct,
			Value:      values[i],
			Color:      AllocationPalette[len(allocation)%len(AllocationPalette)],
		})
	}

	// Largest holdings first; colors were fixed above.
	sort.SliceStable(allocation, func(i, j int) bool {
		return allocation[i].Value.GreaterThan(allocation[j].Value)
	})

	return Portfolio{
		TotalValue:            totalValue,
		TotalChange24h:        totalChange,
		TotalChangePercent24h: changePct,
		Balances:              balances,
		Allocation:            allocation,
	}
}
