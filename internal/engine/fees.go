package engine

import "github.com/shopspring/decimal"

// tradingFeeRate is the flat 0.1% fee charged on buy/sell notional.
var tradingFeeRate = decimal.RequireFromString("0.001")

// withdrawalFees holds per-network flat fees. Symbols outside the table
// fall back to 0.1% of the withdrawn amount.
var withdrawalFees = map[string]decimal.Decimal{
	"BTC":  decimal.RequireFromString("0.0005"),
	"ETH":  decimal.RequireFromString("0.005"),
	"ADA":  decimal.RequireFromString("1"),
	"DOT":  decimal.RequireFromString("0.1"),
	"SOL":  decimal.RequireFromString("0.01"),
	"LINK": decimal.RequireFromString("5"),
}

// TradingFee returns the fee for a trade with the given notional total.
func TradingFee(total decimal.Decimal) decimal.Decimal {
	return total.Mul(tradingFeeRate)
}

// WithdrawalFee returns the network fee for withdrawing amount of symbol.
func WithdrawalFee(symbol string, amount decimal.Decimal) decimal.Decimal {
	if fee, ok := withdrawalFees[symbol]; ok {
		return fee
	}
	return amount.Mul(tradingFeeRate)
}
