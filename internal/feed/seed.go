package feed

import (
	"time"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
)

// DefaultQuotes returns the fixed quote set the simulation starts from.
// Symbols are never listed or delisted after startup.
func DefaultQuotes() []domain.Quote {
	now := time.Now()
	return []domain.Quote{
		{
			Symbol:           "BTC",
			Name:             "Bitcoin",
			Price:            decimal.RequireFromString("43250.75"),
			Change24h:        decimal.RequireFromString("1250.30"),
			ChangePercent24h: decimal.RequireFromString("2.98"),
			Volume24h:        decimal.NewFromInt(28500000000),
			MarketCap:        decimal.NewFromInt(845200000000),
			LastUpdated:      now,
		},
		{
			Symbol:           "ETH",
			Name:             "Ethereum",
			Price:            decimal.RequireFromString("2650.45"),
			Change24h:        decimal.RequireFromString("-85.20"),
			ChangePercent24h: decimal.RequireFromString("-3.11"),
			Volume24h:        decimal.NewFromInt(12300000000),
			MarketCap:        decimal.NewFromInt(318700000000),
			LastUpdated:      now,
		},
		{
			Symbol:           "ADA",
			Name:             "Cardano",
			Price:            decimal.RequireFromString("0.45"),
			Change24h:        decimal.RequireFromString("0.02"),
			ChangePercent24h: decimal.RequireFromString("4.65"),
			Volume24h:        decimal.NewFromInt(1200000000),
			MarketCap:        decimal.NewFromInt(15800000000),
			LastUpdated:      now,
		},
		{
			Symbol:           "DOT",
			Name:             "Polkadot",
			Price:            decimal.RequireFromString("6.85"),
			Change24h:        decimal.RequireFromString("0.35"),
			ChangePercent24h: decimal.RequireFromString("5.38"),
			Volume24h:        decimal.NewFromInt(890000000),
			MarketCap:        decimal.NewFromInt(8900000000),
			LastUpdated:      now,
		},
		{
			Symbol:           "SOL",
			Name:             "Solana",
			Price:            decimal.RequireFromString("98.32"),
			Change24h:        decimal.RequireFromString("5.67"),
			ChangePercent24h: decimal.RequireFromString("6.12"),
			Volume24h:        decimal.NewFromInt(3200000000),
			MarketCap:        decimal.NewFromInt(45200000000),
			LastUpdated:      now,
		},
		{
			Symbol:           "LINK",
			Name:             "Chainlink",
			Price:            decimal.RequireFromString("14.85"),
			Change24h:        decimal.RequireFromString("-0.45"),
			ChangePercent24h: decimal.RequireFromString("-2.94"),
			Volume24h:        decimal.NewFromInt(780000000),
			MarketCap:        decimal.NewFromInt(8900000000),
			LastUpdated:      now,
		},
	}
}
