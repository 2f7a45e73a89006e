// Package format renders monetary and percentage values for display.
package format

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
	thousand = decimal.New(1, 3)
)

// Currency renders a USD amount with a magnitude suffix for large values.
func Currency(amount decimal.Decimal) string {
	switch {
	case amount.GreaterThanOrEqual(trillion):
		return fmt.Sprintf("$%sT", amount.Div(trillion).StringFixed(2))
	case amount.GreaterThanOrEqual(billion):
		return fmt.Sprintf("$%sB", amount.Div(billion).StringFixed(2))
	case amount.GreaterThanOrEqual(million):
		return fmt.Sprintf("$%sM", amount.Div(million).StringFixed(2))
	case amount.GreaterThanOrEqual(thousand):
		return fmt.Sprintf("$%sK", amount.Div(thousand).StringFixed(2))
	}
	return fmt.Sprintf("$%s", amount.StringFixed(2))
}

// Crypto renders an asset quantity with its symbol. Small quantities keep
// six decimal places.
func Crypto(amount decimal.Decimal, symbol string) string {
	switch {
	case amount.GreaterThanOrEqual(million):
		return fmt.Sprintf("%sM %s", amount.Div(million).StringFixed(2), symbol)
	case amount.GreaterThanOrEqual(thousand):
		return fmt.Sprintf("%sK %s", amount.Div(thousand).StringFixed(2), symbol)
	}
	return fmt.Sprintf("%s %s", amount.StringFixed(6), symbol)
}

// Percentage renders a signed percentage with two decimal places.
func Percentage(value decimal.Decimal) string {
	if value.IsNegative() {
		return fmt.Sprintf("%s%%", value.StringFixed(2))
	}
	return fmt.Sprintf("+%s%%", value.StringFixed(2))
}
