package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount is returned when a requested amount is not strictly positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidPrice is returned when a buy/sell price is not strictly positive.
	ErrInvalidPrice = errors.New("price must be positive")

	// ErrInsufficientBalance is returned when a sell or withdrawal exceeds
	// the available (spendable) balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrUnknownSymbol is returned for a symbol outside the supported set.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrTerminalStatus is returned when transitioning a transaction that
	// already reached a terminal status.
	ErrTerminalStatus = errors.New("transaction already terminal")

	// ErrTransactionNotFound is returned for an unknown transaction id.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// ValidationError describes a rejected input. Always raised before any
// state mutation, so rejection is atomic and needs no rollback.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return "validation failed [" + e.Field + "]: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// InsufficientBalanceError carries the shortfall details.
type InsufficientBalanceError struct {
	Symbol    string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance: requested %s, available %s",
		e.Symbol, e.Requested, e.Available)
}

func (e *InsufficientBalanceError) Is(target error) bool {
	return target == ErrInsufficientBalance
}
