package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one journal record. Identity and core fields are
// immutable after creation; only Status and ExecutedAt change, exactly
// once, when the record reaches a terminal status.
type Transaction struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`   // "deposit", "withdrawal", "buy", "sell", "transfer"
	Symbol      string            `json:"symbol"`
	Amount      decimal.Decimal   `json:"amount"`
	Price       decimal.Decimal   `json:"price"`
	Total       decimal.Decimal   `json:"total"`
	Fee         decimal.Decimal   `json:"fee"`
	Status      string            `json:"status"` // "pending", "completed", "failed", "cancelled"
	Timestamp   time.Time         `json:"timestamp"`
	ExecutedAt  *time.Time        `json:"executed_at,omitempty"`
	TxHash      string            `json:"tx_hash,omitempty"`
	FromAddress string            `json:"from_address,omitempty"`
	ToAddress   string            `json:"to_address,omitempty"`
	Description string            `json:"description"`
}

const (
	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
	TxTypeBuy        = "buy"
	TxTypeSell       = "sell"
	TxTypeTransfer   = "transfer"

	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusFailed    = "failed"
	TxStatusCancelled = "cancelled"
)

// IsTerminal reports whether the transaction has reached a final status.
func (t *Transaction) IsTerminal() bool {
	return IsTerminalStatus(t.Status)
}

// IsTerminalStatus reports whether s is a valid terminal status.
func IsTerminalStatus(s string) bool {
	return s == TxStatusCompleted || s == TxStatusFailed || s == TxStatusCancelled
}

// ValidTransactionType reports whether t is a known transaction type.
func ValidTransactionType(t string) bool {
	switch t {
	case TxTypeDeposit, TxTypeWithdrawal, TxTypeBuy, TxTypeSell, TxTypeTransfer:
		return true
	}
	return false
}

// StatusColor returns the display color for a transaction status.
func StatusColor(status string) string {
	switch status {
	case TxStatusCompleted:
		return "#10b981" // Green
	case TxStatusPending:
		return "#f59e0b" // Yellow
	case TxStatusFailed:
		return "#ef4444" // Red
	default:
		return "#6b7280" // Gray
	}
}
