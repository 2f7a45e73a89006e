package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/infra"
	"cryptodesk/internal/journal"
	"cryptodesk/internal/ledger"
)

// Delays bounds the randomized settlement delay per flow.
type Delays struct {
	DepositMin  time.Duration
	DepositMax  time.Duration
	WithdrawMin time.Duration
	WithdrawMax time.Duration
	TradeMin    time.Duration
	TradeMax    time.Duration
}

// DefaultDelays mirrors the simulated confirmation windows: deposits
// 30-60s, withdrawals 10-30s, trades 2-5s.
func DefaultDelays() Delays {
	return Delays{
		DepositMin:  30 * time.Second,
		DepositMax:  60 * time.Second,
		WithdrawMin: 10 * time.Second,
		WithdrawMax: 30 * time.Second,
		TradeMin:    2 * time.Second,
		TradeMax:    5 * time.Second,
	}
}

// Engine orchestrates order lifecycles: it validates preconditions,
// records the pending transaction, applies the synchronous reservation
// for reserve-first flows, and schedules the asynchronous settlement
// that applies the final balance effect.
//
// Two flow shapes exist. Credit-first (deposit, buy): no balance change
// until settlement credits available. Reserve-first (sell, withdrawal):
// available is debited into in-orders at acceptance, and settlement only
// clears the reservation — the funds have left custody. All validation
// errors are raised before any mutation, so a rejected request leaves no
// trace.
type Engine struct {
	ledger  *ledger.Ledger
	journal *journal.Journal
	clock   Clock
	delays  Delays
	metrics *infra.Metrics
	logger  *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NewEngine wires the engine to its collaborators. clock may be nil for
// the system clock; rng may be nil for a time-seeded source.
func NewEngine(l *ledger.Ledger, j *journal.Journal, clock Clock, delays Delays, rng *rand.Rand, metrics *infra.Metrics, logger *slog.Logger) *Engine {
	if clock == nil {
		clock = NewRealClock()
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	// The journal stamps ExecutedAt itself; share the engine's clock so
	// settlement timestamps follow simulated time under a manual clock.
	j.UseClock(clock.Now)
	return &Engine{
		ledger:  l,
		journal: j,
		clock:   clock,
		delays:  delays,
		metrics: metrics,
		logger:  logger,
		rng:     rng,
	}
}

// CreateDeposit accepts a deposit request. The funds do not exist in the
// ledger until the simulated confirmation settles.
func (e *Engine) CreateDeposit(symbol string, amount decimal.Decimal, fromAddress string) (domain.Transaction, error) {
	if err := e.validateAmount(amount); err != nil {
		return domain.Transaction{}, err
	}
	if err := e.validateSymbol(symbol); err != nil {
		return domain.Transaction{}, err
	}

	tx, err := e.journal.Record(domain.Transaction{
		Type:        domain.TxTypeDeposit,
		Symbol:      symbol,
		Amount:      amount,
		Price:       decimal.Zero,
		Total:       decimal.Zero,
		Fee:         decimal.Zero,
		Timestamp:   e.clock.Now(),
		FromAddress: fromAddress,
		Description: fmt.Sprintf("Deposit %s %s", amount, symbol),
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	e.accept(tx, e.delays.DepositMin, e.delays.DepositMax, func() error {
		return e.ledger.Credit(symbol, amount)
	})
	return tx, nil
}

// CreateWithdrawal accepts a withdrawal request, locking the funds
// immediately while the withdrawal is in flight.
func (e *Engine) CreateWithdrawal(symbol string, amount decimal.Decimal, toAddress string) (domain.Transaction, error) {
	if err := e.validateAmount(amount); err != nil {
		return domain.Transaction{}, err
	}

	// Check-and-reserve is one atomic ledger step: competing requests
	// can never both pass the availability check. Funds stay locked
	// while the withdrawal is in flight.
	if err := e.tryReserve(symbol, amount); err != nil {
		return domain.Transaction{}, err
	}

	tx, err := e.journal.Record(domain.Transaction{
		Type:        domain.TxTypeWithdrawal,
		Symbol:      symbol,
		Amount:      amount,
		Price:       decimal.Zero,
		Total:       amount,
		Fee:         WithdrawalFee(symbol, amount),
		Timestamp:   e.clock.Now(),
		ToAddress:   toAddress,
		Description: fmt.Sprintf("Withdraw %s %s to %s", amount, symbol, toAddress),
	})
	if err != nil {
		_ = e.ledger.Release(symbol, amount)
		return domain.Transaction{}, err
	}

	e.accept(tx, e.delays.WithdrawMin, e.delays.WithdrawMax, func() error {
		return e.ledger.Release(symbol, amount)
	})
	return tx, nil
}

// CreateBuyOrder accepts a buy at the caller-chosen price. This is a
// direct self-trade against the simulated feed; there is no order book
// and no matching.
func (e *Engine) CreateBuyOrder(symbol string, amount, price decimal.Decimal) (domain.Transaction, error) {
	if err := e.validateAmount(amount); err != nil {
		return domain.Transaction{}, err
	}
	if err := e.validatePrice(price); err != nil {
		return domain.Transaction{}, err
	}
	if err := e.validateSymbol(symbol); err != nil {
		return domain.Transaction{}, err
	}

	total := amount.Mul(price)
	tx, err := e.journal.Record(domain.Transaction{
		Type:        domain.TxTypeBuy,
		Symbol:      symbol,
		Amount:      amount,
		Price:       price,
		Total:       total,
		Fee:         TradingFee(total),
		Timestamp:   e.clock.Now(),
		Description: fmt.Sprintf("Buy %s %s at $%s", amount, symbol, price),
	})
	if err != nil {
		return domain.Transaction{}, err
	}

	e.accept(tx, e.delays.TradeMin, e.delays.TradeMax, func() error {
		return e.ledger.Credit(symbol, amount)
	})
	return tx, nil
}

// CreateSellOrder accepts a sell at the caller-chosen price, locking the
// sold amount immediately.
func (e *Engine) CreateSellOrder(symbol string, amount, price decimal.Decimal) (domain.Transaction, error) {
	if err := e.validateAmount(amount); err != nil {
		return domain.Transaction{}, err
	}
	if err := e.validatePrice(price); err != nil {
		return domain.Transaction{}, err
	}
	if err := e.tryReserve(symbol, amount); err != nil {
		return domain.Transaction{}, err
	}

	total := amount.Mul(price)
	tx, err := e.journal.Record(domain.Transaction{
		Type:        domain.TxTypeSell,
		Symbol:      symbol,
		Amount:      amount,
		Price:       price,
		Total:       total,
		Fee:         TradingFee(total),
		Timestamp:   e.clock.Now(),
		Description: fmt.Sprintf("Sell %s %s at $%s", amount, symbol, price),
	})
	if err != nil {
		_ = e.ledger.Release(symbol, amount)
		return domain.Transaction{}, err
	}

	e.accept(tx, e.delays.TradeMin, e.delays.TradeMax, func() error {
		return e.ledger.Release(symbol, amount)
	})
	return tx, nil
}

// GetWithdrawalFee quotes the network fee without creating a request.
func (e *Engine) GetWithdrawalFee(symbol string, amount decimal.Decimal) decimal.Decimal {
	return WithdrawalFee(symbol, amount)
}

// accept schedules the settlement task for an accepted transaction.
// Settlement applies the final balance effect and moves the transaction
// to completed; if the effect fails the transaction is marked failed
// instead (unreachable with validated symbols, but never silent).
func (e *Engine) accept(tx domain.Transaction, min, max time.Duration, effect func() error) {
	if e.metrics != nil {
		e.metrics.RecordOrderAccepted()
	}
	acceptedAt := e.clock.Now()
	delay := e.settleDelay(min, max)

	e.clock.AfterFunc(delay, func() {
		status := domain.TxStatusCompleted
		if err := effect(); err != nil {
			e.logger.Error("settlement effect failed",
				slog.String("id", tx.ID), slog.Any("error", err))
			status = domain.TxStatusFailed
		}
		if _, err := e.journal.Transition(tx.ID, status); err != nil {
			e.logger.Error("settlement transition failed",
				slog.String("id", tx.ID), slog.Any("error", err))
			return
		}
		if e.metrics != nil {
			e.metrics.RecordOrderSettled(e.clock.Now().Sub(acceptedAt))
		}
		e.logger.Info("transaction settled",
			slog.String("id", tx.ID),
			slog.String("type", tx.Type),
			slog.String("symbol", tx.Symbol),
			slog.String("status", status))
	})
}

func (e *Engine) settleDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return min + time.Duration(e.rng.Int63n(int64(max-min)))
}

func (e *Engine) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		if e.metrics != nil {
			e.metrics.RecordOrderRejected()
		}
		return &domain.ValidationError{Field: "amount", Err: domain.ErrInvalidAmount}
	}
	return nil
}

func (e *Engine) validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		if e.metrics != nil {
			e.metrics.RecordOrderRejected()
		}
		return &domain.ValidationError{Field: "price", Err: domain.ErrInvalidPrice}
	}
	return nil
}

func (e *Engine) validateSymbol(symbol string) error {
	if _, ok := e.ledger.Get(symbol); !ok {
		if e.metrics != nil {
			e.metrics.RecordOrderRejected()
		}
		return domain.ErrUnknownSymbol
	}
	return nil
}

// tryReserve delegates the availability check plus reservation to the
// ledger as one atomic step.
func (e *Engine) tryReserve(symbol string, amount decimal.Decimal) error {
	if err := e.ledger.TryReserve(symbol, amount); err != nil {
		if e.metrics != nil {
			e.metrics.RecordOrderRejected()
		}
		return err
	}
	return nil
}
