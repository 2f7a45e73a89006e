package ledger

import (
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/event"
)

// Ledger is the unit of truth for what the user owns. One Balance per
// supported symbol, created at initialization and never removed. All
// read-modify-write sequences take the mutex so no operation is ever
// observed half-applied.
//
// The ledger only clamps individual fields at zero; it does not
// reconcile amount == available + inOrders on behalf of callers. Every
// Reserve must be paired with an eventual Release by the lifecycle
// engine.
type Ledger struct {
	mu       sync.RWMutex
	balances map[string]*domain.Balance
	order    []string // initialization order, preserved in snapshots
	hub      *event.Hub[[]domain.Balance]
	logger   *slog.Logger
}

// NewLedger creates a ledger holding the given balances.
func NewLedger(seed []domain.Balance, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Ledger{
		balances: make(map[string]*domain.Balance, len(seed)),
		order:    make([]string, 0, len(seed)),
		hub:      event.NewHub[[]domain.Balance](),
		logger:   logger,
	}
	for i := range seed {
		b := seed[i]
		l.balances[b.Symbol] = &b
		l.order = append(l.order, b.Symbol)
	}
	return l
}

// Reserve atomically moves amount from available to in-orders for an
// accepted sell or withdrawal. Fields clamp at zero individually.
func (l *Ledger) Reserve(symbol string, amount decimal.Decimal) error {
	l.mu.Lock()
	b, ok := l.balances[symbol]
	if !ok {
		l.mu.Unlock()
		return domain.ErrUnknownSymbol
	}
	b.Reserve(amount)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snapshot)
	return nil
}

// TryReserve verifies sufficient available funds and reserves under one
// lock acquisition, so two competing reservations can never both pass
// the check. Returns InsufficientBalanceError when available < amount.
func (l *Ledger) TryReserve(symbol string, amount decimal.Decimal) error {
	l.mu.Lock()
	b, ok := l.balances[symbol]
	if !ok {
		l.mu.Unlock()
		return domain.ErrUnknownSymbol
	}
	if b.Available.LessThan(amount) {
		available := b.Available
		l.mu.Unlock()
		return &domain.InsufficientBalanceError{
			Symbol:    symbol,
			Requested: amount,
			Available: available,
		}
	}
	b.Reserve(amount)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snapshot)
	return nil
}

// Release atomically clears amount from in-orders after settlement or
// cancellation. Available is not re-credited.
func (l *Ledger) Release(symbol string, amount decimal.Decimal) error {
	l.mu.Lock()
	b, ok := l.balances[symbol]
	if !ok {
		l.mu.Unlock()
		return domain.ErrUnknownSymbol
	}
	b.Release(amount)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snapshot)
	return nil
}

// Credit atomically increases available for a confirmed deposit or buy.
func (l *Ledger) Credit(symbol string, amount decimal.Decimal) error {
	l.mu.Lock()
	b, ok := l.balances[symbol]
	if !ok {
		l.mu.Unlock()
		return domain.ErrUnknownSymbol
	}
	b.Credit(amount)
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snapshot)
	return nil
}

// Get returns a copy of one balance.
func (l *Ledger) Get(symbol string) (domain.Balance, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.balances[symbol]
	if !ok {
		return domain.Balance{}, false
	}
	return *b, true
}

// Snapshot returns a copy of all balances in initialization order.
func (l *Ledger) Snapshot() []domain.Balance {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() []domain.Balance {
	out := make([]domain.Balance, 0, len(l.order))
	for _, sym := range l.order {
		out = append(out, *l.balances[sym])
	}
	return out
}

// Restore replaces the ledger state wholesale from a persisted snapshot.
func (l *Ledger) Restore(balances []domain.Balance) {
	l.mu.Lock()
	l.balances = make(map[string]*domain.Balance, len(balances))
	l.order = l.order[:0]
	for i := range balances {
		b := balances[i]
		l.balances[b.Symbol] = &b
		l.order = append(l.order, b.Symbol)
	}
	snapshot := l.snapshotLocked()
	l.mu.Unlock()

	l.hub.Publish(snapshot)
	l.logger.Info("ledger restored", slog.Int("balances", len(balances)))
}

// Updates exposes the balance snapshot stream for subscribers.
func (l *Ledger) Updates() *event.Hub[[]domain.Balance] {
	return l.hub
}
