package journal

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/event"
)

// Filter narrows a journal query. Zero values mean "no constraint".
type Filter struct {
	Type   string
	Symbol string
	Limit  int
}

// Journal is the append-only transaction log. Records are inserted at
// the head in pending state and transition exactly once to a terminal
// status; nothing is ever deleted. When a WAL is attached every record
// and transition is also appended durably.
type Journal struct {
	mu      sync.RWMutex
	entries []*domain.Transaction // most recent first
	byID    map[string]*domain.Transaction
	hub     *event.Hub[[]domain.Transaction]
	wal     *WAL
	now     func() time.Time
	logger  *slog.Logger
}

// NewJournal creates a journal. wal may be nil for a purely in-memory
// session; when present, previously written records are replayed so the
// session resumes where it left off.
func NewJournal(wal *WAL, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	j := &Journal{
		byID:   make(map[string]*domain.Transaction),
		hub:    event.NewHub[[]domain.Transaction](),
		wal:    wal,
		now:    time.Now,
		logger: logger,
	}

	if wal != nil {
		restored, err := wal.Replay()
		if err != nil {
			return nil, err
		}
		for i := range restored {
			tx := restored[i]
			j.entries = append(j.entries, &tx)
			j.byID[tx.ID] = &tx
		}
		sortByTimestampDesc(j.entries)
		if len(restored) > 0 {
			logger.Info("journal replayed", slog.Int("transactions", len(restored)))
		}
	}
	return j, nil
}

// UseClock overrides the journal's time source so record and settlement
// timestamps share one timeline with the caller's clock. Call during
// wiring, before the journal is shared across goroutines.
func (j *Journal) UseClock(now func() time.Time) {
	if now == nil {
		return
	}
	j.mu.Lock()
	j.now = now
	j.mu.Unlock()
}

// Record inserts a new transaction at the head of the journal. A unique
// id is assigned if absent, and status defaults to pending.
func (j *Journal) Record(tx domain.Transaction) (domain.Transaction, error) {
	if tx.ID == "" {
		tx.ID = "tx_" + uuid.NewString()
	}
	if tx.Status == "" {
		tx.Status = domain.TxStatusPending
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = j.now()
	}

	j.mu.Lock()
	stored := tx
	j.entries = append([]*domain.Transaction{&stored}, j.entries...)
	j.byID[stored.ID] = &stored
	snapshot := j.snapshotLocked()
	j.mu.Unlock()

	if j.wal != nil {
		if err := j.wal.Append(tx); err != nil {
			j.logger.Error("journal WAL append failed",
				slog.String("id", tx.ID), slog.Any("error", err))
		}
	}

	j.hub.Publish(snapshot)
	return tx, nil
}

// Transition moves a transaction to a terminal status exactly once.
// Transitioning an already-terminal transaction returns ErrTerminalStatus
// and changes nothing; the journal is strict here so a double settlement
// surfaces as a bug instead of passing silently.
func (j *Journal) Transition(id, newStatus string) (domain.Transaction, error) {
	if !domain.IsTerminalStatus(newStatus) {
		return domain.Transaction{}, &domain.ValidationError{
			Field: "status", Err: domain.ErrTerminalStatus,
		}
	}

	j.mu.Lock()
	tx, ok := j.byID[id]
	if !ok {
		j.mu.Unlock()
		return domain.Transaction{}, domain.ErrTransactionNotFound
	}
	if tx.IsTerminal() {
		j.mu.Unlock()
		return domain.Transaction{}, domain.ErrTerminalStatus
	}
	tx.Status = newStatus
	executed := j.now()
	tx.ExecutedAt = &executed
	updated := *tx
	snapshot := j.snapshotLocked()
	j.mu.Unlock()

	if j.wal != nil {
		if err := j.wal.Append(updated); err != nil {
			j.logger.Error("journal WAL append failed",
				slog.String("id", updated.ID), slog.Any("error", err))
		}
	}

	j.hub.Publish(snapshot)
	return updated, nil
}

// Get returns a copy of one transaction.
func (j *Journal) Get(id string) (domain.Transaction, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	tx, ok := j.byID[id]
	if !ok {
		return domain.Transaction{}, false
	}
	return *tx, true
}

// Query returns transactions sorted by timestamp descending, optionally
// filtered by type and symbol and truncated to the limit.
func (j *Journal) Query(f Filter) []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()

	out := make([]domain.Transaction, 0, len(j.entries))
	for _, tx := range j.entries {
		if f.Type != "" && tx.Type != f.Type {
			continue
		}
		if f.Symbol != "" && tx.Symbol != f.Symbol {
			continue
		}
		out = append(out, *tx)
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.After(out[b].Timestamp)
	})

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// Snapshot returns every transaction, most recent first.
func (j *Journal) Snapshot() []domain.Transaction {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.snapshotLocked()
}

func (j *Journal) snapshotLocked() []domain.Transaction {
	out := make([]domain.Transaction, 0, len(j.entries))
	for _, tx := range j.entries {
		out = append(out, *tx)
	}
	return out
}

// Updates exposes the journal snapshot stream for subscribers.
func (j *Journal) Updates() *event.Hub[[]domain.Transaction] {
	return j.hub
}

func sortByTimestampDesc(entries []*domain.Transaction) {
	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Timestamp.After(entries[b].Timestamp)
	})
}
