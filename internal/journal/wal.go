package journal

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/vadiminshakov/gowal"

	"cryptodesk/internal/domain"
)

const (
	segmentLimit = 1000
	maxSegments  = 10

	txKeyPrefix = "txn_"
)

// WAL persists journal records durably. Each Record and each Transition
// appends the full transaction; replay keeps the latest entry per id.
type WAL struct {
	wal *gowal.Wal
	mu  sync.Mutex
}

// NewWAL opens (or creates) a WAL in dir.
func NewWAL(dir string) (*WAL, error) {
	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "journal_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, fmt.Errorf("init journal WAL: %w", err)
	}
	return &WAL{wal: wal}, nil
}

// Append writes the transaction's current state.
func (w *WAL) Append(tx domain.Transaction) error {
	if tx.ID == "" {
		return fmt.Errorf("transaction id is required")
	}

	payload, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	nextIndex := w.wal.CurrentIndex() + 1
	return w.wal.Write(nextIndex, txKeyPrefix+tx.ID, payload)
}

// Replay reads every entry and returns the latest state per transaction,
// most recent first.
func (w *WAL) Replay() ([]domain.Transaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	latest := make(map[string]domain.Transaction)
	current := w.wal.CurrentIndex()
	for idx := uint64(1); idx <= current; idx++ {
		key, payload, err := w.wal.Get(idx)
		if err != nil {
			continue
		}
		if len(key) <= len(txKeyPrefix) || key[:len(txKeyPrefix)] != txKeyPrefix {
			continue
		}

		var tx domain.Transaction
		if err := json.Unmarshal(payload, &tx); err != nil {
			return nil, fmt.Errorf("decode transaction %s: %w", key, err)
		}
		latest[tx.ID] = tx
	}

	out := make([]domain.Transaction, 0, len(latest))
	for _, tx := range latest {
		out = append(out, tx)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Timestamp.After(out[b].Timestamp)
	})
	return out, nil
}

// Close closes the underlying WAL.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.wal.Close()
}
