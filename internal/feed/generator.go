package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/event"
	"cryptodesk/internal/infra"
)

// priceVolatility bounds the per-tick random walk at +-2% of the
// current price.
const priceVolatility = 0.02

// Feed is the self-driving price feed generator. On each tick every
// quote gets a bounded random perturbation; the resulting snapshot is
// published to subscribers. Pure in-memory generation, cannot fail.
type Feed struct {
	mu      sync.RWMutex
	quotes  map[string]*domain.Quote
	order   []string // declaration order, used by Snapshot and Top
	rng     *rand.Rand
	now     func() time.Time
	hub     *event.Hub[[]domain.Quote]
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewFeed creates a feed over the given quote set. rng drives the
// random walk; inject a seeded source in tests for determinism.
func NewFeed(quotes []domain.Quote, rng *rand.Rand, metrics *infra.Metrics, logger *slog.Logger) *Feed {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}

	f := &Feed{
		quotes:  make(map[string]*domain.Quote, len(quotes)),
		order:   make([]string, 0, len(quotes)),
		rng:     rng,
		now:     time.Now,
		hub:     event.NewHub[[]domain.Quote](),
		metrics: metrics,
		logger:  logger,
	}
	for i := range quotes {
		q := quotes[i]
		f.quotes[q.Symbol] = &q
		f.order = append(f.order, q.Symbol)
	}
	return f
}

// Start runs the tick loop until ctx is cancelled.
func (f *Feed) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				f.logger.Info("price feed stopped")
				return
			case <-ticker.C:
				f.Tick()
			}
		}
	}()
	f.logger.Info("price feed started",
		slog.Int("symbols", len(f.order)),
		slog.Duration("interval", interval))
}

// Tick applies one perturbation round to every quote and publishes the
// new snapshot. Exported so tests can drive the feed deterministically.
func (f *Feed) Tick() {
	f.mu.Lock()
	now := f.now()
	for _, sym := range f.order {
		q := f.quotes[sym]
		q.Price = perturbPrice(q.Price, f.rng)
		q.Change24h = q.Change24h.Add(decimal.NewFromFloat((f.rng.Float64() - 0.5) * 100))
		q.ChangePercent24h = q.ChangePercent24h.Add(decimal.NewFromFloat((f.rng.Float64() - 0.5) * 2))
		q.LastUpdated = now
	}
	snapshot := f.snapshotLocked()
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.RecordFeedTick()
	}
	f.hub.Publish(snapshot)
}

// perturbPrice walks the price by at most +-priceVolatility, floored at 0.
func perturbPrice(price decimal.Decimal, rng *rand.Rand) decimal.Decimal {
	factor := (rng.Float64() - 0.5) * 2 * priceVolatility
	next := price.Add(price.Mul(decimal.NewFromFloat(factor)))
	if next.IsNegative() {
		return decimal.Zero
	}
	return next
}

// Updates exposes the snapshot stream for subscribers.
func (f *Feed) Updates() *event.Hub[[]domain.Quote] {
	return f.hub
}

// Snapshot returns a copy of all quotes in declaration order.
func (f *Feed) Snapshot() []domain.Quote {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() []domain.Quote {
	out := make([]domain.Quote, 0, len(f.order))
	for _, sym := range f.order {
		out = append(out, *f.quotes[sym])
	}
	return out
}

// QuoteMap returns the current quotes keyed by symbol.
func (f *Feed) QuoteMap() map[string]domain.Quote {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]domain.Quote, len(f.quotes))
	for sym, q := range f.quotes {
		out[sym] = *q
	}
	return out
}

// Quote returns the current quote for a symbol.
func (f *Feed) Quote(symbol string) (domain.Quote, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	q, ok := f.quotes[symbol]
	if !ok {
		return domain.Quote{}, false
	}
	return *q, true
}

// Top returns the first n quotes in declaration order. Negative n is
// treated as zero.
func (f *Feed) Top(n int) []domain.Quote {
	if n < 0 {
		n = 0
	}
	snapshot := f.Snapshot()
	if n < len(snapshot) {
		snapshot = snapshot[:n]
	}
	return snapshot
}

// Gainers returns quotes sorted by descending 24h change percent.
func (f *Feed) Gainers() []domain.Quote {
	snapshot := f.Snapshot()
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].ChangePercent24h.GreaterThan(snapshot[j].ChangePercent24h)
	})
	return snapshot
}

// Losers returns quotes sorted by ascending 24h change percent.
func (f *Feed) Losers() []domain.Quote {
	snapshot := f.Snapshot()
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].ChangePercent24h.LessThan(snapshot[j].ChangePercent24h)
	})
	return snapshot
}
