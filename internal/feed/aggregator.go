package feed

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/event"
	"cryptodesk/internal/infra"
)

// dominanceSymbol is the quote whose market cap share the aggregator reports.
const dominanceSymbol = "BTC"

// Aggregator derives market-wide statistics from the current quote set.
// It runs on its own timer, decoupled from the price-tick timer.
type Aggregator struct {
	mu      sync.Mutex
	feed    *Feed
	rng     *rand.Rand
	now     func() time.Time
	hub     *event.Hub[domain.MarketSummary]
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewAggregator creates an aggregator over the feed's quote set.
func NewAggregator(feed *Feed, rng *rand.Rand, metrics *infra.Metrics, logger *slog.Logger) *Aggregator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		feed:    feed,
		rng:     rng,
		now:     time.Now,
		hub:     event.NewHub[domain.MarketSummary](),
		metrics: metrics,
		logger:  logger,
	}
}

// Start runs the aggregation loop until ctx is cancelled. An initial
// summary is computed immediately so subscribers never observe zeroes.
func (a *Aggregator) Start(ctx context.Context, interval time.Duration) {
	a.Recompute()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				a.logger.Info("market aggregator stopped")
				return
			case <-ticker.C:
				a.Recompute()
			}
		}
	}()
	a.logger.Info("market aggregator started", slog.Duration("interval", interval))
}

// Recompute derives a fresh summary from the current quotes and
// publishes it. Exported so tests can drive aggregation directly.
func (a *Aggregator) Recompute() domain.MarketSummary {
	quotes := a.feed.Snapshot()

	totalCap := decimal.Zero
	totalVolume := decimal.Zero
	btcCap := decimal.Zero
	for _, q := range quotes {
		totalCap = totalCap.Add(q.MarketCap)
		totalVolume = totalVolume.Add(q.Volume24h)
		if q.Symbol == dominanceSymbol {
			btcCap = q.MarketCap
		}
	}

	dominance := decimal.Zero
	if totalCap.IsPositive() {
		dominance = btcCap.Div(totalCap).Mul(decimal.NewFromInt(100))
	}

	a.mu.Lock()
	sentiment := a.rng.Intn(100)
	a.mu.Unlock()

	summary := domain.MarketSummary{
		TotalMarketCap: totalCap,
		TotalVolume24h: totalVolume,
		BTCDominance:   dominance,
		SentimentIndex: sentiment,
		ComputedAt:     a.now(),
	}

	if a.metrics != nil {
		a.metrics.RecordAggregation()
	}
	a.hub.Publish(summary)
	return summary
}

// Updates exposes the summary stream for subscribers.
func (a *Aggregator) Updates() *event.Hub[domain.MarketSummary] {
	return a.hub
}

// Summary returns the most recently published summary, computing one if
// the aggregator has not run yet.
func (a *Aggregator) Summary() domain.MarketSummary {
	if env, ok := a.hub.Latest(); ok {
		return env.Payload
	}
	return a.Recompute()
}
