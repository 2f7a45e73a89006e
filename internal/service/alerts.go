package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/event"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/infra"
)

// AlertEvent is published when a configured price alert triggers.
type AlertEvent struct {
	Symbol      string          `json:"symbol"`
	TargetPrice decimal.Decimal `json:"target"`
	Price       decimal.Decimal `json:"price"`
	Direction   string          `json:"direction"`
	FiredAt     time.Time       `json:"fired_at"`
}

// AlertWatcher evaluates price alerts against each feed tick. One-shot
// alerts deactivate after firing; persistent alerts keep firing while
// the condition holds.
type AlertWatcher struct {
	mu      sync.Mutex
	feed    *feed.Feed
	alerts  []*domain.AlertConfig
	hub     *event.Hub[AlertEvent]
	metrics *infra.Metrics
	logger  *slog.Logger
}

// NewAlertWatcher creates a watcher over the feed.
func NewAlertWatcher(f *feed.Feed, metrics *infra.Metrics, logger *slog.Logger) *AlertWatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertWatcher{
		feed:    f,
		hub:     event.NewHub[AlertEvent](),
		metrics: metrics,
		logger:  logger,
	}
}

// Add registers an alert.
func (w *AlertWatcher) Add(alert *domain.AlertConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.alerts = append(w.alerts, alert)
}

// Alerts returns a copy of the registered alert list.
func (w *AlertWatcher) Alerts() []domain.AlertConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.AlertConfig, 0, len(w.alerts))
	for _, a := range w.alerts {
		out = append(out, *a)
	}
	return out
}

// Start evaluates alerts on every feed tick until ctx is cancelled.
func (w *AlertWatcher) Start(ctx context.Context) {
	quoteCh, cancel := w.feed.Updates().Subscribe(1)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				w.logger.Info("alert watcher stopped")
				return
			case env := <-quoteCh:
				w.Evaluate(env.Payload)
			}
		}
	}()
}

// Evaluate checks every active alert against the quote snapshot.
// Exported so tests can drive evaluation without the feed loop.
func (w *AlertWatcher) Evaluate(quotes []domain.Quote) {
	prices := make(map[string]decimal.Decimal, len(quotes))
	for _, q := range quotes {
		prices[q.Symbol] = q.Price
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for _, alert := range w.alerts {
		price, ok := prices[alert.Symbol]
		if !ok || !alert.CheckCondition(price) {
			continue
		}

		if !alert.IsPersistent {
			alert.SetActive(false)
		}
		if w.metrics != nil {
			w.metrics.RecordAlertFired()
		}
		w.hub.Publish(AlertEvent{
			Symbol:      alert.Symbol,
			TargetPrice: alert.TargetPrice,
			Price:       price,
			Direction:   alert.Direction,
			FiredAt:     time.Now(),
		})
		w.logger.Info("price alert fired",
			slog.String("symbol", alert.Symbol),
			slog.String("target", alert.TargetPrice.String()),
			slog.String("price", price.String()))
	}
}

// Updates exposes the alert event stream for subscribers.
func (w *AlertWatcher) Updates() *event.Hub[AlertEvent] {
	return w.hub
}
