package service

import (
	"context"
	"log/slog"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/event"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/ledger"
)

// Valuation joins the balance ledger with the price feed and publishes a
// fresh portfolio projection whenever either input changes. The
// portfolio itself is never stored; every snapshot is recomputed
// wholesale from its two inputs.
type Valuation struct {
	feed   *feed.Feed
	ledger *ledger.Ledger
	hub    *event.Hub[domain.Portfolio]
	logger *slog.Logger
}

// NewValuation wires the valuation to its inputs.
func NewValuation(f *feed.Feed, l *ledger.Ledger, logger *slog.Logger) *Valuation {
	if logger == nil {
		logger = slog.Default()
	}
	return &Valuation{
		feed:   f,
		ledger: l,
		hub:    event.NewHub[domain.Portfolio](),
		logger: logger,
	}
}

// Start subscribes to both inputs and recomputes on any change until ctx
// is cancelled. An initial portfolio is published immediately.
func (v *Valuation) Start(ctx context.Context) {
	v.Recompute()

	quoteCh, cancelQuotes := v.feed.Updates().Subscribe(1)
	balanceCh, cancelBalances := v.ledger.Updates().Subscribe(1)

	go func() {
		defer cancelQuotes()
		defer cancelBalances()
		for {
			select {
			case <-ctx.Done():
				v.logger.Info("portfolio valuation stopped")
				return
			case <-quoteCh:
				v.Recompute()
			case <-balanceCh:
				v.Recompute()
			}
		}
	}()
	v.logger.Info("portfolio valuation started")
}

// Recompute builds and publishes a fresh portfolio projection.
func (v *Valuation) Recompute() domain.Portfolio {
	p := domain.BuildPortfolio(v.ledger.Snapshot(), v.feed.QuoteMap())
	v.hub.Publish(p)
	return p
}

// Portfolio returns the most recently published projection, computing
// one if the valuation has not run yet.
func (v *Valuation) Portfolio() domain.Portfolio {
	if env, ok := v.hub.Latest(); ok {
		return env.Payload
	}
	return v.Recompute()
}

// Updates exposes the portfolio stream for subscribers.
func (v *Valuation) Updates() *event.Hub[domain.Portfolio] {
	return v.hub
}
