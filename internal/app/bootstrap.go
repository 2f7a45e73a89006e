package app

import (
	"context"
	"log/slog"
	"time"

	"cryptodesk/internal/engine"
	"cryptodesk/internal/feed"
	"cryptodesk/internal/infra"
	"cryptodesk/internal/infra/storage"
	"cryptodesk/internal/journal"
	"cryptodesk/internal/ledger"
	"cryptodesk/internal/server"
	"cryptodesk/internal/service"
)

// lastShutdownKey marks when the previous session ended, so a restart
// can log the gap it is resuming across.
const lastShutdownKey = "last_shutdown"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Metrics *infra.Metrics

	WAL     *journal.WAL
	Journal *journal.Journal
	Ledger  *ledger.Ledger

	Feed       *feed.Feed
	Aggregator *feed.Aggregator
	Engine     *engine.Engine
	Valuation  *service.Valuation
	Alerts     *service.AlertWatcher
	Addresses  *service.AddressBook

	Server *server.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, DB, WAL,
// components). Nothing is running yet when it returns.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping CryptoDesk...")

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	if last, err := store.GetConfig(lastShutdownKey); err != nil {
		slog.Warn("Failed to read last session marker", slog.Any("error", err))
	} else if last != "" {
		slog.Info("Resuming session", slog.String("previous_shutdown", last))
	}

	// 4. Transaction journal over the WAL
	wal, err := journal.NewWAL(cfg.Storage.WALDir)
	if err != nil {
		return err
	}
	b.WAL = wal

	j, err := journal.NewJournal(wal, logger)
	if err != nil {
		return err
	}
	b.Journal = j
	slog.Info("✅ Transaction journal ready")

	// 5. Ledger, restored from the last snapshot if one exists
	balances, err := store.LoadBalances()
	if err != nil {
		return err
	}
	if balances == nil {
		balances = ledger.DefaultBalances()
		slog.Info("No balance snapshot found, seeding demo holdings")
	} else {
		slog.Info("Restored balance snapshot", slog.Int("symbols", len(balances)))
	}
	b.Ledger = ledger.NewLedger(balances, logger)

	// 6. Market data and derived views
	b.Metrics = infra.NewMetrics()
	b.Feed = feed.NewFeed(feed.DefaultQuotes(), nil, b.Metrics, logger)
	b.Aggregator = feed.NewAggregator(b.Feed, nil, b.Metrics, logger)
	b.Valuation = service.NewValuation(b.Feed, b.Ledger, logger)
	b.Alerts = service.NewAlertWatcher(b.Feed, b.Metrics, logger)
	b.Addresses = service.NewAddressBook(service.DefaultAddresses())

	// 7. Order lifecycle engine
	b.Engine = engine.NewEngine(b.Ledger, b.Journal, nil, b.delays(), nil, b.Metrics, logger)

	// 8. HTTP/WebSocket front
	b.Server = server.NewServer(cfg.Server.Addr, server.Deps{
		Feed:       b.Feed,
		Aggregator: b.Aggregator,
		Ledger:     b.Ledger,
		Journal:    b.Journal,
		Engine:     b.Engine,
		Valuation:  b.Valuation,
		Addresses:  b.Addresses,
		Alerts:     b.Alerts,
		Metrics:    b.Metrics,
	}, logger)

	return nil
}

// Run starts the background loops and serves HTTP until ctx is
// cancelled.
func (b *Bootstrap) Run(ctx context.Context) error {
	b.Feed.Start(ctx, b.Config.PriceInterval())
	b.Aggregator.Start(ctx, b.Config.MarketInterval())
	b.Valuation.Start(ctx)
	b.Alerts.Start(ctx)

	return b.Server.Start(ctx)
}

// Shutdown persists the final balance snapshot and the session marker,
// then closes the WAL.
func (b *Bootstrap) Shutdown() {
	if b.Storage != nil && b.Ledger != nil {
		if err := b.Storage.SaveBalances(b.Ledger.Snapshot()); err != nil {
			slog.Error("Failed to save balance snapshot", slog.Any("error", err))
		} else {
			slog.Info("💾 Balance snapshot saved")
		}
	}
	if b.Storage != nil {
		if err := b.Storage.SaveConfig(lastShutdownKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
			slog.Error("Failed to save session marker", slog.Any("error", err))
		}
	}
	if b.WAL != nil {
		if err := b.WAL.Close(); err != nil {
			slog.Error("Failed to close WAL", slog.Any("error", err))
		}
	}
}

func (b *Bootstrap) delays() engine.Delays {
	s := b.Config.Settlement
	return engine.Delays{
		DepositMin:  time.Duration(s.DepositMinSec) * time.Second,
		DepositMax:  time.Duration(s.DepositMaxSec) * time.Second,
		WithdrawMin: time.Duration(s.WithdrawMinSec) * time.Second,
		WithdrawMax: time.Duration(s.WithdrawMaxSec) * time.Second,
		TradeMin:    time.Duration(s.TradeMinSec) * time.Second,
		TradeMax:    time.Duration(s.TradeMaxSec) * time.Second,
	}
}
