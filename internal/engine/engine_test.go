package engine

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
	"cryptodesk/internal/journal"
	"cryptodesk/internal/ledger"
)

func newTestEngine(t *testing.T, balances []domain.Balance) (*Engine, *ledger.Ledger, *journal.Journal, *ManualClock) {
	t.Helper()

	l := ledger.NewLedger(balances, nil)
	j, err := journal.NewJournal(nil, nil)
	if err != nil {
		t.Fatalf("NewJournal failed: %v", err)
	}
	clock := NewManualClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	e := NewEngine(l, j, clock, DefaultDelays(), rand.New(rand.NewSource(1)), nil, nil)
	return e, l, j, clock
}

func oneBTC() []domain.Balance {
	return []domain.Balance{{
		Symbol:    "BTC",
		Amount:    decimal.NewFromInt(1),
		Available: decimal.NewFromInt(1),
		InOrders:  decimal.Zero,
	}}
}

func TestEngine_SellOrderLifecycle(t *testing.T) {
	e, l, j, clock := newTestEngine(t, oneBTC())

	tx, err := e.CreateSellOrder("BTC", decimal.NewFromInt(1), decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("CreateSellOrder failed: %v", err)
	}

	t.Run("Acceptance Reserves Immediately", func(t *testing.T) {
		if tx.Status != domain.TxStatusPending {
			t.Errorf("Expected pending, got %s", tx.Status)
		}
		if !tx.Total.Equal(decimal.NewFromInt(50000)) {
			t.Errorf("Expected total 50000, got %s", tx.Total)
		}
		if !tx.Fee.Equal(decimal.NewFromInt(50)) {
			t.Errorf("Expected fee 50, got %s", tx.Fee)
		}

		b, _ := l.Get("BTC")
		if !b.Available.IsZero() {
			t.Errorf("Expected available 0, got %s", b.Available)
		}
		if !b.InOrders.Equal(decimal.NewFromInt(1)) {
			t.Errorf("Expected in_orders 1, got %s", b.InOrders)
		}
	})

	t.Run("Settlement Clears Reservation", func(t *testing.T) {
		clock.Advance(5 * time.Second)

		b, _ := l.Get("BTC")
		if !b.Available.IsZero() || !b.InOrders.IsZero() {
			t.Errorf("Expected available=0 in_orders=0, got %s/%s", b.Available, b.InOrders)
		}
		// Amount is deliberately not decremented on sell settlement.
		if !b.Amount.Equal(decimal.NewFromInt(1)) {
			t.Errorf("Expected amount unchanged at 1, got %s", b.Amount)
		}

		settled, _ := j.Get(tx.ID)
		if settled.Status != domain.TxStatusCompleted {
			t.Errorf("Expected completed, got %s", settled.Status)
		}
		if settled.ExecutedAt == nil {
			t.Error("ExecutedAt should be set")
		}
	})
}

func TestEngine_SellInsufficientBalance(t *testing.T) {
	e, l, j, _ := newTestEngine(t, oneBTC())

	_, err := e.CreateSellOrder("BTC", decimal.NewFromInt(2), decimal.NewFromInt(50000))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	// Atomic rejection: no record, no mutation.
	if len(j.Snapshot()) != 0 {
		t.Error("Rejected sell must not produce a transaction record")
	}
	b, _ := l.Get("BTC")
	if !b.Available.Equal(decimal.NewFromInt(1)) || !b.InOrders.IsZero() {
		t.Errorf("Rejected sell must not touch the balance, got %s/%s", b.Available, b.InOrders)
	}
}

func TestEngine_DepositLifecycle(t *testing.T) {
	balances := []domain.Balance{{
		Symbol:    "ETH",
		Amount:    decimal.NewFromInt(5),
		Available: decimal.NewFromInt(5),
	}}
	e, l, j, clock := newTestEngine(t, balances)

	tx, err := e.CreateDeposit("ETH", decimal.NewFromInt(2), "addr1")
	if err != nil {
		t.Fatalf("CreateDeposit failed: %v", err)
	}

	t.Run("No Funds Before Settlement", func(t *testing.T) {
		b, _ := l.Get("ETH")
		if !b.Available.Equal(decimal.NewFromInt(5)) {
			t.Errorf("Balance must not change before confirmation, got %s", b.Available)
		}
		if tx.FromAddress != "addr1" {
			t.Errorf("Expected from address addr1, got %s", tx.FromAddress)
		}
	})

	t.Run("Not Settled At 29s", func(t *testing.T) {
		clock.Advance(29 * time.Second)
		pending, _ := j.Get(tx.ID)
		if pending.Status != domain.TxStatusPending {
			t.Errorf("Deposit should still be pending, got %s", pending.Status)
		}
	})

	t.Run("Settled Within 60s", func(t *testing.T) {
		clock.Advance(31 * time.Second)

		b, _ := l.Get("ETH")
		if !b.Available.Equal(decimal.NewFromInt(7)) {
			t.Errorf("Expected available 7 after confirmation, got %s", b.Available)
		}
		settled, _ := j.Get(tx.ID)
		if settled.Status != domain.TxStatusCompleted {
			t.Errorf("Expected completed, got %s", settled.Status)
		}
	})
}

func TestEngine_WithdrawalLifecycle(t *testing.T) {
	e, l, j, clock := newTestEngine(t, oneBTC())

	tx, err := e.CreateWithdrawal("BTC", decimal.RequireFromString("0.5"), "bc1qdest")
	if err != nil {
		t.Fatalf("CreateWithdrawal failed: %v", err)
	}

	if !tx.Fee.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("Expected flat BTC network fee 0.0005, got %s", tx.Fee)
	}

	b, _ := l.Get("BTC")
	if !b.Available.Equal(decimal.RequireFromString("0.5")) || !b.InOrders.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Expected 0.5/0.5 after reservation, got %s/%s", b.Available, b.InOrders)
	}

	clock.Advance(30 * time.Second)

	b, _ = l.Get("BTC")
	if !b.InOrders.IsZero() {
		t.Errorf("Expected reservation cleared, got %s", b.InOrders)
	}
	if !b.Available.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("Available must not be re-credited, got %s", b.Available)
	}

	settled, _ := j.Get(tx.ID)
	if settled.Status != domain.TxStatusCompleted {
		t.Errorf("Expected completed, got %s", settled.Status)
	}
}

func TestEngine_BuyLifecycle(t *testing.T) {
	e, l, j, clock := newTestEngine(t, oneBTC())

	tx, err := e.CreateBuyOrder("BTC", decimal.RequireFromString("0.1"), decimal.NewFromInt(40000))
	if err != nil {
		t.Fatalf("CreateBuyOrder failed: %v", err)
	}

	// 0.1 * 40000 = 4000 notional, 0.1% fee.
	if !tx.Total.Equal(decimal.NewFromInt(4000)) {
		t.Errorf("Expected total 4000, got %s", tx.Total)
	}
	if !tx.Fee.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected fee 4, got %s", tx.Fee)
	}

	// Credit-first: nothing moves at acceptance.
	b, _ := l.Get("BTC")
	if !b.Available.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected available unchanged at 1, got %s", b.Available)
	}

	clock.Advance(5 * time.Second)

	b, _ = l.Get("BTC")
	if !b.Available.Equal(decimal.RequireFromString("1.1")) {
		t.Errorf("Expected available 1.1 after fill, got %s", b.Available)
	}
	settled, _ := j.Get(tx.ID)
	if settled.Status != domain.TxStatusCompleted {
		t.Errorf("Expected completed, got %s", settled.Status)
	}
}

func TestEngine_Validation(t *testing.T) {
	e, _, j, _ := newTestEngine(t, oneBTC())

	cases := []struct {
		name string
		call func() error
		want error
	}{
		{"Zero Amount Deposit", func() error {
			_, err := e.CreateDeposit("BTC", decimal.Zero, "a")
			return err
		}, domain.ErrInvalidAmount},
		{"Negative Amount Sell", func() error {
			_, err := e.CreateSellOrder("BTC", decimal.NewFromInt(-1), decimal.NewFromInt(1))
			return err
		}, domain.ErrInvalidAmount},
		{"Zero Price Buy", func() error {
			_, err := e.CreateBuyOrder("BTC", decimal.NewFromInt(1), decimal.Zero)
			return err
		}, domain.ErrInvalidPrice},
		{"Unknown Symbol Buy", func() error {
			_, err := e.CreateBuyOrder("XYZ", decimal.NewFromInt(1), decimal.NewFromInt(1))
			return err
		}, domain.ErrUnknownSymbol},
		{"Unknown Symbol Withdrawal", func() error {
			_, err := e.CreateWithdrawal("XYZ", decimal.NewFromInt(1), "a")
			return err
		}, domain.ErrUnknownSymbol},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.call(); !errors.Is(err, c.want) {
				t.Errorf("Expected %v, got %v", c.want, err)
			}
		})
	}

	if len(j.Snapshot()) != 0 {
		t.Error("Rejected requests must not leave journal records")
	}
}

func TestEngine_ConcurrentReservationsArrivalOrder(t *testing.T) {
	e, l, _, _ := newTestEngine(t, oneBTC())

	// First sell locks 0.7; the second only has 0.3 left.
	if _, err := e.CreateSellOrder("BTC", decimal.RequireFromString("0.7"), decimal.NewFromInt(50000)); err != nil {
		t.Fatalf("First sell failed: %v", err)
	}
	_, err := e.CreateSellOrder("BTC", decimal.RequireFromString("0.5"), decimal.NewFromInt(50000))
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("Second sell should fail on remaining available, got %v", err)
	}

	b, _ := l.Get("BTC")
	if !b.Available.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Expected available 0.3, got %s", b.Available)
	}
}

func TestEngine_ParallelFullBalanceSells(t *testing.T) {
	e, l, j, _ := newTestEngine(t, oneBTC())

	// Every goroutine tries to sell the entire holding at once. The
	// check-and-reserve must be atomic: exactly one can win.
	const attempts = 8
	errs := make(chan error, attempts)
	var start, wg sync.WaitGroup
	start.Add(1)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start.Wait()
			_, err := e.CreateSellOrder("BTC", decimal.NewFromInt(1), decimal.NewFromInt(50000))
			errs <- err
		}()
	}
	start.Done()
	wg.Wait()
	close(errs)

	var accepted, rejected int
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, domain.ErrInsufficientBalance):
			rejected++
		default:
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if accepted != 1 || rejected != attempts-1 {
		t.Fatalf("Expected 1 accepted and %d rejected, got %d/%d", attempts-1, accepted, rejected)
	}

	b, _ := l.Get("BTC")
	if !b.Available.IsZero() || !b.InOrders.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected available=0 in_orders=1, got %s/%s", b.Available, b.InOrders)
	}
	if err := b.CheckInvariant(); err != nil {
		t.Errorf("Invariant broken after parallel sells: %v", err)
	}
	if len(j.Snapshot()) != 1 {
		t.Errorf("Only the winning sell may be recorded, got %d records", len(j.Snapshot()))
	}
}

func TestEngine_ParallelFullBalanceWithdrawals(t *testing.T) {
	e, l, _, _ := newTestEngine(t, oneBTC())

	const attempts = 4
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.CreateWithdrawal("BTC", decimal.NewFromInt(1), "bc1q-dest")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var accepted int
	for err := range errs {
		if err == nil {
			accepted++
		} else if !errors.Is(err, domain.ErrInsufficientBalance) {
			t.Fatalf("Unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("Expected exactly 1 accepted withdrawal, got %d", accepted)
	}

	b, _ := l.Get("BTC")
	if !b.InOrders.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected in_orders 1, got %s", b.InOrders)
	}
}

func TestEngine_ExecutedAtFollowsClock(t *testing.T) {
	e, _, j, clock := newTestEngine(t, oneBTC())

	tx, err := e.CreateSellOrder("BTC", decimal.NewFromInt(1), decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("CreateSellOrder failed: %v", err)
	}

	clock.Advance(5 * time.Second)

	settled, _ := j.Get(tx.ID)
	if settled.ExecutedAt == nil {
		t.Fatal("ExecutedAt should be set")
	}
	// Settlement is stamped on the engine's timeline, not wall time.
	if settled.ExecutedAt.After(clock.Now()) || settled.ExecutedAt.Before(tx.Timestamp) {
		t.Errorf("ExecutedAt %s outside simulated window [%s, %s]",
			settled.ExecutedAt, tx.Timestamp, clock.Now())
	}
}

func TestEngine_WithdrawalFeeFallback(t *testing.T) {
	fee := WithdrawalFee("XYZ", decimal.NewFromInt(1000))
	if !fee.Equal(decimal.NewFromInt(1)) {
		t.Errorf("Expected 0.1%% fallback fee 1, got %s", fee)
	}
}

func TestManualClock_FiresInOrder(t *testing.T) {
	clock := NewManualClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	var fired []string
	clock.AfterFunc(3*time.Second, func() { fired = append(fired, "c") })
	clock.AfterFunc(1*time.Second, func() { fired = append(fired, "a") })
	clock.AfterFunc(1*time.Second, func() { fired = append(fired, "b") })

	clock.Advance(2 * time.Second)
	if len(fired) != 2 || fired[0] != "a" || fired[1] != "b" {
		t.Fatalf("Expected [a b], got %v", fired)
	}
	if clock.PendingTasks() != 1 {
		t.Errorf("Expected 1 pending task, got %d", clock.PendingTasks())
	}

	clock.Advance(1 * time.Second)
	if len(fired) != 3 || fired[2] != "c" {
		t.Fatalf("Expected [a b c], got %v", fired)
	}
}

func TestManualClock_TaskSchedulesTask(t *testing.T) {
	clock := NewManualClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	var fired []string
	clock.AfterFunc(1*time.Second, func() {
		fired = append(fired, "outer")
		clock.AfterFunc(1*time.Second, func() { fired = append(fired, "inner") })
	})

	clock.Advance(5 * time.Second)
	if len(fired) != 2 || fired[1] != "inner" {
		t.Fatalf("Chained task should fire within the same advance, got %v", fired)
	}
}
