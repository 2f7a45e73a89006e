package feed

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"

	"cryptodesk/internal/domain"
)

func testFeed(seed int64) *Feed {
	return NewFeed(DefaultQuotes(), rand.New(rand.NewSource(seed)), nil, nil)
}

func TestFeed_TickBoundsPriceMove(t *testing.T) {
	f := testFeed(1)
	before := f.QuoteMap()

	for i := 0; i < 50; i++ {
		prev := f.QuoteMap()
		f.Tick()
		for sym, q := range f.QuoteMap() {
			if q.Price.IsNegative() {
				t.Fatalf("%s price went negative: %s", sym, q.Price)
			}
			maxMove := prev[sym].Price.Mul(decimal.NewFromFloat(priceVolatility))
			if q.Price.Sub(prev[sym].Price).Abs().GreaterThan(maxMove.Add(decimal.NewFromFloat(1e-9))) {
				t.Fatalf("%s moved more than 2%% in one tick: %s -> %s", sym, prev[sym].Price, q.Price)
			}
		}
	}

	// Prices must actually have walked.
	moved := false
	for sym, q := range f.QuoteMap() {
		if !q.Price.Equal(before[sym].Price) {
			moved = true
		}
	}
	if !moved {
		t.Error("Expected at least one price to move after 50 ticks")
	}
}

func TestFeed_SnapshotDeclarationOrder(t *testing.T) {
	f := testFeed(2)
	snapshot := f.Snapshot()

	expected := []string{"BTC", "ETH", "ADA", "DOT", "SOL", "LINK"}
	if len(snapshot) != len(expected) {
		t.Fatalf("Expected %d quotes, got %d", len(expected), len(snapshot))
	}
	for i, sym := range expected {
		if snapshot[i].Symbol != sym {
			t.Errorf("Position %d: expected %s, got %s", i, sym, snapshot[i].Symbol)
		}
	}
}

func TestFeed_QuoteLookup(t *testing.T) {
	f := testFeed(3)

	if _, ok := f.Quote("BTC"); !ok {
		t.Error("BTC quote should exist")
	}
	if _, ok := f.Quote("XYZ"); ok {
		t.Error("Unknown symbol should not resolve")
	}
}

func TestFeed_Top(t *testing.T) {
	f := testFeed(4)

	top := f.Top(2)
	if len(top) != 2 {
		t.Fatalf("Expected 2 quotes, got %d", len(top))
	}
	if top[0].Symbol != "BTC" || top[1].Symbol != "ETH" {
		t.Errorf("Top should follow declaration order, got %s, %s", top[0].Symbol, top[1].Symbol)
	}

	all := f.Top(100)
	if len(all) != 6 {
		t.Errorf("Oversized limit should return the full set, got %d", len(all))
	}

	if got := f.Top(-1); len(got) != 0 {
		t.Errorf("Negative limit should return no quotes, got %d", len(got))
	}
}

func TestFeed_GainersLosers(t *testing.T) {
	f := testFeed(5)

	gainers := f.Gainers()
	for i := 1; i < len(gainers); i++ {
		if gainers[i].ChangePercent24h.GreaterThan(gainers[i-1].ChangePercent24h) {
			t.Fatal("Gainers not sorted descending")
		}
	}

	losers := f.Losers()
	for i := 1; i < len(losers); i++ {
		if losers[i].ChangePercent24h.LessThan(losers[i-1].ChangePercent24h) {
			t.Fatal("Losers not sorted ascending")
		}
	}
}

func TestFeed_TickPublishes(t *testing.T) {
	f := testFeed(6)

	ch, cancel := f.Updates().Subscribe(1)
	defer cancel()

	f.Tick()

	env := <-ch
	if len(env.Payload) != 6 {
		t.Errorf("Expected full snapshot, got %d quotes", len(env.Payload))
	}
}

func TestAggregator_Recompute(t *testing.T) {
	f := testFeed(7)
	agg := NewAggregator(f, rand.New(rand.NewSource(7)), nil, nil)

	summary := agg.Recompute()

	// Sums over the seed set.
	expectedCap := decimal.Zero
	expectedVol := decimal.Zero
	var btcCap decimal.Decimal
	for _, q := range f.Snapshot() {
		expectedCap = expectedCap.Add(q.MarketCap)
		expectedVol = expectedVol.Add(q.Volume24h)
		if q.Symbol == "BTC" {
			btcCap = q.MarketCap
		}
	}

	if !summary.TotalMarketCap.Equal(expectedCap) {
		t.Errorf("Expected market cap %s, got %s", expectedCap, summary.TotalMarketCap)
	}
	if !summary.TotalVolume24h.Equal(expectedVol) {
		t.Errorf("Expected volume %s, got %s", expectedVol, summary.TotalVolume24h)
	}

	expectedDominance := btcCap.Div(expectedCap).Mul(decimal.NewFromInt(100))
	if !summary.BTCDominance.Equal(expectedDominance) {
		t.Errorf("Expected dominance %s, got %s", expectedDominance, summary.BTCDominance)
	}
	if summary.SentimentIndex < 0 || summary.SentimentIndex > 100 {
		t.Errorf("Sentiment out of range: %d", summary.SentimentIndex)
	}
}

func TestAggregator_DominanceWithoutBTC(t *testing.T) {
	quotes := []domain.Quote{
		{Symbol: "ETH", Price: decimal.NewFromInt(2500), MarketCap: decimal.NewFromInt(1000)},
	}
	f := NewFeed(quotes, rand.New(rand.NewSource(8)), nil, nil)
	agg := NewAggregator(f, rand.New(rand.NewSource(8)), nil, nil)

	summary := agg.Recompute()
	if !summary.BTCDominance.IsZero() {
		t.Errorf("Expected 0 dominance without BTC, got %s", summary.BTCDominance)
	}
}

func TestAggregator_EmptyQuoteSet(t *testing.T) {
	f := NewFeed(nil, rand.New(rand.NewSource(9)), nil, nil)
	agg := NewAggregator(f, rand.New(rand.NewSource(9)), nil, nil)

	summary := agg.Recompute()
	if !summary.BTCDominance.IsZero() || !summary.TotalMarketCap.IsZero() {
		t.Errorf("Expected zeroed summary, got %+v", summary)
	}
}
