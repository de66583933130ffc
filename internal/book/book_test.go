package book

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

func level(price, qty string) types.PriceLevel {
	return types.PriceLevel{
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func entry(price, qty string) DeltaEntry {
	return DeltaEntry{
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
}

func testBook() types.OrderBook {
	return types.OrderBook{
		Symbol:   "KRW-BTC",
		Venue:    types.VenueUpbit,
		Sequence: 10,
		Bids:     []types.PriceLevel{level("94900000", "0.4"), level("95000000", "0.3")},
		Asks:     []types.PriceLevel{level("95200000", "0.5"), level("95100000", "0.2")},
	}
}

func TestFromOrderBookSorts(t *testing.T) {
	t.Parallel()
	s := FromOrderBook(testBook())

	bid, ok := s.BestBid()
	if !ok || !bid.Price.Equal(decimal.NewFromInt(95000000)) {
		t.Errorf("best bid = %v", bid)
	}
	ask, ok := s.BestAsk()
	if !ok || !ask.Price.Equal(decimal.NewFromInt(95100000)) {
		t.Errorf("best ask = %v", ask)
	}
}

func TestStaleDeltaIgnored(t *testing.T) {
	t.Parallel()
	s := FromOrderBook(testBook())

	// sequence 9 predates the snapshot at 10
	err := s.apply(Delta{Symbol: "KRW-BTC", Sequence: 9, Bids: []DeltaEntry{entry("95000000", "9")}})
	if err != nil {
		t.Fatal(err)
	}
	bid, _ := s.BestBid()
	if !bid.Quantity.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("stale delta changed book: %v", bid)
	}
	if s.Sequence != 10 {
		t.Errorf("sequence = %d", s.Sequence)
	}
}

func TestDeltaRemovesAndInserts(t *testing.T) {
	t.Parallel()
	s := FromOrderBook(testBook())

	d := Delta{
		Symbol:   "KRW-BTC",
		Sequence: 11,
		Bids:     []DeltaEntry{entry("95000000", "0")},  // remove best bid
		Asks:     []DeltaEntry{entry("95050000", "0.1")}, // new best ask
	}
	if err := s.apply(d); err != nil {
		t.Fatal(err)
	}

	bid, _ := s.BestBid()
	if !bid.Price.Equal(decimal.NewFromInt(94900000)) {
		t.Errorf("best bid after removal = %v", bid)
	}
	ask, _ := s.BestAsk()
	if !ask.Price.Equal(decimal.NewFromInt(95050000)) {
		t.Errorf("best ask after insert = %v", ask)
	}
	if s.Sequence != 11 {
		t.Errorf("sequence = %d", s.Sequence)
	}

	// reapplying the same delta changes nothing
	if err := s.apply(d); err != nil {
		t.Fatal(err)
	}
	if len(s.Bids) != 1 || len(s.Asks) != 3 {
		t.Errorf("reapply changed levels: %d/%d", len(s.Bids), len(s.Asks))
	}
}

func TestDeltaReplacesQuantity(t *testing.T) {
	t.Parallel()
	s := FromOrderBook(testBook())
	if err := s.apply(Delta{Sequence: 12, Bids: []DeltaEntry{entry("95000000", "1.5")}}); err != nil {
		t.Fatal(err)
	}
	bid, _ := s.BestBid()
	if !bid.Quantity.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("quantity = %s", bid.Quantity)
	}
}

func TestDeltaFromOrderBookMerges(t *testing.T) {
	t.Parallel()
	s := FromOrderBook(testBook())

	partial := types.OrderBook{
		Symbol:   "KRW-BTC",
		Sequence: 20,
		Partial:  true,
		Bids:     []types.PriceLevel{level("95000000", "0.9")},
		Asks:     []types.PriceLevel{level("95100000", "0")},
	}
	if err := s.apply(DeltaFromOrderBook(partial)); err != nil {
		t.Fatal(err)
	}

	// untouched levels survive the merge
	if len(s.Bids) != 2 {
		t.Fatalf("bids = %d, want 2", len(s.Bids))
	}
	bid, _ := s.BestBid()
	if !bid.Quantity.Equal(decimal.RequireFromString("0.9")) {
		t.Errorf("best bid quantity = %s", bid.Quantity)
	}
	ask, _ := s.BestAsk()
	if !ask.Price.Equal(decimal.NewFromInt(95200000)) {
		t.Errorf("best ask = %v", ask)
	}
	for _, lv := range append(append([]types.PriceLevel{}, s.Bids...), s.Asks...) {
		if lv.Quantity.IsZero() {
			t.Errorf("zero-quantity level exposed: %v", lv.Price)
		}
	}
}

func TestDeltaTimestampFollowsSequence(t *testing.T) {
	t.Parallel()
	s := FromOrderBook(testBook())

	d := Delta{Symbol: "KRW-BTC", Sequence: 13, Timestamp: 7, Bids: []DeltaEntry{entry("95000000", "0.5")}}
	if err := s.apply(d); err != nil {
		t.Fatal(err)
	}
	if s.Timestamp != 13 {
		t.Errorf("timestamp = %d, want the delta sequence", s.Timestamp)
	}
	bid, _ := s.BestBid()
	if bid.Timestamp != 13 {
		t.Errorf("level timestamp = %d", bid.Timestamp)
	}
}

func TestDeltaSymbolMismatch(t *testing.T) {
	t.Parallel()
	s := FromOrderBook(testBook())
	err := s.apply(Delta{Symbol: "KRW-ETH", Sequence: 11})
	if !errors.Is(err, ErrSymbolMismatch) {
		t.Fatalf("want ErrSymbolMismatch, got %v", err)
	}
}

func TestManagerNotInitialized(t *testing.T) {
	t.Parallel()
	m := NewManager("KRW-BTC")

	if _, err := m.Snapshot(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Snapshot err = %v", err)
	}
	if _, err := m.TopN(5); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("TopN err = %v", err)
	}
	if err := m.ApplyDelta(Delta{Sequence: 1}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("ApplyDelta err = %v", err)
	}
}

func TestManagerSnapshotIsCopy(t *testing.T) {
	t.Parallel()
	m := NewManager("KRW-BTC")
	m.UpdateFull(testBook())

	s1, err := m.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	s1.Bids[0].Quantity = decimal.NewFromInt(999)

	s2, _ := m.Snapshot()
	if s2.Bids[0].Quantity.Equal(decimal.NewFromInt(999)) {
		t.Error("snapshot aliased manager state")
	}
}

func TestManagerTopN(t *testing.T) {
	t.Parallel()
	m := NewManager("KRW-BTC")
	m.UpdateFull(testBook())

	top, err := m.TopN(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(top.Bids) != 1 || len(top.Asks) != 1 {
		t.Errorf("levels = %d/%d", len(top.Bids), len(top.Asks))
	}
	if !top.Bids[0].Price.Equal(decimal.NewFromInt(95000000)) {
		t.Errorf("top bid = %v", top.Bids[0])
	}
}
