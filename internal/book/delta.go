package book

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// ErrSymbolMismatch is returned when a delta addresses a different
// symbol than the snapshot it is applied to.
var ErrSymbolMismatch = errors.New("delta symbol does not match book")

// DeltaEntry is one price-level change. A zero quantity removes the
// level; any other quantity replaces it (or inserts a new level).
type DeltaEntry struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// Delta is an incremental book update.
type Delta struct {
	Symbol    string
	Bids      []DeltaEntry
	Asks      []DeltaEntry
	Sequence  int64
	Timestamp int64
}

// DeltaFromOrderBook converts a partial venue payload into a Delta.
// Quantities carry over as-is, so a zero-quantity level becomes a
// removal.
func DeltaFromOrderBook(ob types.OrderBook) Delta {
	return Delta{
		Symbol:    ob.Symbol,
		Bids:      toEntries(ob.Bids),
		Asks:      toEntries(ob.Asks),
		Sequence:  ob.Sequence,
		Timestamp: ob.Timestamp,
	}
}

func toEntries(levels []types.PriceLevel) []DeltaEntry {
	entries := make([]DeltaEntry, len(levels))
	for i, l := range levels {
		entries[i] = DeltaEntry{Price: l.Price, Quantity: l.Quantity}
	}
	return entries
}

// apply merges a delta into the snapshot in place. Stale deltas — a
// positive sequence older than the snapshot's — leave the book
// unchanged. Applying the same delta twice is idempotent.
func (s *Snapshot) apply(d Delta) error {
	if d.Symbol != "" && s.Symbol != "" && d.Symbol != s.Symbol {
		return ErrSymbolMismatch
	}
	if d.Sequence > 0 && d.Sequence < s.Sequence {
		return nil
	}

	// the delta's sequence stamps the touched levels and the book;
	// Timestamp is only a fallback for unsequenced updates
	ts := d.Sequence
	if ts == 0 {
		ts = d.Timestamp
	}
	if ts == 0 {
		ts = s.Timestamp
	}
	s.Bids = applyEntries(s.Bids, d.Bids, ts)
	s.Asks = applyEntries(s.Asks, d.Asks, ts)
	sortLevels(s.Bids, true)
	sortLevels(s.Asks, false)

	if d.Sequence > s.Sequence {
		s.Sequence = d.Sequence
	}
	if ts > s.Timestamp {
		s.Timestamp = ts
	}
	return nil
}

func applyEntries(levels []types.PriceLevel, entries []DeltaEntry, ts int64) []types.PriceLevel {
	for _, e := range entries {
		idx := -1
		for i := range levels {
			if levels[i].Price.Equal(e.Price) {
				idx = i
				break
			}
		}
		switch {
		case e.Quantity.IsZero():
			if idx >= 0 {
				levels = append(levels[:idx], levels[idx+1:]...)
			}
		case idx >= 0:
			levels[idx].Quantity = e.Quantity
			levels[idx].Timestamp = ts
		default:
			levels = append(levels, types.PriceLevel{Price: e.Price, Quantity: e.Quantity, Timestamp: ts})
		}
	}
	return levels
}
