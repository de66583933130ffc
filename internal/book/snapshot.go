// Package book maintains local order books: immutable snapshots built
// from full venue payloads, incremental delta application with replay
// protection, and a feed that keeps a managed book current from a venue
// stream.
package book

import (
	"sort"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// Snapshot is a point-in-time view of one venue book. Bids are sorted by
// price descending, asks ascending. Snapshots handed out by a Manager
// are deep copies and safe to retain.
type Snapshot struct {
	Symbol    string
	Venue     string
	Bids      []types.PriceLevel
	Asks      []types.PriceLevel
	Sequence  int64
	Timestamp int64
}

// FromOrderBook builds a sorted snapshot from a normalized venue book.
// Venue level order is not trusted.
func FromOrderBook(ob types.OrderBook) Snapshot {
	s := Snapshot{
		Symbol:    ob.Symbol,
		Venue:     ob.Venue,
		Bids:      append([]types.PriceLevel(nil), ob.Bids...),
		Asks:      append([]types.PriceLevel(nil), ob.Asks...),
		Sequence:  ob.Sequence,
		Timestamp: ob.Timestamp,
	}
	sortLevels(s.Bids, true)
	sortLevels(s.Asks, false)
	return s
}

func sortLevels(levels []types.PriceLevel, descending bool) {
	sort.SliceStable(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
}

// BestBid returns the highest bid, if any.
func (s Snapshot) BestBid() (types.PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return types.PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (s Snapshot) BestAsk() (types.PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return types.PriceLevel{}, false
	}
	return s.Asks[0], true
}

// TopN returns a copy truncated to the n best levels per side. n <= 0
// yields empty sides.
func (s Snapshot) TopN(n int) Snapshot {
	out := s.clone()
	if n < 0 {
		n = 0
	}
	if len(out.Bids) > n {
		out.Bids = out.Bids[:n]
	}
	if len(out.Asks) > n {
		out.Asks = out.Asks[:n]
	}
	return out
}

func (s Snapshot) clone() Snapshot {
	out := s
	out.Bids = append([]types.PriceLevel(nil), s.Bids...)
	out.Asks = append([]types.PriceLevel(nil), s.Asks...)
	return out
}
