// Package types defines shared data structures used across all packages.
//
// This package is the common vocabulary for the engine — price levels,
// order books, balances, and order requests/results normalized across both
// venues. It has no dependencies on internal packages, so it can be
// imported by any layer.
package types

import (
	"github.com/shopspring/decimal"
)

// Venue names as used in normalized structures and log records.
const (
	VenueUpbit   = "upbit"
	VenueBithumb = "bithumb"
)

// Side is the order direction in venue terms: "bid" buys, "ask" sells.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// OrderType enumerates the supported order kinds.
//
// OrderTypePrice is Upbit's quote-denominated market buy: the quantity is
// an amount of KRW to spend rather than a base-currency volume.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
	OrderTypePrice  OrderType = "price"
)

// PriceLevel is a single bid or ask level. Price and Quantity are exact
// decimals; Timestamp is the venue's millisecond timestamp for the update
// that produced this level.
type PriceLevel struct {
	Price     decimal.Decimal
	Quantity  decimal.Decimal
	Timestamp int64
}

// OrderBook is a normalized order book for one symbol on one venue.
// Levels arrive in venue order; sorting (bids descending, asks ascending)
// is restored when a snapshot is built from the book.
//
// Partial marks a change-list payload that carries only the touched
// levels: consumers must merge it into an existing book, where a
// zero-quantity level removes that price. A non-partial book is a full
// replacement.
type OrderBook struct {
	Symbol    string
	Venue     string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Sequence  int64
	Timestamp int64
	Partial   bool
}

// Balance is one currency's holdings on one venue.
// Total is reported by some venues directly and is not re-derived at
// parse time.
type Balance struct {
	Venue     string
	Currency  string
	Available decimal.Decimal
	Locked    decimal.Decimal
	Total     decimal.Decimal
}

// OrderRequest is a normalized order submission.
type OrderRequest struct {
	Venue     string
	Symbol    string
	Side      Side
	OrderType OrderType
	Quantity  decimal.Decimal
	Price     *decimal.Decimal // nil for market orders
}

// OrderResult is a normalized order response. Raw carries the venue-native
// fields for audit logging.
type OrderResult struct {
	OrderID        string
	Venue          string
	Symbol         string
	Status         string
	FilledQuantity decimal.Decimal
	AveragePrice   *decimal.Decimal // nil when the venue reports none
	Raw            map[string]any
}
