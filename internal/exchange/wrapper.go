package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// BookHandler receives each normalized order book pushed by a
// subscription. Returning an error tears the subscription down.
type BookHandler func(book types.OrderBook) error

// Wrapper is the venue-neutral trading surface. Both venue clients
// implement it; everything above this package depends on it only.
type Wrapper interface {
	// Name reports the venue identifier (types.VenueUpbit / VenueBithumb).
	Name() string

	// GetOrderbook fetches the current order book for a venue-native symbol.
	GetOrderbook(ctx context.Context, symbol string) (types.OrderBook, error)

	// GetBalance fetches all non-empty account balances.
	GetBalance(ctx context.Context) ([]types.Balance, error)

	// PlaceOrder submits an order built from a normalized request.
	PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)

	// CancelOrder cancels by venue order id. Bithumb additionally needs the
	// symbol and side to identify the order.
	CancelOrder(ctx context.Context, orderID, symbol string, side types.Side) (types.OrderResult, error)

	// GetOrderStatus looks an order up by venue order id.
	GetOrderStatus(ctx context.Context, orderID, symbol string, side types.Side) (types.OrderResult, error)

	// BuyMarketOrder buys at market. The amount is venue-specific: Upbit
	// spends a quote-currency amount, Bithumb buys a base-currency quantity.
	BuyMarketOrder(ctx context.Context, symbol string, amount decimal.Decimal) (types.OrderResult, error)

	// SellMarketOrder sells a base-currency quantity at market.
	SellMarketOrder(ctx context.Context, symbol string, volume decimal.Decimal) (types.OrderResult, error)

	// SubscribeOrderbook streams order books for one symbol until ctx is
	// cancelled, the handler errors, or the connection drops. It blocks.
	SubscribeOrderbook(ctx context.Context, symbol string, handler BookHandler) error

	// Close releases the underlying transport.
	Close() error
}
