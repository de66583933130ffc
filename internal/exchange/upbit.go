package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// NewUpbitGateway builds the Upbit transport. Signed requests carry an
// HS256 JWT in Authorization; non-GET bodies are JSON.
func NewUpbitGateway(settings Settings, limit Limit) *Gateway {
	if settings.Name == "" {
		settings.Name = types.VenueUpbit
	}
	public, private := limit.Buckets()
	g := &Gateway{settings: settings, public: public, private: private}
	g.sign = func(method, endpoint string, params map[string]string) (map[string]string, error) {
		token, err := upbitToken(settings.AccessKey, settings.SecretKey, params)
		if err != nil {
			return nil, err
		}
		return map[string]string{"Authorization": token}, nil
	}
	g.encode = func(r *resty.Request, params map[string]string) {
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(params)
	}
	return g
}

// UpbitParser normalizes Upbit REST and stream payloads.
type UpbitParser struct{}

type upbitBookUnit struct {
	AskPrice json.Number `json:"ask_price"`
	BidPrice json.Number `json:"bid_price"`
	AskSize  json.Number `json:"ask_size"`
	BidSize  json.Number `json:"bid_size"`
}

type upbitBookPayload struct {
	Market    string          `json:"market"`
	Timestamp int64           `json:"timestamp"`
	Units     []upbitBookUnit `json:"orderbook_units"`
}

// ParseOrderbook decodes the one-element array /v1/orderbook returns.
func (UpbitParser) ParseOrderbook(raw []byte) (types.OrderBook, error) {
	var payload []upbitBookPayload
	if err := decodeJSON(raw, &payload); err != nil {
		return types.OrderBook{}, &ParserError{Venue: types.VenueUpbit, Detail: "orderbook", Err: err}
	}
	if len(payload) == 0 {
		return types.OrderBook{}, &ParserError{Venue: types.VenueUpbit, Detail: "empty orderbook payload"}
	}
	p := payload[0]

	book := types.OrderBook{
		Symbol:    p.Market,
		Venue:     types.VenueUpbit,
		Sequence:  p.Timestamp,
		Timestamp: p.Timestamp,
	}
	for _, u := range p.Units {
		bidPrice, err := toDecimal(u.BidPrice)
		if err != nil {
			return types.OrderBook{}, &ParserError{Venue: types.VenueUpbit, Detail: "bid price", Err: err}
		}
		bidSize, err := toDecimal(u.BidSize)
		if err != nil {
			return types.OrderBook{}, &ParserError{Venue: types.VenueUpbit, Detail: "bid size", Err: err}
		}
		askPrice, err := toDecimal(u.AskPrice)
		if err != nil {
			return types.OrderBook{}, &ParserError{Venue: types.VenueUpbit, Detail: "ask price", Err: err}
		}
		askSize, err := toDecimal(u.AskSize)
		if err != nil {
			return types.OrderBook{}, &ParserError{Venue: types.VenueUpbit, Detail: "ask size", Err: err}
		}
		book.Bids = append(book.Bids, types.PriceLevel{Price: bidPrice, Quantity: bidSize, Timestamp: p.Timestamp})
		book.Asks = append(book.Asks, types.PriceLevel{Price: askPrice, Quantity: askSize, Timestamp: p.Timestamp})
	}
	return book, nil
}

type upbitAccount struct {
	Currency string      `json:"currency"`
	Balance  json.Number `json:"balance"`
	Locked   json.Number `json:"locked"`
}

// ParseBalance decodes the /v1/accounts array. Total is available plus
// locked; Upbit does not report it separately.
func (UpbitParser) ParseBalance(raw []byte) ([]types.Balance, error) {
	var accounts []upbitAccount
	if err := decodeJSON(raw, &accounts); err != nil {
		return nil, &ParserError{Venue: types.VenueUpbit, Detail: "accounts", Err: err}
	}
	balances := make([]types.Balance, 0, len(accounts))
	for _, a := range accounts {
		available, err := toDecimal(a.Balance)
		if err != nil {
			return nil, &ParserError{Venue: types.VenueUpbit, Detail: "balance " + a.Currency, Err: err}
		}
		locked, err := toDecimal(a.Locked)
		if err != nil {
			return nil, &ParserError{Venue: types.VenueUpbit, Detail: "locked " + a.Currency, Err: err}
		}
		balances = append(balances, types.Balance{
			Venue:     types.VenueUpbit,
			Currency:  a.Currency,
			Available: available,
			Locked:    locked,
			Total:     available.Add(locked),
		})
	}
	return balances, nil
}

// ParseOrderResult decodes an order placement, cancel, or lookup
// response. A blank or zero avg_price means no fills yet.
func (UpbitParser) ParseOrderResult(raw []byte) (types.OrderResult, error) {
	var fields map[string]any
	if err := decodeJSON(raw, &fields); err != nil {
		return types.OrderResult{}, &ParserError{Venue: types.VenueUpbit, Detail: "order", Err: err}
	}
	filled, err := numField(fields, "executed_volume")
	if err != nil {
		return types.OrderResult{}, &ParserError{Venue: types.VenueUpbit, Detail: "executed_volume", Err: err}
	}
	avgPrice, err := optionalDecimal(fields["avg_price"])
	if err != nil {
		return types.OrderResult{}, &ParserError{Venue: types.VenueUpbit, Detail: "avg_price", Err: err}
	}
	return types.OrderResult{
		OrderID:        strField(fields, "uuid"),
		Venue:          types.VenueUpbit,
		Symbol:         strField(fields, "market"),
		Status:         strField(fields, "state"),
		FilledQuantity: filled,
		AveragePrice:   avgPrice,
		Raw:            fields,
	}, nil
}

// normalizeStream reshapes a stream frame into the REST orderbook shape.
// Stream frames are single objects keyed by "code" instead of "market";
// frames without book data (status and error frames) are dropped.
func (UpbitParser) normalizeStream(raw []byte) ([]byte, bool, error) {
	var payload any
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, false, &ParserError{Venue: types.VenueUpbit, Detail: "stream frame", Err: err}
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return raw, true, nil
	}
	if _, ok := obj["orderbook_units"]; !ok {
		return nil, false, nil
	}
	if _, ok := obj["market"]; !ok {
		if code, ok := obj["code"]; ok {
			obj["market"] = code
		}
	}
	wrapped, err := json.Marshal([]any{obj})
	if err != nil {
		return nil, false, &ParserError{Venue: types.VenueUpbit, Detail: "stream frame", Err: err}
	}
	return wrapped, true, nil
}

// UpbitWrapper is the high-level Upbit client.
type UpbitWrapper struct {
	gw     *Gateway
	parser UpbitParser
	logger *slog.Logger
}

// NewUpbitWrapper wraps an Upbit gateway.
func NewUpbitWrapper(gw *Gateway, logger *slog.Logger) *UpbitWrapper {
	return &UpbitWrapper{gw: gw, logger: logger.With("venue", types.VenueUpbit)}
}

func (w *UpbitWrapper) Name() string { return types.VenueUpbit }

// GetOrderbook fetches the book for a KRW-market symbol such as "KRW-BTC".
func (w *UpbitWrapper) GetOrderbook(ctx context.Context, symbol string) (types.OrderBook, error) {
	raw, err := w.gw.Request(ctx, http.MethodGet, "/v1/orderbook", map[string]string{"markets": symbol}, false, nil)
	if err != nil {
		return types.OrderBook{}, err
	}
	return w.parser.ParseOrderbook(raw)
}

func (w *UpbitWrapper) GetBalance(ctx context.Context) ([]types.Balance, error) {
	raw, err := w.gw.Request(ctx, http.MethodGet, "/v1/accounts", nil, true, nil)
	if err != nil {
		return nil, err
	}
	return w.parser.ParseBalance(raw)
}

func (w *UpbitWrapper) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	params := map[string]string{
		"market":   req.Symbol,
		"side":     string(req.Side),
		"ord_type": string(req.OrderType),
	}
	switch req.OrderType {
	case types.OrderTypePrice:
		// quote-denominated market buy: "price" is the KRW amount to spend
		params["price"] = req.Quantity.String()
	case types.OrderTypeLimit:
		params["volume"] = req.Quantity.String()
		if req.Price != nil {
			params["price"] = req.Price.String()
		}
	default:
		params["volume"] = req.Quantity.String()
	}
	raw, err := w.gw.Request(ctx, http.MethodPost, "/v1/orders", params, true, nil)
	if err != nil {
		return types.OrderResult{}, err
	}
	return w.parser.ParseOrderResult(raw)
}

func (w *UpbitWrapper) CancelOrder(ctx context.Context, orderID, symbol string, side types.Side) (types.OrderResult, error) {
	raw, err := w.gw.Request(ctx, http.MethodDelete, "/v1/order", map[string]string{"uuid": orderID}, true, nil)
	if err != nil {
		return types.OrderResult{}, err
	}
	return w.parser.ParseOrderResult(raw)
}

func (w *UpbitWrapper) GetOrderStatus(ctx context.Context, orderID, symbol string, side types.Side) (types.OrderResult, error) {
	raw, err := w.gw.Request(ctx, http.MethodGet, "/v1/order", map[string]string{"uuid": orderID}, true, nil)
	if err != nil {
		return types.OrderResult{}, err
	}
	return w.parser.ParseOrderResult(raw)
}

// BuyMarketOrder spends amount KRW at market (Upbit's "price" order type).
func (w *UpbitWrapper) BuyMarketOrder(ctx context.Context, symbol string, amount decimal.Decimal) (types.OrderResult, error) {
	return w.PlaceOrder(ctx, types.OrderRequest{
		Venue:     types.VenueUpbit,
		Symbol:    symbol,
		Side:      types.SideBid,
		OrderType: types.OrderTypePrice,
		Quantity:  amount,
	})
}

// SellMarketOrder sells volume base units at market.
func (w *UpbitWrapper) SellMarketOrder(ctx context.Context, symbol string, volume decimal.Decimal) (types.OrderResult, error) {
	return w.PlaceOrder(ctx, types.OrderRequest{
		Venue:     types.VenueUpbit,
		Symbol:    symbol,
		Side:      types.SideAsk,
		OrderType: types.OrderTypeMarket,
		Quantity:  volume,
	})
}

// SubscribeOrderbook streams real-time books for one symbol. The stream
// ends when the connection drops, a frame fails to parse, the handler
// errors, or ctx is cancelled; the caller owns resubscription.
func (w *UpbitWrapper) SubscribeOrderbook(ctx context.Context, symbol string, handler BookHandler) error {
	conn, err := w.gw.WSConnect(ctx, "")
	if err != nil {
		return err
	}
	w.logger.Debug("order book stream connected", "symbol", symbol)

	frame, err := json.Marshal([]any{
		map[string]any{"ticket": "karb"},
		map[string]any{"type": "orderbook", "codes": []string{symbol}, "isOnlyRealtime": true},
	})
	if err != nil {
		return err
	}

	return runSubscription(ctx, conn, frame, func(msg []byte) error {
		normalized, ok, err := w.parser.normalizeStream(msg)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		book, err := w.parser.ParseOrderbook(normalized)
		if err != nil {
			return err
		}
		return handler(book)
	})
}

func (w *UpbitWrapper) Close() error { return w.gw.Close() }
