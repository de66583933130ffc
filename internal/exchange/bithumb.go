package exchange

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// NewBithumbGateway builds the Bithumb transport. Signed requests carry
// the Api-Key/Api-Sign/Api-Nonce header trio; bodies are form-encoded
// with sorted keys so the body matches the signed string byte for byte.
// Bithumb requires the endpoint path inside the signed params, which the
// prepare hook folds in.
func NewBithumbGateway(settings Settings, limit Limit) *Gateway {
	if settings.Name == "" {
		settings.Name = types.VenueBithumb
	}
	public, private := limit.Buckets()
	g := &Gateway{settings: settings, public: public, private: private}
	g.prepare = func(method, endpoint string, signed bool, params map[string]string) map[string]string {
		if !signed || strings.ToUpper(method) == http.MethodGet {
			return params
		}
		out := make(map[string]string, len(params)+1)
		for k, v := range params {
			out[k] = v
		}
		if _, ok := out["endpoint"]; !ok {
			out["endpoint"] = endpoint
		}
		return out
	}
	g.sign = func(method, endpoint string, params map[string]string) (map[string]string, error) {
		return bithumbHeaders(endpoint, params, settings.AccessKey, settings.SecretKey), nil
	}
	g.encode = func(r *resty.Request, params map[string]string) {
		r.SetFormData(params)
	}
	return g
}

// BithumbParser normalizes Bithumb REST and stream payloads. Every REST
// response is an envelope {status, data}; any status other than "0000"
// is a venue-declared error.
type BithumbParser struct{}

// unwrap validates the envelope and returns the data object. Responses
// that carry their fields at the top level (trade endpoints) fall back
// to the envelope itself.
func (BithumbParser) unwrap(raw []byte) (map[string]any, error) {
	var payload map[string]any
	if err := decodeJSON(raw, &payload); err != nil {
		return nil, &ParserError{Venue: types.VenueBithumb, Detail: "envelope", Err: err}
	}
	status := strField(payload, "status")
	if status != "" && status != "0000" {
		detail := "status " + status
		if msg := strField(payload, "message"); msg != "" {
			detail += ": " + msg
		}
		return nil, &ParserError{Venue: types.VenueBithumb, Detail: detail}
	}
	if data, ok := payload["data"].(map[string]any); ok {
		return data, nil
	}
	return payload, nil
}

func (p BithumbParser) parseBookData(data map[string]any) (types.OrderBook, error) {
	ts, err := numField(data, "timestamp")
	if err != nil {
		return types.OrderBook{}, &ParserError{Venue: types.VenueBithumb, Detail: "timestamp", Err: err}
	}
	millis := ts.IntPart()

	symbol := strField(data, "order_currency")
	if symbol != "" {
		payment := strField(data, "payment_currency")
		if payment == "" {
			payment = "KRW"
		}
		symbol = symbol + "_" + payment
	}

	book := types.OrderBook{
		Symbol:    symbol,
		Venue:     types.VenueBithumb,
		Sequence:  millis,
		Timestamp: millis,
	}
	book.Bids, err = p.parseLevels(data["bids"], millis)
	if err != nil {
		return types.OrderBook{}, err
	}
	book.Asks, err = p.parseLevels(data["asks"], millis)
	if err != nil {
		return types.OrderBook{}, err
	}
	return book, nil
}

func (BithumbParser) parseLevels(v any, ts int64) ([]types.PriceLevel, error) {
	entries, _ := v.([]any)
	levels := make([]types.PriceLevel, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			return nil, &ParserError{Venue: types.VenueBithumb, Detail: "book level"}
		}
		price, err := numField(m, "price")
		if err != nil {
			return nil, &ParserError{Venue: types.VenueBithumb, Detail: "level price", Err: err}
		}
		qty, err := numField(m, "quantity")
		if err != nil {
			return nil, &ParserError{Venue: types.VenueBithumb, Detail: "level quantity", Err: err}
		}
		levels = append(levels, types.PriceLevel{Price: price, Quantity: qty, Timestamp: ts})
	}
	return levels, nil
}

// ParseOrderbook decodes a /public/orderbook response.
func (p BithumbParser) ParseOrderbook(raw []byte) (types.OrderBook, error) {
	data, err := p.unwrap(raw)
	if err != nil {
		return types.OrderBook{}, err
	}
	return p.parseBookData(data)
}

// ParseBalance decodes an /info/balance response for currency=ALL. The
// data object carries one available_<cur>/in_use_<cur>/total_<cur> triple
// per currency; currencies with no holdings at all are dropped.
func (p BithumbParser) ParseBalance(raw []byte) ([]types.Balance, error) {
	data, err := p.unwrap(raw)
	if err != nil {
		return nil, err
	}

	currencies := make([]string, 0)
	for key := range data {
		if cur, ok := strings.CutPrefix(key, "available_"); ok {
			currencies = append(currencies, cur)
		}
	}
	sort.Strings(currencies)

	balances := make([]types.Balance, 0, len(currencies))
	for _, cur := range currencies {
		available, err := numField(data, "available_"+cur)
		if err != nil {
			return nil, &ParserError{Venue: types.VenueBithumb, Detail: "available_" + cur, Err: err}
		}
		locked, err := numField(data, "in_use_"+cur)
		if err != nil {
			return nil, &ParserError{Venue: types.VenueBithumb, Detail: "in_use_" + cur, Err: err}
		}
		total := available.Add(locked)
		if v, ok := data["total_"+cur]; ok {
			total, err = toDecimal(v)
			if err != nil {
				return nil, &ParserError{Venue: types.VenueBithumb, Detail: "total_" + cur, Err: err}
			}
		}
		if available.IsZero() && locked.IsZero() && total.IsZero() {
			continue
		}
		balances = append(balances, types.Balance{
			Venue:     types.VenueBithumb,
			Currency:  strings.ToUpper(cur),
			Available: available,
			Locked:    locked,
			Total:     total,
		})
	}
	return balances, nil
}

// ParseOrderResult decodes trade and order-detail responses. Trade
// endpoints return order_id at the envelope level, order_detail nests
// the fields under data; unwrap handles both.
func (p BithumbParser) ParseOrderResult(raw []byte) (types.OrderResult, error) {
	data, err := p.unwrap(raw)
	if err != nil {
		return types.OrderResult{}, err
	}

	filled, err := numField(data, "contract_amount")
	if err != nil {
		return types.OrderResult{}, &ParserError{Venue: types.VenueBithumb, Detail: "contract_amount", Err: err}
	}
	avgPrice, err := optionalDecimal(data["contract_price"])
	if err != nil {
		return types.OrderResult{}, &ParserError{Venue: types.VenueBithumb, Detail: "contract_price", Err: err}
	}

	symbol := strField(data, "order_currency")
	if symbol != "" {
		payment := strField(data, "payment_currency")
		if payment == "" {
			payment = "KRW"
		}
		symbol = symbol + "_" + payment
	}
	status := strField(data, "order_status")
	if status == "" {
		status = strField(data, "status")
	}
	if status == "" || status == "0000" {
		status = "placed"
	}

	return types.OrderResult{
		OrderID:        strField(data, "order_id"),
		Venue:          types.VenueBithumb,
		Symbol:         symbol,
		Status:         status,
		FilledQuantity: filled,
		AveragePrice:   avgPrice,
		Raw:            data,
	}, nil
}

// parseStream decodes one orderbookdepth frame. Connection acks and
// other control frames carry no content and are skipped. Content comes
// either as bids/asks (snapshot shape) or as a flat change list keyed by
// orderType. Change lists touch only the levels that moved, so they are
// regrouped per side and marked Partial; zero-quantity entries are kept
// as removal markers for the merge.
func (p BithumbParser) parseStream(raw []byte) (types.OrderBook, bool, error) {
	var payload map[string]any
	if err := decodeJSON(raw, &payload); err != nil {
		return types.OrderBook{}, false, &ParserError{Venue: types.VenueBithumb, Detail: "stream frame", Err: err}
	}
	if status := strField(payload, "status"); status != "" && status != "0000" {
		return types.OrderBook{}, false, &ParserError{Venue: types.VenueBithumb, Detail: "stream status " + status}
	}
	content, ok := payload["content"].(map[string]any)
	if !ok {
		return types.OrderBook{}, false, nil
	}

	if _, ok := content["bids"]; ok {
		book, err := p.parseBookData(content)
		if err != nil {
			return types.OrderBook{}, false, err
		}
		return book, true, nil
	}

	list, ok := content["list"].([]any)
	if !ok {
		return types.OrderBook{}, false, nil
	}
	ts, err := numField(content, "datetime")
	if err != nil {
		return types.OrderBook{}, false, &ParserError{Venue: types.VenueBithumb, Detail: "datetime", Err: err}
	}
	book := types.OrderBook{
		Venue:     types.VenueBithumb,
		Sequence:  ts.IntPart(),
		Timestamp: ts.IntPart(),
		Partial:   true,
	}
	for _, e := range list {
		m, ok := e.(map[string]any)
		if !ok {
			return types.OrderBook{}, false, &ParserError{Venue: types.VenueBithumb, Detail: "stream level"}
		}
		if book.Symbol == "" {
			book.Symbol = strField(m, "symbol")
		}
		price, err := numField(m, "price")
		if err != nil {
			return types.OrderBook{}, false, &ParserError{Venue: types.VenueBithumb, Detail: "stream price", Err: err}
		}
		qty, err := numField(m, "quantity")
		if err != nil {
			return types.OrderBook{}, false, &ParserError{Venue: types.VenueBithumb, Detail: "stream quantity", Err: err}
		}
		level := types.PriceLevel{Price: price, Quantity: qty, Timestamp: book.Timestamp}
		switch strField(m, "orderType") {
		case "bid":
			book.Bids = append(book.Bids, level)
		case "ask":
			book.Asks = append(book.Asks, level)
		}
	}
	return book, true, nil
}

// BithumbWrapper is the high-level Bithumb client.
type BithumbWrapper struct {
	gw     *Gateway
	parser BithumbParser
	logger *slog.Logger
}

// NewBithumbWrapper wraps a Bithumb gateway.
func NewBithumbWrapper(gw *Gateway, logger *slog.Logger) *BithumbWrapper {
	return &BithumbWrapper{gw: gw, logger: logger.With("venue", types.VenueBithumb)}
}

func (w *BithumbWrapper) Name() string { return types.VenueBithumb }

// splitSymbol breaks "BTC_KRW" into order and payment currencies.
func splitSymbol(symbol string) (order, payment string) {
	parts := strings.SplitN(symbol, "_", 2)
	order = parts[0]
	payment = "KRW"
	if len(parts) == 2 && parts[1] != "" {
		payment = parts[1]
	}
	return order, payment
}

// GetOrderbook fetches the book for a symbol such as "BTC_KRW".
func (w *BithumbWrapper) GetOrderbook(ctx context.Context, symbol string) (types.OrderBook, error) {
	raw, err := w.gw.Request(ctx, http.MethodGet, "/public/orderbook/"+symbol, nil, false, nil)
	if err != nil {
		return types.OrderBook{}, err
	}
	return w.parser.ParseOrderbook(raw)
}

func (w *BithumbWrapper) GetBalance(ctx context.Context) ([]types.Balance, error) {
	raw, err := w.gw.Request(ctx, http.MethodPost, "/info/balance", map[string]string{"currency": "ALL"}, true, nil)
	if err != nil {
		return nil, err
	}
	return w.parser.ParseBalance(raw)
}

func (w *BithumbWrapper) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	order, payment := splitSymbol(req.Symbol)
	params := map[string]string{
		"order_currency":   order,
		"payment_currency": payment,
		"units":            req.Quantity.String(),
	}

	endpoint := "/trade/place"
	switch req.OrderType {
	case types.OrderTypeMarket:
		if req.Side == types.SideBid {
			endpoint = "/trade/market_buy"
		} else {
			endpoint = "/trade/market_sell"
		}
	default:
		params["type"] = string(req.Side)
		if req.Price != nil {
			params["price"] = req.Price.String()
		}
	}

	raw, err := w.gw.Request(ctx, http.MethodPost, endpoint, params, true, nil)
	if err != nil {
		return types.OrderResult{}, err
	}
	result, err := w.parser.ParseOrderResult(raw)
	if err != nil {
		return types.OrderResult{}, err
	}
	if result.Symbol == "" {
		result.Symbol = req.Symbol
	}
	return result, nil
}

func (w *BithumbWrapper) CancelOrder(ctx context.Context, orderID, symbol string, side types.Side) (types.OrderResult, error) {
	order, payment := splitSymbol(symbol)
	params := map[string]string{
		"order_id":         orderID,
		"type":             string(side),
		"order_currency":   order,
		"payment_currency": payment,
	}
	raw, err := w.gw.Request(ctx, http.MethodPost, "/trade/cancel", params, true, nil)
	if err != nil {
		return types.OrderResult{}, err
	}
	return w.parser.ParseOrderResult(raw)
}

func (w *BithumbWrapper) GetOrderStatus(ctx context.Context, orderID, symbol string, side types.Side) (types.OrderResult, error) {
	order, payment := splitSymbol(symbol)
	params := map[string]string{
		"order_id":         orderID,
		"order_currency":   order,
		"payment_currency": payment,
	}
	raw, err := w.gw.Request(ctx, http.MethodPost, "/info/order_detail", params, true, nil)
	if err != nil {
		return types.OrderResult{}, err
	}
	return w.parser.ParseOrderResult(raw)
}

// BuyMarketOrder buys volume base units at market. Unlike Upbit, both
// Bithumb market order sides are denominated in the base currency.
func (w *BithumbWrapper) BuyMarketOrder(ctx context.Context, symbol string, volume decimal.Decimal) (types.OrderResult, error) {
	return w.PlaceOrder(ctx, types.OrderRequest{
		Venue:     types.VenueBithumb,
		Symbol:    symbol,
		Side:      types.SideBid,
		OrderType: types.OrderTypeMarket,
		Quantity:  volume,
	})
}

// SellMarketOrder sells volume base units at market.
func (w *BithumbWrapper) SellMarketOrder(ctx context.Context, symbol string, volume decimal.Decimal) (types.OrderResult, error) {
	return w.PlaceOrder(ctx, types.OrderRequest{
		Venue:     types.VenueBithumb,
		Symbol:    symbol,
		Side:      types.SideAsk,
		OrderType: types.OrderTypeMarket,
		Quantity:  volume,
	})
}

// SubscribeOrderbook streams orderbookdepth frames for one symbol. The
// stream ends on connection loss, a venue error frame, a handler error,
// or cancellation; the caller owns resubscription.
func (w *BithumbWrapper) SubscribeOrderbook(ctx context.Context, symbol string, handler BookHandler) error {
	conn, err := w.gw.WSConnect(ctx, "")
	if err != nil {
		return err
	}
	w.logger.Debug("order book stream connected", "symbol", symbol)

	frame, err := json.Marshal(map[string]any{
		"type":      "orderbookdepth",
		"symbols":   []string{symbol},
		"tickTypes": []string{"30"},
	})
	if err != nil {
		return err
	}

	return runSubscription(ctx, conn, frame, func(msg []byte) error {
		book, ok, err := w.parser.parseStream(msg)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		return handler(book)
	})
}

func (w *BithumbWrapper) Close() error { return w.gw.Close() }
