package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

const upbitBookFixture = `[{"market":"KRW-BTC","timestamp":1700000000000,"total_ask_size":0.7,"total_bid_size":0.7,"orderbook_units":[{"ask_price":95100000,"bid_price":95000000,"ask_size":0.2,"bid_size":0.3},{"ask_price":95200000,"bid_price":94900000,"ask_size":0.5,"bid_size":0.4}]}]`

func TestUpbitParseOrderbook(t *testing.T) {
	t.Parallel()
	var p UpbitParser
	book, err := p.ParseOrderbook([]byte(upbitBookFixture))
	if err != nil {
		t.Fatal(err)
	}

	if book.Symbol != "KRW-BTC" || book.Venue != types.VenueUpbit {
		t.Errorf("identity = %s/%s", book.Symbol, book.Venue)
	}
	if book.Sequence != 1700000000000 {
		t.Errorf("sequence = %d", book.Sequence)
	}
	if len(book.Bids) != 2 || len(book.Asks) != 2 {
		t.Fatalf("levels = %d/%d", len(book.Bids), len(book.Asks))
	}
	if !book.Bids[0].Price.Equal(decimal.NewFromInt(95000000)) {
		t.Errorf("best bid = %s", book.Bids[0].Price)
	}
	if !book.Asks[0].Quantity.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("best ask size = %s", book.Asks[0].Quantity)
	}
}

func TestUpbitParseOrderbookEmpty(t *testing.T) {
	t.Parallel()
	var p UpbitParser
	if _, err := p.ParseOrderbook([]byte(`[]`)); err == nil {
		t.Fatal("want error for empty payload")
	}
}

func TestUpbitParseBalance(t *testing.T) {
	t.Parallel()
	raw := `[{"currency":"KRW","balance":"1000000.0","locked":"0.0"},{"currency":"BTC","balance":"0.5","locked":"0.1"}]`
	var p UpbitParser
	balances, err := p.ParseBalance([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if len(balances) != 2 {
		t.Fatalf("balances = %d", len(balances))
	}
	btc := balances[1]
	if btc.Currency != "BTC" {
		t.Fatalf("currency = %s", btc.Currency)
	}
	if !btc.Available.Equal(decimal.RequireFromString("0.5")) || !btc.Total.Equal(decimal.RequireFromString("0.6")) {
		t.Errorf("available = %s, total = %s", btc.Available, btc.Total)
	}
}

func TestUpbitParseOrderResult(t *testing.T) {
	t.Parallel()
	raw := `{"uuid":"cdd92199-2897-4e14-9448-f923320408ad","side":"ask","ord_type":"market","state":"done","market":"KRW-BTC","executed_volume":"0.1","avg_price":"95000000.0"}`
	var p UpbitParser
	res, err := p.ParseOrderResult([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if res.OrderID != "cdd92199-2897-4e14-9448-f923320408ad" || res.Status != "done" {
		t.Errorf("id = %s, status = %s", res.OrderID, res.Status)
	}
	if !res.FilledQuantity.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("filled = %s", res.FilledQuantity)
	}
	if res.AveragePrice == nil || !res.AveragePrice.Equal(decimal.NewFromInt(95000000)) {
		t.Errorf("avg price = %v", res.AveragePrice)
	}
	if res.Raw["side"] != "ask" {
		t.Errorf("raw side = %v", res.Raw["side"])
	}
}

func TestUpbitParseOrderResultNoFills(t *testing.T) {
	t.Parallel()
	raw := `{"uuid":"u2","state":"wait","market":"KRW-BTC","executed_volume":"0","avg_price":""}`
	var p UpbitParser
	res, err := p.ParseOrderResult([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	if res.AveragePrice != nil {
		t.Errorf("avg price = %v, want nil", res.AveragePrice)
	}
	if !res.FilledQuantity.IsZero() {
		t.Errorf("filled = %s", res.FilledQuantity)
	}
}

func TestUpbitNormalizeStream(t *testing.T) {
	t.Parallel()
	var p UpbitParser

	frame := `{"type":"orderbook","code":"KRW-BTC","timestamp":1700000000001,"orderbook_units":[{"ask_price":95100000,"bid_price":95000000,"ask_size":0.2,"bid_size":0.3}],"stream_type":"REALTIME"}`
	normalized, ok, err := p.normalizeStream([]byte(frame))
	if err != nil || !ok {
		t.Fatalf("normalize: ok=%v err=%v", ok, err)
	}
	book, err := p.ParseOrderbook(normalized)
	if err != nil {
		t.Fatal(err)
	}
	if book.Symbol != "KRW-BTC" || len(book.Bids) != 1 {
		t.Errorf("symbol = %s, bids = %d", book.Symbol, len(book.Bids))
	}

	// status frames carry no book and are dropped
	if _, ok, err := p.normalizeStream([]byte(`{"status":"UP"}`)); err != nil || ok {
		t.Errorf("status frame: ok=%v err=%v", ok, err)
	}
}

func TestUpbitWrapperGetOrderbook(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orderbook" || r.URL.Query().Get("markets") != "KRW-BTC" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		w.Write([]byte(upbitBookFixture))
	}))
	defer srv.Close()

	w := NewUpbitWrapper(NewUpbitGateway(Settings{RESTBase: srv.URL}, testLimit), testLogger())
	book, err := w.GetOrderbook(context.Background(), "KRW-BTC")
	if err != nil {
		t.Fatal(err)
	}
	if book.Symbol != "KRW-BTC" {
		t.Errorf("symbol = %s", book.Symbol)
	}
}

func TestUpbitWrapperMarketOrders(t *testing.T) {
	t.Parallel()
	var bodies []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := decodeJSON(mustReadAll(t, r), &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		bodies = append(bodies, body)
		w.Write([]byte(`{"uuid":"u3","state":"wait","market":"KRW-BTC","executed_volume":"0"}`))
	}))
	defer srv.Close()

	w := NewUpbitWrapper(NewUpbitGateway(Settings{RESTBase: srv.URL, AccessKey: "k", SecretKey: "s"}, testLimit), testLogger())
	ctx := context.Background()

	if _, err := w.BuyMarketOrder(ctx, "KRW-BTC", decimal.NewFromInt(9500000)); err != nil {
		t.Fatal(err)
	}
	if _, err := w.SellMarketOrder(ctx, "KRW-BTC", decimal.RequireFromString("0.1")); err != nil {
		t.Fatal(err)
	}

	buy, sell := bodies[0], bodies[1]
	if buy["side"] != "bid" || buy["ord_type"] != "price" || buy["price"] != "9500000" {
		t.Errorf("buy body = %v", buy)
	}
	if _, ok := buy["volume"]; ok {
		t.Error("quote-denominated buy must not carry volume")
	}
	if sell["side"] != "ask" || sell["ord_type"] != "market" || sell["volume"] != "0.1" {
		t.Errorf("sell body = %v", sell)
	}
}
