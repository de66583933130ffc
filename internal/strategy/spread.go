// Package strategy detects cross-venue spot arbitrage from top-of-book
// prices. It is pure calculation: no I/O, no clock, no state.
package strategy

import (
	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/book"
)

// Direction names which venue the sell leg lands on.
type Direction string

const (
	// DirectionUpbitSell sells on Upbit and buys on Bithumb.
	DirectionUpbitSell Direction = "upbit_sell"
	// DirectionBithumbSell sells on Bithumb and buys on Upbit.
	DirectionBithumbSell Direction = "bithumb_sell"
)

// Config holds the strategy parameters. Fees are taker rates per venue;
// MinProfitRate is the required edge on top of round-trip fees.
type Config struct {
	MinProfitRate decimal.Decimal
	MaxVolume     decimal.Decimal
	UpbitFee      decimal.Decimal
	BithumbFee    decimal.Decimal
}

// TotalFee is the round-trip fee rate, one taker fee per venue.
func (c Config) TotalFee() decimal.Decimal {
	return c.UpbitFee.Add(c.BithumbFee)
}

// Signal is one actionable opportunity. Volume is base units, already
// capped by displayed size and MaxVolume. UpbitPrice and BithumbPrice
// are the leg prices the spread was computed from.
type Signal struct {
	Direction      Direction
	Volume         decimal.Decimal
	Spread         decimal.Decimal
	ExpectedProfit decimal.Decimal
	UpbitPrice     decimal.Decimal
	BithumbPrice   decimal.Decimal
}

// SpreadArbitrage compares top-of-book across the two venues.
type SpreadArbitrage struct {
	cfg Config
}

// New builds a detector with the given parameters.
func New(cfg Config) *SpreadArbitrage {
	return &SpreadArbitrage{cfg: cfg}
}

// Calculate evaluates both directions against the given snapshots and
// returns the better opportunity, or nil when neither clears the
// threshold. The spread must strictly exceed fees plus MinProfitRate;
// on equal expected profit the Upbit-sell direction wins.
func (s *SpreadArbitrage) Calculate(upbit, bithumb book.Snapshot) *Signal {
	threshold := s.cfg.TotalFee().Add(s.cfg.MinProfitRate)

	var best *Signal
	if sig := s.evaluate(DirectionUpbitSell, upbit, bithumb, threshold); sig != nil {
		best = sig
	}
	if sig := s.evaluate(DirectionBithumbSell, upbit, bithumb, threshold); sig != nil {
		if best == nil || sig.ExpectedProfit.GreaterThan(best.ExpectedProfit) {
			best = sig
		}
	}
	return best
}

func (s *SpreadArbitrage) evaluate(dir Direction, upbit, bithumb book.Snapshot, threshold decimal.Decimal) *Signal {
	var sell, buy struct {
		price decimal.Decimal
		qty   decimal.Decimal
	}

	switch dir {
	case DirectionUpbitSell:
		bid, ok := upbit.BestBid()
		if !ok {
			return nil
		}
		ask, ok := bithumb.BestAsk()
		if !ok {
			return nil
		}
		sell.price, sell.qty = bid.Price, bid.Quantity
		buy.price, buy.qty = ask.Price, ask.Quantity
	default:
		bid, ok := bithumb.BestBid()
		if !ok {
			return nil
		}
		ask, ok := upbit.BestAsk()
		if !ok {
			return nil
		}
		sell.price, sell.qty = bid.Price, bid.Quantity
		buy.price, buy.qty = ask.Price, ask.Quantity
	}

	if buy.price.IsZero() || !sell.price.GreaterThan(buy.price) {
		return nil
	}
	spread := sell.price.Sub(buy.price).Div(buy.price)
	if !spread.GreaterThan(threshold) {
		return nil
	}

	volume := decimal.Min(sell.qty, buy.qty, s.cfg.MaxVolume)
	if !volume.IsPositive() {
		return nil
	}

	sig := &Signal{
		Direction:      dir,
		Volume:         volume,
		Spread:         spread,
		ExpectedProfit: spread.Sub(s.cfg.TotalFee()),
	}
	if dir == DirectionUpbitSell {
		sig.UpbitPrice, sig.BithumbPrice = sell.price, buy.price
	} else {
		sig.UpbitPrice, sig.BithumbPrice = buy.price, sell.price
	}
	return sig
}
