package risk

import (
	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/strategy"
)

// BalanceState is the available balances relevant to one pair: the base
// currency on both venues and the quote currency on both venues.
type BalanceState struct {
	UpbitBase    decimal.Decimal
	UpbitQuote   decimal.Decimal
	BithumbBase  decimal.Decimal
	BithumbQuote decimal.Decimal
}

// BalanceChecker rejects trades that would dip either venue's funding
// currency below ReserveRatio of its current balance.
type BalanceChecker struct {
	ReserveRatio decimal.Decimal
}

// Check validates that both legs leave the required reserve behind. The
// sell leg spends base units, the buy leg spends quote at that venue's
// leg price.
func (c BalanceChecker) Check(sig *strategy.Signal, bal BalanceState) (bool, string) {
	var sellBase, buyQuote, cost decimal.Decimal
	if sig.Direction == strategy.DirectionUpbitSell {
		sellBase = bal.UpbitBase
		buyQuote = bal.BithumbQuote
		cost = sig.Volume.Mul(sig.BithumbPrice)
	} else {
		sellBase = bal.BithumbBase
		buyQuote = bal.UpbitQuote
		cost = sig.Volume.Mul(sig.UpbitPrice)
	}

	if sellBase.Sub(sig.Volume).LessThan(c.ReserveRatio.Mul(sellBase)) {
		return false, "insufficient base balance after reserve"
	}
	if buyQuote.Sub(cost).LessThan(c.ReserveRatio.Mul(buyQuote)) {
		return false, "insufficient quote balance after reserve"
	}
	return true, ""
}
