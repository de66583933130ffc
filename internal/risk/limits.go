package risk

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/strategy"
)

// PositionLimit caps a single trade. A zero limit disables that check.
type PositionLimit struct {
	MaxVolume   decimal.Decimal
	MaxNotional decimal.Decimal
}

// Check validates a signal against the limits. Notional is taken at the
// worse (higher) of the two leg prices.
func (l PositionLimit) Check(sig *strategy.Signal) (bool, string) {
	if l.MaxVolume.IsPositive() && sig.Volume.GreaterThan(l.MaxVolume) {
		return false, fmt.Sprintf("volume %s exceeds limit %s", sig.Volume, l.MaxVolume)
	}
	if l.MaxNotional.IsPositive() {
		notional := decimal.Max(sig.UpbitPrice, sig.BithumbPrice).Mul(sig.Volume)
		if notional.GreaterThan(l.MaxNotional) {
			return false, fmt.Sprintf("notional %s exceeds limit %s", notional, l.MaxNotional)
		}
	}
	return true, ""
}
