// Package executor turns signals into venue orders, firing both legs
// concurrently. In dry-run mode it fabricates fills without touching
// either venue.
package executor

import (
	"context"
	"log/slog"
	"sync"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/exchange"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/strategy"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// DryRunOrderID marks synthetic results produced without venue I/O.
const DryRunOrderID = "dryrun"

// Result carries both leg outcomes of one arbitrage execution.
type Result struct {
	Upbit   types.OrderResult
	Bithumb types.OrderResult
}

// Executor submits the two legs of a signal.
type Executor struct {
	upbit   exchange.Wrapper
	bithumb exchange.Wrapper
	dryRun  bool
	logger  *slog.Logger
}

// New builds an executor. With dryRun set, Execute never performs I/O.
func New(upbit, bithumb exchange.Wrapper, dryRun bool, logger *slog.Logger) *Executor {
	return &Executor{upbit: upbit, bithumb: bithumb, dryRun: dryRun, logger: logger}
}

// Execute fires both legs concurrently and waits for both. The sell leg
// follows the signal direction; the opposite venue buys the same base
// volume (Upbit's buy leg spends volume times the Upbit leg price, its
// quote-denominated market-buy convention). When both legs fail, the
// Upbit error is returned.
func (e *Executor) Execute(ctx context.Context, sig *strategy.Signal, upbitSymbol, bithumbSymbol string) (Result, error) {
	if e.dryRun {
		return e.simulate(sig, upbitSymbol, bithumbSymbol), nil
	}

	var (
		res        Result
		upbitErr   error
		bithumbErr error
		wg         sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if sig.Direction == strategy.DirectionUpbitSell {
			res.Upbit, upbitErr = e.upbit.SellMarketOrder(ctx, upbitSymbol, sig.Volume)
		} else {
			res.Upbit, upbitErr = e.upbit.BuyMarketOrder(ctx, upbitSymbol, sig.Volume.Mul(sig.UpbitPrice))
		}
	}()
	go func() {
		defer wg.Done()
		if sig.Direction == strategy.DirectionUpbitSell {
			res.Bithumb, bithumbErr = e.bithumb.BuyMarketOrder(ctx, bithumbSymbol, sig.Volume)
		} else {
			res.Bithumb, bithumbErr = e.bithumb.SellMarketOrder(ctx, bithumbSymbol, sig.Volume)
		}
	}()
	wg.Wait()

	if upbitErr != nil {
		e.logger.Error("upbit leg failed", "direction", sig.Direction, "error", upbitErr)
		return res, upbitErr
	}
	if bithumbErr != nil {
		e.logger.Error("bithumb leg failed", "direction", sig.Direction, "error", bithumbErr)
		return res, bithumbErr
	}
	return res, nil
}

func (e *Executor) simulate(sig *strategy.Signal, upbitSymbol, bithumbSymbol string) Result {
	upbitPrice, bithumbPrice := sig.UpbitPrice, sig.BithumbPrice
	e.logger.Info("dry run: skipping order submission",
		"direction", sig.Direction, "volume", sig.Volume.String())
	return Result{
		Upbit: types.OrderResult{
			OrderID:        DryRunOrderID,
			Venue:          types.VenueUpbit,
			Symbol:         upbitSymbol,
			Status:         "filled",
			FilledQuantity: sig.Volume,
			AveragePrice:   &upbitPrice,
		},
		Bithumb: types.OrderResult{
			OrderID:        DryRunOrderID,
			Venue:          types.VenueBithumb,
			Symbol:         bithumbSymbol,
			Status:         "filled",
			FilledQuantity: sig.Volume,
			AveragePrice:   &bithumbPrice,
		},
	}
}
