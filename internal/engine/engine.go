// Package engine drives the trade loop: keep both venues' books fresh,
// evaluate every configured pair each tick, gate signals through risk,
// and hand survivors to the executor.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/book"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/exchange"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/executor"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/risk"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/strategy"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// Pair is one tradable pair across both venues, with its managed books
// and stream feeds.
type Pair struct {
	Name          string // display name, e.g. "BTC/KRW"
	Base          string // base currency, e.g. "BTC"
	Quote         string // quote currency, e.g. "KRW"
	UpbitSymbol   string // e.g. "KRW-BTC"
	BithumbSymbol string // e.g. "BTC_KRW"

	UpbitBook   *book.Manager
	BithumbBook *book.Manager

	upbitFeed   *book.Feed
	bithumbFeed *book.Feed
	disabled    bool
}

// NewPair builds a pair with book managers and feeds bound to the two
// venue clients.
func NewPair(name, base, quote, upbitSymbol, bithumbSymbol string, upbit, bithumb book.Source, logger *slog.Logger) *Pair {
	p := &Pair{
		Name:          name,
		Base:          base,
		Quote:         quote,
		UpbitSymbol:   upbitSymbol,
		BithumbSymbol: bithumbSymbol,
		UpbitBook:     book.NewManager(upbitSymbol),
		BithumbBook:   book.NewManager(bithumbSymbol),
	}
	p.upbitFeed = book.NewFeed(p.UpbitBook, upbit, logger.With("venue", types.VenueUpbit))
	p.bithumbFeed = book.NewFeed(p.BithumbBook, bithumb, logger.With("venue", types.VenueBithumb))
	return p
}

// Engine owns the trade loop across all configured pairs. One risk
// manager (and so one circuit breaker) is shared by every pair.
type Engine struct {
	upbit        exchange.Wrapper
	bithumb      exchange.Wrapper
	pairs        []*Pair
	strategy     *strategy.SpreadArbitrage
	risk         *risk.Manager
	exec         *executor.Executor
	pollInterval time.Duration
	logger       *slog.Logger
}

// New wires an engine.
func New(upbit, bithumb exchange.Wrapper, pairs []*Pair, strat *strategy.SpreadArbitrage, riskMgr *risk.Manager, exec *executor.Executor, pollInterval time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		upbit:        upbit,
		bithumb:      bithumb,
		pairs:        pairs,
		strategy:     strat,
		risk:         riskMgr,
		exec:         exec,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Run starts the book feeds and ticks until ctx is cancelled. A pair
// whose feeds cannot start is disabled for the session rather than
// failing the run.
func (e *Engine) Run(ctx context.Context) error {
	e.startFeeds(ctx)
	defer e.stopFeeds()

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		e.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) startFeeds(ctx context.Context) {
	for _, p := range e.pairs {
		if err := p.upbitFeed.Start(ctx); err != nil {
			e.logger.Warn("disabling pair, upbit feed failed to start", "pair", p.Name, "error", err)
			p.disabled = true
			continue
		}
		if err := p.bithumbFeed.Start(ctx); err != nil {
			e.logger.Warn("disabling pair, bithumb feed failed to start", "pair", p.Name, "error", err)
			p.upbitFeed.Stop()
			p.disabled = true
			continue
		}
		e.logger.Info("pair feeds started", "pair", p.Name)
	}
}

func (e *Engine) stopFeeds() {
	for _, p := range e.pairs {
		if p.disabled {
			continue
		}
		p.upbitFeed.Stop()
		p.bithumbFeed.Stop()
	}
}

// RunOnce performs a single tick: one balance fetch per venue, then one
// evaluation per pair. A failed balance fetch skips the whole tick
// without charging the circuit breaker.
func (e *Engine) RunOnce(ctx context.Context) {
	if !e.hasActivePairs() {
		return
	}

	upbitBalances, err := e.upbit.GetBalance(ctx)
	if err != nil {
		e.logger.Warn("skipping tick, upbit balance fetch failed", "error", err)
		return
	}
	bithumbBalances, err := e.bithumb.GetBalance(ctx)
	if err != nil {
		e.logger.Warn("skipping tick, bithumb balance fetch failed", "error", err)
		return
	}
	upbitAvail := availableByCurrency(upbitBalances)
	bithumbAvail := availableByCurrency(bithumbBalances)

	for _, p := range e.pairs {
		if p.disabled {
			continue
		}
		e.evaluatePair(ctx, p, upbitAvail, bithumbAvail)
	}
}

func (e *Engine) evaluatePair(ctx context.Context, p *Pair, upbitAvail, bithumbAvail map[string]decimal.Decimal) {
	upbitSnap, err := p.UpbitBook.Snapshot()
	if err != nil {
		return
	}
	bithumbSnap, err := p.BithumbBook.Snapshot()
	if err != nil {
		return
	}

	sig := e.strategy.Calculate(upbitSnap, bithumbSnap)
	if sig == nil {
		return
	}

	bal := risk.BalanceState{
		UpbitBase:    upbitAvail[p.Base],
		UpbitQuote:   upbitAvail[p.Quote],
		BithumbBase:  bithumbAvail[p.Base],
		BithumbQuote: bithumbAvail[p.Quote],
	}
	if ok, reason := e.risk.Evaluate(sig, bal); !ok {
		e.logger.Info("signal rejected",
			"pair", p.Name, "direction", string(sig.Direction), "reason", reason)
		return
	}

	res, err := e.exec.Execute(ctx, sig, p.UpbitSymbol, p.BithumbSymbol)
	if err != nil {
		e.risk.RecordFailure()
		e.logger.Error("trade execution failed",
			"pair", p.Name, "direction", string(sig.Direction), "error", err)
		return
	}
	e.risk.RecordSuccess()
	e.logger.Info("trade executed",
		"pair", p.Name,
		"direction", string(sig.Direction),
		"volume", sig.Volume.String(),
		"spread", sig.Spread.String(),
		"expected_profit", sig.ExpectedProfit.String(),
		"upbit_order", res.Upbit.OrderID,
		"bithumb_order", res.Bithumb.OrderID,
	)
}

func (e *Engine) hasActivePairs() bool {
	for _, p := range e.pairs {
		if !p.disabled {
			return true
		}
	}
	return false
}

func availableByCurrency(balances []types.Balance) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(balances))
	for _, b := range balances {
		out[b.Currency] = b.Available
	}
	return out
}
