package book

import (
	"context"
	"log/slog"
	"time"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

const defaultRetryInterval = 5 * time.Second

// Feed keeps a Manager current from a venue's order-book stream. Start
// seeds the book over REST, then a background goroutine holds the
// subscription open, reconnecting after a pause whenever it drops.
// Full stream payloads replace the book; partial payloads merge through
// the delta path.
type Feed struct {
	manager *Manager
	source  Source
	logger  *slog.Logger

	// RetryInterval is the pause between reconnect attempts. Set before
	// Start; defaults to 5s.
	RetryInterval time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// NewFeed builds a feed for the manager's symbol.
func NewFeed(manager *Manager, source Source, logger *slog.Logger) *Feed {
	return &Feed{
		manager:       manager,
		source:        source,
		logger:        logger.With("symbol", manager.Symbol()),
		RetryInterval: defaultRetryInterval,
	}
}

// Start seeds the book and launches the streaming loop. The initial
// fetch failing fails Start; stream drops after that only log and retry.
func (f *Feed) Start(ctx context.Context) error {
	if err := f.manager.Initialize(ctx, f.source); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})

	go func() {
		defer close(f.done)
		for {
			err := f.source.SubscribeOrderbook(runCtx, f.manager.Symbol(), func(ob types.OrderBook) error {
				if ob.Partial {
					return f.manager.ApplyDelta(DeltaFromOrderBook(ob))
				}
				f.manager.UpdateFull(ob)
				return nil
			})
			if runCtx.Err() != nil {
				return
			}
			f.logger.Warn("order book stream dropped", "error", err)
			select {
			case <-runCtx.Done():
				return
			case <-time.After(f.RetryInterval):
			}
			// deltas missed during the gap never replay; refetch before
			// resubscribing so the merge base is current
			if err := f.manager.Initialize(runCtx, f.source); err != nil {
				f.logger.Warn("book refetch failed", "error", err)
			}
		}
	}()
	return nil
}

// Stop tears the subscription down and waits for the loop to exit.
// Stopping a feed that never started is a no-op.
func (f *Feed) Stop() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	<-f.done
}
