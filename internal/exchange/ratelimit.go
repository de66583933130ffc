// ratelimit.go implements token-bucket admission for venue API calls.
//
// Each gateway carries two buckets — public and private — shared by every
// concurrent caller going through it. Buckets refill continuously rather
// than in window-sized bursts, so sustained callers see a smooth rate
// instead of periodic 429s.
package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// TokenBucket is a rate limiter with continuous refill. Callers block in
// Acquire until enough tokens are available or the context is cancelled.
// Refill and deduction happen in one critical section; the wait happens
// outside it.
type TokenBucket struct {
	mu       sync.Mutex
	tokens   float64   // current available tokens (fractional allowed)
	capacity float64   // maximum burst size
	rate     float64   // tokens refilled per second
	lastTime time.Time // last time tokens were calculated
}

// NewTokenBucket creates a limiter with the given burst capacity and
// refill rate per second. The bucket starts full.
func NewTokenBucket(capacity, ratePerSecond float64) *TokenBucket {
	return &TokenBucket{
		tokens:   capacity,
		capacity: capacity,
		rate:     ratePerSecond,
		lastTime: time.Now(),
	}
}

// Acquire blocks until n tokens are available or ctx is cancelled.
// n <= 0 is a no-op.
func (tb *TokenBucket) Acquire(ctx context.Context, n float64) error {
	if n <= 0 {
		return nil
	}
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.lastTime).Seconds()
		tb.tokens += elapsed * tb.rate
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastTime = now

		if tb.tokens >= n {
			tb.tokens -= n
			tb.mu.Unlock()
			return nil
		}

		wait := time.Duration((n - tb.tokens) / tb.rate * float64(time.Second))
		tb.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			// retry
		}
	}
}

// Wait acquires a single token.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.Acquire(ctx, 1)
}

// Limit holds the public/private bucket parameters for one venue.
type Limit struct {
	PublicCapacity  float64
	PublicRate      float64
	PrivateCapacity float64
	PrivateRate     float64
}

// DefaultLimits are tuned to each venue's published per-second allowances.
var DefaultLimits = map[string]Limit{
	types.VenueUpbit:   {PublicCapacity: 10, PublicRate: 10, PrivateCapacity: 8, PrivateRate: 8},
	types.VenueBithumb: {PublicCapacity: 20, PublicRate: 20, PrivateCapacity: 15, PrivateRate: 15},
}

// Buckets builds the public/private bucket pair for a limit.
func (l Limit) Buckets() (public, private *TokenBucket) {
	return NewTokenBucket(l.PublicCapacity, l.PublicRate),
		NewTokenBucket(l.PrivateCapacity, l.PrivateRate)
}
