// Package risk gates signals before execution: a failure-counting
// circuit breaker, per-trade position limits, and a balance check that
// keeps a reserve on both venues.
package risk

import (
	"sync"
	"time"
)

// BreakerConfig parameterizes the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	CoolDown         time.Duration
}

// CircuitBreaker denies trading after FailureThreshold consecutive
// execution failures, for CoolDown. The first Allow after the cooldown
// elapses closes the breaker again.
type CircuitBreaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

// NewCircuitBreaker builds a closed breaker.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Allow reports whether trading may proceed.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures >= b.cfg.FailureThreshold {
		if b.now().Before(b.openUntil) {
			return false
		}
		b.failures = 0
	}
	return true
}

// RecordFailure counts one execution failure; crossing the threshold
// opens the breaker for the cooldown period.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.failures >= b.cfg.FailureThreshold {
		b.openUntil = b.now().Add(b.cfg.CoolDown)
	}
}

// RecordSuccess resets the consecutive-failure count.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	b.failures = 0
	b.mu.Unlock()
}
