package risk

import (
	"github.com/shopspring/decimal"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/strategy"
)

// Config holds all risk parameters.
type Config struct {
	ReserveRatio decimal.Decimal
	Position     PositionLimit
	Breaker      BreakerConfig
}

// Manager runs every gate in order: circuit breaker, position limits,
// balance reserve. Execution outcomes feed back through RecordSuccess
// and RecordFailure.
type Manager struct {
	breaker  *CircuitBreaker
	position PositionLimit
	balance  BalanceChecker
}

// NewManager wires the gates from config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		breaker:  NewCircuitBreaker(cfg.Breaker),
		position: cfg.Position,
		balance:  BalanceChecker{ReserveRatio: cfg.ReserveRatio},
	}
}

// Evaluate reports whether the signal may execute; on rejection the
// reason names the gate that refused it.
func (m *Manager) Evaluate(sig *strategy.Signal, bal BalanceState) (bool, string) {
	if !m.breaker.Allow() {
		return false, "circuit breaker open"
	}
	if ok, reason := m.position.Check(sig); !ok {
		return false, reason
	}
	if ok, reason := m.balance.Check(sig, bal); !ok {
		return false, reason
	}
	return true, ""
}

// RecordSuccess reports a completed execution to the breaker.
func (m *Manager) RecordSuccess() { m.breaker.RecordSuccess() }

// RecordFailure reports a failed execution to the breaker.
func (m *Manager) RecordFailure() { m.breaker.RecordFailure() }
