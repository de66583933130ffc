package book

import (
	"context"
	"errors"
	"sync"

	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/internal/exchange"
	"github.com/HomuraCatMadoka/VC-Trader-Platform-v1/pkg/types"
)

// ErrNotInitialized is returned by reads and delta application before
// the first full book has been loaded.
var ErrNotInitialized = errors.New("order book not initialized")

// Source is the slice of a venue client the book layer needs.
// exchange.Wrapper satisfies it.
type Source interface {
	GetOrderbook(ctx context.Context, symbol string) (types.OrderBook, error)
	SubscribeOrderbook(ctx context.Context, symbol string, handler exchange.BookHandler) error
}

// Manager owns the live book for one symbol on one venue. All methods
// are safe for concurrent use; Snapshot and TopN return deep copies.
type Manager struct {
	symbol string

	mu    sync.Mutex
	snap  Snapshot
	ready bool
}

// NewManager creates an empty manager for a venue-native symbol.
func NewManager(symbol string) *Manager {
	return &Manager{symbol: symbol}
}

// Symbol returns the venue-native symbol this manager tracks.
func (m *Manager) Symbol() string { return m.symbol }

// Initialize seeds the book with one full fetch from the source.
func (m *Manager) Initialize(ctx context.Context, src Source) error {
	ob, err := src.GetOrderbook(ctx, m.symbol)
	if err != nil {
		return err
	}
	m.UpdateFull(ob)
	return nil
}

// UpdateFull replaces the book with a full venue payload.
func (m *Manager) UpdateFull(ob types.OrderBook) {
	snap := FromOrderBook(ob)
	m.mu.Lock()
	m.snap = snap
	m.ready = true
	m.mu.Unlock()
}

// ApplyDelta merges an incremental update into the book.
func (m *Manager) ApplyDelta(d Delta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return ErrNotInitialized
	}
	return m.snap.apply(d)
}

// Snapshot returns a deep copy of the current book.
func (m *Manager) Snapshot() (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return Snapshot{}, ErrNotInitialized
	}
	return m.snap.clone(), nil
}

// TopN returns a deep copy truncated to the n best levels per side.
func (m *Manager) TopN(n int) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return Snapshot{}, ErrNotInitialized
	}
	return m.snap.TopN(n), nil
}
