package portfolio

import (
	"context"
	"sync"
	"time"
)

// MemoryClient is an in-memory portfolio used by tests and dry-runs. It has
// the same semantics as the HTTP client against a live service.
type MemoryClient struct {
	mu        sync.RWMutex
	positions map[string]float64
	value     *float64
	pnl       []pnlEntry
	err       error
}

type pnlEntry struct {
	strategyID string
	pnl        float64
	ts         time.Time
}

var _ Client = (*MemoryClient)(nil)

// NewMemoryClient returns an empty in-memory portfolio.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{positions: make(map[string]float64)}
}

// SetPosition sets the current position for a symbol.
func (m *MemoryClient) SetPosition(symbol string, position float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[symbol] = position
}

// SetPortfolioValue sets the total portfolio value; nil marks it unavailable.
func (m *MemoryClient) SetPortfolioValue(value *float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
}

// AddPnL records a P&L entry for a strategy at the given time.
func (m *MemoryClient) AddPnL(strategyID string, pnl float64, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pnl = append(m.pnl, pnlEntry{strategyID: strategyID, pnl: pnl, ts: ts})
}

// FailWith makes every call return err until reset with FailWith(nil).
func (m *MemoryClient) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Position implements Client.
func (m *MemoryClient) Position(_ context.Context, symbol string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	return m.positions[symbol], nil
}

// AllPositions implements Client.
func (m *MemoryClient) AllPositions(_ context.Context) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]float64, len(m.positions))
	for k, v := range m.positions {
		out[k] = v
	}
	return out, nil
}

// PortfolioValue implements Client.
func (m *MemoryClient) PortfolioValue(_ context.Context) (*float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.value == nil {
		return nil, nil
	}
	v := *m.value
	return &v, nil
}

// StrategyDailyPnL implements Client.
func (m *MemoryClient) StrategyDailyPnL(_ context.Context, strategyID string, since time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	total := 0.0
	for _, e := range m.pnl {
		if e.strategyID == strategyID && !e.ts.Before(since) {
			total += e.pnl
		}
	}
	return total, nil
}

// TotalDailyPnL implements Client.
func (m *MemoryClient) TotalDailyPnL(_ context.Context, since time.Time) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return 0, m.err
	}
	total := 0.0
	for _, e := range m.pnl {
		if !e.ts.Before(since) {
			total += e.pnl
		}
	}
	return total, nil
}
