// Package portfolio provides read-only access to externalized position and
// P&L state. The gateway never mutates portfolio state.
package portfolio

import (
	"context"
	"time"
)

// Client fetches position and P&L data from the portfolio service. All
// values are USD. PortfolioValue returns nil when the value is unavailable;
// callers decide how to degrade.
//
// Implementations must be safe for concurrent use.
type Client interface {
	// Position returns the current position for a symbol: positive for
	// long, negative for short, zero when flat.
	Position(ctx context.Context, symbol string) (float64, error)
	// AllPositions returns every current position keyed by symbol.
	AllPositions(ctx context.Context) (map[string]float64, error)
	// PortfolioValue returns the total portfolio value, or nil when the
	// service cannot price the book.
	PortfolioValue(ctx context.Context) (*float64, error)
	// StrategyDailyPnL returns realized+unrealized P&L for one strategy
	// since the given time (negative for losses).
	StrategyDailyPnL(ctx context.Context, strategyID string, since time.Time) (float64, error)
	// TotalDailyPnL returns P&L across all strategies since the given time.
	TotalDailyPnL(ctx context.Context, since time.Time) (float64, error)
}
