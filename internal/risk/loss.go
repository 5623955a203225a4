package risk

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/halligan/tradegate/internal/portfolio"
)

// LossChecker validates daily loss limits against current P&L. Stateless;
// all P&L figures come from the portfolio service.
type LossChecker struct {
	portfolio portfolio.Client
	now       func() time.Time
}

// NewLossChecker builds a loss checker on the given portfolio.
func NewLossChecker(p portfolio.Client) *LossChecker {
	return &LossChecker{portfolio: p, now: time.Now}
}

// startOfUTCDay returns midnight UTC of the current day. Daily windows are
// UTC by contract.
func (c *LossChecker) startOfUTCDay() time.Time {
	now := c.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// CheckStrategyDailyLoss verifies the strategy's P&L since start of UTC day
// against the absolute loss limit and, when portfolio value is available,
// the percentage limit.
func (c *LossChecker) CheckStrategyDailyLoss(ctx context.Context, strategyID string, limits Limits) (bool, string, error) {
	pnl, err := c.portfolio.StrategyDailyPnL(ctx, strategyID, c.startOfUTCDay())
	if err != nil {
		return false, "", err
	}

	if pnl < -limits.MaxDailyLossUSD {
		return false, fmt.Sprintf("Daily loss limit exceeded: $%.2f > $%.2f",
			math.Abs(pnl), limits.MaxDailyLossUSD), nil
	}

	value, err := c.portfolio.PortfolioValue(ctx)
	if err != nil {
		return false, "", err
	}
	if value != nil && *value > 0 {
		lossPct := math.Abs(pnl) / *value
		if lossPct > limits.MaxDailyLossPct {
			return false, fmt.Sprintf("Daily loss percentage limit exceeded: %.2f%% > %.2f%%",
				lossPct*100, limits.MaxDailyLossPct*100), nil
		}
	}

	return true, "", nil
}

// CheckTotalDailyLoss verifies the whole book's P&L since start of UTC day
// against the absolute loss limit.
func (c *LossChecker) CheckTotalDailyLoss(ctx context.Context, limits Limits) (bool, string, error) {
	pnl, err := c.portfolio.TotalDailyPnL(ctx, c.startOfUTCDay())
	if err != nil {
		return false, "", err
	}
	if pnl < -limits.MaxDailyLossUSD {
		return false, fmt.Sprintf("Total daily loss limit exceeded: $%.2f > $%.2f",
			math.Abs(pnl), limits.MaxDailyLossUSD), nil
	}
	return true, "", nil
}
