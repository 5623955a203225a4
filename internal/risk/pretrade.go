package risk

import (
	"context"
	"fmt"

	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/portfolio"
)

// Check names, as they appear in audit records. The set and order are part
// of the audit contract: compliance reviews diff check results across
// versions, so new checks are appended, never reordered.
const (
	CheckOrderNotional       = "order_notional"
	CheckSlippage            = "slippage"
	CheckPositionLimit       = "position_limit"
	CheckTotalExposure       = "total_exposure"
	CheckSingleAssetExposure = "single_asset_exposure"
	CheckStrategyDailyLoss   = "strategy_daily_loss"
	CheckTotalDailyLoss      = "total_daily_loss"
	CheckRateLimit           = "rate_limit"
)

// CheckOrder is the fixed execution order of the pre-trade checks.
var CheckOrder = []string{
	CheckOrderNotional,
	CheckSlippage,
	CheckPositionLimit,
	CheckTotalExposure,
	CheckSingleAssetExposure,
	CheckStrategyDailyLoss,
	CheckTotalDailyLoss,
	CheckRateLimit,
}

// CheckResult is the per-check outcome recorded in the decision audit entry.
type CheckResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// PreTradeChecker orchestrates every pre-trade risk check. Checks run
// sequentially in the fixed order and never short-circuit: the audit entry
// must record the outcome of every check even when an early one fails.
type PreTradeChecker struct {
	exposure  *ExposureChecker
	loss      *LossChecker
	throttle  *ThrottleChecker
	portfolio portfolio.Client
	limits    Limits
}

// NewPreTradeChecker wires the per-axis checkers and the limit bundle.
func NewPreTradeChecker(p portfolio.Client, store ThrottleStore, limits Limits) *PreTradeChecker {
	return &PreTradeChecker{
		exposure:  NewExposureChecker(p),
		loss:      NewLossChecker(p),
		throttle:  NewThrottleChecker(store),
		portfolio: p,
		limits:    limits,
	}
}

// Limits returns the limit bundle the checker was built with.
func (c *PreTradeChecker) Limits() Limits {
	return c.limits
}

// checkOrderNotional enforces the per-order notional band.
func (c *PreTradeChecker) checkOrderNotional(sig *models.TradingSignal) (bool, string) {
	notional := sig.OrderNotional()
	if notional > c.limits.MaxOrderNotionalUSD {
		return false, fmt.Sprintf("Order notional exceeds limit: $%.2f > $%.2f",
			notional, c.limits.MaxOrderNotionalUSD)
	}
	if notional < c.limits.MinOrderNotionalUSD {
		return false, fmt.Sprintf("Order notional below minimum: $%.2f < $%.2f",
			notional, c.limits.MinOrderNotionalUSD)
	}
	return true, ""
}

// checkSlippage enforces the slippage tolerance ceiling.
func (c *PreTradeChecker) checkSlippage(sig *models.TradingSignal) (bool, string) {
	if sig.Constraints.MaxSlippageBps > c.limits.MaxSlippageBps {
		return false, fmt.Sprintf("Slippage limit exceeded: %d bps > %d bps",
			sig.Constraints.MaxSlippageBps, c.limits.MaxSlippageBps)
	}
	return true, ""
}

// RunAllChecks executes the eight pre-trade checks in the fixed order,
// accumulating failures. The returned map has one entry per check. A
// non-nil error means a dependency (portfolio, throttle store) failed and
// no decision could be made.
func (c *PreTradeChecker) RunAllChecks(ctx context.Context, sig *models.TradingSignal) (bool, []string, map[string]CheckResult, error) {
	var errs []string
	results := make(map[string]CheckResult, len(CheckOrder))

	record := func(name string, valid bool, msg string) {
		results[name] = CheckResult{Valid: valid, Error: msg}
		if !valid {
			errs = append(errs, msg)
		}
	}

	// 1. Order notional
	valid, msg := c.checkOrderNotional(sig)
	record(CheckOrderNotional, valid, msg)

	// 2. Slippage
	valid, msg = c.checkSlippage(sig)
	record(CheckSlippage, valid, msg)

	// 3. Position size
	valid, msg, err := c.exposure.CheckPositionLimit(ctx, sig, c.limits)
	if err != nil {
		return false, nil, nil, fmt.Errorf("position limit check: %w", err)
	}
	record(CheckPositionLimit, valid, msg)

	// 4. Total exposure
	valid, msg, err = c.exposure.CheckTotalExposureLimit(ctx, sig, c.limits)
	if err != nil {
		return false, nil, nil, fmt.Errorf("total exposure check: %w", err)
	}
	record(CheckTotalExposure, valid, msg)

	// 5. Single-asset concentration
	value, err := c.portfolio.PortfolioValue(ctx)
	if err != nil {
		return false, nil, nil, fmt.Errorf("portfolio value: %w", err)
	}
	pv := 0.0
	if value != nil {
		pv = *value
	}
	valid, msg, err = c.exposure.CheckSingleAssetLimit(ctx, sig, c.limits, pv)
	if err != nil {
		return false, nil, nil, fmt.Errorf("single asset check: %w", err)
	}
	record(CheckSingleAssetExposure, valid, msg)

	// 6. Strategy daily loss
	valid, msg, err = c.loss.CheckStrategyDailyLoss(ctx, sig.StrategyID, c.limits)
	if err != nil {
		return false, nil, nil, fmt.Errorf("strategy daily loss check: %w", err)
	}
	record(CheckStrategyDailyLoss, valid, msg)

	// 7. Total daily loss
	valid, msg, err = c.loss.CheckTotalDailyLoss(ctx, c.limits)
	if err != nil {
		return false, nil, nil, fmt.Errorf("total daily loss check: %w", err)
	}
	record(CheckTotalDailyLoss, valid, msg)

	// 8. Rate limit
	valid, msg, err = c.throttle.CheckRateLimit(ctx, sig.StrategyID, c.limits)
	if err != nil {
		return false, nil, nil, fmt.Errorf("rate limit check: %w", err)
	}
	record(CheckRateLimit, valid, msg)

	return len(errs) == 0, errs, results, nil
}
