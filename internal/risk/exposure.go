package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/portfolio"
)

// ExposureChecker validates position-size and exposure limits. It is
// stateless: every position figure comes from the portfolio service.
type ExposureChecker struct {
	portfolio portfolio.Client
}

// NewExposureChecker builds an exposure checker on the given portfolio.
func NewExposureChecker(p portfolio.Client) *ExposureChecker {
	return &ExposureChecker{portfolio: p}
}

// projectedExposure returns the absolute exposure the symbol would carry
// after executing the signal on top of the current position.
func projectedExposure(sig *models.TradingSignal, currentPosition float64) float64 {
	return math.Abs(currentPosition + sig.SignedNotional())
}

// CheckPositionLimit verifies the projected per-symbol position stays within
// the limit. Returns (valid, message); a non-nil error is a transport
// failure, not a rejection.
func (c *ExposureChecker) CheckPositionLimit(ctx context.Context, sig *models.TradingSignal, limits Limits) (bool, string, error) {
	current, err := c.portfolio.Position(ctx, sig.Symbol)
	if err != nil {
		return false, "", err
	}
	proj := projectedExposure(sig, current)
	if proj > limits.MaxPositionSizeUSD {
		return false, fmt.Sprintf("Position limit exceeded: %.2f > %.2f", proj, limits.MaxPositionSizeUSD), nil
	}
	return true, "", nil
}

// CheckTotalExposureLimit verifies the projected total portfolio exposure
// (sum of absolute positions, with this symbol's exposure replaced by its
// projection) stays within the limit.
func (c *ExposureChecker) CheckTotalExposureLimit(ctx context.Context, sig *models.TradingSignal, limits Limits) (bool, string, error) {
	positions, err := c.portfolio.AllPositions(ctx)
	if err != nil {
		return false, "", err
	}
	total := 0.0
	for _, pos := range positions {
		total += math.Abs(pos)
	}
	current := positions[sig.Symbol]
	proj := projectedExposure(sig, current)
	newTotal := total - math.Abs(current) + proj
	if newTotal > limits.MaxTotalExposureUSD {
		return false, fmt.Sprintf("Total exposure limit exceeded: %.2f > %.2f", newTotal, limits.MaxTotalExposureUSD), nil
	}
	return true, "", nil
}

// CheckSingleAssetLimit verifies the projected exposure as a fraction of
// portfolio value. The check is skipped (reported valid) when the portfolio
// value is unavailable or non-positive; that skip is the one case the core
// degrades silently.
func (c *ExposureChecker) CheckSingleAssetLimit(ctx context.Context, sig *models.TradingSignal, limits Limits, portfolioValue float64) (bool, string, error) {
	if portfolioValue <= 0 {
		return true, "", nil
	}
	current, err := c.portfolio.Position(ctx, sig.Symbol)
	if err != nil {
		return false, "", err
	}
	pct := projectedExposure(sig, current) / portfolioValue
	if pct > limits.MaxSingleAssetExposurePct {
		return false, fmt.Sprintf("Single asset exposure limit exceeded: %.2f%% > %.2f%%",
			pct*100, limits.MaxSingleAssetExposurePct*100), nil
	}
	return true, "", nil
}
