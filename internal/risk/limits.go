// Package risk implements the pre-trade risk engine: per-axis checkers for
// exposure, loss, and submission rate, orchestrated in a fixed order so that
// audit records stay diffable across versions.
package risk

import (
	"fmt"

	"github.com/halligan/tradegate/internal/models"
)

// Limits is the immutable risk limit bundle consumed by every checker. It is
// loaded once at startup and shared read-only.
type Limits struct {
	// Position limits
	MaxPositionSizeUSD        float64 `yaml:"max_position_size_usd" json:"max_position_size_usd"`
	MaxTotalExposureUSD       float64 `yaml:"max_total_exposure_usd" json:"max_total_exposure_usd"`
	MaxSingleAssetExposurePct float64 `yaml:"max_single_asset_exposure_pct" json:"max_single_asset_exposure_pct"`

	// Loss limits
	MaxDailyLossUSD float64 `yaml:"max_daily_loss_usd" json:"max_daily_loss_usd"`
	MaxDailyLossPct float64 `yaml:"max_daily_loss_pct" json:"max_daily_loss_pct"`

	// Order limits
	MaxOrderNotionalUSD float64 `yaml:"max_order_notional_usd" json:"max_order_notional_usd"`
	MinOrderNotionalUSD float64 `yaml:"min_order_notional_usd" json:"min_order_notional_usd"`

	// Rate limits
	MaxOrdersPerStrategyPerMinute int `yaml:"max_orders_per_strategy_per_minute" json:"max_orders_per_strategy_per_minute"`
	MaxOrdersPerStrategyPerHour   int `yaml:"max_orders_per_strategy_per_hour" json:"max_orders_per_strategy_per_hour"`

	// Slippage limits
	MaxSlippageBps int `yaml:"max_slippage_bps" json:"max_slippage_bps"`
}

// DefaultLimits returns the stock limit bundle used when no external config
// overrides them.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSizeUSD:            1_000_000,
		MaxTotalExposureUSD:           10_000_000,
		MaxSingleAssetExposurePct:     0.20,
		MaxDailyLossUSD:               100_000,
		MaxDailyLossPct:               0.05,
		MaxOrderNotionalUSD:           500_000,
		MinOrderNotionalUSD:           1_000,
		MaxOrdersPerStrategyPerMinute: 10,
		MaxOrdersPerStrategyPerHour:   100,
		MaxSlippageBps:                50,
	}
}

// Validate checks the limit bundle for internal consistency.
func (l *Limits) Validate() error {
	if l.MaxPositionSizeUSD <= 0 {
		return fmt.Errorf("max_position_size_usd must be > 0")
	}
	if l.MaxTotalExposureUSD <= 0 {
		return fmt.Errorf("max_total_exposure_usd must be > 0")
	}
	if l.MaxSingleAssetExposurePct <= 0 || l.MaxSingleAssetExposurePct > 1 {
		return fmt.Errorf("max_single_asset_exposure_pct must be in (0,1]")
	}
	if l.MaxDailyLossUSD <= 0 {
		return fmt.Errorf("max_daily_loss_usd must be > 0")
	}
	if l.MaxDailyLossPct <= 0 || l.MaxDailyLossPct > 1 {
		return fmt.Errorf("max_daily_loss_pct must be in (0,1]")
	}
	if l.MaxOrderNotionalUSD <= 0 {
		return fmt.Errorf("max_order_notional_usd must be > 0")
	}
	if l.MinOrderNotionalUSD <= 0 || l.MinOrderNotionalUSD >= l.MaxOrderNotionalUSD {
		return fmt.Errorf("min_order_notional_usd must be > 0 and < max_order_notional_usd")
	}
	if l.MaxOrdersPerStrategyPerMinute <= 0 {
		return fmt.Errorf("max_orders_per_strategy_per_minute must be > 0")
	}
	if l.MaxOrdersPerStrategyPerHour <= 0 {
		return fmt.Errorf("max_orders_per_strategy_per_hour must be > 0")
	}
	if l.MaxSlippageBps < 0 || l.MaxSlippageBps > models.MaxSlippageBpsCeiling {
		return fmt.Errorf("max_slippage_bps must be in [0,%d]", models.MaxSlippageBpsCeiling)
	}
	return nil
}
