package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/portfolio"
)

func testLimits() Limits {
	return Limits{
		MaxPositionSizeUSD:            100_000,
		MaxTotalExposureUSD:           1_000_000,
		MaxSingleAssetExposurePct:     0.20,
		MaxDailyLossUSD:               10_000,
		MaxDailyLossPct:               0.05,
		MaxOrderNotionalUSD:           50_000,
		MinOrderNotionalUSD:           1_000,
		MaxOrdersPerStrategyPerMinute: 10,
		MaxOrdersPerStrategyPerHour:   100,
		MaxSlippageBps:                50,
	}
}

func testSignal() *models.TradingSignal {
	return &models.TradingSignal{
		StrategyID:     "momentum-1",
		Symbol:         "AAPL",
		Side:           models.SideBuy,
		Confidence:     0.8,
		TargetExposure: 10_000,
		TimeHorizon:    models.HorizonIntraday,
		Constraints:    models.SignalConstraints{MaxSlippageBps: 25},
	}
}

func newChecker(t *testing.T) (*PreTradeChecker, *portfolio.MemoryClient) {
	t.Helper()
	client := portfolio.NewMemoryClient()
	value := 1_000_000.0
	client.SetPortfolioValue(&value)
	return NewPreTradeChecker(client, NewMemoryThrottleStore(), testLimits()), client
}

func TestRunAllChecksApproves(t *testing.T) {
	checker, _ := newChecker(t)

	valid, errs, results, err := checker.RunAllChecks(context.Background(), testSignal())
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Empty(t, errs)

	// Every check appears in the results, all valid.
	require.Len(t, results, len(CheckOrder))
	for _, name := range CheckOrder {
		result, ok := results[name]
		require.True(t, ok, "missing check %s", name)
		assert.True(t, result.Valid, "check %s", name)
		assert.Empty(t, result.Error, "check %s", name)
	}
}

func TestRunAllChecksDoesNotShortCircuit(t *testing.T) {
	checker, _ := newChecker(t)

	sig := testSignal()
	sig.TargetExposure = 100_000                // breaches order notional
	sig.Constraints.MaxSlippageBps = 80         // breaches slippage
	valid, errs, results, err := checker.RunAllChecks(context.Background(), sig)
	require.NoError(t, err)
	assert.False(t, valid)
	require.Len(t, results, len(CheckOrder))
	assert.False(t, results[CheckOrderNotional].Valid)
	assert.False(t, results[CheckSlippage].Valid)
	assert.GreaterOrEqual(t, len(errs), 2)
}

func TestOrderNotionalMessages(t *testing.T) {
	checker, _ := newChecker(t)

	over := testSignal()
	over.TargetExposure = 100_000
	_, errs, results, err := checker.RunAllChecks(context.Background(), over)
	require.NoError(t, err)
	assert.Equal(t, "Order notional exceeds limit: $100000.00 > $50000.00", results[CheckOrderNotional].Error)
	assert.Contains(t, errs, "Order notional exceeds limit: $100000.00 > $50000.00")

	under := testSignal()
	under.TargetExposure = 500
	_, _, results, err = checker.RunAllChecks(context.Background(), under)
	require.NoError(t, err)
	assert.Equal(t, "Order notional below minimum: $500.00 < $1000.00", results[CheckOrderNotional].Error)
}

func TestMaxNotionalCapSatisfiesOrderLimit(t *testing.T) {
	checker, _ := newChecker(t)

	sig := testSignal()
	sig.TargetExposure = 100_000
	cap := 40_000.0
	sig.Constraints.MaxNotional = &cap

	_, _, results, err := checker.RunAllChecks(context.Background(), sig)
	require.NoError(t, err)
	assert.True(t, results[CheckOrderNotional].Valid)
}

func TestSlippageMessage(t *testing.T) {
	checker, _ := newChecker(t)

	sig := testSignal()
	sig.Constraints.MaxSlippageBps = 80
	_, _, results, err := checker.RunAllChecks(context.Background(), sig)
	require.NoError(t, err)
	assert.Equal(t, "Slippage limit exceeded: 80 bps > 50 bps", results[CheckSlippage].Error)
}

func TestPositionLimitMessage(t *testing.T) {
	checker, client := newChecker(t)
	client.SetPosition("AAPL", 50_000)

	sig := testSignal()
	sig.TargetExposure = 60_000
	cap := 50_000.0
	sig.Constraints.MaxNotional = &cap // keep order notional within bounds

	_, errs, results, err := checker.RunAllChecks(context.Background(), sig)
	require.NoError(t, err)
	assert.False(t, results[CheckPositionLimit].Valid)
	assert.Equal(t, "Position limit exceeded: 110000.00 > 100000.00", results[CheckPositionLimit].Error)
	assert.Contains(t, errs, "Position limit exceeded: 110000.00 > 100000.00")
}

func TestSellReducesProjectedExposure(t *testing.T) {
	checker, client := newChecker(t)
	client.SetPosition("AAPL", 90_000)

	sig := testSignal()
	sig.Side = models.SideSell
	sig.TargetExposure = 40_000

	_, _, results, err := checker.RunAllChecks(context.Background(), sig)
	require.NoError(t, err)
	assert.True(t, results[CheckPositionLimit].Valid)
}

func TestSingleAssetConcentration(t *testing.T) {
	checker, client := newChecker(t)
	value := 100_000.0
	client.SetPortfolioValue(&value)

	sig := testSignal()
	sig.TargetExposure = 30_000
	_, _, results, err := checker.RunAllChecks(context.Background(), sig)
	require.NoError(t, err)
	assert.False(t, results[CheckSingleAssetExposure].Valid)
	assert.Equal(t, "Single asset exposure limit exceeded: 30.00% > 20.00%", results[CheckSingleAssetExposure].Error)
}

func TestSingleAssetSkipsWithoutPortfolioValue(t *testing.T) {
	checker, client := newChecker(t)
	client.SetPortfolioValue(nil)

	sig := testSignal()
	sig.TargetExposure = 30_000
	_, _, results, err := checker.RunAllChecks(context.Background(), sig)
	require.NoError(t, err)
	assert.True(t, results[CheckSingleAssetExposure].Valid)
}

func TestStrategyDailyLossLimit(t *testing.T) {
	checker, client := newChecker(t)
	client.AddPnL("momentum-1", -12_000, time.Now().UTC())

	_, _, results, err := checker.RunAllChecks(context.Background(), testSignal())
	require.NoError(t, err)
	assert.False(t, results[CheckStrategyDailyLoss].Valid)
	assert.Equal(t, "Daily loss limit exceeded: $12000.00 > $10000.00", results[CheckStrategyDailyLoss].Error)
}

func TestTotalDailyLossLimit(t *testing.T) {
	checker, client := newChecker(t)
	client.AddPnL("momentum-1", -6_000, time.Now().UTC())
	client.AddPnL("other", -7_000, time.Now().UTC())

	_, _, results, err := checker.RunAllChecks(context.Background(), testSignal())
	require.NoError(t, err)
	assert.True(t, results[CheckStrategyDailyLoss].Valid)
	assert.False(t, results[CheckTotalDailyLoss].Valid)
	assert.Equal(t, "Total daily loss limit exceeded: $13000.00 > $10000.00", results[CheckTotalDailyLoss].Error)
}

func TestRunAllChecksPropagatesDependencyFailure(t *testing.T) {
	client := portfolio.NewMemoryClient()
	checker := NewPreTradeChecker(client, NewMemoryThrottleStore(), testLimits())
	client.FailWith(errors.New("portfolio unreachable"))

	_, _, _, err := checker.RunAllChecks(context.Background(), testSignal())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "portfolio unreachable")
}

func TestRateLimitMonotonicity(t *testing.T) {
	checker, _ := newChecker(t)
	ctx := context.Background()

	// The minute budget is 10; every passing check records a submission.
	for i := 0; i < 10; i++ {
		valid, _, results, err := checker.RunAllChecks(ctx, testSignal())
		require.NoError(t, err)
		require.True(t, valid, "submission %d", i+1)
		require.True(t, results[CheckRateLimit].Valid)
	}

	// The 11th fails and must not consume budget.
	for i := 0; i < 3; i++ {
		valid, errs, results, err := checker.RunAllChecks(ctx, testSignal())
		require.NoError(t, err)
		assert.False(t, valid)
		assert.False(t, results[CheckRateLimit].Valid)
		assert.Contains(t, errs, "Rate limit exceeded: 10 orders in last minute (max: 10)")
	}
}
