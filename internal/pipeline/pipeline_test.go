package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halligan/tradegate/internal/audit"
	"github.com/halligan/tradegate/internal/broker"
	"github.com/halligan/tradegate/internal/exec"
	"github.com/halligan/tradegate/internal/killswitch"
	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/portfolio"
	"github.com/halligan/tradegate/internal/risk"
)

type pipelineFixture struct {
	pipeline  *Pipeline
	portfolio *portfolio.MemoryClient
	kill      *killswitch.Switch
	decisions *audit.DecisionLog
	trades    *audit.TradeLog
}

func quietLogrus() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newFixture(t *testing.T, b broker.Broker) *pipelineFixture {
	t.Helper()
	pf := portfolio.NewMemoryClient()
	value := 1_000_000.0
	pf.SetPortfolioValue(&value)

	kill := killswitch.New(killswitch.NewMemoryStore(), nil)
	decisions := audit.NewDecisionLog(nil)
	trades := audit.NewTradeLog(nil)
	checker := risk.NewPreTradeChecker(pf, risk.NewMemoryThrottleStore(), risk.DefaultLimits())
	router := exec.NewOrderRouter(b)

	return &pipelineFixture{
		pipeline:  New(checker, router, kill, decisions, trades, nil, quietLogrus()),
		portfolio: pf,
		kill:      kill,
		decisions: decisions,
		trades:    trades,
	}
}

func validSignal() *models.TradingSignal {
	return &models.TradingSignal{
		StrategyID:     "strat-a",
		Symbol:         "AAPL",
		Side:           models.SideBuy,
		Confidence:     0.9,
		TargetExposure: 10_000,
		TimeHorizon:    models.HorizonIntraday,
		Constraints:    models.SignalConstraints{MaxSlippageBps: 10},
	}
}

func TestProcessSignalApproved(t *testing.T) {
	f := newFixture(t, broker.NewPaperBroker(5))

	resp, err := f.pipeline.ProcessSignal(context.Background(), validSignal())
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, resp.Status)
	assert.Equal(t, "Signal processed and order submitted", resp.Message)
	assert.NotEmpty(t, resp.SignalID)
	assert.NotEmpty(t, resp.OrderID)
	assert.Empty(t, resp.Errors)

	decisions := f.decisions.Recent("strat-a", 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, audit.DecisionApproved, decisions[0].Decision)
	// All eight checks recorded even on approval.
	assert.Len(t, decisions[0].CheckResults, len(risk.CheckOrder))

	trades := f.trades.Recent("strat-a", 0)
	require.Len(t, trades, 2)
	assert.Equal(t, audit.EventOrderCreated, trades[0].Event)
	assert.Equal(t, audit.EventOrderSubmitted, trades[1].Event)
	assert.Equal(t, resp.OrderID, trades[0].OrderID)
}

func TestProcessSignalRejectedByNotionalLimit(t *testing.T) {
	f := newFixture(t, broker.NewPaperBroker(5))

	sig := validSignal()
	sig.TargetExposure = 600_000

	resp, err := f.pipeline.ProcessSignal(context.Background(), sig)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, resp.Status)
	assert.Equal(t, "Signal rejected by risk checks", resp.Message)
	assert.Empty(t, resp.OrderID)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0], "Order notional exceeds limit")

	// No order reached the broker or the trade log.
	assert.Empty(t, f.trades.Recent("", 0))

	decisions := f.decisions.Recent("", 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, audit.DecisionRejected, decisions[0].Decision)
	assert.False(t, decisions[0].CheckResults[risk.CheckOrderNotional].Valid)
}

func TestProcessSignalRejectedByPositionLimit(t *testing.T) {
	f := newFixture(t, broker.NewPaperBroker(5))
	f.portfolio.SetPosition("AAPL", 995_000)

	sig := validSignal()
	resp, err := f.pipeline.ProcessSignal(context.Background(), sig)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, resp.Status)
	require.NotEmpty(t, resp.Errors)
	assert.Contains(t, resp.Errors[0], "Position limit exceeded")
}

func TestProcessSignalHaltedByKillSwitch(t *testing.T) {
	f := newFixture(t, broker.NewPaperBroker(5))
	require.NoError(t, f.kill.Activate(context.Background(), "incident"))

	resp, err := f.pipeline.ProcessSignal(context.Background(), validSignal())
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, resp.Status)
	assert.Equal(t, "Kill switch is active - trading halted", resp.Message)
	assert.Empty(t, resp.OrderID)

	// The halt is recorded as a decision; risk checks never ran.
	decisions := f.decisions.Recent("", 0)
	require.Len(t, decisions, 1)
	result, ok := decisions[0].CheckResults["kill_switch"]
	require.True(t, ok)
	assert.False(t, result.Valid)
	assert.Len(t, decisions[0].CheckResults, 1)
}

func TestProcessSignalSubmissionFailure(t *testing.T) {
	// Risk approves but the broker is unreachable.
	f := newFixture(t, broker.NewIBKRBroker("127.0.0.1", 7497, 1))

	resp, err := f.pipeline.ProcessSignal(context.Background(), validSignal())
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, resp.Status)
	assert.Contains(t, resp.Message, "Order submission failed:")
	assert.NotEmpty(t, resp.OrderID, "the failed order is still identifiable")

	trades := f.trades.Recent("strat-a", 0)
	require.Len(t, trades, 2)
	assert.Equal(t, audit.EventOrderCreated, trades[0].Event)
	assert.Equal(t, audit.EventOrderRejected, trades[1].Event)
	assert.Equal(t, models.StatusFailed, trades[1].Details["status"])

	// Approval was recorded before submission was attempted.
	decisions := f.decisions.Recent("", 0)
	require.Len(t, decisions, 1)
	assert.Equal(t, audit.DecisionApproved, decisions[0].Decision)
}

// halfAckedBroker assigns a broker order ID but fails before the
// acknowledgement completes, as a cancelled context mid-submit would.
type halfAckedBroker struct {
	*broker.PaperBroker
}

func (b *halfAckedBroker) SubmitOrder(context.Context, broker.OrderRequest) (string, error) {
	return "BRK-123", context.Canceled
}

func TestProcessSignalSubmissionInterrupted(t *testing.T) {
	f := newFixture(t, &halfAckedBroker{PaperBroker: broker.NewPaperBroker(5)})

	resp, err := f.pipeline.ProcessSignal(context.Background(), validSignal())
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, resp.Status)
	assert.NotEmpty(t, resp.OrderID)

	// The order may be live at the broker, so the submission is on the
	// record before the rejection.
	trades := f.trades.Recent("strat-a", 0)
	require.Len(t, trades, 3)
	assert.Equal(t, audit.EventOrderCreated, trades[0].Event)
	assert.Equal(t, audit.EventOrderSubmitted, trades[1].Event)
	assert.Equal(t, audit.EventOrderRejected, trades[2].Event)
	assert.Equal(t, "BRK-123", trades[1].BrokerOrderID)
	assert.Equal(t, "BRK-123", trades[2].BrokerOrderID)
}

func TestProcessSignalDependencyFailure(t *testing.T) {
	f := newFixture(t, broker.NewPaperBroker(5))
	f.portfolio.FailWith(errors.New("portfolio service unavailable"))

	resp, err := f.pipeline.ProcessSignal(context.Background(), validSignal())
	require.Error(t, err)
	assert.Nil(t, resp)

	// No decision is recorded when no decision could be made.
	assert.Empty(t, f.decisions.Recent("", 0))
}
