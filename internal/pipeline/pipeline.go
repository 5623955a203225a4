// Package pipeline orchestrates signal processing: kill switch gate, risk
// evaluation, order creation, broker submission, and audit records, in that
// order. Every signal produces exactly one decision entry regardless of
// outcome.
package pipeline

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/halligan/tradegate/internal/audit"
	"github.com/halligan/tradegate/internal/exec"
	"github.com/halligan/tradegate/internal/killswitch"
	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/risk"
)

// Signal processing outcomes.
const (
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// Response is the result of processing one signal.
type Response struct {
	SignalID string   `json:"signal_id"`
	OrderID  string   `json:"order_id,omitempty"`
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Errors   []string `json:"errors"`
}

// Pipeline runs signals through the gateway end to end.
type Pipeline struct {
	risk      *risk.PreTradeChecker
	router    *exec.OrderRouter
	kill      *killswitch.Switch
	decisions *audit.DecisionLog
	trades    *audit.TradeLog
	monitor   *exec.Monitor
	logger    *logrus.Logger
}

// New wires a pipeline. The monitor is optional; when present, every
// submitted order gets a background fill watcher.
func New(
	riskChecker *risk.PreTradeChecker,
	router *exec.OrderRouter,
	kill *killswitch.Switch,
	decisions *audit.DecisionLog,
	trades *audit.TradeLog,
	monitor *exec.Monitor,
	logger *logrus.Logger,
) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		risk:      riskChecker,
		router:    router,
		kill:      kill,
		decisions: decisions,
		trades:    trades,
		monitor:   monitor,
		logger:    logger,
	}
}

// ProcessSignal is the single entry point for signals. A non-nil error
// means a dependency failed and no decision could be made; the caller maps
// that to a server error, not a rejection.
func (p *Pipeline) ProcessSignal(ctx context.Context, sig *models.TradingSignal) (*Response, error) {
	signalID := uuid.NewString()

	logger := p.logger.WithFields(logrus.Fields{
		"signal_id":   signalID,
		"strategy_id": sig.StrategyID,
		"symbol":      sig.Symbol,
	})

	// The kill switch outranks everything, including risk evaluation.
	if p.kill.IsActive(ctx) {
		msg := "Kill switch is active - trading halted"
		logger.Warn(msg)
		if err := p.decisions.Record(audit.DecisionEntry{
			SignalID:   signalID,
			StrategyID: sig.StrategyID,
			Symbol:     sig.Symbol,
			Decision:   audit.DecisionRejected,
			CheckResults: map[string]risk.CheckResult{
				"kill_switch": {Valid: false, Error: msg},
			},
			Errors: []string{msg},
		}); err != nil {
			return nil, err
		}
		return &Response{
			SignalID: signalID,
			Status:   StatusRejected,
			Message:  msg,
			Errors:   []string{msg},
		}, nil
	}

	valid, errs, results, err := p.risk.RunAllChecks(ctx, sig)
	if err != nil {
		logger.WithError(err).Error("risk evaluation unavailable")
		return nil, err
	}

	decision := audit.DecisionApproved
	if !valid {
		decision = audit.DecisionRejected
	}
	if err := p.decisions.Record(audit.DecisionEntry{
		SignalID:     signalID,
		StrategyID:   sig.StrategyID,
		Symbol:       sig.Symbol,
		Decision:     decision,
		CheckResults: results,
		Errors:       errs,
	}); err != nil {
		return nil, err
	}

	if !valid {
		logger.WithField("errors", errs).Info("signal rejected by risk checks")
		return &Response{
			SignalID: signalID,
			Status:   StatusRejected,
			Message:  "Signal rejected by risk checks",
			Errors:   errs,
		}, nil
	}

	order := models.NewOrder(sig.StrategyID, sig.Symbol, sig.Side, sig.TargetExposure, sig.OrderNotional())
	if err := p.trades.OrderCreated(order, sig); err != nil {
		return nil, err
	}

	if err := p.router.SubmitOrder(ctx, order); err != nil {
		logger.WithError(err).Warn("order submission failed")
		// The broker may have assigned an ID before the failure; record the
		// submission so the order stays reconcilable from the audit stream.
		if order.BrokerOrderID != "" {
			if rerr := p.trades.OrderSubmitted(order); rerr != nil {
				return nil, rerr
			}
		}
		if rerr := p.trades.OrderRejected(order, err.Error()); rerr != nil {
			return nil, rerr
		}
		return &Response{
			SignalID: signalID,
			OrderID:  order.OrderID,
			Status:   StatusRejected,
			Message:  "Order submission failed: " + err.Error(),
			Errors:   []string{err.Error()},
		}, nil
	}

	if err := p.trades.OrderSubmitted(order); err != nil {
		return nil, err
	}
	if p.monitor != nil {
		go p.monitor.WatchOrder(order)
	}

	logger.WithField("order_id", order.OrderID).Info("signal approved and order submitted")
	return &Response{
		SignalID: signalID,
		OrderID:  order.OrderID,
		Status:   StatusApproved,
		Message:  "Signal processed and order submitted",
		Errors:   []string{},
	}, nil
}
