package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/halligan/tradegate/internal/broker"
	"github.com/halligan/tradegate/internal/models"
)

// OptionOrderRouter hands option orders and spreads to broker adapters.
// Contract validation runs before any broker contact: an invalid order is
// REJECTED without consuming adapter capacity.
type OptionOrderRouter struct {
	defaultBroker broker.Broker

	mu      sync.RWMutex
	brokers map[string]broker.Broker
}

// NewOptionOrderRouter builds a router with a default adapter.
func NewOptionOrderRouter(defaultBroker broker.Broker) *OptionOrderRouter {
	return &OptionOrderRouter{
		defaultBroker: defaultBroker,
		brokers:       make(map[string]broker.Broker),
	}
}

// RegisterBroker routes a strategy's option orders to a specific adapter.
func (r *OptionOrderRouter) RegisterBroker(strategyID string, b broker.Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brokers[strategyID] = b
}

// BrokerFor returns the adapter serving the given strategy.
func (r *OptionOrderRouter) BrokerFor(strategyID string) broker.Broker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.brokers[strategyID]; ok {
		return b
	}
	return r.defaultBroker
}

// SubmitOptionOrder validates and submits a single-leg option order.
func (r *OptionOrderRouter) SubmitOptionOrder(ctx context.Context, order *models.OptionOrder) error {
	if ok, msg := ValidateOptionOrder(order); !ok {
		if err := order.Reject(models.StatusRejected, msg); err != nil {
			return err
		}
		return errors.New(msg)
	}

	b := r.BrokerFor(order.StrategyID)
	brokerOrderID, err := b.SubmitOptionOrder(ctx, order.Leg, order.LimitPrice)
	if brokerOrderID != "" {
		order.BrokerOrderID = brokerOrderID
	}
	if err != nil {
		if rerr := order.Reject(rejectionStatus(err), err.Error()); rerr != nil {
			return fmt.Errorf("marking option order %s after submit failure: %w", order.OrderID, rerr)
		}
		return err
	}

	return order.Transition(models.StatusSubmitted)
}

// SubmitSpreadOrder validates and submits a multi-leg spread. The adapter
// executes it atomically; the router only sees one broker order ID.
func (r *OptionOrderRouter) SubmitSpreadOrder(ctx context.Context, order *models.OptionSpreadOrder) error {
	if ok, msg := ValidateSpreadOrder(order); !ok {
		if err := order.Reject(models.StatusRejected, msg); err != nil {
			return err
		}
		return errors.New(msg)
	}

	b := r.BrokerFor(order.StrategyID)
	brokerOrderID, err := b.SubmitOptionSpread(ctx, order.Legs, order.LimitPrice)
	if brokerOrderID != "" {
		order.BrokerOrderID = brokerOrderID
	}
	if err != nil {
		if rerr := order.Reject(rejectionStatus(err), err.Error()); rerr != nil {
			return fmt.Errorf("marking spread order %s after submit failure: %w", order.OrderID, rerr)
		}
		return err
	}

	return order.Transition(models.StatusSubmitted)
}

// CancelOptionOrder cancels a single-leg option order.
func (r *OptionOrderRouter) CancelOptionOrder(ctx context.Context, order *models.OptionOrder) (bool, error) {
	return r.cancel(ctx, order.StrategyID, order.BrokerOrderID, &order.Lifecycle)
}

// CancelSpreadOrder cancels a spread order. Cancellation is all-or-nothing
// at the broker, matching atomic submission.
func (r *OptionOrderRouter) CancelSpreadOrder(ctx context.Context, order *models.OptionSpreadOrder) (bool, error) {
	return r.cancel(ctx, order.StrategyID, order.BrokerOrderID, &order.Lifecycle)
}

func (r *OptionOrderRouter) cancel(ctx context.Context, strategyID, brokerOrderID string, lc *models.Lifecycle) (bool, error) {
	if lc.IsTerminal() {
		return false, fmt.Errorf("cannot cancel order in terminal state: %s", lc.Status)
	}
	if brokerOrderID == "" {
		return false, errors.New("order not yet submitted to broker")
	}

	ok, err := r.BrokerFor(strategyID).CancelOrder(ctx, brokerOrderID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, lc.Transition(models.StatusCancelled)
}
