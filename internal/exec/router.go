package exec

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/halligan/tradegate/internal/broker"
	"github.com/halligan/tradegate/internal/models"
)

// OrderRouter hands equity orders to broker adapters. Routing is
// deterministic: the default adapter unless a strategy has a registered
// override.
type OrderRouter struct {
	defaultBroker broker.Broker

	mu      sync.RWMutex
	brokers map[string]broker.Broker
}

// NewOrderRouter builds a router with a default adapter.
func NewOrderRouter(defaultBroker broker.Broker) *OrderRouter {
	return &OrderRouter{
		defaultBroker: defaultBroker,
		brokers:       make(map[string]broker.Broker),
	}
}

// RegisterBroker routes a strategy's orders to a specific adapter.
func (r *OrderRouter) RegisterBroker(strategyID string, b broker.Broker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.brokers[strategyID] = b
}

// BrokerFor returns the adapter serving the given strategy.
func (r *OrderRouter) BrokerFor(strategyID string) broker.Broker {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if b, ok := r.brokers[strategyID]; ok {
		return b
	}
	return r.defaultBroker
}

// rejectionStatus maps an adapter error to the terminal status it implies:
// a capability the broker does not have is a rejection, anything else is a
// failure.
func rejectionStatus(err error) models.OrderStatus {
	if errors.Is(err, broker.ErrUnsupported) {
		return models.StatusRejected
	}
	return models.StatusFailed
}

// SubmitOrder submits the order through the strategy's adapter. On success
// the order carries the broker order ID and moves to SUBMITTED; on failure
// it lands in REJECTED or FAILED with the reason recorded, and the adapter
// error is returned. A broker order ID returned alongside an error is kept:
// the order may be live at the broker and must stay reconcilable.
func (r *OrderRouter) SubmitOrder(ctx context.Context, order *models.Order) error {
	b := r.BrokerFor(order.StrategyID)

	brokerOrderID, err := b.SubmitOrder(ctx, broker.OrderRequest{
		Symbol:    order.Symbol,
		Side:      order.Side,
		Quantity:  order.Quantity,
		OrderType: broker.OrderTypeMarket,
	})
	if brokerOrderID != "" {
		order.BrokerOrderID = brokerOrderID
	}
	if err != nil {
		if rerr := order.Reject(rejectionStatus(err), err.Error()); rerr != nil {
			return fmt.Errorf("marking order %s after submit failure: %w", order.OrderID, rerr)
		}
		return err
	}

	return order.Transition(models.StatusSubmitted)
}

// CancelOrder asks the adapter to cancel. It refuses orders that are
// terminal or never reached a broker; an adapter that reports the order
// uncancellable yields (false, nil) with the order untouched.
func (r *OrderRouter) CancelOrder(ctx context.Context, order *models.Order) (bool, error) {
	if order.IsTerminal() {
		return false, fmt.Errorf("cannot cancel order in terminal state: %s", order.Status)
	}
	if order.BrokerOrderID == "" {
		return false, errors.New("order not yet submitted to broker")
	}

	ok, err := r.BrokerFor(order.StrategyID).CancelOrder(ctx, order.BrokerOrderID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return true, order.Transition(models.StatusCancelled)
}
