// Package broker defines the brokerage adapter boundary: a capability
// interface the execution routers submit through, plus the paper simulator
// and circuit breaker wrapper. Adapters are stateless from the gateway's
// point of view; order state lives in the execution layer.
package broker

import (
	"context"

	"github.com/halligan/tradegate/internal/models"
)

// OrderType is the broker-facing order type.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderRequest is an equity order as handed to an adapter. Quantity carries
// the target USD exposure; adapters that need share counts convert at their
// own reference price.
type OrderRequest struct {
	Symbol     string
	Side       models.Side
	Quantity   float64
	OrderType  OrderType
	LimitPrice *float64
}

// BrokerOrder is an adapter's view of a previously submitted order.
type BrokerOrder struct {
	BrokerOrderID  string
	Symbol         string
	Status         string
	FilledQuantity float64
	AvgFillPrice   float64
}

// Broker is the adapter capability surface. Adapters that do not support a
// capability return ErrUnsupported from it; routers translate that into an
// order rejection. All calls honor ctx cancellation.
type Broker interface {
	// Name identifies the adapter in logs and audit records.
	Name() string

	// SubmitOrder places an equity order and returns the broker order ID.
	SubmitOrder(ctx context.Context, req OrderRequest) (string, error)

	// CancelOrder requests cancellation. It returns false without error when
	// the order is already terminal at the broker.
	CancelOrder(ctx context.Context, brokerOrderID string) (bool, error)

	// OrderStatus fetches the broker's current view of an order.
	OrderStatus(ctx context.Context, brokerOrderID string) (*BrokerOrder, error)

	// Fills returns all fills reported so far for an equity order.
	Fills(ctx context.Context, brokerOrderID string) ([]models.Fill, error)

	// SubmitOptionOrder places a single-leg option order.
	SubmitOptionOrder(ctx context.Context, leg models.OptionLeg, limitPrice *float64) (string, error)

	// SubmitOptionSpread places a multi-leg spread atomically: either every
	// leg executes or none do.
	SubmitOptionSpread(ctx context.Context, legs []models.OptionLeg, limitPrice *float64) (string, error)

	// OptionFills returns per-contract fills for an option order or spread.
	OptionFills(ctx context.Context, brokerOrderID string) ([]models.OptionFill, error)
}
