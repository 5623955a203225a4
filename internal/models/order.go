package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OrderStatus represents the current state of an order.
type OrderStatus string

const (
	StatusPending         OrderStatus = "PENDING"          // created, awaiting submission
	StatusSubmitted       OrderStatus = "SUBMITTED"        // sent to broker
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED" // partially executed
	StatusFilled          OrderStatus = "FILLED"           // fully executed
	StatusCancelled       OrderStatus = "CANCELLED"        // cancelled before full fill
	StatusRejected        OrderStatus = "REJECTED"         // rejected before broker contact
	StatusFailed          OrderStatus = "FAILED"           // broker-side failure
)

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// validTransitions is the single source of truth for the order state machine,
// shared by equity and option orders. PENDING admits FAILED directly so an
// infrastructure failure before broker contact lands terminal without faking
// a submission.
var validTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:         {StatusSubmitted, StatusRejected, StatusCancelled, StatusFailed},
	StatusSubmitted:       {StatusPartiallyFilled, StatusFilled, StatusCancelled, StatusFailed},
	StatusPartiallyFilled: {StatusFilled, StatusCancelled, StatusFailed},
}

// CanTransition reports whether from -> to is a legal state change.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Lifecycle holds the status and timestamps shared by every order kind.
// Transition is the only mutation path; it enforces the state machine and
// stamps the side-effect timestamps.
type Lifecycle struct {
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	SubmittedAt     *time.Time  `json:"submitted_at,omitempty"`
	FilledAt        *time.Time  `json:"filled_at,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	RejectionReason string      `json:"rejection_reason,omitempty"`
}

func newLifecycle() Lifecycle {
	return Lifecycle{Status: StatusPending, CreatedAt: time.Now().UTC()}
}

// IsTerminal reports whether the order has reached an absorbing state.
func (l *Lifecycle) IsTerminal() bool {
	return l.Status.IsTerminal()
}

// Transition moves the order to a new status. An illegal transition is a
// programmer error: the returned error should be treated as a bug, not a
// runtime condition.
func (l *Lifecycle) Transition(to OrderStatus) error {
	if !CanTransition(l.Status, to) {
		return fmt.Errorf("invalid state transition: %s -> %s", l.Status, to)
	}
	l.Status = to

	now := time.Now().UTC()
	switch to {
	case StatusSubmitted:
		l.SubmittedAt = &now
	case StatusFilled:
		l.FilledAt = &now
	case StatusCancelled:
		l.CancelledAt = &now
	}
	return nil
}

// Reject transitions to a terminal rejection/failure status and records the
// reason.
func (l *Lifecycle) Reject(to OrderStatus, reason string) error {
	if to != StatusRejected && to != StatusFailed {
		return fmt.Errorf("reject requires REJECTED or FAILED, got %s", to)
	}
	if err := l.Transition(to); err != nil {
		return err
	}
	l.RejectionReason = reason
	return nil
}

// Order is an equity order with full lifecycle tracking.
//
// Quantity mirrors the upstream signal contract: it carries the signal's
// target exposure in USD, not a share count. Notional is the limit-checked
// notional (target exposure capped by the signal's max_notional).
type Order struct {
	OrderID          string   `json:"order_id"`
	StrategyID       string   `json:"strategy_id"`
	Symbol           string   `json:"symbol"`
	Side             Side     `json:"side"`
	Quantity         float64  `json:"quantity"`
	Notional         float64  `json:"notional"`
	BrokerOrderID    string   `json:"broker_order_id,omitempty"`
	FilledQuantity   float64  `json:"filled_quantity"`
	FilledNotional   float64  `json:"filled_notional"`
	AverageFillPrice *float64 `json:"average_fill_price,omitempty"`
	Lifecycle
}

// NewOrder creates a PENDING equity order with a fresh order ID.
func NewOrder(strategyID, symbol string, side Side, quantity, notional float64) *Order {
	return &Order{
		OrderID:    uuid.NewString(),
		StrategyID: strategyID,
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		Notional:   notional,
		Lifecycle:  newLifecycle(),
	}
}

// RemainingQuantity returns the unfilled quantity.
func (o *Order) RemainingQuantity() float64 {
	return o.Quantity - o.FilledQuantity
}
