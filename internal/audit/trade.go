package audit

import (
	"io"
	"time"

	"github.com/halligan/tradegate/internal/models"
)

// TradeEvent classifies trade log entries.
type TradeEvent string

const (
	EventOrderCreated   TradeEvent = "ORDER_CREATED"
	EventOrderSubmitted TradeEvent = "ORDER_SUBMITTED"
	EventOrderFilled    TradeEvent = "ORDER_FILLED"
	EventOrderCancelled TradeEvent = "ORDER_CANCELLED"
	EventOrderRejected  TradeEvent = "ORDER_REJECTED"
	EventFillDiscarded  TradeEvent = "FILL_DISCARDED"
	EventOption         TradeEvent = "OPTION_EVENT"
)

// TradeEntry is one trade lifecycle event.
type TradeEntry struct {
	Timestamp     time.Time      `json:"timestamp"`
	Event         TradeEvent     `json:"event"`
	OrderID       string         `json:"order_id,omitempty"`
	BrokerOrderID string         `json:"broker_order_id,omitempty"`
	StrategyID    string         `json:"strategy_id,omitempty"`
	Symbol        string         `json:"symbol,omitempty"`
	Side          models.Side    `json:"side,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
}

// TradeLog records order lifecycle events.
type TradeLog struct {
	stream *stream[TradeEntry]
}

// NewTradeLog builds a trade log writing NDJSON to w. A nil writer keeps
// entries in memory only.
func NewTradeLog(w io.Writer) *TradeLog {
	return &TradeLog{stream: newStream[TradeEntry](w)}
}

// Record writes a trade entry, stamping the timestamp when unset.
func (l *TradeLog) Record(entry TradeEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return l.stream.record(entry)
}

// OrderCreated logs an order entering the system alongside its originating
// signal.
func (l *TradeLog) OrderCreated(order *models.Order, signal *models.TradingSignal) error {
	return l.Record(TradeEntry{
		Event:      EventOrderCreated,
		OrderID:    order.OrderID,
		StrategyID: order.StrategyID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Details: map[string]any{
			"quantity": order.Quantity,
			"notional": order.Notional,
			"status":   order.Status,
			"signal":   signal,
		},
	})
}

// OrderSubmitted logs broker acceptance.
func (l *TradeLog) OrderSubmitted(order *models.Order) error {
	return l.Record(TradeEntry{
		Event:         EventOrderSubmitted,
		OrderID:       order.OrderID,
		BrokerOrderID: order.BrokerOrderID,
		StrategyID:    order.StrategyID,
		Symbol:        order.Symbol,
	})
}

// OrderFilled logs a fill application and the order's cumulative totals.
func (l *TradeLog) OrderFilled(order *models.Order, fill models.Fill) error {
	return l.Record(TradeEntry{
		Event:         EventOrderFilled,
		OrderID:       order.OrderID,
		BrokerOrderID: order.BrokerOrderID,
		StrategyID:    order.StrategyID,
		Symbol:        order.Symbol,
		Side:          order.Side,
		Details: map[string]any{
			"fill_id":               fill.FillID,
			"fill_quantity":         fill.Quantity,
			"fill_price":            fill.Price,
			"fill_notional":         fill.Notional,
			"total_filled_quantity": order.FilledQuantity,
			"total_filled_notional": order.FilledNotional,
			"average_fill_price":    order.AverageFillPrice,
			"status":                order.Status,
		},
	})
}

// OrderCancelled logs a cancellation.
func (l *TradeLog) OrderCancelled(order *models.Order, reason string) error {
	return l.Record(TradeEntry{
		Event:         EventOrderCancelled,
		OrderID:       order.OrderID,
		BrokerOrderID: order.BrokerOrderID,
		StrategyID:    order.StrategyID,
		Symbol:        order.Symbol,
		Details:       map[string]any{"reason": reason},
	})
}

// OrderRejected logs a rejection or failure with its reason.
func (l *TradeLog) OrderRejected(order *models.Order, reason string) error {
	return l.Record(TradeEntry{
		Event:         EventOrderRejected,
		OrderID:       order.OrderID,
		BrokerOrderID: order.BrokerOrderID,
		StrategyID:    order.StrategyID,
		Symbol:        order.Symbol,
		Details:       map[string]any{"reason": reason, "status": order.Status},
	})
}

// FillDiscarded logs a fill that failed validation and was dropped.
func (l *TradeLog) FillDiscarded(orderID, brokerOrderID, reason string) error {
	return l.Record(TradeEntry{
		Event:         EventFillDiscarded,
		OrderID:       orderID,
		BrokerOrderID: brokerOrderID,
		Details:       map[string]any{"reason": reason},
	})
}

// OptionLifecycleEvent logs an assignment or exercise notification. These
// are informational; no order or portfolio state changes.
func (l *TradeLog) OptionLifecycleEvent(event models.OptionEvent) error {
	return l.Record(TradeEntry{
		Event:  EventOption,
		Symbol: event.ContractSymbol,
		Details: map[string]any{
			"event_id":   event.EventID,
			"event_type": event.EventType,
			"quantity":   event.Quantity,
			"price":      event.Price,
		},
	})
}

// Recent returns up to limit of the newest trade events, optionally
// filtered by strategy, oldest first.
func (l *TradeLog) Recent(strategyID string, limit int) []TradeEntry {
	var keep func(TradeEntry) bool
	if strategyID != "" {
		keep = func(e TradeEntry) bool { return e.StrategyID == strategyID }
	}
	return l.stream.tail(limit, keep)
}
