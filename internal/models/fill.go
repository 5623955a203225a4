package models

import (
	"time"

	"github.com/google/uuid"
)

// Fill is a trade execution reported by a broker for an equity order.
// Fills are immutable and applied to an order exactly once.
type Fill struct {
	FillID        string    `json:"fill_id"`
	BrokerOrderID string    `json:"broker_order_id"`
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Notional      float64   `json:"notional"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewFill builds a fill, deriving the notional from quantity and price.
func NewFill(brokerOrderID, symbol string, quantity, price float64, ts time.Time) Fill {
	return Fill{
		FillID:        uuid.NewString(),
		BrokerOrderID: brokerOrderID,
		Symbol:        symbol,
		Quantity:      quantity,
		Price:         price,
		Notional:      quantity * price,
		Timestamp:     ts,
	}
}

// OptionFill is a per-contract execution reported by a broker for an option
// order or one leg of a spread.
type OptionFill struct {
	FillID           string    `json:"fill_id"`
	BrokerOrderID    string    `json:"broker_order_id"`
	ContractSymbol   string    `json:"contract_symbol"`
	Quantity         int       `json:"quantity"`
	PricePerContract float64   `json:"price_per_contract"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewOptionFill builds an option fill.
func NewOptionFill(brokerOrderID, contractSymbol string, quantity int, pricePerContract float64, ts time.Time) OptionFill {
	return OptionFill{
		FillID:           uuid.NewString(),
		BrokerOrderID:    brokerOrderID,
		ContractSymbol:   contractSymbol,
		Quantity:         quantity,
		PricePerContract: pricePerContract,
		Timestamp:        ts,
	}
}

// Notional returns the fill notional for the given contract multiplier.
func (f OptionFill) Notional(contractMultiplier int) float64 {
	if contractMultiplier == 0 {
		contractMultiplier = DefaultContractMultiplier
	}
	return f.PricePerContract * float64(f.Quantity) * float64(contractMultiplier)
}

// OptionEventType classifies informational option lifecycle events.
type OptionEventType string

const (
	EventAssignment OptionEventType = "ASSIGNMENT"
	EventExercise   OptionEventType = "EXERCISE"
)

// OptionEvent is an assignment or exercise notification. The gateway records
// these for audit only; portfolio state is never mutated from them.
type OptionEvent struct {
	EventID        string          `json:"event_id"`
	EventType      OptionEventType `json:"event_type"`
	ContractSymbol string          `json:"contract_symbol"`
	Quantity       int             `json:"quantity"`
	Price          float64         `json:"price"` // strike at assignment/exercise
	Timestamp      time.Time       `json:"timestamp"`
}

// NewOptionEvent builds an assignment or exercise event.
func NewOptionEvent(eventType OptionEventType, contractSymbol string, quantity int, price float64, ts time.Time) OptionEvent {
	return OptionEvent{
		EventID:        uuid.NewString(),
		EventType:      eventType,
		ContractSymbol: contractSymbol,
		Quantity:       quantity,
		Price:          price,
		Timestamp:      ts,
	}
}
