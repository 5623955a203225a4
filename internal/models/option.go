package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// Valid reports whether the option type is CALL or PUT.
func (t OptionType) Valid() bool {
	return t == OptionCall || t == OptionPut
}

// DefaultContractMultiplier is the standard US equity option multiplier.
const DefaultContractMultiplier = 100

// expirationLayout is the wire format for option expirations.
const expirationLayout = "2006-01-02"

// OptionLeg is one leg of a spread or a standalone option order. It is an
// immutable value; quantities are whole contracts.
type OptionLeg struct {
	Symbol             string     `json:"symbol"` // underlying, e.g. "AAPL"
	OptionType         OptionType `json:"option_type"`
	Strike             float64    `json:"strike"`
	Expiration         string     `json:"expiration"` // YYYY-MM-DD
	Side               Side       `json:"side"`
	Quantity           int        `json:"quantity"`
	ContractMultiplier int        `json:"contract_multiplier"`
}

// Multiplier returns the leg's contract multiplier, defaulting to 100.
func (l OptionLeg) Multiplier() int {
	if l.ContractMultiplier == 0 {
		return DefaultContractMultiplier
	}
	return l.ContractMultiplier
}

// ExpirationDate parses the leg expiration.
func (l OptionLeg) ExpirationDate() (time.Time, error) {
	return time.Parse(expirationLayout, l.Expiration)
}

// ContractSymbol produces the canonical contract symbol used for keying
// throughout the gateway: UNDERLYING_YYMMDD_{C|P}_{floor(strike*1000)}.
// Identical inputs always produce identical symbols.
func (l OptionLeg) ContractSymbol() string {
	code := "C"
	if l.OptionType == OptionPut {
		code = "P"
	}
	exp := strings.ReplaceAll(l.Expiration, "-", "")
	if len(exp) >= 2 {
		exp = exp[2:] // YYMMDD
	}
	return fmt.Sprintf("%s_%s_%s_%d", l.Symbol, exp, code, int64(math.Floor(l.Strike*1000)))
}

// Notional returns the leg's USD notional at the given per-contract price.
func (l OptionLeg) Notional(pricePerContract float64) float64 {
	return pricePerContract * float64(l.Quantity) * float64(l.Multiplier())
}

// ParseContractSymbol inverts ContractSymbol, recovering the underlying,
// expiration (YYYY-MM-DD), option type, and strike in thousandths.
func ParseContractSymbol(symbol string) (underlying, expiration string, optType OptionType, strikeMilli int64, err error) {
	parts := strings.Split(symbol, "_")
	if len(parts) != 4 {
		return "", "", "", 0, fmt.Errorf("invalid contract symbol format: %s", symbol)
	}
	underlying = parts[0]
	if len(parts[1]) != 6 {
		return "", "", "", 0, fmt.Errorf("invalid expiration in contract symbol: %s", symbol)
	}
	exp, perr := time.Parse("060102", parts[1])
	if perr != nil {
		return "", "", "", 0, fmt.Errorf("invalid expiration in contract symbol %s: %w", symbol, perr)
	}
	expiration = exp.Format(expirationLayout)
	switch parts[2] {
	case "C":
		optType = OptionCall
	case "P":
		optType = OptionPut
	default:
		return "", "", "", 0, fmt.Errorf("invalid option code %q in contract symbol: %s", parts[2], symbol)
	}
	strikeMilli, perr = strconv.ParseInt(parts[3], 10, 64)
	if perr != nil {
		return "", "", "", 0, fmt.Errorf("invalid strike in contract symbol %s: %w", symbol, perr)
	}
	return underlying, expiration, optType, strikeMilli, nil
}

// OptionOrder is a single-leg option order with the same state machine as
// the equity Order.
type OptionOrder struct {
	OrderID        string    `json:"order_id"`
	StrategyID     string    `json:"strategy_id"`
	Leg            OptionLeg `json:"leg"`
	LimitPrice     *float64  `json:"limit_price,omitempty"` // per contract
	BrokerOrderID  string    `json:"broker_order_id,omitempty"`
	FilledQuantity int       `json:"filled_quantity"`
	FilledPrice    *float64  `json:"filled_price,omitempty"` // weighted average per contract
	Lifecycle
}

// NewOptionOrder creates a PENDING single-leg option order.
func NewOptionOrder(strategyID string, leg OptionLeg, limitPrice *float64) *OptionOrder {
	return &OptionOrder{
		OrderID:    uuid.NewString(),
		StrategyID: strategyID,
		Leg:        leg,
		LimitPrice: limitPrice,
		Lifecycle:  newLifecycle(),
	}
}

// Notional returns the order notional at the given per-contract price,
// falling back to the limit price when none is supplied.
func (o *OptionOrder) Notional(pricePerContract *float64) float64 {
	price := 0.0
	switch {
	case pricePerContract != nil:
		price = *pricePerContract
	case o.LimitPrice != nil:
		price = *o.LimitPrice
	}
	return o.Leg.Notional(price)
}

// Spread leg-count bounds.
const (
	MinSpreadLegs = 2
	MaxSpreadLegs = 4
)

// OptionSpreadOrder is a multi-leg option order executed atomically at the
// broker. Per-leg fills afterwards are tracked by contract symbol.
type OptionSpreadOrder struct {
	OrderID       string             `json:"order_id"`
	StrategyID    string             `json:"strategy_id"`
	Legs          []OptionLeg        `json:"legs"`
	LimitPrice    *float64           `json:"limit_price,omitempty"` // net, for the whole spread
	BrokerOrderID string             `json:"broker_order_id,omitempty"`
	LegFills      map[string]int     `json:"leg_fills"`
	LegFillPrices map[string]float64 `json:"leg_fill_prices"`
	Lifecycle
}

// NewOptionSpreadOrder creates a PENDING spread order. Leg-count bounds are
// enforced here; full validation is the option validator's job.
func NewOptionSpreadOrder(strategyID string, legs []OptionLeg, limitPrice *float64) (*OptionSpreadOrder, error) {
	if len(legs) < MinSpreadLegs {
		return nil, fmt.Errorf("spread must have at least %d legs, got %d", MinSpreadLegs, len(legs))
	}
	if len(legs) > MaxSpreadLegs {
		return nil, fmt.Errorf("spread cannot have more than %d legs, got %d", MaxSpreadLegs, len(legs))
	}
	return &OptionSpreadOrder{
		OrderID:       uuid.NewString(),
		StrategyID:    strategyID,
		Legs:          legs,
		LimitPrice:    limitPrice,
		LegFills:      make(map[string]int),
		LegFillPrices: make(map[string]float64),
		Lifecycle:     newLifecycle(),
	}, nil
}

// IsFullyFilled reports whether every leg has filled its full quantity.
func (o *OptionSpreadOrder) IsFullyFilled() bool {
	for _, leg := range o.Legs {
		if o.LegFills[leg.ContractSymbol()] < leg.Quantity {
			return false
		}
	}
	return true
}

// HasAnyFill reports whether any leg has a nonzero fill.
func (o *OptionSpreadOrder) HasAnyFill() bool {
	for _, qty := range o.LegFills {
		if qty > 0 {
			return true
		}
	}
	return false
}

// NetNotional returns the spread notional using recorded leg fill prices,
// estimating unfilled legs from an even split of the net limit price.
func (o *OptionSpreadOrder) NetNotional() float64 {
	total := 0.0
	for _, leg := range o.Legs {
		price := o.LegFillPrices[leg.ContractSymbol()]
		if price == 0 && o.LimitPrice != nil && len(o.Legs) > 0 {
			price = *o.LimitPrice / float64(len(o.Legs))
		}
		total += leg.Notional(price)
	}
	return total
}
