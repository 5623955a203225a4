// Package models defines the signal contract and the order lifecycle types
// shared by the risk, execution, and audit layers.
package models

import (
	"fmt"
	"strings"
)

// Side is the direction of a signal or order.
type Side string

const (
	// SideBuy increases exposure.
	SideBuy Side = "BUY"
	// SideSell decreases exposure.
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TimeHorizon classifies how long a strategy intends to hold the exposure.
type TimeHorizon string

const (
	HorizonIntraday TimeHorizon = "INTRADAY"
	HorizonSwing    TimeHorizon = "SWING"
	HorizonLong     TimeHorizon = "LONG"
)

// Valid reports whether the horizon is one of the known values.
func (h TimeHorizon) Valid() bool {
	return h == HorizonIntraday || h == HorizonSwing || h == HorizonLong
}

// MaxSlippageBpsCeiling is the contract ceiling for requested slippage.
const MaxSlippageBpsCeiling = 1000

// SignalConstraints carries per-signal execution constraints.
type SignalConstraints struct {
	MaxSlippageBps int      `json:"max_slippage_bps"`
	MaxNotional    *float64 `json:"max_notional,omitempty"`
}

// TradingSignal is the authoritative contract for signals entering the
// gateway. Validate must be called at ingest; the value is immutable after.
type TradingSignal struct {
	StrategyID     string            `json:"strategy_id"`
	Symbol         string            `json:"symbol"`
	Side           Side              `json:"side"`
	Confidence     float64           `json:"confidence"`
	TargetExposure float64           `json:"target_exposure"`
	TimeHorizon    TimeHorizon       `json:"time_horizon"`
	Constraints    SignalConstraints `json:"constraints"`
}

// Validate checks the signal against the contract and normalizes the symbol
// to upper case. It returns the first violation found.
func (s *TradingSignal) Validate() error {
	if s.StrategyID == "" {
		return fmt.Errorf("strategy_id is required")
	}
	if s.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if !validSymbol(s.Symbol) {
		return fmt.Errorf("symbol must be alphanumeric or contain dots: %q", s.Symbol)
	}
	s.Symbol = strings.ToUpper(s.Symbol)
	if !s.Side.Valid() {
		return fmt.Errorf("side must be BUY or SELL: %q", s.Side)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence must be in [0,1]: %v", s.Confidence)
	}
	if s.TargetExposure <= 0 {
		return fmt.Errorf("target_exposure must be > 0: %v", s.TargetExposure)
	}
	if !s.TimeHorizon.Valid() {
		return fmt.Errorf("time_horizon must be INTRADAY, SWING, or LONG: %q", s.TimeHorizon)
	}
	if s.Constraints.MaxSlippageBps < 0 || s.Constraints.MaxSlippageBps > MaxSlippageBpsCeiling {
		return fmt.Errorf("constraints.max_slippage_bps must be in [0,%d]: %d",
			MaxSlippageBpsCeiling, s.Constraints.MaxSlippageBps)
	}
	if s.Constraints.MaxNotional != nil && *s.Constraints.MaxNotional <= 0 {
		return fmt.Errorf("constraints.max_notional must be > 0: %v", *s.Constraints.MaxNotional)
	}
	return nil
}

// OrderNotional returns the USD notional used for limit checks: the target
// exposure capped by constraints.max_notional when one is set.
func (s *TradingSignal) OrderNotional() float64 {
	if s.Constraints.MaxNotional != nil && *s.Constraints.MaxNotional < s.TargetExposure {
		return *s.Constraints.MaxNotional
	}
	return s.TargetExposure
}

// SignedNotional returns the target exposure signed by side: positive for
// BUY, negative for SELL.
func (s *TradingSignal) SignedNotional() float64 {
	if s.Side == SideSell {
		return -s.TargetExposure
	}
	return s.TargetExposure
}

func validSymbol(sym string) bool {
	for _, r := range sym {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.':
		default:
			return false
		}
	}
	return true
}
