package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSignal() TradingSignal {
	return TradingSignal{
		StrategyID:     "momentum-1",
		Symbol:         "AAPL",
		Side:           SideBuy,
		Confidence:     0.8,
		TargetExposure: 10_000,
		TimeHorizon:    HorizonIntraday,
		Constraints:    SignalConstraints{MaxSlippageBps: 25},
	}
}

func TestSignalValidate(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name    string
		mutate  func(*TradingSignal)
		wantErr string
	}{
		{"valid", func(s *TradingSignal) {}, ""},
		{"missing strategy", func(s *TradingSignal) { s.StrategyID = "" }, "strategy_id"},
		{"missing symbol", func(s *TradingSignal) { s.Symbol = "" }, "symbol"},
		{"bad symbol chars", func(s *TradingSignal) { s.Symbol = "AAPL!" }, "symbol"},
		{"dotted symbol ok", func(s *TradingSignal) { s.Symbol = "BRK.B" }, ""},
		{"bad side", func(s *TradingSignal) { s.Side = "HOLD" }, "side"},
		{"confidence above one", func(s *TradingSignal) { s.Confidence = 1.5 }, "confidence"},
		{"zero exposure", func(s *TradingSignal) { s.TargetExposure = 0 }, "target_exposure"},
		{"negative exposure", func(s *TradingSignal) { s.TargetExposure = -5 }, "target_exposure"},
		{"bad horizon", func(s *TradingSignal) { s.TimeHorizon = "FOREVER" }, "time_horizon"},
		{"slippage over ceiling", func(s *TradingSignal) { s.Constraints.MaxSlippageBps = 1001 }, "max_slippage_bps"},
		{"negative slippage", func(s *TradingSignal) { s.Constraints.MaxSlippageBps = -1 }, "max_slippage_bps"},
		{"negative max notional", func(s *TradingSignal) { s.Constraints.MaxNotional = &neg }, "max_notional"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := validSignal()
			tt.mutate(&sig)
			err := sig.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSignalValidateNormalizesSymbol(t *testing.T) {
	sig := validSignal()
	sig.Symbol = "aapl"
	require.NoError(t, sig.Validate())
	assert.Equal(t, "AAPL", sig.Symbol)
}

func TestSignalOrderNotional(t *testing.T) {
	sig := validSignal()
	assert.Equal(t, 10_000.0, sig.OrderNotional())

	cap := 5_000.0
	sig.Constraints.MaxNotional = &cap
	assert.Equal(t, 5_000.0, sig.OrderNotional())

	// A cap above the exposure leaves the notional at the exposure.
	cap = 50_000.0
	assert.Equal(t, 10_000.0, sig.OrderNotional())
}

func TestSignalSignedNotional(t *testing.T) {
	sig := validSignal()
	assert.Equal(t, 10_000.0, sig.SignedNotional())
	sig.Side = SideSell
	assert.Equal(t, -10_000.0, sig.SignedNotional())
}
