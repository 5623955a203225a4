package audit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/risk"
)

func TestDecisionLogWritesOneJSONLinePerEntry(t *testing.T) {
	var buf bytes.Buffer
	log := NewDecisionLog(&buf)

	require.NoError(t, log.Record(DecisionEntry{
		SignalID:   "sig-1",
		StrategyID: "strat-a",
		Symbol:     "AAPL",
		Decision:   DecisionApproved,
		CheckResults: map[string]risk.CheckResult{
			"notional": {Valid: true},
		},
	}))
	require.NoError(t, log.Record(DecisionEntry{
		SignalID:   "sig-2",
		StrategyID: "strat-a",
		Symbol:     "MSFT",
		Decision:   DecisionRejected,
		Errors:     []string{"Position limit exceeded: 110000.00 > 100000.00"},
	}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	var first DecisionEntry
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "sig-1", first.SignalID)
	assert.Equal(t, DecisionApproved, first.Decision)
	assert.False(t, first.Timestamp.IsZero())
	// Nil collections are normalized so every line has the same shape.
	assert.NotNil(t, first.Errors)
	assert.NotNil(t, first.Metadata)

	var second DecisionEntry
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, DecisionRejected, second.Decision)
	assert.Contains(t, second.Errors[0], "Position limit exceeded")
}

func TestDecisionLogRecentFiltersByStrategy(t *testing.T) {
	log := NewDecisionLog(nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Record(DecisionEntry{SignalID: "a", StrategyID: "strat-a", Decision: DecisionApproved}))
	}
	require.NoError(t, log.Record(DecisionEntry{SignalID: "b", StrategyID: "strat-b", Decision: DecisionRejected}))

	assert.Len(t, log.Recent("", 0), 4)
	assert.Len(t, log.Recent("strat-a", 0), 3)

	limited := log.Recent("strat-a", 2)
	assert.Len(t, limited, 2)

	onlyB := log.Recent("strat-b", 0)
	require.Len(t, onlyB, 1)
	assert.Equal(t, DecisionRejected, onlyB[0].Decision)
}

func TestTradeLogLifecycleEvents(t *testing.T) {
	var buf bytes.Buffer
	log := NewTradeLog(&buf)

	sig := &models.TradingSignal{StrategyID: "strat-a", Symbol: "AAPL", Side: models.SideBuy}
	order := models.NewOrder("strat-a", "AAPL", models.SideBuy, 10_000, 10_000)

	require.NoError(t, log.OrderCreated(order, sig))
	order.BrokerOrderID = "BRK1"
	require.NoError(t, order.Transition(models.StatusSubmitted))
	require.NoError(t, log.OrderSubmitted(order))

	fill := models.NewFill("BRK1", "AAPL", 10_000, 175.50, time.Now().UTC())
	order.FilledQuantity = 10_000
	require.NoError(t, log.OrderFilled(order, fill))
	require.NoError(t, log.FillDiscarded(order.OrderID, "BRK1", "Symbol mismatch: MSFT != AAPL"))

	events := log.Recent("", 0)
	require.Len(t, events, 4)
	assert.Equal(t, EventOrderCreated, events[0].Event)
	assert.Equal(t, EventOrderSubmitted, events[1].Event)
	assert.Equal(t, EventOrderFilled, events[2].Event)
	assert.Equal(t, EventFillDiscarded, events[3].Event)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		var entry TradeEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
	}
}

func TestTradeLogOptionLifecycleEvent(t *testing.T) {
	log := NewTradeLog(nil)

	event := models.NewOptionEvent(models.EventAssignment, "AAPL_301220_C_170000", 5, 170.0, time.Now().UTC())
	require.NoError(t, log.OptionLifecycleEvent(event))

	events := log.Recent("", 0)
	require.Len(t, events, 1)
	assert.Equal(t, EventOption, events[0].Event)
	assert.Equal(t, "AAPL_301220_C_170000", events[0].Symbol)
	assert.Equal(t, models.EventAssignment, events[0].Details["event_type"])
}

func TestStreamTailBounded(t *testing.T) {
	log := NewTradeLog(nil)
	for i := 0; i < recentLimit+10; i++ {
		require.NoError(t, log.Record(TradeEntry{Event: EventOrderCreated}))
	}
	assert.Len(t, log.Recent("", 0), recentLimit)
}
