package exec

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halligan/tradegate/internal/broker"
	"github.com/halligan/tradegate/internal/models"
)

func TestSubmitOptionOrderRejectsInvalidWithoutBrokerContact(t *testing.T) {
	// A disconnected IBKR adapter would fail any call; validation must
	// reject the order before the adapter is reached.
	router := NewOptionOrderRouter(broker.NewIBKRBroker("127.0.0.1", 7497, 1))

	leg := testLeg(models.SideBuy, models.OptionCall, 170, 10)
	leg.Expiration = "2020-01-17"
	order := models.NewOptionOrder("strat", leg, nil)

	err := router.SubmitOptionOrder(context.Background(), order)
	require.EqualError(t, err, "Leg validation failed: Expiration 2020-01-17 must be in the future")
	assert.Equal(t, models.StatusRejected, order.Status)
	assert.Equal(t, "Leg validation failed: Expiration 2020-01-17 must be in the future", order.RejectionReason)
	assert.Empty(t, order.BrokerOrderID)
}

func TestSubmitOptionOrderThroughPaperBroker(t *testing.T) {
	router := NewOptionOrderRouter(broker.NewPaperBroker(5))
	order := models.NewOptionOrder("strat", testLeg(models.SideBuy, models.OptionCall, 170, 10), nil)

	require.NoError(t, router.SubmitOptionOrder(context.Background(), order))
	assert.Equal(t, models.StatusSubmitted, order.Status)
	assert.Contains(t, order.BrokerOrderID, "PAPER_")
}

func TestSpreadSubmitAndFillEndToEnd(t *testing.T) {
	paper := broker.NewPaperBroker(5)
	router := NewOptionOrderRouter(paper)
	fills := NewOptionFillProcessor()
	ctx := context.Background()

	long := testLeg(models.SideBuy, models.OptionCall, 175, 10)
	short := testLeg(models.SideSell, models.OptionCall, 180, 10)
	limit := 2.0
	order, err := models.NewOptionSpreadOrder("strat", []models.OptionLeg{long, short}, &limit)
	require.NoError(t, err)

	require.NoError(t, router.SubmitSpreadOrder(ctx, order))
	assert.Equal(t, models.StatusSubmitted, order.Status)

	legFills, err := paper.OptionFills(ctx, order.BrokerOrderID)
	require.NoError(t, err)
	require.Len(t, legFills, 2)

	legBySymbol := map[string]models.OptionLeg{
		long.ContractSymbol():  long,
		short.ContractSymbol(): short,
	}
	for _, fill := range legFills {
		leg, ok := legBySymbol[fill.ContractSymbol]
		require.True(t, ok)
		require.NoError(t, fills.ApplyFillToSpread(order, fill, leg))
	}

	assert.Equal(t, models.StatusFilled, order.Status)
	assert.True(t, order.IsFullyFilled())
}

func TestSubmitSpreadOrderInvalidRejected(t *testing.T) {
	router := NewOptionOrderRouter(broker.NewPaperBroker(5))

	long := testLeg(models.SideBuy, models.OptionCall, 175, 10)
	short := testLeg(models.SideSell, models.OptionCall, 180, 10)
	short.Symbol = "MSFT"
	order, err := models.NewOptionSpreadOrder("strat", []models.OptionLeg{long, short}, nil)
	require.NoError(t, err)

	err = router.SubmitSpreadOrder(context.Background(), order)
	require.EqualError(t, err, "All legs must have same underlying: MSFT != AAPL")
	assert.Equal(t, models.StatusRejected, order.Status)
}

func TestOptionSubmitKeepsBrokerIDOnFailure(t *testing.T) {
	router := NewOptionOrderRouter(&interruptedBroker{PaperBroker: broker.NewPaperBroker(5)})
	ctx := context.Background()

	order := models.NewOptionOrder("strat", testLeg(models.SideBuy, models.OptionCall, 170, 10), nil)
	err := router.SubmitOptionOrder(ctx, order)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "BRK-123", order.BrokerOrderID)
	assert.Equal(t, models.StatusFailed, order.Status)

	long := testLeg(models.SideBuy, models.OptionCall, 175, 10)
	short := testLeg(models.SideSell, models.OptionCall, 180, 10)
	spread, err := models.NewOptionSpreadOrder("strat", []models.OptionLeg{long, short}, nil)
	require.NoError(t, err)
	err = router.SubmitSpreadOrder(ctx, spread)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "BRK-123", spread.BrokerOrderID)
	assert.Equal(t, models.StatusFailed, spread.Status)
}

func TestCancelOptionOrderRefusals(t *testing.T) {
	router := NewOptionOrderRouter(broker.NewPaperBroker(5))
	ctx := context.Background()

	pending := models.NewOptionOrder("strat", testLeg(models.SideBuy, models.OptionCall, 170, 10), nil)
	_, err := router.CancelOptionOrder(ctx, pending)
	require.EqualError(t, err, "order not yet submitted to broker")

	submitted := models.NewOptionOrder("strat", testLeg(models.SideBuy, models.OptionCall, 170, 10), nil)
	require.NoError(t, router.SubmitOptionOrder(ctx, submitted))
	// Paper fills the order immediately, so cancel is declined.
	ok, err := router.CancelOptionOrder(ctx, submitted)
	require.NoError(t, err)
	assert.False(t, ok)
}
