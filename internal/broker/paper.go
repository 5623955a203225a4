package broker

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halligan/tradegate/internal/models"
	"github.com/halligan/tradegate/internal/util"
)

// Simulated latencies. The execution core depends only on ordering, so these
// stay small enough to keep tests fast.
const (
	paperSubmitDelay = time.Millisecond
	paperFillDelay   = 2 * time.Millisecond
)

// priceTick is the cent grid paper fills are rounded to.
const priceTick = 0.01

// mockPrices is the fixed reference price table for the simulator.
var mockPrices = map[string]float64{
	"AAPL":  175.50,
	"MSFT":  380.25,
	"GOOGL": 140.75,
	"TSLA":  250.00,
}

const fallbackPrice = 100.0

type paperOrder struct {
	symbol         string
	status         string
	filledQuantity float64
	avgFillPrice   float64
}

// PaperBroker simulates execution without real capital. Market orders fill
// immediately at a table price adjusted for configured slippage; option
// orders fill at the limit price or a synthetic premium. Spreads fill
// atomically: all legs in one step or none.
type PaperBroker struct {
	slippageBps int
	now         func() time.Time

	mu          sync.Mutex
	orders      map[string]*paperOrder
	fills       map[string][]models.Fill
	optionFills map[string][]models.OptionFill
}

var _ Broker = (*PaperBroker)(nil)

// NewPaperBroker builds a paper broker with the given simulated slippage.
func NewPaperBroker(slippageBps int) *PaperBroker {
	return &PaperBroker{
		slippageBps: slippageBps,
		now:         time.Now,
		orders:      make(map[string]*paperOrder),
		fills:       make(map[string][]models.Fill),
		optionFills: make(map[string][]models.OptionFill),
	}
}

// Name implements Broker.
func (p *PaperBroker) Name() string {
	return "PAPER"
}

func newPaperOrderID() string {
	return "PAPER_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func mockPrice(symbol string) float64 {
	if price, ok := mockPrices[symbol]; ok {
		return price
	}
	return fallbackPrice
}

// fillPrice applies slippage against the order: buys pay up, sells receive
// less.
func (p *PaperBroker) fillPrice(symbol string, side models.Side) float64 {
	direction := 1.0
	if side == models.SideSell {
		direction = -1.0
	}
	price := mockPrice(symbol) * (1 + float64(p.slippageBps)/10000*direction)
	return util.RoundToTick(price, priceTick)
}

// SubmitOrder implements Broker. Only MARKET orders are supported; the fill
// is synthesized immediately after submission.
func (p *PaperBroker) SubmitOrder(ctx context.Context, req OrderRequest) (string, error) {
	if req.OrderType != OrderTypeMarket {
		return "", &OrderError{
			Broker: p.Name(),
			Reason: fmt.Sprintf("paper broker only supports MARKET orders, got %s", req.OrderType),
		}
	}

	brokerOrderID := newPaperOrderID()
	if err := sleepCtx(ctx, paperSubmitDelay); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.orders[brokerOrderID] = &paperOrder{symbol: req.Symbol, status: "SUBMITTED"}
	p.mu.Unlock()

	if err := sleepCtx(ctx, paperFillDelay); err != nil {
		return brokerOrderID, err
	}

	price := p.fillPrice(req.Symbol, req.Side)
	fill := models.NewFill(brokerOrderID, req.Symbol, req.Quantity, price, p.now().UTC())

	p.mu.Lock()
	p.fills[brokerOrderID] = append(p.fills[brokerOrderID], fill)
	order := p.orders[brokerOrderID]
	order.status = "FILLED"
	order.filledQuantity = req.Quantity
	order.avgFillPrice = price
	p.mu.Unlock()

	return brokerOrderID, nil
}

// CancelOrder implements Broker. Cancelling a terminal order is not an
// error; it just reports false.
func (p *PaperBroker) CancelOrder(_ context.Context, brokerOrderID string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[brokerOrderID]
	if !ok {
		return false, &OrderError{Broker: p.Name(), Reason: "order not found: " + brokerOrderID}
	}
	if order.status == "FILLED" || order.status == "CANCELLED" {
		return false, nil
	}
	order.status = "CANCELLED"
	return true, nil
}

// OrderStatus implements Broker.
func (p *PaperBroker) OrderStatus(_ context.Context, brokerOrderID string) (*BrokerOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	order, ok := p.orders[brokerOrderID]
	if !ok {
		return nil, &OrderError{Broker: p.Name(), Reason: "order not found: " + brokerOrderID}
	}
	return &BrokerOrder{
		BrokerOrderID:  brokerOrderID,
		Symbol:         order.symbol,
		Status:         order.status,
		FilledQuantity: order.filledQuantity,
		AvgFillPrice:   order.avgFillPrice,
	}, nil
}

// Fills implements Broker.
func (p *PaperBroker) Fills(_ context.Context, brokerOrderID string) ([]models.Fill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fills := p.fills[brokerOrderID]
	out := make([]models.Fill, len(fills))
	copy(out, fills)
	return out, nil
}

// premium synthesizes a per-contract price: intrinsic value plus a flat time
// value of 2% of the underlying, floored at a cent.
func (p *PaperBroker) premium(leg models.OptionLeg) float64 {
	underlying := mockPrice(leg.Symbol)
	intrinsic := 0.0
	if leg.OptionType == models.OptionCall {
		intrinsic = math.Max(0, underlying-leg.Strike)
	} else {
		intrinsic = math.Max(0, leg.Strike-underlying)
	}
	return util.RoundToTick(math.Max(0.01, intrinsic+0.02*underlying), priceTick)
}

// SubmitOptionOrder implements Broker. The fill price is the limit price
// when given, otherwise a synthetic premium.
func (p *PaperBroker) SubmitOptionOrder(ctx context.Context, leg models.OptionLeg, limitPrice *float64) (string, error) {
	brokerOrderID := newPaperOrderID()
	if err := sleepCtx(ctx, paperSubmitDelay); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.orders[brokerOrderID] = &paperOrder{symbol: leg.ContractSymbol(), status: "SUBMITTED"}
	p.mu.Unlock()

	if err := sleepCtx(ctx, paperFillDelay); err != nil {
		return brokerOrderID, err
	}

	price := p.premium(leg)
	if limitPrice != nil {
		price = *limitPrice
	}
	fill := models.NewOptionFill(brokerOrderID, leg.ContractSymbol(), leg.Quantity, price, p.now().UTC())

	p.mu.Lock()
	p.optionFills[brokerOrderID] = append(p.optionFills[brokerOrderID], fill)
	order := p.orders[brokerOrderID]
	order.status = "FILLED"
	order.filledQuantity = float64(leg.Quantity)
	order.avgFillPrice = price
	p.mu.Unlock()

	return brokerOrderID, nil
}

// SubmitOptionSpread implements Broker. Leg fills are synthesized together
// and recorded in a single step so a spread is never observable half-filled.
// A net limit price is split evenly across legs.
func (p *PaperBroker) SubmitOptionSpread(ctx context.Context, legs []models.OptionLeg, limitPrice *float64) (string, error) {
	if len(legs) == 0 {
		return "", &OrderError{Broker: p.Name(), Reason: "spread requires at least one leg"}
	}

	brokerOrderID := newPaperOrderID()
	if err := sleepCtx(ctx, paperSubmitDelay); err != nil {
		return "", err
	}

	p.mu.Lock()
	p.orders[brokerOrderID] = &paperOrder{symbol: legs[0].Symbol, status: "SUBMITTED"}
	p.mu.Unlock()

	if err := sleepCtx(ctx, paperFillDelay); err != nil {
		return brokerOrderID, err
	}

	now := p.now().UTC()
	fills := make([]models.OptionFill, 0, len(legs))
	for _, leg := range legs {
		price := p.premium(leg)
		if limitPrice != nil {
			price = *limitPrice / float64(len(legs))
		}
		fills = append(fills, models.NewOptionFill(brokerOrderID, leg.ContractSymbol(), leg.Quantity, price, now))
	}

	p.mu.Lock()
	p.optionFills[brokerOrderID] = append(p.optionFills[brokerOrderID], fills...)
	p.orders[brokerOrderID].status = "FILLED"
	p.mu.Unlock()

	return brokerOrderID, nil
}

// OptionFills implements Broker.
func (p *PaperBroker) OptionFills(_ context.Context, brokerOrderID string) ([]models.OptionFill, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fills := p.optionFills[brokerOrderID]
	out := make([]models.OptionFill, len(fills))
	copy(out, fills)
	return out, nil
}
