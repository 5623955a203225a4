// Package exec implements the execution core: fill application, contract
// validation, order routing to broker adapters, and the fill poll loop.
// Orders only change state here; nothing in this package touches risk or
// portfolio data.
package exec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/halligan/tradegate/internal/models"
)

// ErrFillMismatch marks a fill that does not belong to the order it was
// applied to. Callers discard the fill and keep the order untouched.
var ErrFillMismatch = errors.New("fill does not match order")

// keyedMutex serializes fill application per broker order. Two fills for
// the same broker order never interleave; fills for different orders run
// concurrently.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) lock(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// FillProcessor applies equity fills to orders. Application is idempotent
// at the quantity level: filled quantity and notional are capped at the
// order's targets, so an overfill never pushes the order past FILLED.
type FillProcessor struct {
	locks *keyedMutex
}

// NewFillProcessor builds a fill processor.
func NewFillProcessor() *FillProcessor {
	return &FillProcessor{locks: newKeyedMutex()}
}

// ApplyFill folds a fill into an order, advancing the state machine to
// PARTIALLY_FILLED or FILLED as the cumulative quantity dictates. A
// mismatched fill returns ErrFillMismatch and leaves the order unchanged.
func (p *FillProcessor) ApplyFill(order *models.Order, fill models.Fill) error {
	lock := p.locks.lock(fill.BrokerOrderID)
	lock.Lock()
	defer lock.Unlock()

	if fill.Symbol != order.Symbol {
		return fmt.Errorf("%w: fill symbol %s, order symbol %s", ErrFillMismatch, fill.Symbol, order.Symbol)
	}
	if fill.BrokerOrderID != order.BrokerOrderID {
		return fmt.Errorf("%w: fill broker order %s, order broker order %s",
			ErrFillMismatch, fill.BrokerOrderID, order.BrokerOrderID)
	}

	newQuantity := order.FilledQuantity + fill.Quantity
	newNotional := order.FilledNotional + fill.Notional

	if newQuantity >= order.Quantity {
		if order.Status != models.StatusFilled {
			if err := order.Transition(models.StatusFilled); err != nil {
				return err
			}
		}
		order.FilledQuantity = order.Quantity
		order.FilledNotional = order.Notional
	} else {
		if order.Status != models.StatusPartiallyFilled {
			if err := order.Transition(models.StatusPartiallyFilled); err != nil {
				return err
			}
		}
		order.FilledQuantity = newQuantity
		order.FilledNotional = newNotional
	}

	if order.FilledQuantity > 0 {
		avg := order.FilledNotional / order.FilledQuantity
		order.AverageFillPrice = &avg
	}
	return nil
}

// ValidateFill is the pure predicate form of the fill checks: it reports
// whether the fill could legally apply without mutating anything.
func ValidateFill(fill models.Fill, order *models.Order) (bool, string) {
	if fill.Symbol != order.Symbol {
		return false, fmt.Sprintf("Symbol mismatch: %s != %s", fill.Symbol, order.Symbol)
	}
	if fill.BrokerOrderID != order.BrokerOrderID {
		return false, "Broker order ID mismatch"
	}
	if order.FilledQuantity+fill.Quantity > order.Quantity {
		return false, "Fill quantity exceeds remaining order quantity"
	}
	if fill.Price <= 0 {
		return false, "Fill price must be positive"
	}
	return true, ""
}
