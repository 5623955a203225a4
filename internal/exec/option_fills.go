package exec

import (
	"fmt"

	"github.com/halligan/tradegate/internal/models"
)

// OptionFillProcessor applies per-contract fills to option orders and
// spreads. Like the equity processor it serializes per broker order and
// caps filled quantities at the leg targets.
type OptionFillProcessor struct {
	locks *keyedMutex
}

// NewOptionFillProcessor builds an option fill processor.
func NewOptionFillProcessor() *OptionFillProcessor {
	return &OptionFillProcessor{locks: newKeyedMutex()}
}

// ApplyFill folds a fill into a single-leg option order. The recorded fill
// price is the running weighted average per contract.
func (p *OptionFillProcessor) ApplyFill(order *models.OptionOrder, fill models.OptionFill) error {
	lock := p.locks.lock(fill.BrokerOrderID)
	lock.Lock()
	defer lock.Unlock()

	contractSymbol := order.Leg.ContractSymbol()
	if fill.ContractSymbol != contractSymbol {
		return fmt.Errorf("%w: fill contract %s, order contract %s",
			ErrFillMismatch, fill.ContractSymbol, contractSymbol)
	}
	if fill.BrokerOrderID != order.BrokerOrderID {
		return fmt.Errorf("%w: fill broker order %s, order broker order %s",
			ErrFillMismatch, fill.BrokerOrderID, order.BrokerOrderID)
	}

	newFilled := order.FilledQuantity + fill.Quantity
	if newFilled >= order.Leg.Quantity {
		if order.Status != models.StatusFilled {
			if err := order.Transition(models.StatusFilled); err != nil {
				return err
			}
		}
		order.FilledQuantity = order.Leg.Quantity
	} else {
		if order.Status != models.StatusPartiallyFilled {
			if err := order.Transition(models.StatusPartiallyFilled); err != nil {
				return err
			}
		}
		order.FilledQuantity = newFilled
	}

	if order.FilledQuantity > 0 {
		if order.FilledPrice == nil {
			price := fill.PricePerContract
			order.FilledPrice = &price
		} else {
			totalCost := *order.FilledPrice*float64(order.FilledQuantity-fill.Quantity) +
				fill.PricePerContract*float64(fill.Quantity)
			avg := totalCost / float64(order.FilledQuantity)
			order.FilledPrice = &avg
		}
	}
	return nil
}

// ApplyFillToSpread folds one leg's fill into a spread order. The spread
// reaches FILLED only when every leg is complete; any fill short of that
// leaves it PARTIALLY_FILLED.
func (p *OptionFillProcessor) ApplyFillToSpread(order *models.OptionSpreadOrder, fill models.OptionFill, leg models.OptionLeg) error {
	lock := p.locks.lock(order.OrderID)
	lock.Lock()
	defer lock.Unlock()

	contractSymbol := leg.ContractSymbol()
	if fill.ContractSymbol != contractSymbol {
		return fmt.Errorf("%w: fill contract %s, leg contract %s",
			ErrFillMismatch, fill.ContractSymbol, contractSymbol)
	}

	newFilled := order.LegFills[contractSymbol] + fill.Quantity
	if newFilled > leg.Quantity {
		newFilled = leg.Quantity
	}
	order.LegFills[contractSymbol] = newFilled
	order.LegFillPrices[contractSymbol] = fill.PricePerContract

	if order.IsFullyFilled() {
		if order.Status != models.StatusFilled {
			return order.Transition(models.StatusFilled)
		}
	} else if newFilled > 0 && order.Status != models.StatusPartiallyFilled {
		return order.Transition(models.StatusPartiallyFilled)
	}
	return nil
}

// ValidateOptionFill reports whether a fill could legally apply to a
// single-leg order without mutating anything.
func ValidateOptionFill(fill models.OptionFill, order *models.OptionOrder) (bool, string) {
	contractSymbol := order.Leg.ContractSymbol()
	if fill.ContractSymbol != contractSymbol {
		return false, fmt.Sprintf("Contract symbol mismatch: %s != %s", fill.ContractSymbol, contractSymbol)
	}
	if fill.BrokerOrderID != order.BrokerOrderID {
		return false, "Broker order ID mismatch"
	}
	if fill.Quantity <= 0 {
		return false, "Fill quantity must be positive"
	}
	if order.FilledQuantity+fill.Quantity > order.Leg.Quantity {
		return false, "Fill quantity exceeds remaining order quantity"
	}
	if fill.PricePerContract <= 0 {
		return false, "Fill price must be positive"
	}
	return true, ""
}
