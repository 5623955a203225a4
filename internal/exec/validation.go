package exec

import (
	"fmt"
	"time"

	"github.com/halligan/tradegate/internal/models"
)

// ValidateLeg checks a single option leg: parseable future expiration,
// positive strike, quantity, and multiplier, and legal side and type.
func ValidateLeg(leg models.OptionLeg) (bool, string) {
	expDate, err := leg.ExpirationDate()
	if err != nil {
		return false, fmt.Sprintf("Invalid expiration format: %s", leg.Expiration)
	}
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !expDate.After(today) {
		return false, fmt.Sprintf("Expiration %s must be in the future", leg.Expiration)
	}

	if leg.Strike <= 0 {
		return false, fmt.Sprintf("Strike price must be positive: %g", leg.Strike)
	}
	if leg.Quantity <= 0 {
		return false, fmt.Sprintf("Quantity must be positive: %d", leg.Quantity)
	}
	if leg.ContractMultiplier < 0 {
		return false, fmt.Sprintf("Contract multiplier must be positive: %d", leg.ContractMultiplier)
	}
	if !leg.Side.Valid() {
		return false, fmt.Sprintf("Side must be BUY or SELL: %s", leg.Side)
	}
	if !leg.OptionType.Valid() {
		return false, fmt.Sprintf("Option type must be CALL or PUT: %s", leg.OptionType)
	}
	return true, ""
}

// ValidateOptionOrder checks a single-leg option order before it reaches a
// broker.
func ValidateOptionOrder(order *models.OptionOrder) (bool, string) {
	if ok, msg := ValidateLeg(order.Leg); !ok {
		return false, fmt.Sprintf("Leg validation failed: %s", msg)
	}
	if order.LimitPrice != nil && *order.LimitPrice <= 0 {
		return false, fmt.Sprintf("Limit price must be positive: %g", *order.LimitPrice)
	}
	return true, ""
}

// ValidateSpreadOrder checks a multi-leg spread: every leg valid, one
// underlying, one expiration, nonzero net limit. Leg quantities may differ;
// ratio spreads are legitimate.
func ValidateSpreadOrder(order *models.OptionSpreadOrder) (bool, string) {
	for i, leg := range order.Legs {
		if ok, msg := ValidateLeg(leg); !ok {
			return false, fmt.Sprintf("Leg %d validation failed: %s", i+1, msg)
		}
	}

	underlying := order.Legs[0].Symbol
	for _, leg := range order.Legs[1:] {
		if leg.Symbol != underlying {
			return false, fmt.Sprintf("All legs must have same underlying: %s != %s", leg.Symbol, underlying)
		}
	}

	expiration := order.Legs[0].Expiration
	for _, leg := range order.Legs[1:] {
		if leg.Expiration != expiration {
			return false, fmt.Sprintf("All legs must have same expiration: %s != %s", leg.Expiration, expiration)
		}
	}

	// A net limit may be negative (credit spreads) but zero is ambiguous.
	if order.LimitPrice != nil && *order.LimitPrice == 0 {
		return false, "Limit price cannot be zero"
	}
	return true, ""
}

// ValidateContractSymbol does a light format check on a contract symbol.
func ValidateContractSymbol(contractSymbol string) (bool, string) {
	if contractSymbol == "" {
		return false, "Contract symbol cannot be empty"
	}
	if _, _, _, _, err := models.ParseContractSymbol(contractSymbol); err != nil {
		return false, fmt.Sprintf("Invalid contract symbol format: %s", contractSymbol)
	}
	return true, ""
}
