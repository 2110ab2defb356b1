package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InvalidPlanPriceError is returned when a plan price is zero or negative.
// The calculator refuses to divide by such a price.
type InvalidPlanPriceError struct {
	Price decimal.Decimal
}

func (e *InvalidPlanPriceError) Error() string {
	return fmt.Sprintf("plan price must be greater than zero (got %s)", e.Price.String())
}

func (e *InvalidPlanPriceError) Invalid() bool { return true }

// InvalidCustomAmountError is returned by Validate when a custom payment is zero or negative
type InvalidCustomAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidCustomAmountError) Error() string {
	return fmt.Sprintf("custom amount must be greater than zero (got %s)", e.Amount.String())
}

func (e *InvalidCustomAmountError) Invalid() bool { return true }

// UnknownTypeError is returned for subscription types outside of the catalog
type UnknownTypeError struct {
	Type Type
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown subscription type %q", string(e.Type))
}

func (e *UnknownTypeError) Invalid() bool { return true }
