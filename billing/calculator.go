// Package billing converts prepaid payments into service time.
//
// Every computation uses decimal arithmetic. Fractional days are broken down
// into whole hours and minutes by truncation, so any sub-minute remainder of
// a custom payment is dropped in the provider's favour.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Type is the kind of prepaid purchase
type Type string

// Supported subscription types
const (
	TypeOneMonth    Type = "one_month"
	TypeFifteenDays Type = "fifteen_days"
	TypeCustom      Type = "custom"
)

// divisionPrecision is the number of decimal places kept when dividing a
// custom amount by the plan price.
const divisionPrecision int32 = 28

var (
	oneMonthDays    = decimal.NewFromInt(30)
	fifteenDaysDays = decimal.NewFromInt(15)
	referenceDays   = decimal.NewFromInt(30)
	hoursPerDay     = decimal.NewFromInt(24)
	minutesPerHour  = decimal.NewFromInt(60)
	two             = decimal.NewFromInt(2)
)

// Valid reports whether t is one of the supported types
func (t Type) Valid() bool {
	switch t {
	case TypeOneMonth, TypeFifteenDays, TypeCustom:
		return true
	}
	return false
}

// Input is what a cashier provides when selling time on a plan.
// Amount is only read for TypeCustom.
type Input struct {
	PlanPrice decimal.Decimal
	Type      Type
	Amount    decimal.Decimal
	StartDate time.Time
}

// Breakdown is DaysAdded expressed as whole days, hours and minutes
type Breakdown struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
}

// Duration returns the offset that is added to the start date
func (b Breakdown) Duration() time.Duration {
	return time.Duration(b.Days)*24*time.Hour +
		time.Duration(b.Hours)*time.Hour +
		time.Duration(b.Minutes)*time.Minute
}

// Result is the outcome of a calculation
type Result struct {
	DaysAdded     decimal.Decimal `json:"days_added"`
	Breakdown     Breakdown       `json:"breakdown"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
}

// Validate checks the caller supplied values that the calculator assumes.
// It must be called before Calculate.
func Validate(in Input) error {
	if !in.Type.Valid() {
		return &UnknownTypeError{Type: in.Type}
	}
	if !in.PlanPrice.IsPositive() {
		return &InvalidPlanPriceError{Price: in.PlanPrice}
	}
	if in.Type == TypeCustom && !in.Amount.IsPositive() {
		return &InvalidCustomAmountError{Amount: in.Amount}
	}
	return nil
}

// Calculate converts a payment into days of service and the resulting end date.
// A positive custom amount is a precondition; see Validate.
func Calculate(in Input) (Result, error) {
	if !in.PlanPrice.IsPositive() {
		return Result{}, &InvalidPlanPriceError{Price: in.PlanPrice}
	}

	var daysAdded, charged decimal.Decimal
	switch in.Type {
	case TypeOneMonth:
		daysAdded = oneMonthDays
		charged = in.PlanPrice
	case TypeFifteenDays:
		daysAdded = fifteenDaysDays
		charged = in.PlanPrice.Div(two)
	case TypeCustom:
		daysAdded = in.Amount.DivRound(in.PlanPrice, divisionPrecision).Mul(referenceDays)
		charged = in.Amount
	default:
		return Result{}, &UnknownTypeError{Type: in.Type}
	}

	breakdown := Split(daysAdded)
	return Result{
		DaysAdded:     daysAdded,
		Breakdown:     breakdown,
		StartDate:     in.StartDate,
		EndDate:       in.StartDate.Add(breakdown.Duration()),
		AmountCharged: charged,
	}, nil
}

// Split breaks a (possibly fractional) day count into days, hours and minutes.
// Hours and minutes are truncated, never rounded.
func Split(days decimal.Decimal) Breakdown {
	whole := days.Floor()
	hours := days.Sub(whole).Mul(hoursPerDay)
	wholeHours := hours.Floor()
	minutes := hours.Sub(wholeHours).Mul(minutesPerHour).Floor()
	return Breakdown{
		Days:    whole.IntPart(),
		Hours:   wholeHours.IntPart(),
		Minutes: minutes.IntPart(),
	}
}
