// Package valueobject holds small immutable value types shared across contexts.
package valueobject

import (
	"github.com/shopspring/decimal"
)

// Cents is an amount of US currency in minor units. All monetary values in the
// domain are Cents; conversion to dollars happens only at the API boundary.
type Cents int64

// Zero is the zero amount
const Zero Cents = 0

// NewCentsFromUSD converts a dollar amount to cents, rounding half away from zero
func NewCentsFromUSD(usd float64) Cents {
	return Cents(decimal.NewFromFloat(usd).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// Add returns c + other
func (c Cents) Add(other Cents) Cents {
	return c + other
}

// Sub returns c - other
func (c Cents) Sub(other Cents) Cents {
	return c - other
}

// Mul multiplies by an integer quantity
func (c Cents) Mul(qty int) Cents {
	return c * Cents(qty)
}

// Percent returns round(c * pct / 100), half away from zero.
func (c Cents) Percent(pct decimal.Decimal) Cents {
	return Cents(decimal.NewFromInt(int64(c)).Mul(pct).Div(decimal.NewFromInt(100)).Round(0).IntPart())
}

// IsNegative reports whether the amount is below zero
func (c Cents) IsNegative() bool {
	return c < 0
}

// Int64 returns the raw number of cents
func (c Cents) Int64() int64 {
	return int64(c)
}

// USD returns the amount in dollars with two decimal places
func (c Cents) USD() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String formats the amount as dollars, e.g. "1234.50"
func (c Cents) String() string {
	return c.USD().StringFixed(2)
}
