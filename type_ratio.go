package folio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ratio is a dimensionless decimal such as a return, a weight or a threshold.
//
// It is stored as a fraction (0.05) and displayed as a percentage (5.00%).
type Ratio struct {
	value decimal.Decimal
}

// R returns the ratio for a fraction (0.05 is 5%).
func R[T number](value T) Ratio {
	return Ratio{value: newDecimal(value)}
}

func (p Ratio) Decimal() decimal.Decimal    { return p.value }
func (p Ratio) Equal(q Ratio) bool          { return p.value.Equal(q.value) }
func (p Ratio) IsZero() bool                { return p.value.IsZero() }
func (p Ratio) IsNegative() bool            { return p.value.IsNegative() }
func (p Ratio) GreaterThan(q Ratio) bool    { return p.value.GreaterThan(q.value) }
func (p Ratio) LessThan(q Ratio) bool       { return p.value.LessThan(q.value) }
func (p Ratio) Add(q Ratio) Ratio           { return Ratio{value: p.value.Add(q.value)} }
func (p Ratio) Sub(q Ratio) Ratio           { return Ratio{value: p.value.Sub(q.value)} }
func (p Ratio) Mul(q Ratio) Ratio           { return Ratio{value: p.value.Mul(q.value)} }
func (p Ratio) Abs() Ratio                  { return Ratio{value: p.value.Abs()} }
func (p Ratio) Neg() Ratio                  { return Ratio{value: p.value.Neg()} }
func (p Ratio) Round(places int32) Ratio    { return Ratio{value: p.value.Round(places)} }
func (p Ratio) Percent() decimal.Decimal    { return p.value.Shift(2) }
func (p Ratio) AsFloat() float64            { return p.value.InexactFloat64() }

// Near reports whether p and q differ by at most eps.
func (p Ratio) Near(q Ratio, eps Ratio) bool { return !p.Sub(q).Abs().GreaterThan(eps) }

func (p Ratio) String() string {
	return fmt.Sprintf("%s%%", p.Percent().StringFixed(2))
}

func (p Ratio) SignedString() string {
	if p.value.Round(4).IsZero() {
		return "-"
	}
	if p.value.IsPositive() {
		return "+" + p.String()
	}
	return p.String()
}
