package folio

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// number is any value M, Q and R accept.
type number interface {
	~float32 | ~float64 | ~int | ~int32 | ~int64 | ~uint | ~uint32 | ~uint64 | decimal.Decimal
}

func newDecimal[T number](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case float32:
		return decimal.NewFromFloat32(v)
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	}
	// named types fall through the switch above.
	return decimal.RequireFromString(fmt.Sprint(value))
}

// Quantity is a number of shares.
type Quantity struct {
	value decimal.Decimal
}

// Q is a shorthand for a Quantity, Q(10) is ten shares.
func Q[T number](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

func (q Quantity) Decimal() decimal.Decimal { return q.value }
func (q Quantity) String() string           { return q.value.String() }

func (q Quantity) Equal(o Quantity) bool       { return q.value.Equal(o.value) }
func (q Quantity) LessThan(o Quantity) bool    { return q.value.LessThan(o.value) }
func (q Quantity) GreaterThan(o Quantity) bool { return q.value.GreaterThan(o.value) }
func (q Quantity) IsNegative() bool            { return q.value.IsNegative() }
func (q Quantity) IsPositive() bool            { return q.value.IsPositive() }
func (q Quantity) IsZero() bool                { return q.value.IsZero() }

func (q Quantity) Add(o Quantity) Quantity { return Quantity{value: q.value.Add(o.value)} }
func (q Quantity) Sub(o Quantity) Quantity { return Quantity{value: q.value.Sub(o.value)} }
func (q Quantity) Mul(o Quantity) Quantity { return Quantity{value: q.value.Mul(o.value)} }
func (q Quantity) Neg() Quantity           { return Quantity{value: q.value.Neg()} }

// Div returns q/o. It panics if o is zero.
func (q Quantity) Div(o Quantity) Quantity { return Quantity{value: q.value.Div(o.value)} }

// Truncate drops the fractional part, rounding toward zero.
func (q Quantity) Truncate() Quantity { return Quantity{value: q.value.Truncate(0)} }

// Floor rounds down to whole shares.
func (q Quantity) Floor() Quantity { return Quantity{value: q.value.Floor()} }

// MarshalJSON writes the quantity as a JSON number.
func (q Quantity) MarshalJSON() ([]byte, error) { return []byte(q.value.String()), nil }

func (q *Quantity) UnmarshalJSON(b []byte) error { return q.value.UnmarshalJSON(b) }
