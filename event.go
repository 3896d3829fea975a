package folio

import (
	"cmp"
	"strings"
	"time"

	"github.com/etnz/folio/date"
)

// Event is a single, immutable fact of the ledger: a Trade or a CashFlow.
type Event interface {
	ID() string
	Time() time.Time
	Day() date.Date
	// rank orders events sharing a timestamp: cash flows come first so that the cash is
	// available when a same-time purchase is checked.
	rank() int
}

// compareEvents is the total order of the ledger: timestamp, then cash before trades,
// then identifier.
func compareEvents(a, b Event) int {
	if c := a.Time().Compare(b.Time()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.rank(), b.rank()); c != 0 {
		return c
	}
	return strings.Compare(a.ID(), b.ID())
}

// Trade is a validated buy or sell of a symbol.
type Trade struct {
	id       string
	symbol   string
	side     Side
	quantity Quantity
	price    Money
	fee      Money
	at       time.Time
}

func (t Trade) ID() string         { return t.id }
func (t Trade) Time() time.Time    { return t.at }
func (t Trade) Day() date.Date     { return date.Of(t.at) }
func (t Trade) Symbol() string     { return t.symbol }
func (t Trade) Side() Side         { return t.side }
func (t Trade) Quantity() Quantity { return t.quantity }
func (t Trade) Price() Money       { return t.price }
func (t Trade) Fee() Money         { return t.fee }
func (Trade) rank() int            { return 1 }

// Gross returns quantity times price.
func (t Trade) Gross() Money { return t.price.Mul(t.quantity) }

// CashImpact returns the signed cash movement of the trade, fees included.
func (t Trade) CashImpact() Money {
	if t.side == Buy {
		return t.Gross().Add(t.fee).Neg()
	}
	return t.Gross().Sub(t.fee)
}

// Record returns the trade back in its record form.
func (t Trade) Record() TradeRecord {
	return TradeRecord{
		OrderID:  t.id,
		Symbol:   t.symbol,
		Side:     t.side,
		Quantity: t.quantity.Decimal(),
		Price:    t.price.Decimal(),
		Fee:      t.fee.Decimal(),
		Time:     t.at,
	}
}

// CashFlow is a validated cash movement.
type CashFlow struct {
	id     string
	kind   FlowKind
	amount Money // signed
	at     time.Time
	memo   string
}

func (f CashFlow) ID() string          { return f.id }
func (f CashFlow) Time() time.Time     { return f.at }
func (f CashFlow) Day() date.Date      { return date.Of(f.at) }
func (f CashFlow) Kind() FlowKind      { return f.kind }
func (f CashFlow) Amount() Money       { return f.amount }
func (f CashFlow) Description() string { return f.memo }
func (CashFlow) rank() int             { return 0 }

// External reports whether the flow is a deposit or a withdrawal of capital.
func (f CashFlow) External() bool { return f.kind.External() }

// Record returns the cash flow back in its record form.
func (f CashFlow) Record() CashFlowRecord {
	return CashFlowRecord{
		SourceID:    f.id,
		Kind:        f.kind,
		Amount:      f.amount.Decimal(),
		Time:        f.at,
		Description: f.memo,
	}
}
