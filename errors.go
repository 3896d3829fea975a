package folio

import (
	"fmt"

	"github.com/etnz/folio/date"
)

// InvalidRecordError reports a malformed trade or cash-flow record.
type InvalidRecordError struct {
	ID     string // order or source identifier, possibly empty when that is what's missing
	Field  string
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record %q: %s %s", e.ID, e.Field, e.Reason)
}

// InconsistentRecordError reports two records sharing an identifier but not their content.
type InconsistentRecordError struct {
	Kind string // "trade" or "cash flow"
	ID   string
}

func (e *InconsistentRecordError) Error() string {
	return fmt.Sprintf("inconsistent duplicate %s %q: records share the identifier but differ", e.Kind, e.ID)
}

// OverdraftPositionError reports a sell of more shares than held.
type OverdraftPositionError struct {
	ID        string
	On        date.Date
	Symbol    string
	Held      Quantity
	Requested Quantity
}

func (e *OverdraftPositionError) Error() string {
	return fmt.Sprintf("%s: order %q sells %s %s but only %s held", e.On, e.ID, e.Requested, e.Symbol, e.Held)
}

// OverdraftCashError reports an event that would drive the cash balance negative.
type OverdraftCashError struct {
	ID      string
	On      date.Date
	Balance Money
	Amount  Money // the signed cash movement that was refused
}

func (e *OverdraftCashError) Error() string {
	return fmt.Sprintf("%s: %q moves %s but the cash balance is %s", e.On, e.ID, e.Amount.SignedString(), e.Balance)
}

// MissingPriceError reports a held symbol that could not be valued.
type MissingPriceError struct {
	Symbol string
	On     date.Date // zero for intraday quotes
}

func (e *MissingPriceError) Error() string {
	if e.On.IsZero() {
		return fmt.Sprintf("missing price for %s", e.Symbol)
	}
	return fmt.Sprintf("missing price for %s on %s", e.Symbol, e.On)
}

// DataInsufficientError reports a symbol without enough price history.
type DataInsufficientError struct {
	Symbol string
	Need   int
	Have   int
}

func (e *DataInsufficientError) Error() string {
	return fmt.Sprintf("not enough history for %s: need %d days, have %d", e.Symbol, e.Need, e.Have)
}
