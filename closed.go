package folio

import (
	"slices"

	"github.com/etnz/folio/date"
)

// ClosedPosition summarizes a round trip in a symbol: from the buy that opened the position
// to the sell that brought it back to zero.
type ClosedPosition struct {
	Symbol   string
	Opened   date.Date
	Closed   date.Date
	Bought   Quantity
	Sold     Quantity
	Cost     Money // paid, fees included
	Proceeds Money // received, net of fees
	Realized Money
}

// Return is the realized gain relative to the cost.
func (c ClosedPosition) Return() (Ratio, bool) {
	if c.Cost.IsZero() {
		return Ratio{}, false
	}
	return c.Realized.Ratio(c.Cost), true
}

// Mismatch reports a symbol whose replayed quantity differs from the broker's.
type Mismatch struct {
	Symbol   string
	Replayed Quantity
	Broker   Quantity
}

// CheckConsistency compares the replayed holdings with the positions reported by the broker.
//
// Symbols are considered in both directions; a symbol missing on one side counts as zero.
func CheckConsistency(s *State, broker map[string]Quantity) []Mismatch {
	symbols := s.Symbols()
	for symbol := range broker {
		if !slices.Contains(symbols, symbol) {
			symbols = append(symbols, symbol)
		}
	}
	slices.Sort(symbols)

	var mismatches []Mismatch
	for _, symbol := range symbols {
		h, _ := s.Holding(symbol)
		b := broker[symbol]
		if !h.Quantity.Equal(b) {
			mismatches = append(mismatches, Mismatch{Symbol: symbol, Replayed: h.Quantity, Broker: b})
		}
	}
	return mismatches
}
