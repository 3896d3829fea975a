package folio

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/etnz/folio/date"
)

// Ledger holds the deduplicated events of a portfolio in their total order.
//
// A Ledger is immutable once built.
type Ledger struct {
	cur    string  // the reporting currency.
	events []Event // sorted by compareEvents
}

// BuildLedger merges trade and cash-flow records into a Ledger.
//
// Records sharing an identifier must have the same content, otherwise an
// InconsistentRecordError is returned. Malformed records return an InvalidRecordError. Every
// problem found is returned, joined, and no Ledger is built unless the input is clean.
func BuildLedger(currency string, trades []TradeRecord, flows []CashFlowRecord) (*Ledger, error) {
	var errs []error

	uniqTrades := make(map[string]TradeRecord, len(trades))
	for _, r := range trades {
		if prev, ok := uniqTrades[r.OrderID]; ok {
			if !prev.equal(r) {
				errs = append(errs, &InconsistentRecordError{Kind: "trade", ID: r.OrderID})
			}
			continue
		}
		uniqTrades[r.OrderID] = r
	}
	uniqFlows := make(map[string]CashFlowRecord, len(flows))
	for _, r := range flows {
		if prev, ok := uniqFlows[r.SourceID]; ok {
			if !prev.equal(r) {
				errs = append(errs, &InconsistentRecordError{Kind: "cash flow", ID: r.SourceID})
			}
			continue
		}
		uniqFlows[r.SourceID] = r
	}

	events := make([]Event, 0, len(uniqTrades)+len(uniqFlows))
	// maps are iterated in key order to keep error reports stable.
	for _, id := range slices.Sorted(maps.Keys(uniqTrades)) {
		t, err := uniqTrades[id].Validate(currency)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, t)
	}
	for _, id := range slices.Sorted(maps.Keys(uniqFlows)) {
		f, err := uniqFlows[id].Validate(currency)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		events = append(events, f)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("cannot build ledger: %w", errors.Join(errs...))
	}

	slices.SortStableFunc(events, compareEvents)
	return &Ledger{cur: currency, events: events}, nil
}

// Currency returns the reporting currency of the ledger.
func (l *Ledger) Currency() string { return l.cur }

// Len returns the number of events.
func (l *Ledger) Len() int { return len(l.events) }

// Events returns a copy of the ordered events.
func (l *Ledger) Events() []Event { return slices.Clone(l.events) }

// All iterates over the ordered events.
func (l *Ledger) All() iter.Seq[Event] { return slices.Values(l.events) }

// Trades iterates over the trades in ledger order.
func (l *Ledger) Trades() iter.Seq[Trade] { return trades(l.events) }

// CashFlows iterates over the cash flows in ledger order.
func (l *Ledger) CashFlows() iter.Seq[CashFlow] { return cashFlows(l.events) }

// InceptionDate returns the day of the first event.
func (l *Ledger) InceptionDate() (date.Date, bool) { return InceptionDate(l.events) }

// Symbols returns every symbol ever traded, sorted.
func (l *Ledger) Symbols() []string {
	var symbols []string
	for t := range l.Trades() {
		if !slices.Contains(symbols, t.Symbol()) {
			symbols = append(symbols, t.Symbol())
		}
	}
	slices.Sort(symbols)
	return symbols
}

// Replay replays the ledger up to the end of day 'on'.
func (l *Ledger) Replay(r Replayer, on date.Date) (*State, error) {
	return r.ReplayToDate(l.events, on)
}

func trades(events []Event) iter.Seq[Trade] {
	return func(yield func(Trade) bool) {
		for _, e := range events {
			if t, ok := e.(Trade); ok && !yield(t) {
				return
			}
		}
	}
}

func cashFlows(events []Event) iter.Seq[CashFlow] {
	return func(yield func(CashFlow) bool) {
		for _, e := range events {
			if f, ok := e.(CashFlow); ok && !yield(f) {
				return
			}
		}
	}
}

// InceptionDate returns the day of the first of the ordered events.
func InceptionDate(events []Event) (date.Date, bool) {
	if len(events) == 0 {
		return date.Date{}, false
	}
	return events[0].Day(), true
}

// ExternalFlows returns the total of deposits and withdrawals per day within r.
func ExternalFlows(events []Event, r date.Range) *date.History[Money] {
	h := new(date.History[Money])
	for f := range cashFlows(events) {
		if !f.External() || !r.Contains(f.Day()) {
			continue
		}
		total, _ := h.Get(f.Day())
		h.Append(f.Day(), total.Add(f.Amount()))
	}
	return h
}

// NetDeposits returns deposits minus withdrawals up to the end of day 'on'.
func NetDeposits(events []Event, on date.Date) Money {
	var total Money
	for f := range cashFlows(events) {
		if f.Day().After(on) {
			break
		}
		if f.External() {
			total = total.Add(f.Amount())
		}
	}
	return total
}
