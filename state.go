package folio

import (
	"iter"
	"maps"
	"slices"

	"github.com/etnz/folio/date"
)

// Holding is the position in one symbol.
type Holding struct {
	Quantity  Quantity
	CostBasis Money // average cost per share, fees included
}

// CostValue returns the total cost of the holding.
func (h Holding) CostValue() Money { return h.CostBasis.Mul(h.Quantity) }

// State is the portfolio at the end of a day, as produced by a Replayer.
//
// A State is never modified once returned.
type State struct {
	on        date.Date
	cash      Money
	holdings  map[string]Holding
	dividends Money

	rounds map[string]*ClosedPosition // currently open round per symbol
	closed []ClosedPosition
}

func newState(on date.Date) *State {
	return &State{
		on:       on,
		holdings: make(map[string]Holding),
		rounds:   make(map[string]*ClosedPosition),
	}
}

// On returns the day of the state.
func (s *State) On() date.Date { return s.on }

// Cash returns the cash balance.
func (s *State) Cash() Money { return s.cash }

// Dividends returns the total of dividends received.
func (s *State) Dividends() Money { return s.dividends }

// Holding returns the position in symbol, if any.
func (s *State) Holding(symbol string) (Holding, bool) {
	h, ok := s.holdings[symbol]
	return h, ok
}

// Symbols returns the held symbols, sorted.
func (s *State) Symbols() []string { return slices.Sorted(maps.Keys(s.holdings)) }

// Holdings iterates over the held positions in symbol order.
func (s *State) Holdings() iter.Seq2[string, Holding] {
	return func(yield func(string, Holding) bool) {
		for _, symbol := range s.Symbols() {
			if !yield(symbol, s.holdings[symbol]) {
				return
			}
		}
	}
}

// Realized returns the realized gains of symbol over its currently open round.
func (s *State) Realized(symbol string) Money {
	if r, ok := s.rounds[symbol]; ok {
		return r.Realized
	}
	return Money{}
}

// ClosedPositions returns the positions fully sold, in the order they were closed.
func (s *State) ClosedPositions() []ClosedPosition { return slices.Clone(s.closed) }

// round bookkeeping, driven by the replay.

func (s *State) open(t Trade) {
	r, ok := s.rounds[t.Symbol()]
	if !ok {
		r = &ClosedPosition{Symbol: t.Symbol(), Opened: t.Day()}
		s.rounds[t.Symbol()] = r
	}
	r.Bought = r.Bought.Add(t.Quantity())
	r.Cost = r.Cost.Add(t.Gross()).Add(t.Fee())
}

func (s *State) realize(t Trade, realized Money) {
	r, ok := s.rounds[t.Symbol()]
	if !ok {
		return
	}
	r.Sold = r.Sold.Add(t.Quantity())
	r.Proceeds = r.Proceeds.Add(t.Gross()).Sub(t.Fee())
	r.Realized = r.Realized.Add(realized)
}

func (s *State) close(symbol string, on date.Date) {
	r, ok := s.rounds[symbol]
	if !ok {
		return
	}
	r.Closed = on
	s.closed = append(s.closed, *r)
	delete(s.rounds, symbol)
}
