package folio

import (
	"fmt"

	"github.com/etnz/folio/date"
)

// Replayer folds ledger events into a State.
//
// The zero value refuses any event that would drive cash negative.
type Replayer struct {
	// AllowNegativeCash tolerates withdrawals and purchases beyond the cash balance, for
	// ledgers known to miss part of their funding history.
	AllowNegativeCash bool
}

// ReplayToDate replays events, in their ledger order, up to the end of day 'on'.
//
// Each call starts from an empty state, so repeated calls return identical states.
func (r Replayer) ReplayToDate(events []Event, on date.Date) (*State, error) {
	s := newState(on)
	for _, e := range events {
		if e.Day().After(on) {
			break
		}
		var err error
		switch v := e.(type) {
		case Trade:
			err = r.applyTrade(s, v)
		case CashFlow:
			err = r.applyCashFlow(s, v)
		default:
			err = fmt.Errorf("unknown event type %T", e)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r Replayer) applyCashFlow(s *State, f CashFlow) error {
	if err := r.checkCash(s, f, f.Amount()); err != nil {
		return err
	}
	s.cash = s.cash.Add(f.Amount())
	if f.Kind() == Dividend {
		s.dividends = s.dividends.Add(f.Amount())
	}
	return nil
}

func (r Replayer) applyTrade(s *State, t Trade) error {
	h := s.holdings[t.Symbol()]
	switch t.Side() {
	case Buy:
		if err := r.checkCash(s, t, t.CashImpact()); err != nil {
			return err
		}
		// The new average cost includes the fee.
		cost := h.CostBasis.Mul(h.Quantity).Add(t.Gross()).Add(t.Fee())
		qty := h.Quantity.Add(t.Quantity())
		s.open(t)
		h = Holding{Quantity: qty, CostBasis: cost.Div(qty)}
		s.holdings[t.Symbol()] = h

	case Sell:
		if h.Quantity.LessThan(t.Quantity()) {
			return &OverdraftPositionError{ID: t.ID(), On: t.Day(), Symbol: t.Symbol(), Held: h.Quantity, Requested: t.Quantity()}
		}
		// a fee larger than the proceeds costs cash.
		if err := r.checkCash(s, t, t.CashImpact()); err != nil {
			return err
		}
		realized := t.Price().Sub(h.CostBasis).Mul(t.Quantity()).Sub(t.Fee())
		h.Quantity = h.Quantity.Sub(t.Quantity())
		s.realize(t, realized)
		if h.Quantity.IsZero() {
			delete(s.holdings, t.Symbol())
			s.close(t.Symbol(), t.Day())
		} else {
			s.holdings[t.Symbol()] = h
		}
	}
	s.cash = s.cash.Add(t.CashImpact())
	return nil
}

// checkCash refuses a negative cash movement larger than the balance.
func (r Replayer) checkCash(s *State, e Event, amount Money) error {
	if r.AllowNegativeCash || !amount.IsNegative() {
		return nil
	}
	if s.cash.Add(amount).IsNegative() {
		return &OverdraftCashError{ID: e.ID(), On: e.Day(), Balance: s.cash, Amount: amount}
	}
	return nil
}
