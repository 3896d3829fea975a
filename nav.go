package folio

import (
	"errors"
	"fmt"
	"iter"

	"github.com/etnz/folio/date"
)

// PriceLookup returns the current price of a symbol.
type PriceLookup interface {
	Price(symbol string) (Money, bool)
}

// PriceMap is a PriceLookup over a fixed set of prices.
type PriceMap map[string]Money

func (p PriceMap) Price(symbol string) (Money, bool) {
	m, ok := p[symbol]
	return m, ok
}

// NAV returns the net asset value of s: cash plus the market value of every holding.
//
// A holding without a price is a MissingPriceError, it is never valued at zero.
func NAV(s *State, prices PriceLookup) (Money, error) {
	nav := s.Cash()
	var errs []error
	for symbol, h := range s.Holdings() {
		price, ok := prices.Price(symbol)
		if !ok {
			errs = append(errs, &MissingPriceError{Symbol: symbol, On: s.On()})
			continue
		}
		nav = nav.Add(price.Mul(h.Quantity))
	}
	if len(errs) > 0 {
		return Money{}, errors.Join(errs...)
	}
	return nav, nil
}

// PositionRow is the point-in-time view of a holding.
type PositionRow struct {
	Symbol           string
	Quantity         Quantity
	CostBasis        Money // per share
	Price            Money
	MarketValue      Money
	CostValue        Money
	UnrealizedPnL    Money
	UnrealizedReturn Ratio
	Weight           Ratio // market value over NAV
	DailyPnL         Money // zero when the previous close is unknown
}

// PositionRows returns one row per holding, sorted by symbol, and the NAV used for weights.
func PositionRows(s *State, prices PriceLookup) ([]PositionRow, Money, error) {
	nav, err := NAV(s, prices)
	if err != nil {
		return nil, Money{}, err
	}
	rows := make([]PositionRow, 0, len(s.holdings))
	for symbol, h := range s.Holdings() {
		price, _ := prices.Price(symbol)
		row := PositionRow{
			Symbol:      symbol,
			Quantity:    h.Quantity,
			CostBasis:   h.CostBasis,
			Price:       price,
			MarketValue: price.Mul(h.Quantity),
			CostValue:   h.CostValue(),
		}
		row.UnrealizedPnL = row.MarketValue.Sub(row.CostValue)
		if !row.CostValue.IsZero() {
			row.UnrealizedReturn = row.UnrealizedPnL.Ratio(row.CostValue)
		}
		if nav.IsPositive() {
			row.Weight = row.MarketValue.Ratio(nav)
		}
		rows = append(rows, row)
	}
	return rows, nav, nil
}

// NavSource returns the end-of-day NAV of a portfolio.
type NavSource interface {
	NAV(on date.Date) (Money, error)
}

// Valuation computes NAVs by replaying events and pricing them with market closes.
type Valuation struct {
	Events   []Event
	Replayer Replayer
	Market   *MarketData
	MaxStale int // days a close can be carried forward
}

// NAV replays the events up to 'on' and values the holdings at the closes of that day.
func (v Valuation) NAV(on date.Date) (Money, error) {
	s, err := v.Replayer.ReplayToDate(v.Events, on)
	if err != nil {
		return Money{}, err
	}
	return NAV(s, v.Market.PricesOn(on, v.MaxStale))
}

// NavSeries is a set of NAV observations.
type NavSeries struct {
	h date.History[Money]
}

// NewNavSeries evaluates src on every day.
func NewNavSeries(src NavSource, days iter.Seq[date.Date]) (*NavSeries, error) {
	series := new(NavSeries)
	for day := range days {
		nav, err := src.NAV(day)
		if err != nil {
			return nil, fmt.Errorf("NAV on %s: %w", day, err)
		}
		series.Append(day, nav)
	}
	return series, nil
}

// Append records an observation.
func (n *NavSeries) Append(on date.Date, nav Money) { n.h.Append(on, nav) }

// Values iterates over the observations in chronological order.
func (n *NavSeries) Values() iter.Seq2[date.Date, Money] { return n.h.Values() }

// NAV returns the observation made on day 'on'.
func (n *NavSeries) NAV(on date.Date) (Money, error) {
	nav, ok := n.h.Get(on)
	if !ok {
		return Money{}, fmt.Errorf("no NAV observation on %s", on)
	}
	return nav, nil
}
