package folio

import (
	"fmt"
	"slices"

	"github.com/etnz/folio/date"
)

// PriceSeries returns historical closes.
type PriceSeries interface {
	// CloseAsOf returns the nearest close of symbol at or before day, and its day.
	CloseAsOf(symbol string, day date.Date) (date.Date, Money, bool)
}

// SubPeriod is the span between two external cash-flow days.
type SubPeriod struct {
	From, To date.Date
	Start    Money // NAV at the end of From
	End      Money // NAV at the end of To
	Flow     Money // external flows on To
	Return   Ratio
	Linked   bool // false when the start NAV is zero and the return is undefined
}

// StockReturn is the simple price return of a symbol over a window.
type StockReturn struct {
	Symbol     string
	StartDay   date.Date
	StartPrice Money
	EndDay     date.Date
	EndPrice   Money
	Return     Ratio
}

// Exclusion records why a symbol has no price return.
type Exclusion struct {
	Symbol string
	Reason string
}

// PortfolioPerformance is the performance of a portfolio over a window.
type PortfolioPerformance struct {
	Window     date.Range
	TWR        Ratio
	SubPeriods []SubPeriod
	Stocks     []StockReturn
	Excluded   []Exclusion
}

// CalculatePortfolioPerformance computes the time-weighted return of the portfolio over window
// and the price return of each symbol held during it.
//
// The window is split at every day with an external cash flow. For each sub-period the
// return is (V1 - F - V0) / V0 where V are end-of-day NAVs and F the external flows of the
// closing day. Returns are compounded. Sub-periods starting from a zero NAV are not linked.
func CalculatePortfolioPerformance(events []Event, navs NavSource, prices PriceSeries, window date.Range) (*PortfolioPerformance, error) {
	if !window.Valid() {
		return nil, fmt.Errorf("invalid window %s", window)
	}
	p := &PortfolioPerformance{Window: window}

	if window.From == window.To {
		nav, err := navs.NAV(window.From)
		if err != nil {
			return nil, err
		}
		p.SubPeriods = []SubPeriod{{From: window.From, To: window.To, Start: nav, End: nav, Linked: true}}
	} else {
		subs, err := subPeriods(events, navs, window)
		if err != nil {
			return nil, err
		}
		p.SubPeriods = subs
	}

	growth := R(1)
	for _, sp := range p.SubPeriods {
		if sp.Linked {
			growth = growth.Mul(R(1).Add(sp.Return))
		}
	}
	p.TWR = growth.Sub(R(1))

	p.Stocks, p.Excluded = stockReturns(events, prices, window)
	return p, nil
}

// boundaries returns the window limits and every external flow day strictly inside, in
// chronological order.
func boundaries(events []Event, window date.Range) []date.Date {
	days := []date.Date{window.From}
	inside := date.Range{From: window.From.Add(1), To: window.To}
	for day := range ExternalFlows(events, inside).Values() {
		days = append(days, day)
	}
	if days[len(days)-1] != window.To {
		days = append(days, window.To)
	}
	return days
}

func subPeriods(events []Event, navs NavSource, window date.Range) ([]SubPeriod, error) {
	flows := ExternalFlows(events, window)
	days := boundaries(events, window)

	values := make([]Money, len(days))
	for i, day := range days {
		nav, err := navs.NAV(day)
		if err != nil {
			return nil, err
		}
		values[i] = nav
	}

	subs := make([]SubPeriod, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		flow, _ := flows.Get(days[i])
		sp := SubPeriod{From: days[i-1], To: days[i], Start: values[i-1], End: values[i], Flow: flow}
		if !sp.Start.IsZero() {
			sp.Return = sp.End.Sub(sp.Flow).Sub(sp.Start).Ratio(sp.Start)
			sp.Linked = true
		}
		subs = append(subs, sp)
	}
	return subs, nil
}

// heldSymbols returns the symbols held at the start of window or traded during it.
func heldSymbols(events []Event, window date.Range) []string {
	held := make(map[string]Quantity)
	var symbols []string
	for t := range trades(events) {
		day := t.Day()
		if day.After(window.To) {
			break
		}
		if !day.Before(window.From) {
			if !slices.Contains(symbols, t.Symbol()) {
				symbols = append(symbols, t.Symbol())
			}
			continue
		}
		q := t.Quantity()
		if t.Side() == Sell {
			q = q.Neg()
		}
		held[t.Symbol()] = held[t.Symbol()].Add(q)
	}
	for symbol, q := range held {
		if q.IsPositive() && !slices.Contains(symbols, symbol) {
			symbols = append(symbols, symbol)
		}
	}
	slices.Sort(symbols)
	return symbols
}

func stockReturns(events []Event, prices PriceSeries, window date.Range) ([]StockReturn, []Exclusion) {
	var stocks []StockReturn
	var excluded []Exclusion
	for _, symbol := range heldSymbols(events, window) {
		r, reason := stockReturn(prices, symbol, window)
		if reason != "" {
			excluded = append(excluded, Exclusion{Symbol: symbol, Reason: reason})
			continue
		}
		stocks = append(stocks, r)
	}
	return stocks, excluded
}

// StockPriceReturn computes the simple price return of one symbol over window.
//
// Each boundary uses the nearest close at or before it. The end close must fall within the
// window.
func StockPriceReturn(prices PriceSeries, symbol string, window date.Range) (StockReturn, error) {
	r, reason := stockReturn(prices, symbol, window)
	if reason != "" {
		return r, fmt.Errorf("%s: %s", symbol, reason)
	}
	return r, nil
}

func stockReturn(prices PriceSeries, symbol string, window date.Range) (StockReturn, string) {
	r := StockReturn{Symbol: symbol}
	var ok bool
	r.EndDay, r.EndPrice, ok = prices.CloseAsOf(symbol, window.To)
	if !ok || r.EndDay.Before(window.From) {
		return r, fmt.Sprintf("no price within %s", window)
	}
	r.StartDay, r.StartPrice, ok = prices.CloseAsOf(symbol, window.From)
	if !ok {
		return r, fmt.Sprintf("no price on or before %s", window.From)
	}
	if !r.StartPrice.IsPositive() {
		return r, fmt.Sprintf("non positive price on %s", r.StartDay)
	}
	r.Return = r.EndPrice.Ratio(r.StartPrice).Sub(R(1))
	return r, ""
}
