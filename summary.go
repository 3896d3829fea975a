package folio

import (
	"fmt"
	"slices"

	"github.com/etnz/folio/date"
)

// Anchor is a reference point in the past a summary measures performance from.
type Anchor int

const (
	WoW       Anchor = iota // a week ago
	MTD                     // end of the previous month
	QTD                     // end of the previous quarter
	YTD                     // end of the previous year
	PrevYear                // the previous calendar year
	Inception               // the first event
)

// Anchors lists every anchor in display order.
var Anchors = []Anchor{WoW, MTD, QTD, YTD, PrevYear, Inception}

func (a Anchor) String() string {
	switch a {
	case WoW:
		return "WoW"
	case MTD:
		return "MTD"
	case QTD:
		return "QTD"
	case YTD:
		return "YTD"
	case PrevYear:
		return "Prev Year"
	case Inception:
		return "Inception"
	default:
		return fmt.Sprintf("Anchor(%d)", int(a))
	}
}

// rawWindow returns the calendar window of the anchor as of day 'on', before trading day
// resolution.
func (a Anchor) rawWindow(on date.Date) date.Range {
	switch a {
	case WoW:
		return date.Range{From: on.Add(-7), To: on}
	case MTD:
		return date.Range{From: on.EndOfPrevious(date.Monthly), To: on}
	case QTD:
		return date.Range{From: on.EndOfPrevious(date.Quarterly), To: on}
	case YTD:
		return date.Range{From: on.EndOfPrevious(date.Yearly), To: on}
	case PrevYear:
		lastYear := on.EndOfPrevious(date.Yearly)
		return date.Range{From: lastYear.EndOfPrevious(date.Yearly), To: lastYear}
	}
	return date.Range{To: on}
}

// AnchorResult is the performance of the portfolio since an anchor.
type AnchorResult struct {
	Anchor    Anchor
	Window    date.Range
	Available bool // false when the anchor predates inception or has no trading day
	TWR       Ratio
	PnL       Money // derived from the TWR, see Summary
	HasPnL    bool
	Stocks    []StockReturn
	Excluded  []Exclusion
}

// Summary is the multi-period performance of a portfolio on a given day.
type Summary struct {
	On            date.Date
	Inception     date.Date
	NAV           Money
	NetDeposits   Money
	DepositROI    Ratio // (NAV - net deposits) / net deposits
	HasDepositROI bool
	Anchors       []AnchorResult
}

// NewSummary computes the performance since each anchor.
//
// Anchors resolve to the nearest trading day at or before their calendar date, and are
// unavailable before inception. The P&L of an anchor is derived from its TWR as
// NAV × TWR / (1 + TWR): it has the TWR sign and does not depend on absolute past NAVs.
// The previous year P&L uses the NAV at the end of that year, estimated by backing out
// the YTD return.
func NewSummary(events []Event, navs NavSource, prices PriceSeries, on date.Date, tradingDays []date.Date) (*Summary, error) {
	inception, ok := InceptionDate(events)
	if !ok {
		return nil, fmt.Errorf("cannot summarize an empty ledger")
	}
	nav, err := navs.NAV(on)
	if err != nil {
		return nil, fmt.Errorf("cannot value the portfolio on %s: %w", on, err)
	}
	s := &Summary{
		On:          on,
		Inception:   inception,
		NAV:         nav,
		NetDeposits: NetDeposits(events, on),
	}
	s.DepositROI, s.HasDepositROI = DepositROI(nav, s.NetDeposits)

	days := slices.Clone(tradingDays)
	slices.SortFunc(days, date.Date.Compare)
	resolve := func(day date.Date) (date.Date, bool) {
		if day.Before(inception) {
			return date.Date{}, false
		}
		i, found := slices.BinarySearchFunc(days, day, date.Date.Compare)
		if found {
			return days[i], true
		}
		if i == 0 {
			return date.Date{}, false
		}
		return days[i-1], true
	}

	for _, a := range Anchors {
		res := AnchorResult{Anchor: a, Window: a.rawWindow(on)}
		if a == Inception {
			res.Window.From, res.Available = inception, !on.Before(inception)
		} else {
			res.Window.From, res.Available = resolve(res.Window.From)
			if a == PrevYear && res.Available {
				res.Window.To, res.Available = resolve(res.Window.To)
			}
		}
		if !res.Available {
			s.Anchors = append(s.Anchors, res)
			continue
		}
		p, err := CalculatePortfolioPerformance(events, navs, prices, res.Window)
		if err != nil {
			return nil, fmt.Errorf("%s performance: %w", a, err)
		}
		res.TWR, res.Stocks, res.Excluded = p.TWR, p.Stocks, p.Excluded
		s.Anchors = append(s.Anchors, res)
	}

	// P&L needs the YTD return for the previous year.
	for i, res := range s.Anchors {
		if !res.Available {
			continue
		}
		base := nav
		if res.Anchor == PrevYear {
			if ytd, ok := s.Get(YTD); ok && ytd.Available {
				if growth := R(1).Add(ytd.TWR); !growth.IsZero() {
					base = nav.DivRatio(growth)
				}
			}
		}
		s.Anchors[i].PnL, s.Anchors[i].HasPnL = PnLFromReturn(base, res.TWR)
	}
	return s, nil
}

// Get returns the result of an anchor.
func (s *Summary) Get(a Anchor) (AnchorResult, bool) {
	for _, res := range s.Anchors {
		if res.Anchor == a {
			return res, true
		}
	}
	return AnchorResult{}, false
}

// PnLFromReturn derives a P&L from the current NAV and the return that led to it.
func PnLFromReturn(nav Money, twr Ratio) (Money, bool) {
	growth := R(1).Add(twr)
	if growth.IsZero() {
		return Money{}, false
	}
	return nav.MulRatio(twr).DivRatio(growth), true
}

// DepositROI returns the return on net deposits. It is undefined when nothing was
// deposited.
func DepositROI(nav, netDeposits Money) (Ratio, bool) {
	if !netDeposits.IsPositive() {
		return Ratio{}, false
	}
	return nav.Sub(netDeposits).Ratio(netDeposits), true
}
