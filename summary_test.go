package folio

import (
	"testing"
	"time"

	"github.com/etnz/folio/date"
)

// weekdays returns every weekday between from and to.
func weekdays(from, to string) []date.Date {
	var days []date.Date
	for day := range date.Days(d(from), d(to)) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days = append(days, day)
		}
	}
	return days
}

func TestNewSummary(t *testing.T) {
	l := mustLedger(t, nil, []CashFlowRecord{deposit("c1", "2023-12-01 09:00", 1000)})
	navs := navSeries(map[string]float64{
		"2023-12-01": 1000, // inception
		"2023-12-29": 1000, // last trading day of 2023
		"2024-12-31": 1100,
		"2025-01-06": 1100,
		"2025-01-13": 1210,
	})
	s, err := NewSummary(l.Events(), navs, NewMarketData("USD"), d("2025-01-13"), weekdays("2023-11-01", "2025-01-13"))
	if err != nil {
		t.Fatalf("NewSummary() unexpected error: %v", err)
	}

	if got, want := s.NAV, USD(1210); !got.Equal(want) {
		t.Errorf("NAV = %s, want %s", got, want)
	}
	if !s.HasDepositROI || !s.DepositROI.Equal(R(0.21)) {
		t.Errorf("DepositROI = %s (%v), want 21%%", s.DepositROI, s.HasDepositROI)
	}

	testCases := []struct {
		anchor Anchor
		from   string
		to     string
		twr    float64
		pnl    float64
	}{
		{anchor: WoW, from: "2025-01-06", to: "2025-01-13", twr: 0.1, pnl: 110},
		{anchor: MTD, from: "2024-12-31", to: "2025-01-13", twr: 0.1, pnl: 110},
		{anchor: QTD, from: "2024-12-31", to: "2025-01-13", twr: 0.1, pnl: 110},
		{anchor: YTD, from: "2024-12-31", to: "2025-01-13", twr: 0.1, pnl: 110},
		// the year end NAV is backed out of the YTD return: 1210 / 1.1
		{anchor: PrevYear, from: "2023-12-29", to: "2024-12-31", twr: 0.1, pnl: 100},
		{anchor: Inception, from: "2023-12-01", to: "2025-01-13", twr: 0.21, pnl: 210},
	}
	for _, tc := range testCases {
		t.Run(tc.anchor.String(), func(t *testing.T) {
			res, ok := s.Get(tc.anchor)
			if !ok || !res.Available {
				t.Fatalf("anchor unavailable")
			}
			if want := window(tc.from, tc.to); res.Window != want {
				t.Errorf("Window = %s, want %s", res.Window, want)
			}
			if !res.TWR.Equal(R(tc.twr)) {
				t.Errorf("TWR = %s, want %v", res.TWR, tc.twr)
			}
			if !res.HasPnL || !res.PnL.Equal(USD(tc.pnl)) {
				t.Errorf("PnL = %s, want %v", res.PnL, tc.pnl)
			}
		})
	}
}

func TestNewSummary_BeforeInception(t *testing.T) {
	l := mustLedger(t, nil, []CashFlowRecord{deposit("c1", "2025-01-08 09:00", 1000)})
	navs := navSeries(map[string]float64{"2025-01-08": 1000, "2025-01-13": 1050})
	s, err := NewSummary(l.Events(), navs, NewMarketData("USD"), d("2025-01-13"), weekdays("2024-01-01", "2025-01-13"))
	if err != nil {
		t.Fatalf("NewSummary() unexpected error: %v", err)
	}
	for _, res := range s.Anchors {
		want := res.Anchor == Inception
		if res.Available != want {
			t.Errorf("%s available = %v, want %v", res.Anchor, res.Available, want)
		}
	}
	if res, _ := s.Get(Inception); !res.TWR.Equal(R(0.05)) {
		t.Errorf("Inception TWR = %s, want 5%%", res.TWR)
	}
}

func TestNewSummary_Empty(t *testing.T) {
	if _, err := NewSummary(nil, new(NavSeries), NewMarketData("USD"), d("2025-01-13"), nil); err == nil {
		t.Errorf("NewSummary() want an error for an empty ledger")
	}
}

func TestDepositROI(t *testing.T) {
	if _, ok := DepositROI(USD(100), Money{}); ok {
		t.Errorf("DepositROI() defined without deposits")
	}
	if got, ok := DepositROI(USD(900), USD(1000)); !ok || !got.Equal(R(-0.1)) {
		t.Errorf("DepositROI() = %s, %v; want -10%%", got, ok)
	}
	if _, ok := PnLFromReturn(USD(100), R(-1)); ok {
		t.Errorf("PnLFromReturn() defined for a -100%% return")
	}
}
