package folio

import (
	"errors"
	"testing"

	"github.com/etnz/folio/date"
)

func TestNAV(t *testing.T) {
	s := mustReplay(t, scenario(t), "2025-01-02")

	t.Run("priced holdings", func(t *testing.T) {
		nav, err := NAV(s, PriceMap{"AAPL.US": USD(105)})
		if err != nil {
			t.Fatalf("NAV() unexpected error: %v", err)
		}
		if got, want := nav, USD(10049); !got.Equal(want) {
			t.Errorf("NAV() = %s, want %s", got, want)
		}
	})

	t.Run("missing price", func(t *testing.T) {
		_, err := NAV(s, PriceMap{"MSFT.US": USD(400)})
		var missing *MissingPriceError
		if !errors.As(err, &missing) {
			t.Fatalf("NAV() error = %v, want a MissingPriceError", err)
		}
		if missing.Symbol != "AAPL.US" || missing.On != d("2025-01-02") {
			t.Errorf("MissingPriceError = %+v", missing)
		}
	})

	t.Run("all cash", func(t *testing.T) {
		s := mustReplay(t, scenario(t), "2025-01-01")
		nav, err := NAV(s, PriceMap{})
		if err != nil {
			t.Fatalf("NAV() unexpected error: %v", err)
		}
		if got, want := nav, s.Cash(); !got.Equal(want) {
			t.Errorf("NAV() = %s, want the cash %s", got, want)
		}
	})
}

func TestPositionRows(t *testing.T) {
	s := mustReplay(t, scenario(t), "2025-01-02")
	rows, nav, err := PositionRows(s, PriceMap{"AAPL.US": USD(105)})
	if err != nil {
		t.Fatalf("PositionRows() unexpected error: %v", err)
	}
	if !nav.Equal(USD(10049)) {
		t.Errorf("nav = %s, want 10049", nav)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if got, want := row.MarketValue, USD(1050); !got.Equal(want) {
		t.Errorf("MarketValue = %s, want %s", got, want)
	}
	if got, want := row.UnrealizedPnL, USD(49); !got.Equal(want) {
		t.Errorf("UnrealizedPnL = %s, want %s", got, want)
	}
	if got, want := row.Weight.Round(4), R(0.1045); !got.Equal(want) {
		t.Errorf("Weight = %s, want %s", got, want)
	}
}

func TestValuation(t *testing.T) {
	l := scenario(t)
	m := NewMarketData("USD")
	m.Append("AAPL.US", candle("2025-01-02", 105), candle("2025-01-03", 110))
	v := Valuation{Events: l.Events(), Market: m, MaxStale: 5}

	testCases := []struct {
		on      string
		want    Money
		wantErr bool
	}{
		{on: "2025-01-01", want: USD(10000)},
		{on: "2025-01-02", want: USD(10049)},
		{on: "2025-01-03", want: USD(10099)},
		{on: "2025-01-08", want: USD(10099)}, // carried forward
		{on: "2025-01-09", wantErr: true},    // too stale
	}
	for _, tc := range testCases {
		t.Run(tc.on, func(t *testing.T) {
			got, err := v.NAV(d(tc.on))
			if tc.wantErr {
				if err == nil {
					t.Errorf("NAV(%s) = %s, want an error", tc.on, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("NAV(%s) unexpected error: %v", tc.on, err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("NAV(%s) = %s, want %s", tc.on, got, tc.want)
			}
		})
	}

	series, err := NewNavSeries(v, date.Days(d("2025-01-01"), d("2025-01-03")))
	if err != nil {
		t.Fatalf("NewNavSeries() unexpected error: %v", err)
	}
	if got, err := series.NAV(d("2025-01-02")); err != nil || !got.Equal(USD(10049)) {
		t.Errorf("series.NAV(01-02) = %s, %v; want 10049", got, err)
	}
	if _, err := series.NAV(d("2025-01-04")); err == nil {
		t.Errorf("series.NAV(01-04) want an error for a day not observed")
	}
}
