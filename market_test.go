package folio

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/folio/date"
)

func testMarket() *MarketData {
	m := NewMarketData("USD")
	m.Append("AAPL.US", candle("2024-12-30", 98), candle("2025-01-02", 100), candle("2025-01-03", 101))
	m.Append("MSFT.US", candle("2025-01-02", 400))
	return m
}

func TestMarketData_CloseAsOf(t *testing.T) {
	m := testMarket()
	testCases := []struct {
		symbol  string
		day     string
		wantDay string
		want    Money
		wantOK  bool
	}{
		{symbol: "AAPL.US", day: "2025-01-02", wantDay: "2025-01-02", want: USD(100), wantOK: true},
		{symbol: "AAPL.US", day: "2025-01-01", wantDay: "2024-12-30", want: USD(98), wantOK: true},
		{symbol: "AAPL.US", day: "2024-12-29", wantOK: false},
		{symbol: "TSLA.US", day: "2025-01-02", wantOK: false},
	}
	for _, tc := range testCases {
		t.Run(tc.symbol+"@"+tc.day, func(t *testing.T) {
			day, price, ok := m.CloseAsOf(tc.symbol, d(tc.day))
			if ok != tc.wantOK {
				t.Fatalf("CloseAsOf() ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if day != d(tc.wantDay) || !price.Equal(tc.want) {
				t.Errorf("CloseAsOf() = %s %s, want %s %s", day, price, tc.wantDay, tc.want)
			}
		})
	}

	if _, ok := m.CloseOn("AAPL.US", d("2025-01-01")); ok {
		t.Errorf("CloseOn() found a close on a day without candle")
	}
}

func TestMarketData_PricesOn(t *testing.T) {
	m := testMarket()
	prices := m.PricesOn(d("2025-01-06"), 3)
	if got, ok := prices.Price("AAPL.US"); !ok || !got.Equal(USD(101)) {
		t.Errorf("Price(AAPL.US) = %s, %v; want 101", got, ok)
	}
	if got, ok := prices.Price("MSFT.US"); ok {
		t.Errorf("Price(MSFT.US) = %s, want none: the close is 4 days old", got)
	}
}

func TestMarketData_Quotes(t *testing.T) {
	m := testMarket()
	m.SetQuote(Quote{Symbol: "MSFT.US", Last: dec(410), PrevClose: dec(400), Time: at("2025-01-03 15:00")})

	quotes := m.Quotes(d("2025-01-03"), 3)
	if got, ok := quotes.Price("MSFT.US"); !ok || !got.Equal(USD(410)) {
		t.Errorf("Price(MSFT.US) = %s, %v; want the quote 410", got, ok)
	}
	if got, ok := quotes.Price("AAPL.US"); !ok || !got.Equal(USD(101)) {
		t.Errorf("Price(AAPL.US) = %s, %v; want the last close 101", got, ok)
	}
	if got, ok := m.Quotes(d("2025-01-10"), 3).Price("AAPL.US"); ok {
		t.Errorf("Price(AAPL.US) = %s, want none: the close is 7 days old", got)
	}
	if got, ok := m.Quotes(d("2025-01-10"), 3).Price("MSFT.US"); !ok || !got.Equal(USD(410)) {
		t.Errorf("Price(MSFT.US) = %s, %v; want the quote whatever the closes", got, ok)
	}

	rows := []PositionRow{{Symbol: "MSFT.US", Quantity: Q(2), Price: USD(410)}, {Symbol: "AAPL.US", Quantity: Q(1), Price: USD(101)}}
	m.FillDailyPnL(rows)
	if got, want := rows[0].DailyPnL, USD(20); !got.Equal(want) {
		t.Errorf("DailyPnL(MSFT.US) = %s, want %s", got, want)
	}
	if !rows[1].DailyPnL.IsZero() {
		t.Errorf("DailyPnL(AAPL.US) = %s, want 0 without a previous close", rows[1].DailyPnL)
	}
}

func TestMarketData_TradingDays(t *testing.T) {
	m := testMarket()
	got := m.TradingDays("AAPL.US", date.Range{From: d("2025-01-01"), To: d("2025-01-31")})
	if len(got) != 2 || got[0] != d("2025-01-02") || got[1] != d("2025-01-03") {
		t.Errorf("TradingDays() = %v", got)
	}
	tail := m.Tail("AAPL.US", d("2025-01-02"), 5)
	if len(tail) != 2 || tail[1].Day != d("2025-01-02") {
		t.Errorf("Tail() = %v", tail)
	}
}

func TestEncodeDecodeMarketData(t *testing.T) {
	folder := t.TempDir()
	m := testMarket()
	m.SetQuote(Quote{Symbol: "AAPL.US", Last: dec(102.5), PrevClose: dec(101), Time: time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)})

	// a stale year file is removed on write.
	if err := os.WriteFile(filepath.Join(folder, "2019.jsonl"), []byte(`{"on":"2019-01-02","symbol":"X","close":1}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EncodeMarketData(folder, m); err != nil {
		t.Fatalf("EncodeMarketData() unexpected error: %v", err)
	}
	for _, name := range []string{"2024.jsonl", "2025.jsonl", "quotes.jsonl"} {
		if _, err := os.Stat(filepath.Join(folder, name)); err != nil {
			t.Errorf("%s not written: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(folder, "2019.jsonl")); !os.IsNotExist(err) {
		t.Errorf("2019.jsonl not removed")
	}

	got, err := DecodeMarketData(folder, "USD")
	if err != nil {
		t.Fatalf("DecodeMarketData() unexpected error: %v", err)
	}
	if price, ok := got.CloseOn("AAPL.US", d("2024-12-30")); !ok || !price.Equal(USD(98)) {
		t.Errorf("CloseOn(AAPL.US, 2024-12-30) = %s, %v", price, ok)
	}
	if price, ok := got.CloseOn("MSFT.US", d("2025-01-02")); !ok || !price.Equal(USD(400)) {
		t.Errorf("CloseOn(MSFT.US, 2025-01-02) = %s, %v", price, ok)
	}
	if q, ok := got.Quote("AAPL.US"); !ok || !q.Last.Equal(dec(102.5)) || !q.Time.Equal(time.Date(2025, 1, 6, 15, 0, 0, 0, time.UTC)) {
		t.Errorf("Quote(AAPL.US) = %+v, %v", q, ok)
	}

	// re-encoding what was decoded is byte stable.
	first, _ := os.ReadFile(filepath.Join(folder, "2025.jsonl"))
	if err := EncodeMarketData(folder, got); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(filepath.Join(folder, "2025.jsonl"))
	if string(first) != string(second) {
		t.Errorf("2025.jsonl changed on rewrite:\n%s\n%s", first, second)
	}
}

func TestDecodeMarketData_MissingFolder(t *testing.T) {
	m, err := DecodeMarketData(filepath.Join(t.TempDir(), "none"), "USD")
	if err != nil {
		t.Fatalf("DecodeMarketData() unexpected error: %v", err)
	}
	if len(m.Symbols()) != 0 {
		t.Errorf("Symbols() = %v, want none", m.Symbols())
	}
}
