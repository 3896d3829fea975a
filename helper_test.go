package folio

import (
	"testing"
	"time"

	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// d parses a day, it panics on error.
func d(s string) date.Date { return date.MustParse(s) }

// at returns a UTC timestamp from a "2006-01-02 15:04" string.
func at(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func dec(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func buy(id, when, symbol string, q, price, fee float64) TradeRecord {
	return TradeRecord{OrderID: id, Symbol: symbol, Side: Buy, Quantity: dec(q), Price: dec(price), Fee: dec(fee), Time: at(when)}
}

func sell(id, when, symbol string, q, price, fee float64) TradeRecord {
	r := buy(id, when, symbol, q, price, fee)
	r.Side = Sell
	return r
}

func deposit(id, when string, amount float64) CashFlowRecord {
	return CashFlowRecord{SourceID: id, Kind: Deposit, Amount: dec(amount), Time: at(when)}
}

func withdraw(id, when string, amount float64) CashFlowRecord {
	return CashFlowRecord{SourceID: id, Kind: Withdrawal, Amount: dec(-amount), Time: at(when)}
}

func dividend(id, when string, amount float64) CashFlowRecord {
	return CashFlowRecord{SourceID: id, Kind: Dividend, Amount: dec(amount), Time: at(when)}
}

func mustLedger(t *testing.T, trades []TradeRecord, flows []CashFlowRecord) *Ledger {
	t.Helper()
	l, err := BuildLedger("USD", trades, flows)
	if err != nil {
		t.Fatalf("BuildLedger() unexpected error: %v", err)
	}
	return l
}

func mustReplay(t *testing.T, l *Ledger, on string) *State {
	t.Helper()
	s, err := l.Replay(Replayer{}, d(on))
	if err != nil {
		t.Fatalf("Replay(%s) unexpected error: %v", on, err)
	}
	return s
}

// candle is a flat candle closing at c.
func candle(day string, c float64) Candle {
	return Candle{Day: d(day), Open: dec(c), High: dec(c), Low: dec(c), Close: dec(c)}
}

// scenario is the ledger shared by several tests: a deposit of 10,000 on day 1 and a buy of
// 10 AAPL.US at 100 with a 1 fee on day 2.
func scenario(t *testing.T) *Ledger {
	return mustLedger(t,
		[]TradeRecord{buy("o1", "2025-01-02 15:00", "AAPL.US", 10, 100, 1)},
		[]CashFlowRecord{deposit("c1", "2025-01-01 09:00", 10000)},
	)
}
