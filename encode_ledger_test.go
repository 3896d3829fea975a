package folio

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDecodeTrades(t *testing.T) {
	input := `
{"order_id":"o1","symbol":"AAPL.US","side":"buy","quantity":10,"price":"100.5","fee":1,"time":"2025-01-02T15:00:00Z"}

{"order_id":"o2","symbol":"AAPL.US","side":"sell","quantity":5,"price":101,"time":"2025-01-03T15:00:00Z"}
`
	records, err := DecodeTrades(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeTrades() unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if got := records[0]; got.OrderID != "o1" || !got.Price.Equal(dec(100.5)) || !got.Fee.Equal(dec(1)) {
		t.Errorf("first record = %+v", got)
	}
	if got := records[1]; got.Side != Sell || !got.Fee.IsZero() {
		t.Errorf("second record = %+v", got)
	}

	_, err = DecodeTrades(strings.NewReader("{\"order_id\":\"o1\"}\nnot json\n"))
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("DecodeTrades() error = %v, want one on line 2", err)
	}
}

func TestDecodeCashFlows(t *testing.T) {
	input := `{"source_id":"c1","kind":"deposit","amount":1000,"time":"2025-01-01T09:00:00Z"}
{"id":"b1","business_time":"2025-01-05T00:00:00Z","direction":2,"business_type":1,"amount":"2.5","description":"MSFT dividend"}
{"id":"b2","business_time":"2025-01-06T00:00:00Z","direction":1,"business_type":2,"amount":"1000","description":"Stock settlement"}
{"id":"b3","business_time":"2025-01-07T00:00:00Z","direction":1,"business_type":1,"amount":"300","description":"Withdraw"}
`
	records, err := DecodeCashFlows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeCashFlows() unexpected error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3 (settlement dropped): %+v", len(records), records)
	}
	want := []struct {
		id     string
		kind   FlowKind
		amount float64
	}{
		{"c1", Deposit, 1000},
		{"b1", Dividend, 2.5},
		{"b3", Withdrawal, -300},
	}
	for i, w := range want {
		got := records[i]
		if got.SourceID != w.id || got.Kind != w.kind || !got.Amount.Equal(dec(w.amount)) {
			t.Errorf("record #%d = %+v, want %s %s %v", i, got, w.id, w.kind, w.amount)
		}
	}
}

func TestEncodeLedger_Canonical(t *testing.T) {
	l := mustLedger(t,
		[]TradeRecord{
			sell("o2", "2025-01-03 15:00", "AAPL.US", 5, 101, 0),
			buy("o1", "2025-01-02 15:00", "AAPL.US", 10, 100.5, 1),
		},
		[]CashFlowRecord{deposit("c1", "2025-01-01 09:00", 10000)},
	)

	var trades, flows bytes.Buffer
	if err := EncodeTrades(&trades, l); err != nil {
		t.Fatal(err)
	}
	if err := EncodeCashFlows(&flows, l); err != nil {
		t.Fatal(err)
	}
	wantTrades := `{"order_id":"o1","time":"2025-01-02T15:00:00Z","symbol":"AAPL.US","side":"buy","quantity":10,"price":100.5,"fee":1}
{"order_id":"o2","time":"2025-01-03T15:00:00Z","symbol":"AAPL.US","side":"sell","quantity":5,"price":101}
`
	if got := trades.String(); got != wantTrades {
		t.Errorf("EncodeTrades() =\n%s\nwant\n%s", got, wantTrades)
	}
	wantFlows := `{"source_id":"c1","time":"2025-01-01T09:00:00Z","kind":"deposit","amount":10000}
`
	if got := flows.String(); got != wantFlows {
		t.Errorf("EncodeCashFlows() =\n%s\nwant\n%s", got, wantFlows)
	}

	// decoding the canonical form gives the same ledger back.
	dt, err := DecodeTrades(&trades)
	if err != nil {
		t.Fatal(err)
	}
	df, err := DecodeCashFlows(&flows)
	if err != nil {
		t.Fatal(err)
	}
	back := mustLedger(t, dt, df)
	if got, want := ids(back), ids(l); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("round trip order = %v, want %v", got, want)
	}
}

func TestLoadLedger(t *testing.T) {
	dir := t.TempDir()
	tradesFile := filepath.Join(dir, "trades.jsonl")
	flowsFile := filepath.Join(dir, "cashflows.jsonl")

	// missing files are an empty ledger.
	l, err := LoadLedger("USD", tradesFile, flowsFile)
	if err != nil {
		t.Fatalf("LoadLedger() unexpected error: %v", err)
	}
	if l.Len() != 0 {
		t.Errorf("Len() = %d, want 0", l.Len())
	}

	write := func(name, content string) {
		if err := os.WriteFile(name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write(flowsFile, `{"source_id":"c1","kind":"deposit","amount":10000,"time":"2025-01-01T09:00:00Z"}`+"\n")
	write(tradesFile, `{"order_id":"o1","symbol":"AAPL.US","side":"buy","quantity":10,"price":100,"fee":1,"time":"2025-01-02T15:00:00Z"}`+"\n"+
		`{"order_id":"o1","symbol":"AAPL.US","side":"buy","quantity":10,"price":100,"fee":1,"time":"2025-01-02T15:00:00Z"}`+"\n")

	l, err = LoadLedger("USD", tradesFile, flowsFile)
	if err != nil {
		t.Fatalf("LoadLedger() unexpected error: %v", err)
	}
	if got, want := l.Len(), 2; got != want {
		t.Errorf("Len() = %d, want %d", got, want)
	}

	positions := filepath.Join(dir, "positions.jsonl")
	write(positions, `{"symbol":"AAPL.US","quantity":10}`+"\n")
	got, err := LoadPositions(positions)
	if err != nil {
		t.Fatalf("LoadPositions() unexpected error: %v", err)
	}
	if !got["AAPL.US"].Equal(Q(10)) {
		t.Errorf("LoadPositions() = %v", got)
	}
}
