package folio

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// DecodeTrades reads trade records from a JSONL stream, one record per line.
//
// Records are not validated: that is the job of BuildLedger.
func DecodeTrades(r io.Reader) ([]TradeRecord, error) {
	var records []TradeRecord
	err := scanLines(r, func(i int, line []byte) error {
		var rec TradeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("line %d: not a trade record: %w", i, err)
		}
		records = append(records, rec)
		return nil
	})
	return records, err
}

// brokerFlow is the broker's coded format of a cash flow.
type brokerFlow struct {
	ID           string          `json:"id"`
	Time         time.Time       `json:"business_time"`
	Direction    int             `json:"direction"`
	BusinessType int             `json:"business_type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
}

// DecodeCashFlows reads cash-flow records from a JSONL stream.
//
// A line is either a CashFlowRecord or a flow in the broker's coded format (it has a
// "direction" field), which is converted with NewBrokerCashFlow. Settlement flows are
// dropped.
func DecodeCashFlows(r io.Reader) ([]CashFlowRecord, error) {
	var records []CashFlowRecord
	err := scanLines(r, func(i int, line []byte) error {
		var identifier struct {
			Direction *int `json:"direction"`
		}
		if err := json.Unmarshal(line, &identifier); err != nil {
			return fmt.Errorf("line %d: not a json object: %w", i, err)
		}
		if identifier.Direction == nil {
			var rec CashFlowRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return fmt.Errorf("line %d: not a cash flow record: %w", i, err)
			}
			records = append(records, rec)
			return nil
		}
		var b brokerFlow
		if err := json.Unmarshal(line, &b); err != nil {
			return fmt.Errorf("line %d: not a broker cash flow: %w", i, err)
		}
		if rec, ok := NewBrokerCashFlow(b.ID, b.Time, b.Direction, b.BusinessType, b.Amount, b.Description); ok {
			records = append(records, rec)
		}
		return nil
	})
	return records, err
}

// DecodePositions reads broker-reported positions, one {"symbol", "quantity"} per line.
func DecodePositions(r io.Reader) (map[string]Quantity, error) {
	positions := make(map[string]Quantity)
	err := scanLines(r, func(i int, line []byte) error {
		var p struct {
			Symbol   string   `json:"symbol"`
			Quantity Quantity `json:"quantity"`
		}
		if err := json.Unmarshal(line, &p); err != nil {
			return fmt.Errorf("line %d: not a position: %w", i, err)
		}
		positions[p.Symbol] = positions[p.Symbol].Add(p.Quantity)
		return nil
	})
	return positions, err
}

func scanLines(r io.Reader, decode func(i int, line []byte) error) error {
	scanner := bufio.NewScanner(r)
	i := 0
	for scanner.Scan() {
		i++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue // Skip empty lines
		}
		if err := decode(i, line); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// EncodeTrades writes the trades of the ledger in canonical form: ledger order and a fixed
// field order.
func EncodeTrades(w io.Writer, l *Ledger) error {
	for t := range l.Trades() {
		var o jsonObjectWriter
		o.Append("order_id", t.ID())
		o.Append("time", t.Time())
		o.Append("symbol", t.Symbol())
		o.Append("side", t.Side())
		o.Append("quantity", t.Quantity().Decimal())
		o.Append("price", t.Price().Decimal())
		if !t.Fee().IsZero() {
			o.Append("fee", t.Fee().Decimal())
		}
		if err := writeObject(w, &o); err != nil {
			return fmt.Errorf("failed to write trade %q: %w", t.ID(), err)
		}
	}
	return nil
}

// EncodeCashFlows writes the cash flows of the ledger in canonical form.
func EncodeCashFlows(w io.Writer, l *Ledger) error {
	for f := range l.CashFlows() {
		var o jsonObjectWriter
		o.Append("source_id", f.ID())
		o.Append("time", f.Time())
		o.Append("kind", f.Kind())
		o.Append("amount", f.Amount().Decimal())
		o.Optional("description", f.Description())
		if err := writeObject(w, &o); err != nil {
			return fmt.Errorf("failed to write cash flow %q: %w", f.ID(), err)
		}
	}
	return nil
}

func writeObject(w io.Writer, o *jsonObjectWriter) error {
	b, err := o.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// LoadLedger reads trades and cash flows from two JSONL files and builds the ledger.
// A missing file counts as empty.
func LoadLedger(currency, tradesFile, flowsFile string) (*Ledger, error) {
	var trades []TradeRecord
	var flows []CashFlowRecord
	err := readFile(tradesFile, func(r io.Reader) (err error) {
		trades, err = DecodeTrades(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = readFile(flowsFile, func(r io.Reader) (err error) {
		flows, err = DecodeCashFlows(r)
		return err
	})
	if err != nil {
		return nil, err
	}
	return BuildLedger(currency, trades, flows)
}

// LoadPositions reads a broker positions file.
func LoadPositions(filename string) (map[string]Quantity, error) {
	var positions map[string]Quantity
	err := readFile(filename, func(r io.Reader) (err error) {
		positions, err = DecodePositions(r)
		return err
	})
	return positions, err
}

func readFile(filename string, decode func(io.Reader) error) error {
	f, err := os.Open(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", filename, err)
	}
	defer f.Close()
	if err := decode(f); err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	return nil
}
