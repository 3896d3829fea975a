package folio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
)

// Market data persists in a folder, in a way that is still human-readable and git-friendly:
//
//	2024.jsonl   one candle per line, sorted by day then symbol
//	quotes.jsonl one intraday quote per line, sorted by symbol
//
// Decode reads every year file matching the glob, Encode rewrites them and removes the year
// files that no longer hold any candle.

const marketDataFilesGlob = "[0-9][0-9][0-9][0-9].jsonl"
const quotesFile = "quotes.jsonl"

type jcandle struct {
	On     date.Date       `json:"on"`
	Symbol string          `json:"symbol"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
}

type jquote struct {
	Symbol    string          `json:"symbol"`
	Last      decimal.Decimal `json:"last"`
	PrevClose decimal.Decimal `json:"prev_close"`
	Time      time.Time       `json:"time"`
}

// fileLine structures a line from a collection of files as the persistence layer represent them.
type fileLine struct {
	filename string
	i        int
	txt      string
}

// loadLines read all lines from a set of files and return them in list of structured lines.
func loadLines(filenames ...string) (list []fileLine, err error) {
	for _, filename := range filenames {
		r, err := os.Open(filename)
		if err != nil {
			return nil, fmt.Errorf("cannot open %q for reading: %w", filename, err)
		}
		scanner := bufio.NewScanner(r)
		i := 0
		for scanner.Scan() {
			i++
			if txt := scanner.Text(); strings.TrimSpace(txt) != "" {
				list = append(list, fileLine{filename, i, txt})
			}
		}
		err = scanner.Err()
		r.Close()
		if err != nil {
			return nil, fmt.Errorf("cannot read %q: %w", filename, err)
		}
	}
	return list, nil
}

// DecodeMarketData reads a market data folder. A missing folder is an empty market.
func DecodeMarketData(folder, currency string) (*MarketData, error) {
	m := NewMarketData(currency)

	filenames, err := filepath.Glob(filepath.Join(folder, marketDataFilesGlob))
	if err != nil {
		return nil, fmt.Errorf("load error: cannot scan folder %q for market data files: %w", folder, err)
	}
	lines, err := loadLines(filenames...)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		var c jcandle
		if err := json.Unmarshal([]byte(l.txt), &c); err != nil {
			return nil, fmt.Errorf("parse error %s:%v: %w", l.filename, l.i, err)
		}
		if c.Symbol == "" || c.On.IsZero() {
			return nil, fmt.Errorf("parse error %s:%v: a candle requires 'on' and 'symbol'", l.filename, l.i)
		}
		m.Append(c.Symbol, Candle{Day: c.On, Open: c.Open, High: c.High, Low: c.Low, Close: c.Close})
	}

	lines, err = loadLines(filepath.Join(folder, quotesFile))
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		var q jquote
		if err := json.Unmarshal([]byte(l.txt), &q); err != nil {
			return nil, fmt.Errorf("parse error %s:%v: %w", l.filename, l.i, err)
		}
		m.SetQuote(Quote{Symbol: q.Symbol, Last: q.Last, PrevClose: q.PrevClose, Time: q.Time})
	}
	return m, nil
}

// EncodeMarketData writes m into folder.
func EncodeMarketData(folder string, m *MarketData) error {
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return fmt.Errorf("cannot create market folder: %w", err)
	}

	// group candles per year, then sort each file by day and symbol.
	years := make(map[int][]jcandle)
	for _, symbol := range m.Symbols() {
		for day, c := range m.candles[symbol].Values() {
			years[day.Year()] = append(years[day.Year()], jcandle{day, symbol, c.Open, c.High, c.Low, c.Close})
		}
	}
	written := make(map[string]bool)
	for year, candles := range years {
		slices.SortFunc(candles, func(a, b jcandle) int {
			if c := a.On.Compare(b.On); c != 0 {
				return c
			}
			return strings.Compare(a.Symbol, b.Symbol)
		})
		filename := filepath.Join(folder, strconv.Itoa(year)+".jsonl")
		if err := writeLines(filename, candles); err != nil {
			return err
		}
		written[filename] = true
	}

	existing, err := filepath.Glob(filepath.Join(folder, marketDataFilesGlob))
	if err != nil {
		return fmt.Errorf("cannot scan folder %q for market data files: %w", folder, err)
	}
	for _, filename := range existing {
		if !written[filename] {
			if err := os.Remove(filename); err != nil {
				return fmt.Errorf("cannot remove stale file: %w", err)
			}
		}
	}

	quotes := make([]jquote, 0, len(m.quotes))
	for _, symbol := range slices.Sorted(maps.Keys(m.quotes)) {
		q := m.quotes[symbol]
		quotes = append(quotes, jquote{q.Symbol, q.Last, q.PrevClose, q.Time})
	}
	return writeLines(filepath.Join(folder, quotesFile), quotes)
}

func writeLines[T any](filename string, lines []T) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create %q: %w", filename, err)
	}
	if err := encodeLines(f, lines); err != nil {
		f.Close()
		return fmt.Errorf("cannot write %q: %w", filename, err)
	}
	return f.Close()
}

func encodeLines[T any](w io.Writer, lines []T) error {
	enc := json.NewEncoder(w)
	for _, l := range lines {
		if err := enc.Encode(l); err != nil {
			return err
		}
	}
	return nil
}
