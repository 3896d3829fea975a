package folio

import (
	"maps"
	"slices"
	"time"

	"github.com/etnz/folio/date"
	"github.com/shopspring/decimal"
)

// Candle is the daily price summary of a symbol. Prices are unadjusted.
type Candle struct {
	Day   date.Date
	Open  decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
	Close decimal.Decimal
}

// Quote is the intraday price of a symbol.
type Quote struct {
	Symbol    string
	Last      decimal.Decimal
	PrevClose decimal.Decimal
	Time      time.Time
}

// MarketData holds daily candles and intraday quotes for a set of symbols.
type MarketData struct {
	cur     string
	candles map[string]*date.History[Candle]
	quotes  map[string]Quote
}

// NewMarketData returns a new empty market data collection, priced in currency.
func NewMarketData(currency string) *MarketData {
	return &MarketData{
		cur:     currency,
		candles: make(map[string]*date.History[Candle]),
		quotes:  make(map[string]Quote),
	}
}

// Currency returns the currency prices are expressed in.
func (m *MarketData) Currency() string { return m.cur }

// Append records candles for symbol, replacing any candle on the same day.
func (m *MarketData) Append(symbol string, candles ...Candle) {
	h, ok := m.candles[symbol]
	if !ok {
		h = new(date.History[Candle])
		m.candles[symbol] = h
	}
	for _, c := range candles {
		h.Append(c.Day, c)
	}
}

// SetQuote records the intraday quote of a symbol.
func (m *MarketData) SetQuote(q Quote) { m.quotes[q.Symbol] = q }

// Quote returns the intraday quote of a symbol.
func (m *MarketData) Quote(symbol string) (Quote, bool) {
	q, ok := m.quotes[symbol]
	return q, ok
}

// Symbols returns the symbols with candles, sorted.
func (m *MarketData) Symbols() []string { return slices.Sorted(maps.Keys(m.candles)) }

// Candles returns the candles of symbol within r.
func (m *MarketData) Candles(symbol string, r date.Range) []Candle {
	h, ok := m.candles[symbol]
	if !ok {
		return nil
	}
	var candles []Candle
	for _, c := range h.Between(r) {
		candles = append(candles, c)
	}
	return candles
}

// Tail returns at most n candles of symbol up to day 'on', in chronological order.
func (m *MarketData) Tail(symbol string, on date.Date, n int) []Candle {
	h, ok := m.candles[symbol]
	if !ok {
		return nil
	}
	return h.Tail(on, n)
}

// CloseOn returns the close of symbol on that exact day.
func (m *MarketData) CloseOn(symbol string, day date.Date) (Money, bool) {
	h, ok := m.candles[symbol]
	if !ok {
		return Money{}, false
	}
	c, ok := h.Get(day)
	if !ok {
		return Money{}, false
	}
	return M(c.Close, m.cur), true
}

// CloseAsOf returns the nearest close of symbol at or before day, and the day it was
// observed.
func (m *MarketData) CloseAsOf(symbol string, day date.Date) (date.Date, Money, bool) {
	h, ok := m.candles[symbol]
	if !ok {
		return date.Date{}, Money{}, false
	}
	on, c, ok := h.AsOf(day)
	if !ok {
		return date.Date{}, Money{}, false
	}
	return on, M(c.Close, m.cur), true
}

// PricesOn returns the closes of day 'on'. A symbol without a close that day takes its
// most recent close, if it is at most maxStale days old.
func (m *MarketData) PricesOn(on date.Date, maxStale int) PriceLookup {
	return closeLookup{m: m, on: on, maxStale: maxStale}
}

type closeLookup struct {
	m        *MarketData
	on       date.Date
	maxStale int
}

func (c closeLookup) Price(symbol string) (Money, bool) {
	day, price, ok := c.m.CloseAsOf(symbol, c.on)
	if !ok || c.on.DaysSince(day) > c.maxStale {
		return Money{}, false
	}
	return price, true
}

// Quotes returns the intraday prices of day 'on'. Symbols without a quote fall back to
// their most recent close, if it is at most maxStale days old.
func (m *MarketData) Quotes(on date.Date, maxStale int) PriceLookup {
	return quoteLookup{m: m, closes: closeLookup{m: m, on: on, maxStale: maxStale}}
}

type quoteLookup struct {
	m      *MarketData
	closes closeLookup
}

func (q quoteLookup) Price(symbol string) (Money, bool) {
	if quote, ok := q.m.quotes[symbol]; ok && quote.Last.IsPositive() {
		return M(quote.Last, q.m.cur), true
	}
	return q.closes.Price(symbol)
}

// FillDailyPnL sets the daily P&L of rows from the quotes' previous close.
func (m *MarketData) FillDailyPnL(rows []PositionRow) {
	for i, row := range rows {
		q, ok := m.quotes[row.Symbol]
		if !ok || !q.PrevClose.IsPositive() {
			continue
		}
		rows[i].DailyPnL = row.Price.Sub(M(q.PrevClose, m.cur)).Mul(row.Quantity)
	}
}

// TradingDays returns the days within r on which symbol has a close.
func (m *MarketData) TradingDays(symbol string, r date.Range) []date.Date {
	h, ok := m.candles[symbol]
	if !ok {
		return nil
	}
	var days []date.Date
	for day := range h.Between(r) {
		days = append(days, day)
	}
	return days
}
