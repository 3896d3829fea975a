package folio

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// ATR returns the average true range of the last period candles.
//
// The true range of a day is the largest of high-low, |high-prior close| and |low-prior
// close|. When one more candle than period is available, the oldest one only seeds the
// prior close. Otherwise the first day of the window uses high-low. Fewer than period candles
// is a DataInsufficientError.
func ATR(candles []Candle, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, fmt.Errorf("invalid ATR period %d", period)
	}
	if len(candles) < period {
		return decimal.Zero, &DataInsufficientError{Need: period, Have: len(candles)}
	}
	window := candles[len(candles)-period:]
	var prevClose *decimal.Decimal
	if len(candles) > period {
		seed := candles[len(candles)-period-1].Close
		prevClose = &seed
	}

	sum := decimal.Zero
	for _, c := range window {
		tr := c.High.Sub(c.Low)
		if prevClose != nil {
			tr = decimal.Max(tr, c.High.Sub(*prevClose).Abs(), c.Low.Sub(*prevClose).Abs())
		}
		sum = sum.Add(tr)
		prev := c.Close
		prevClose = &prev
	}
	return sum.Div(decimal.NewFromInt(int64(period))), nil
}

// BandPosition locates a price relative to its ATR band.
type BandPosition int

const (
	WithinBand BandPosition = iota
	BelowBand
	AboveBand
)

func (p BandPosition) String() string {
	switch p {
	case BelowBand:
		return "below"
	case AboveBand:
		return "above"
	default:
		return "within"
	}
}

// AtrBand is the volatility band of a symbol.
type AtrBand struct {
	Symbol   string
	Price    Money
	Center   Money
	ATR      Money
	Lower    Money // Center - multiplier × ATR
	Upper    Money // Center + multiplier × ATR
	Position BandPosition
	Near     bool // within the band but less than half an ATR from an edge
	Action   Action
	Err      error // set when the band could not be computed
}

// AtrInput is the data needed to compute one band.
type AtrInput struct {
	Candles []Candle // chronological, the most recent last
	Price   Money    // current price
	Center  Money    // band center
}

// AtrBasedRebalance computes the ATR band of each symbol and suggests adding below the band,
// trimming above, and holding within. Band edges belong to the band.
//
// A symbol with too little history gets its error in AtrBand.Err, the rest of the batch is
// still computed. Bands are sorted by symbol.
func AtrBasedRebalance(inputs map[string]AtrInput, period int, multiplier decimal.Decimal) []AtrBand {
	bands := make([]AtrBand, 0, len(inputs))
	for _, symbol := range slices.Sorted(maps.Keys(inputs)) {
		in := inputs[symbol]
		b := AtrBand{Symbol: symbol, Price: in.Price, Center: in.Center, Action: ActionHold}
		atr, err := ATR(in.Candles, period)
		if err != nil {
			var e *DataInsufficientError
			if errors.As(err, &e) {
				e.Symbol = symbol
			}
			b.Err = err
			bands = append(bands, b)
			continue
		}
		cur := in.Center.Currency()
		b.ATR = M(atr, cur)
		width := M(atr.Mul(multiplier), cur)
		b.Lower = in.Center.Sub(width)
		b.Upper = in.Center.Add(width)

		switch {
		case in.Price.LessThan(b.Lower):
			b.Position, b.Action = BelowBand, ActionAdd
		case in.Price.GreaterThan(b.Upper):
			b.Position, b.Action = AboveBand, ActionTrim
		default:
			half := M(atr.Div(decimal.NewFromInt(2)), cur)
			b.Near = in.Price.Sub(b.Lower).LessThan(half) || b.Upper.Sub(in.Price).LessThan(half)
		}
		bands = append(bands, b)
	}
	return bands
}

// NewAtrInputs prepares the ATR inputs of every holding of s, plus the extra symbols.
//
// Candles are taken up to the day of s. The center is the cost basis of a holding, or the
// last close otherwise. The price comes from prices, falling back to the last close.
func NewAtrInputs(s *State, m *MarketData, prices PriceLookup, period int, extra ...string) map[string]AtrInput {
	symbols := s.Symbols()
	for _, symbol := range extra {
		if !slices.Contains(symbols, symbol) {
			symbols = append(symbols, symbol)
		}
	}

	inputs := make(map[string]AtrInput, len(symbols))
	for _, symbol := range symbols {
		in := AtrInput{Candles: m.Tail(symbol, s.On(), period+1)}
		var last Money
		if n := len(in.Candles); n > 0 {
			last = M(in.Candles[n-1].Close, m.Currency())
		}
		in.Price = last
		if price, ok := prices.Price(symbol); ok {
			in.Price = price
		}
		in.Center = last
		if h, ok := s.Holding(symbol); ok {
			in.Center = h.CostBasis
		}
		inputs[symbol] = in
	}
	return inputs
}
