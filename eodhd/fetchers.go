package eodhd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/folio"
	"github.com/etnz/folio/cache"
	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when the API has no last price for a symbol.
var ErrNoQuote = errors.New("no quote available")

// get performs a rate limited GET request on path and returns the response body.
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("cannot GET %s: %w", path, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("cannot GET %s: %s", path, resp.Status())
	}
	return resp.Body(), nil
}

// Candles returns the daily candles of symbol between from and to, both included.
//
// The ticker format is "SYMBOL.EXCHANGE", e.g. AAPL.US.
func (c *Client) Candles(ctx context.Context, symbol string, r date.Range) ([]folio.Candle, error) {
	log := zerolog.Ctx(ctx).With().Str("symbol", symbol).Logger()
	key := fmt.Sprintf("eod:%s:%s", symbol, r)
	if c.store != nil {
		candles, err := cache.GetJSON[[]folio.Candle](ctx, c.store, key)
		if err == nil {
			log.Debug().Msg("cache hit")
			return candles, nil
		}
		log.Debug().Err(err).Msg("cache miss")
	}

	// https://eodhd.com/api/eod/NVD.F?api_token=demo&fmt=json
	// [
	//	{
	//		"date": "2024-02-13",
	//		"open": 675.066,
	//		"high": 684.219,
	//		"low": 648.659,
	//		"close": 668.445,
	//		"adjusted_close": 67.705,
	//		"volume": 0
	//	},
	body, err := c.get(ctx, "/eod/"+symbol, map[string]string{"from": r.From.String(), "to": r.To.String()})
	if err != nil {
		return nil, err
	}
	type info struct {
		Date  date.Date       `json:"date"`
		Open  decimal.Decimal `json:"open"`
		High  decimal.Decimal `json:"high"`
		Low   decimal.Decimal `json:"low"`
		Close decimal.Decimal `json:"close"`
	}
	var content []info
	if err := json.Unmarshal(body, &content); err != nil {
		return nil, fmt.Errorf("cannot decode candles of %s: %w", symbol, err)
	}
	candles := make([]folio.Candle, 0, len(content))
	for _, i := range content {
		if i.Date.IsZero() || i.Close.IsZero() {
			continue
		}
		candles = append(candles, folio.Candle{Day: i.Date, Open: i.Open, High: i.High, Low: i.Low, Close: i.Close})
	}
	log.Info().Int("candles", len(candles)).Str("range", r.String()).Msg("fetched candles")

	// The current day is still moving, don't keep it.
	if c.store != nil && r.To.Before(date.Today()) {
		if err := cache.SetJSON(ctx, c.store, key, candles, c.ttl); err != nil {
			log.Warn().Err(err).Msg("cache write error (ignored)")
		}
	}
	return candles, nil
}

// Quote returns the real-time quote of symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (folio.Quote, error) {
	// https://eodhd.com/api/real-time/AAPL.US?api_token=demo&fmt=json
	// {"code":"AAPL.US","timestamp":1736802000,"gmtoffset":0,"open":233.53,"high":234.67,
	//  "low":229.72,"close":234.4,"volume":49630725,"previousClose":236.85,"change":-2.45,
	//  "change_p":-1.0344}
	// Any value may be "NA" outside trading hours.
	body, err := c.get(ctx, "/real-time/"+symbol, nil)
	if err != nil {
		return folio.Quote{}, err
	}
	return parseQuote(symbol, body)
}

func parseQuote(symbol string, body []byte) (folio.Quote, error) {
	d := json.NewDecoder(bytes.NewReader(body))
	d.UseNumber()
	var jobj any
	if err := d.Decode(&jobj); err != nil {
		return folio.Quote{}, fmt.Errorf("cannot decode quote of %s: %w", symbol, err)
	}

	q := folio.Quote{Symbol: symbol}
	last, ok, err := decimalAt(jobj, "$.close")
	if err != nil {
		return q, fmt.Errorf("cannot parse quote of %s: %w", symbol, err)
	}
	if !ok {
		return q, fmt.Errorf("%s: %w", symbol, ErrNoQuote)
	}
	q.Last = last
	if q.PrevClose, _, err = decimalAt(jobj, "$.previousClose"); err != nil {
		return q, fmt.Errorf("cannot parse quote of %s: %w", symbol, err)
	}
	ts, ok, err := decimalAt(jobj, "$.timestamp")
	if err != nil {
		return q, fmt.Errorf("cannot parse quote of %s: %w", symbol, err)
	}
	if ok {
		q.Time = time.Unix(ts.IntPart(), 0).UTC()
	}
	return q, nil
}

// decimalAt evaluates a jsonpath on a decoded object. Missing and "NA" values are reported as
// absent.
func decimalAt(jobj any, path string) (decimal.Decimal, bool, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		// jsonpath reports unknown keys as errors.
		return decimal.Zero, false, nil
	}
	// because jsonpath is never clear about whether it returns a list of 1 answer, or a single answer:
	// by this call I keep the first one if any
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	switch v := jval.(type) {
	case nil:
		return decimal.Zero, false, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil, err
	case float64:
		return decimal.NewFromFloat(v), true, nil
	case string:
		if v == "NA" || v == "" {
			return decimal.Zero, false, nil
		}
		d, err := decimal.NewFromString(v)
		return d, err == nil, err
	default:
		return decimal.Zero, false, fmt.Errorf("%s: unexpected value %v", path, jval)
	}
}
