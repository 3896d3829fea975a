package eodhd

import (
	"context"
	"errors"
	"fmt"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type fetched struct {
	candles []folio.Candle
	quote   folio.Quote
	ok      bool // quote found
}

// Fetch downloads the candles of every symbol over r into m. With quotes, the real-time
// quote of each symbol is also recorded. A symbol without a quote is logged and skipped, any
// other failure aborts the whole fetch.
func (c *Client) Fetch(ctx context.Context, m *folio.MarketData, symbols []string, r date.Range, quotes bool) error {
	if !r.Valid() {
		return fmt.Errorf("invalid range %s", r)
	}
	log := zerolog.Ctx(ctx)
	results := make([]fetched, len(symbols))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, symbol := range symbols {
		g.Go(func() error {
			candles, err := c.Candles(ctx, symbol, r)
			if err != nil {
				return err
			}
			results[i].candles = candles
			if !quotes {
				return nil
			}
			q, err := c.Quote(ctx, symbol)
			switch {
			case errors.Is(err, ErrNoQuote):
				log.Warn().Str("symbol", symbol).Msg("no quote available")
			case err != nil:
				return err
			default:
				results[i].quote, results[i].ok = q, true
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// MarketData is not safe for concurrent use, merge once every fetch is done.
	for i, symbol := range symbols {
		m.Append(symbol, results[i].candles...)
		if results[i].ok {
			m.SetQuote(results[i].quote)
		}
	}
	log.Info().Int("symbols", len(symbols)).Str("range", r.String()).Msg("market data updated")
	return nil
}
