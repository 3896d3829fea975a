package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/etnz/folio"
	"github.com/etnz/folio/cache"
	"github.com/etnz/folio/config"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/eodhd"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

type fetchCmd struct {
	from   string
	to     string
	quotes bool
}

func (*fetchCmd) Name() string     { return "fetch" }
func (*fetchCmd) Synopsis() string { return "download candles and quotes into the market folder" }
func (*fetchCmd) Usage() string {
	return `folio fetch [-from <date>] [-to <date>] [-quotes=false]

  Downloads the daily candles of every symbol of the ledger, of the target
  allocations and of the reference symbol from EODHD, together with their
  real-time quotes, and saves them into the market folder.

  The range defaults to the inception of the ledger, extended far enough
  back to compute the ATR, until today.
`
}

func (c *fetchCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "First day to fetch")
	f.StringVar(&c.to, "to", "", "Last day to fetch (defaults to today)")
	f.BoolVar(&c.quotes, "quotes", true, "also fetch the real-time quotes")
}

func (c *fetchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, w, err := openWorkspace(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading workspace: %v\n", err)
		return subcommands.ExitFailure
	}
	r, err := w.fetchRange(c.from, c.to)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in range: %v\n", err)
		return subcommands.ExitUsageError
	}
	if err := w.fetch(ctx, r, c.quotes); err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching market data: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// fetchRange returns the range to download. Missing bounds default to today and to the
// inception of the ledger, moved back by the ATR lookback.
func (w *workspace) fetchRange(from, to string) (date.Range, error) {
	today := date.Today()
	r := date.Range{From: today.Add(-lookbackDays(w.cfg.ATR.Lookback)), To: today}
	if inception, ok := w.ledger.InceptionDate(); ok {
		r.From = inception.Add(-lookbackDays(w.cfg.ATR.Lookback))
	}
	var err error
	if from != "" {
		if r.From, err = date.Parse(from); err != nil {
			return date.Range{}, err
		}
	}
	if to != "" {
		if r.To, err = date.Parse(to); err != nil {
			return date.Range{}, err
		}
	}
	if !r.Valid() {
		return date.Range{}, fmt.Errorf("invalid range %s", r)
	}
	return r, nil
}

// lookbackDays converts trading days into calendar days.
func lookbackDays(n int) int { return n*7/5 + 7 }

// symbols returns every symbol the reports need a price for.
func (w *workspace) symbols() []string {
	symbols := w.ledger.Symbols()
	for symbol := range w.cfg.TargetAllocations {
		symbols = append(symbols, symbol)
	}
	symbols = append(symbols, w.cfg.EODHD.Reference)
	slices.Sort(symbols)
	return slices.Compact(symbols)
}

// fetch downloads r into the market data and saves it.
func (w *workspace) fetch(ctx context.Context, r date.Range, quotes bool) error {
	client, closeStore, err := newClient(ctx, w.cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	symbols := w.symbols()
	log := zerolog.Ctx(ctx)
	log.Info().Strs("symbols", symbols).Stringer("range", r).Msg("fetching market data")
	start := time.Now()
	if err := client.Fetch(ctx, w.market, symbols, r, quotes); err != nil {
		return err
	}
	if err := folio.EncodeMarketData(w.cfg.Data.Market, w.market); err != nil {
		return fmt.Errorf("cannot save market data: %w", err)
	}
	log.Info().Dur("elapsed", time.Since(start)).Str("folder", w.cfg.Data.Market).Msg("market data saved")
	return nil
}

// newClient builds the EODHD client of the configuration. Candles are cached in memory, and
// in Redis when an address is configured.
func newClient(ctx context.Context, cfg *config.Config) (*eodhd.Client, func(), error) {
	if cfg.EODHD.APIKey == "" {
		return nil, nil, errors.New("missing EODHD API key, set eodhd.api_key or FOLIO_EODHD_API_KEY")
	}
	var store cache.Store = cache.NewMemory()
	closeStore := func() {}
	if addr := cfg.Cache.Redis.Addr; addr != "" {
		rdb, err := cache.NewRedis(ctx,
			cache.WithAddr(addr),
			cache.WithPassword(cfg.Cache.Redis.Password),
			cache.WithDB(cfg.Cache.Redis.DB),
			cache.WithPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, err
		}
		store = cache.NewLayered(store, rdb, cfg.Cache.TTL)
		closeStore = func() { rdb.Close() }
	}

	client := eodhd.New(cfg.EODHD.APIKey,
		eodhd.WithBaseURL(cfg.EODHD.BaseURL),
		eodhd.WithTimeout(cfg.EODHD.Timeout),
		eodhd.WithRetries(cfg.EODHD.Retries, time.Second),
		eodhd.WithConcurrency(cfg.EODHD.Concurrency),
		eodhd.WithRate(float64(cfg.EODHD.Rate)),
		eodhd.WithDiskCache(cfg.Cache.Dir),
		eodhd.WithStore(store, cfg.Cache.TTL),
	)
	return client, closeStore, nil
}
