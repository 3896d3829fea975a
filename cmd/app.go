// Package cmd implements the CLI application to analyze a portfolio.
package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/folio"
	"github.com/etnz/folio/config"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/runid"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&holdingCmd{}, "reports")
	c.Register(&closedCmd{}, "reports")
	c.Register(&performanceCmd{}, "reports")
	c.Register(&summaryCmd{}, "reports")
	c.Register(&rebalanceCmd{}, "reports")
	c.Register(&reportCmd{}, "reports")

	c.Register(&fetchCmd{}, "data")
	c.Register(&fmtCmd{}, "data")

	c.Register(&serveCmd{}, "daemon")

	c.Register(&topicCmd{}, "help")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", config.DefaultFile, "Path to the workspace configuration file")

// Verbose forces the debug log level.
var Verbose = flag.Bool("v", false, "Enable verbose logging")

// maxStale is the number of days a close is carried forward when valuing a portfolio.
const maxStale = 5

// workspace is everything a command needs, loaded once per run.
type workspace struct {
	cfg    *config.Config
	log    zerolog.Logger
	ledger *folio.Ledger
	market *folio.MarketData
}

// loadConfig reads the configuration file and builds the run logger.
func loadConfig() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, log, nil
}

// openWorkspace loads the configuration, the ledger and the market data. The returned context
// carries the run logger.
func openWorkspace(ctx context.Context) (context.Context, *workspace, error) {
	cfg, log, err := loadConfig()
	if err != nil {
		return ctx, nil, err
	}
	ctx = runid.New(ctx, log)
	w := &workspace{cfg: cfg, log: *zerolog.Ctx(ctx)}
	if err := w.reload(); err != nil {
		return ctx, nil, err
	}
	return ctx, w, nil
}

// reload reads the ledger and market files again.
func (w *workspace) reload() error {
	ledger, err := folio.LoadLedger(w.cfg.BaseCurrency, w.cfg.Data.Trades, w.cfg.Data.CashFlows)
	if err != nil {
		return fmt.Errorf("cannot load ledger: %w", err)
	}
	market, err := folio.DecodeMarketData(w.cfg.Data.Market, w.cfg.BaseCurrency)
	if errors.Is(err, fs.ErrNotExist) {
		w.log.Warn().Str("folder", w.cfg.Data.Market).Msg("market data does not exist, using an empty market")
		market, err = folio.NewMarketData(w.cfg.BaseCurrency), nil
	}
	if err != nil {
		return fmt.Errorf("cannot load market data: %w", err)
	}
	w.log.Debug().Int("events", ledger.Len()).Int("symbols", len(market.Symbols())).Msg("workspace loaded")
	w.ledger, w.market = ledger, market
	return nil
}

// newLogger builds the logger described by cfg.
func newLogger(cfg config.Log) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level: %w", err)
	}
	if *Verbose {
		level = zerolog.DebugLevel
	}
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}

// printMarkdown renders md for the terminal, and falls back to the raw markdown.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}

// parseDay parses a date flag. An empty value is today.
func parseDay(s string) (date.Date, error) {
	if s == "" {
		return date.Today(), nil
	}
	return date.Parse(s)
}

// replay returns the portfolio state at the end of day on.
func (w *workspace) replay(on date.Date) (*folio.State, error) {
	return w.ledger.Replay(w.cfg.Replayer(), on)
}

// prices returns the price of each symbol on day on. Today, the real-time quotes come first.
func (w *workspace) prices(on date.Date) folio.PriceLookup {
	if on != date.Today() {
		return w.market.PricesOn(on, maxStale)
	}
	return w.market.Quotes(on, maxStale)
}

// window returns the reporting window ending on day on. Non empty flags override the
// configured window.
func (w *workspace) window(from, to string, on date.Date) (date.Range, error) {
	inception, ok := w.ledger.InceptionDate()
	if !ok {
		return date.Range{}, errors.New("the ledger is empty")
	}
	win := w.cfg.Window
	if from != "" {
		win.From = from
	}
	if to != "" {
		win.To = to
	}
	for _, s := range []string{win.From, win.To} {
		if s == "" {
			continue
		}
		if _, err := date.Parse(s); err != nil {
			return date.Range{}, err
		}
	}
	r := win.Range(inception, on)
	if !r.Valid() {
		return date.Range{}, fmt.Errorf("invalid window %s", r)
	}
	return r, nil
}

// tradingDays returns the days of r with a close of the reference symbol. Without any, the
// days with a close of any symbol are used.
func (w *workspace) tradingDays(r date.Range) []date.Date {
	if days := w.market.TradingDays(w.cfg.EODHD.Reference, r); len(days) > 0 {
		return days
	}
	var days []date.Date
	for _, symbol := range w.market.Symbols() {
		days = append(days, w.market.TradingDays(symbol, r)...)
	}
	slices.SortFunc(days, date.Date.Compare)
	return slices.Compact(days)
}

// navs evaluates the NAV at every trading day of r, at the bounds of r and at every external
// cash flow. Other days are valued on demand.
func (w *workspace) navs(r date.Range) (folio.NavSource, error) {
	events := w.ledger.Events()
	days := w.tradingDays(r)
	days = append(days, r.From, r.To)
	days = append(days, folio.ExternalFlows(events, r).Days()...)
	slices.SortFunc(days, date.Date.Compare)
	days = slices.Compact(days)

	valuation := folio.Valuation{Events: events, Replayer: w.cfg.Replayer(), Market: w.market, MaxStale: maxStale}
	series, err := folio.NewNavSeries(valuation, slices.Values(days))
	if err != nil {
		return nil, err
	}
	w.log.Debug().Stringer("window", r).Int("calendar_days", r.Len()).Int("evaluated", len(days)).Msg("NAV series evaluated")
	return navSeries{series, valuation}, nil
}

// navSeries serves observed NAVs and falls back to a valuation.
type navSeries struct {
	*folio.NavSeries
	fallback folio.NavSource
}

func (n navSeries) NAV(on date.Date) (folio.Money, error) {
	if nav, err := n.NavSeries.NAV(on); err == nil {
		return nav, nil
	}
	return n.fallback.NAV(on)
}
