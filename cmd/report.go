package cmd

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/etnz/folio/mail"
	"github.com/etnz/folio/renderer"
	"github.com/google/subcommands"
)

// reportCmd holds the flags for the 'report' subcommand.
type reportCmd struct {
	date  string
	html  string
	xlsx  string
	email bool
	quiet bool
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "build the full portfolio report" }
func (*reportCmd) Usage() string {
	return `folio report [-d <date>] [-html <file>] [-xlsx <file>] [-email] [-q]

  Builds the full report for a given date: holdings, anchored summary,
  performance over the configured window and rebalancing suggestions.
  The report is printed, and can also be saved as HTML or as a spreadsheet,
  or sent by email using the email section of the configuration.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date for the report")
	f.StringVar(&c.html, "html", "", "Write the report as an HTML page to this file")
	f.StringVar(&c.xlsx, "xlsx", "", "Write the report as a spreadsheet to this file")
	f.BoolVar(&c.email, "email", false, "Send the report by email")
	f.BoolVar(&c.quiet, "q", false, "Do not print the report")
}

func (c *reportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	ctx, w, err := openWorkspace(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading workspace: %v\n", err)
		return subcommands.ExitFailure
	}

	report, err := w.report(on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building report: %v\n", err)
		return subcommands.ExitFailure
	}
	md := renderer.RenderReport(report)
	if !c.quiet {
		printMarkdown(md)
	}

	if c.html != "" {
		html, err := renderer.HTML(md)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering HTML: %v\n", err)
			return subcommands.ExitFailure
		}
		if err := os.WriteFile(c.html, []byte(html), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.html, err)
			return subcommands.ExitFailure
		}
	}
	if c.xlsx != "" {
		if err := writeXLSX(c.xlsx, report); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %q: %v\n", c.xlsx, err)
			return subcommands.ExitFailure
		}
	}
	if c.email {
		if err := w.deliver(ctx, report, md); err != nil {
			fmt.Fprintf(os.Stderr, "Error sending report: %v\n", err)
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}

func writeXLSX(filename string, report *renderer.Report) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := renderer.WriteXLSX(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// report builds every section of the report of day on.
func (w *workspace) report(on date.Date) (*renderer.Report, error) {
	h, s, err := w.holdings(on, true)
	if err != nil {
		return nil, err
	}
	summary, err := w.summary(on)
	if err != nil {
		return nil, err
	}
	r, err := w.window("", "", on)
	if err != nil {
		return nil, err
	}
	perf, err := w.performance(r)
	if err != nil {
		return nil, err
	}
	return &renderer.Report{
		Date:        on,
		Holdings:    h,
		Summary:     summary,
		Performance: perf,
		Rebalance:   w.rebalance(s, h, w.prices(on)),
		GeneratedAt: time.Now(),
	}, nil
}

// deliver sends a rendered report by email.
func (w *workspace) deliver(ctx context.Context, report *renderer.Report, md string) error {
	settings, err := w.cfg.Email.Validate()
	if err != nil {
		return err
	}
	html, err := renderer.HTML(md)
	if err != nil {
		return fmt.Errorf("cannot render HTML: %w", err)
	}
	return mail.NewSender(settings).Send(ctx, settings.SubjectOn(report.Date.Time()), md, html)
}

// holdings values the portfolio on day on. With verify, the replayed quantities are compared
// with the broker positions file.
func (w *workspace) holdings(on date.Date, verify bool) (*renderer.Holdings, *folio.State, error) {
	s, err := w.replay(on)
	if err != nil {
		return nil, nil, err
	}
	rows, nav, err := folio.PositionRows(s, w.prices(on))
	if err != nil {
		return nil, nil, err
	}
	if on == date.Today() {
		w.market.FillDailyPnL(rows)
	}
	h := renderer.NewHoldings(s, rows, nav)
	if !verify {
		return h, s, nil
	}

	broker, err := folio.LoadPositions(w.cfg.Data.Positions)
	if err != nil {
		return nil, nil, err
	}
	if broker == nil {
		w.log.Debug().Str("file", w.cfg.Data.Positions).Msg("no broker positions to verify")
		return h, s, nil
	}
	h.Mismatches = folio.CheckConsistency(s, broker)
	for _, m := range h.Mismatches {
		w.log.Warn().Str("symbol", m.Symbol).Stringer("ledger", m.Replayed).Stringer("broker", m.Broker).Msg("position mismatch")
	}
	return h, s, nil
}

// summary returns the anchored summary on day on.
func (w *workspace) summary(on date.Date) (*folio.Summary, error) {
	inception, ok := w.ledger.InceptionDate()
	if !ok {
		return nil, fmt.Errorf("the ledger is empty")
	}
	r := date.Range{From: inception, To: on}
	navs, err := w.navs(r)
	if err != nil {
		return nil, err
	}
	return folio.NewSummary(w.ledger.Events(), navs, w.market, on, w.tradingDays(r))
}

// performance returns the time-weighted performance over r.
func (w *workspace) performance(r date.Range) (*folio.PortfolioPerformance, error) {
	navs, err := w.navs(r)
	if err != nil {
		return nil, err
	}
	return folio.CalculatePortfolioPerformance(w.ledger.Events(), navs, w.market, r)
}

// rebalance returns the weight based suggestions, capped to what can be executed, and the
// ATR bands of the holdings and targets.
func (w *workspace) rebalance(s *folio.State, h *renderer.Holdings, prices folio.PriceLookup) *renderer.Rebalance {
	targets := w.cfg.Targets()
	threshold := folio.R(w.cfg.RebalanceThreshold.Decimal)
	suggestions := folio.WeightBasedRebalance(h.Positions, h.NAV, targets, threshold, prices)
	suggestions = folio.Constrain(suggestions, s.Cash(), s)

	period, multiplier := w.cfg.ATR.Period, w.cfg.ATR.Multiplier.Decimal
	inputs := folio.NewAtrInputs(s, w.market, prices, period, slices.Sorted(maps.Keys(targets))...)
	return &renderer.Rebalance{
		Threshold:     threshold,
		Suggestions:   suggestions,
		ATRPeriod:     period,
		ATRMultiplier: multiplier,
		Bands:         folio.AtrBasedRebalance(inputs, period, multiplier),
	}
}
