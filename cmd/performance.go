package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/folio/date"
	"github.com/etnz/folio/renderer"
	"github.com/google/subcommands"
)

type performanceCmd struct {
	from   string
	to     string
	period string
}

func (*performanceCmd) Name() string { return "performance" }
func (*performanceCmd) Synopsis() string {
	return "display the time-weighted return of the portfolio over a window"
}
func (*performanceCmd) Usage() string {
	return `folio performance [-from <date>] [-to <date>] [-p <period>]

  Computes the time-weighted return of the portfolio over a window, split
  into sub-periods at each deposit or withdrawal, and the price return of
  every stock held during the window.
  The window defaults to the one configured, then to inception..today.
  With -p, the window is the period to date: -p month is the month to date.
`
}

func (c *performanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "Start of the window")
	f.StringVar(&c.to, "to", "", "End of the window")
	f.StringVar(&c.period, "p", "", "Period to date (day, week, month, quarter, year), overrides -from")
}

func (c *performanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, w, err := openWorkspace(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading workspace: %v\n", err)
		return subcommands.ExitFailure
	}
	r, err := w.window(c.from, c.to, date.Today())
	if err == nil && c.period != "" {
		var p date.Period
		if p, err = date.ParsePeriod(c.period); err == nil {
			r = p.ToDate(r.To)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error in window: %v\n", err)
		return subcommands.ExitUsageError
	}
	perf, err := w.performance(r)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error computing performance: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderPerformance(perf))
	return subcommands.ExitSuccess
}
