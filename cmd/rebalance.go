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

type rebalanceCmd struct {
	date string
}

func (*rebalanceCmd) Name() string     { return "rebalance" }
func (*rebalanceCmd) Synopsis() string { return "suggest trades toward the target allocations" }
func (*rebalanceCmd) Usage() string {
	return `folio rebalance [-d <date>]

  Suggests the trades that bring each position back to its target weight,
  when it drifted beyond the threshold. Suggestions are capped by the cash
  available and the quantities held.
  Also positions the price of every holding within its ATR band.
`
}

func (c *rebalanceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the suggestions")
}

func (c *rebalanceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	on, err := parseDay(c.date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing date: %v\n", err)
		return subcommands.ExitUsageError
	}
	_, w, err := openWorkspace(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading workspace: %v\n", err)
		return subcommands.ExitFailure
	}
	if len(w.cfg.TargetAllocations) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no target allocations configured.")
	}
	h, s, err := w.holdings(on, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error valuing the portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderRebalance(w.rebalance(s, h, w.prices(on))))
	return subcommands.ExitSuccess
}
