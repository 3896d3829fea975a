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

// holdingCmd holds the flags for the 'holding' subcommand.
type holdingCmd struct {
	date   string
	verify bool
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display detailed holdings for a specific date" }
func (*holdingCmd) Usage() string {
	return `folio holding [-d <date>] [-verify]

  Displays the portfolio holdings (securities and cash) on a given date.
  Today, positions are valued at the latest real-time quotes and the
  daily P&L is computed from the previous close.
  With -verify, the holdings are compared with the broker positions file.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date for the holdings report")
	f.BoolVar(&c.verify, "verify", false, "compare the holdings with the broker positions")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	h, _, err := w.holdings(on, c.verify)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating holding report: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderHoldings(h))
	if c.verify && len(h.Mismatches) == 0 {
		fmt.Fprintln(os.Stderr, "Holdings match the broker positions.")
	}
	return subcommands.ExitSuccess
}
