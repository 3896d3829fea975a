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

type summaryCmd struct {
	date string
}

func (*summaryCmd) Name() string { return "summary" }
func (*summaryCmd) Synopsis() string {
	return "display returns since the usual anchors (week, month, quarter, year, inception)"
}
func (*summaryCmd) Usage() string {
	return `folio summary [-d <date>]

  Displays the NAV, the deposit ROI and, for each anchor (WoW, MTD, QTD, YTD,
  previous year and inception), the time-weighted return and P&L.
`
}

func (c *summaryCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the summary")
}

func (c *summaryCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	summary, err := w.summary(on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating summary: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderSummary(summary))
	return subcommands.ExitSuccess
}
