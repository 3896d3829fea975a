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

type closedCmd struct {
	date string
}

func (*closedCmd) Name() string     { return "closed" }
func (*closedCmd) Synopsis() string { return "list the positions that have been fully sold" }
func (*closedCmd) Usage() string {
	return `folio closed [-d <date>]

  Lists the symbols fully sold as of a date, with their first buy, last sell
  and realized P&L.
`
}

func (c *closedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.date, "d", date.Today().String(), "Date of the list")
}

func (c *closedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	s, err := w.replay(on)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error replaying ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderClosed(s.ClosedPositions()))
	return subcommands.ExitSuccess
}
