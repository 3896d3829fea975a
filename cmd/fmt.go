package cmd

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/google/subcommands"
)

type fmtCmd struct {
	dryRun bool
}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the ledger files into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `folio fmt [-n]

  Validates and formats the ledger files. This command reads all trades and
  cash flows, validates them, removes duplicated records, replays them to
  check that no position or cash balance goes negative, and writes them back
  sorted in a canonical JSONL format. Broker coded cash flows are rewritten
  as plain cash flow records.

Usage Examples:
# Rewrites the trades and cash flows files in place.
$ folio fmt

# Prints the canonical trades and cash flows instead.
$ folio fmt -n
`
}

func (p *fmtCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&p.dryRun, "n", false, "print the formatted ledger instead of rewriting the files")
}

func (p *fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	_, w, err := openWorkspace(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not load ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	if _, err := w.replay(date.Today()); err != nil {
		fmt.Fprintf(os.Stderr, "Error replaying ledger: %v\n", err)
		return subcommands.ExitFailure
	}

	if p.dryRun {
		if err := formatLedger(os.Stdout, os.Stdout, w.ledger); err != nil {
			fmt.Fprintf(os.Stderr, "Error formatting ledger: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	var trades, flows bytes.Buffer
	if err := formatLedger(&trades, &flows, w.ledger); err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting ledger: %v\n", err)
		return subcommands.ExitFailure
	}
	for _, out := range []struct {
		filename string
		content  []byte
	}{{w.cfg.Data.Trades, trades.Bytes()}, {w.cfg.Data.CashFlows, flows.Bytes()}} {
		if err := writeFileAtomic(out.filename, out.content); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving formatted ledger %q: %v\n", out.filename, err)
			return subcommands.ExitFailure
		}
	}
	fmt.Fprintf(os.Stderr, "✅ Successfully formatted %d events.\n", w.ledger.Len())
	return subcommands.ExitSuccess
}

// formatLedger writes the canonical trades and cash flows of l.
func formatLedger(trades, flows io.Writer, l *folio.Ledger) error {
	if err := folio.EncodeTrades(trades, l); err != nil {
		return err
	}
	return folio.EncodeCashFlows(flows, l)
}

// writeFileAtomic replaces filename with content.
func writeFileAtomic(filename string, content []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(filename), filepath.Base(filename)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filename)
}
