package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/etnz/folio/date"
	"github.com/etnz/folio/renderer"
	"github.com/etnz/folio/scheduler"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

type serveCmd struct {
	now      bool
	fetch    bool
	interval time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "build the report on a schedule" }
func (*serveCmd) Usage() string {
	return `folio serve [-now] [-fetch=false] [-interval <duration>]

  Runs until interrupted, building the report of the day on the crontab of
  the schedule section ("0 18 * * 1-5" by default). Before each report the
  market data is refreshed from EODHD. When schedule.email is set the report
  is sent by email.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", false, "also run the job at startup")
	f.BoolVar(&c.fetch, "fetch", true, "refresh the market data before each report")
	f.DurationVar(&c.interval, "interval", 0, "run every interval instead of following the crontab")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, log, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		return subcommands.ExitFailure
	}
	if cfg.Schedule.Email {
		if _, err := cfg.Email.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error in email configuration: %v\n", err)
			return subcommands.ExitFailure
		}
	}

	s, err := scheduler.New(log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	job := func(ctx context.Context) error {
		w := &workspace{cfg: cfg, log: *zerolog.Ctx(ctx)}
		return c.run(ctx, w)
	}
	if c.interval > 0 {
		err = s.NewIntervalJob("report", job, c.interval, c.now)
	} else {
		err = s.NewCrontabJob("report", job, cfg.Schedule.Cron, c.now)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scheduling report: %v\n", err)
		return subcommands.ExitFailure
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	s.Start()
	log.Info().Str("cron", cfg.Schedule.Cron).Dur("interval", c.interval).Msg("scheduler started")
	<-ctx.Done()

	log.Info().Msg("stopping scheduler")
	if err := s.Stop(); err != nil {
		fmt.Fprintf(os.Stderr, "Error stopping scheduler: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// run is a single scheduled report.
func (c *serveCmd) run(ctx context.Context, w *workspace) error {
	if err := w.reload(); err != nil {
		return err
	}
	on := date.Today()
	if c.fetch {
		r, err := w.fetchRange("", "")
		if err != nil {
			return err
		}
		if err := w.fetch(ctx, r, true); err != nil {
			return err
		}
	}
	report, err := w.report(on)
	if err != nil {
		return err
	}
	md := renderer.RenderReport(report)
	if !w.cfg.Schedule.Email {
		printMarkdown(md)
		return nil
	}
	return w.deliver(ctx, report, md)
}
