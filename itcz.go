package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/gosuri/uiprogress"

	"github.com/rtm0/itcz/internal/config"
	"github.com/rtm0/itcz/internal/pipeline"
)

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, logger *slog.Logger, args []string) error
}

var commands = []command{
	{"geost", "fetch, crop and archive GridSat-B1 brightness temperature", runGeost},
	{"imerg", "fetch, crop and archive GPM IMERG half-hourly precipitation", runIMERG},
	{"earthdata", "write the Earthdata Login credential files", runEarthdata},
	{"plot", "render quicklooks of one archived GridSat slot and IMERG step", runPlot},
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for _, c := range commands {
		if c.name != os.Args[1] {
			continue
		}
		if err := c.run(ctx, logger, os.Args[2:]); err != nil {
			if err == flag.ErrHelp {
				os.Exit(2)
			}
			logger.Error("Command failed", "command", c.name, "err", err)
			stop()
			os.Exit(1)
		}
		return
	}
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: itcz <command> [flags]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.usage)
	}
}

// runUnits drives every unit through src and reports the outcome. The bar
// replaces per-unit progress lines when showBar is set.
func runUnits(ctx context.Context, logger *slog.Logger, cfg *config.Config, src pipeline.Source, units []string, showBar bool) error {
	run := uuid.NewString()
	logger = logger.With("run", run)
	driverLogger := logger
	if showBar {
		driverLogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})).With("run", run)
	}
	d, err := pipeline.NewDriver(driverLogger, src, pipeline.OptionsFrom(cfg))
	if err != nil {
		return err
	}
	if showBar {
		uiprogress.Start()
		bar := uiprogress.AddBar(len(units)).AppendCompleted().PrependElapsed()
		d.Observe(func(string, pipeline.State) {
			bar.Incr()
		})
		defer uiprogress.Stop()
	}

	r := d.Run(ctx, units)
	logger.Info("Run finished",
		"units", len(units),
		"skipped", r.Counts[pipeline.Skipped],
		"archived", r.Counts[pipeline.Cleaned],
		"failed", len(r.Failures))
	for _, f := range r.Failures {
		logger.Warn("Failed unit", "unit", f.Unit, "state", f.State, "err", f.Err)
	}
	return ctx.Err()
}
