// Command coremon is a terminal dashboard of per-core CPU utilization and
// memory usage, refreshed from procfs counters.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Dicklesworthstone/coremon/internal/config"
	"github.com/Dicklesworthstone/coremon/internal/exporter"
	"github.com/Dicklesworthstone/coremon/internal/logging"
	"github.com/Dicklesworthstone/coremon/internal/model"
	"github.com/Dicklesworthstone/coremon/internal/sampler"
	"github.com/Dicklesworthstone/coremon/internal/source"
	"github.com/Dicklesworthstone/coremon/internal/ui"
)

const (
	exitSuccess  = 0
	exitGeneric  = 1
	exitConfig   = 4
	exitCanceled = 130
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	envErr := godotenv.Load()

	cfg, err := config.FromFlags(args)
	if errors.Is(err, flag.ErrHelp) {
		return exitSuccess
	}
	if err != nil {
		fmt.Fprintf(stderr, "coremon: %v\n", err)
		return exitConfig
	}

	log, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "coremon: %v\n", err)
		return exitConfig
	}
	if envErr != nil {
		log.Debug().Msg("no .env file, using process environment")
	}

	src, err := source.New(cfg.Source, cfg.ProcRoot, logging.Component(log, "source"))
	if err != nil {
		fmt.Fprintf(stderr, "coremon: %v\n", err)
		return exitConfig
	}
	s := sampler.New(src, cfg.Interval)
	s.SetLogger(logging.Component(log, "sampler"))
	s.Bootstrap()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)
	var observers []func(model.Sample)

	if cfg.MetricsAddr != "" {
		exp := exporter.New()
		exp.SetLogger(logging.Component(log, "exporter"))
		observers = append(observers, exp.Observe)
		g.Go(func() error {
			return exp.Serve(gCtx, cfg.MetricsAddr)
		})
	}

	g.Go(func() error {
		defer stop()
		if cfg.TUI {
			return ui.RunTUI(gCtx, s, observers...)
		}
		return ui.RunPlain(gCtx, s, stdout, observers...)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("coremon stopped")
		fmt.Fprintf(stderr, "coremon: %v\n", err)
		return exitGeneric
	}
	if ctx.Err() != nil && !cfg.TUI {
		return exitCanceled
	}
	return exitSuccess
}

// newLogger writes to stderr. The TUI owns the terminal, so it only logs at
// debug level.
func newLogger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	if cfg.TUI && cfg.LogLevel != "debug" {
		return zerolog.Nop(), nil
	}
	return logging.New(cfg.LogLevel, w)
}
