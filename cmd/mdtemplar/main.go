package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/nikitaxru/mdtemplar"
	"github.com/nikitaxru/mdtemplar/internal/batch"
	"github.com/nikitaxru/mdtemplar/internal/cli"
	"github.com/nikitaxru/mdtemplar/internal/config"
	"github.com/nikitaxru/mdtemplar/internal/journal"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	opts.Apply(cfg)

	log := cli.NewLogger(cfg.LogLevel, cfg.LogFormat, outW)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = mdtemplar.LoggingContext(ctx, log)

	targets := cfg.Targets
	if opts.Interactive {
		if targets, err = cli.SelectTargets(ctx, cli.SurveySelector{}, cfg); err != nil {
			return err
		}
	}

	var j *journal.Journal
	if cfg.Journal != "" {
		if j, err = journal.Open(cfg.Journal); err != nil {
			return err
		}
		defer func() { _ = j.Close() }()
	}

	if !batch.NewRunner(cfg, j).Run(ctx, targets) {
		return &cli.ExitError{Code: 1, Message: "mdtemplar: есть задания с ошибками"}
	}
	return nil
}
