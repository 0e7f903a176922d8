package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hszk-dev/vidbrief/internal/app"
	"github.com/hszk-dev/vidbrief/internal/config"
	"github.com/hszk-dev/vidbrief/internal/domain/model"
	"github.com/hszk-dev/vidbrief/internal/infrastructure/localfs"
	"github.com/hszk-dev/vidbrief/internal/logging"
	"github.com/hszk-dev/vidbrief/internal/tui"
	"github.com/hszk-dev/vidbrief/internal/usecase"
)

type options struct {
	force  bool
	recent bool
	plain  bool
	path   string
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options

	fs := flag.NewFlagSet("vidbrief", flag.ContinueOnError)
	fs.BoolVar(&opts.force, "force", false, "discard any cached summary and generate a new one")
	fs.BoolVar(&opts.recent, "recent", false, "print recently processed videos and exit")
	fs.BoolVar(&opts.plain, "plain", false, "log progress as JSON lines instead of the interactive view")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: vidbrief [-force] [-plain] <video>\n       vidbrief -recent\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.recent {
		return opts, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, errors.New("expected exactly one video path")
	}
	opts.path = fs.Arg(0)
	return opts, nil
}

func run(args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if opts.recent {
		return printRecent(stdout, localfs.NewRecentFiles(cfg.App.RecentFilesPath(), cfg.App.RecentLimit))
	}

	logOpts := logging.DefaultOptions()
	logOpts.Level = cfg.App.SlogLevel()
	logOpts.File = cfg.App.LogFile
	logOpts.Console = os.Stderr
	if !opts.plain {
		// The interactive view owns the terminal.
		logOpts.Console = nil
	}
	logger, logCloser, err := logging.New(logOpts)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	defer a.Close()

	r, err := a.Pipeline.Start(ctx, usecase.Request{Path: opts.path, ForceSummary: opts.force})
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-ctx.Done():
			r.Cancel()
		case <-r.Done():
		}
	}()

	if opts.plain {
		logEvents(logger, r.Events())
	} else {
		if _, err := tea.NewProgram(tui.New(r.Video(), r.Events(), r.Cancel)).Run(); err != nil {
			r.Cancel()
			slog.Warn("terminal view failed", "error", err)
		}
		for range r.Events() {
		}
	}
	<-r.Done()

	res := r.Result()
	if err := tui.WriteReport(stdout, res); err != nil {
		return err
	}
	return res.Err
}

func printRecent(w io.Writer, recent *localfs.RecentFiles) error {
	paths := recent.Load()
	if len(paths) == 0 {
		_, err := fmt.Fprintln(w, "no recent videos")
		return err
	}
	for _, p := range paths {
		if _, err := fmt.Fprintln(w, p); err != nil {
			return err
		}
	}
	return nil
}

func logEvents(logger *slog.Logger, events <-chan model.Event) {
	for ev := range events {
		switch ev.Kind {
		case model.EventStatus:
			level := slog.LevelInfo
			switch ev.Status.Stage {
			case model.StageWarning:
				level = slog.LevelWarn
			case model.StageError:
				level = slog.LevelError
			}
			logger.Log(context.Background(), level, "status",
				slog.String("stage", ev.Status.Stage.String()),
				slog.Float64("progress", ev.Status.Progress),
				slog.String("message", ev.Status.Message),
			)
		case model.EventSegmentsReady:
			logger.Info("segments ready", slog.Int("count", len(ev.Segments)))
		case model.EventBackendInfoReady:
			logger.Info("transcription backend", slog.String("backend", ev.Backend.Label()))
		case model.EventSummaryReady:
			logger.Info("summary ready", slog.Int("topics", len(ev.Summary.Topics)))
		}
	}
}
