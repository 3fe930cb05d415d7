// Command tui runs a simulation behind a live terminal dashboard.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/zappabad/cdamarket/internal/config"
	"github.com/zappabad/cdamarket/internal/simulation"
	"github.com/zappabad/cdamarket/pkg/logger"
	"github.com/zappabad/cdamarket/tui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := pflag.NewFlagSet("tui", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	delay := fs.Duration("delay", 150*time.Millisecond, "pause between replayed rounds")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, _ := fs.GetString("config")
	s, err := config.Load(path, fs)
	if err != nil {
		return err
	}

	// stdout belongs to the dashboard
	logFile := s.Log.File
	if logFile == "" {
		logFile = "logs/tui.log"
	}
	closeLog, err := logger.Init(logger.Options{Service: "cda-tui", Level: s.Log.Level, File: logFile})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runID := uuid.NewString()
	ctx = logger.WithRunID(ctx, runID)

	snapshots := make(chan simulation.RoundSnapshot)
	done := make(chan tui.Outcome, 1)
	observer := simulation.ObserverFunc(func(ctx context.Context, snap simulation.RoundSnapshot) error {
		select {
		case snapshots <- snap:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	go func() {
		defer close(done)
		res, err := simulation.Run(ctx, s.Config,
			simulation.WithLogger(logger.Log),
			simulation.WithObserver(observer),
			simulation.WithRunID(runID),
		)
		close(snapshots)
		switch {
		case errors.Is(err, context.Canceled):
			logger.Info(ctx, "simulation stopped from the dashboard", zap.Int("rounds_run", res.RoundsRun))
		case err != nil:
			logger.Error(ctx, "simulation failed", zap.Error(err))
		}
		done <- tui.Outcome{Result: res, Err: err}
	}()

	model := tui.NewModel(tui.Feed{Snapshots: snapshots, Done: done, Rounds: s.NumRounds}, *delay)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	cancel()
	return err
}
