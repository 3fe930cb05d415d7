// Command cda runs one prediction-market simulation, optionally followed by
// a risk-aversion sweep, and prints a summary.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/zappabad/cdamarket/internal/config"
	"github.com/zappabad/cdamarket/internal/export"
	"github.com/zappabad/cdamarket/internal/simulation"
	"github.com/zappabad/cdamarket/pkg/logger"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "cda: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("cda", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, _ := fs.GetString("config")
	s, err := config.Load(path, fs)
	if err != nil {
		return err
	}

	closeLog, err := logger.Init(logger.Options{Service: "cda", Level: s.Log.Level, File: s.Log.File})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer closeLog()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := s.Output.Name
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = logger.WithRunID(ctx, runID)
	logger.Info(ctx, "starting run",
		zap.String("mechanism", string(s.Mechanism)),
		zap.Uint64("seed", s.Seed),
		zap.Int("n_agents", s.NumAgents),
		zap.Int("n_rounds", s.NumRounds),
	)

	res, err := simulation.Run(ctx, s.Config,
		simulation.WithLogger(logger.Log),
		simulation.WithRunID(runID),
	)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	printSummary(stdout, res)

	var rows []simulation.SweepRow
	if len(s.Sweep.RhoValues) > 0 {
		rows, err = simulation.AnalyzeRhoEffect(ctx, s.Sweep, s.Config, logger.For(ctx))
		if err != nil {
			return fmt.Errorf("sweep: %w", err)
		}
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, sweepTable(rows))
	}

	if s.Output.Dir == "" {
		return nil
	}
	art, err := export.WriteRun(s.Output.Dir, runID, res)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	paths := art.Paths()
	if rows != nil {
		p, err := export.WriteSweep(s.Output.Dir, runID, rows)
		if err != nil {
			return fmt.Errorf("export sweep: %w", err)
		}
		paths = append(paths, p)
	}
	logger.Info(ctx, "artifacts written", zap.Strings("paths", paths))
	fmt.Fprintln(stdout)
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}
	return nil
}

var labelStyle = lipgloss.NewStyle().Bold(true).Width(22)

func printSummary(w io.Writer, r simulation.Result) {
	line := func(label, value string) {
		fmt.Fprintln(w, labelStyle.Render(label)+value)
	}
	line("run", r.RunID)
	line("mechanism", string(r.Mechanism))
	line("ground truth", f4(r.GroundTruth))
	line("mean initial belief", f4(r.MeanInitialBelief))
	line("convergence target", f4(r.ConvergenceTarget))
	line("final price", f4(r.FinalPrice))
	line("final error", f4(r.FinalError))
	line("rounds", fmt.Sprintf("%d / %d (%s)", r.RoundsRun, r.RoundsRequested, r.StopReason))
	line("trades", strconv.Itoa(r.TotalTrades()))
	line("volume", f4(r.TotalVolume()))
	for _, g := range r.RhoSummary {
		line(fmt.Sprintf("rho %g (%d agents)", g.Rho, g.Agents),
			fmt.Sprintf("avg shares %s  avg cash %s", f4(g.AvgShares), f4(g.AvgCash)))
	}
}

func sweepTable(rows []simulation.SweepRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("rho", "runs", "mean |pos|", "std |pos|", "price gap", "conv rate", "rounds", "volume")
	for _, r := range rows {
		t.Row(fmt.Sprintf("%g", r.Rho), strconv.Itoa(r.Runs), f4(r.MeanAbsPosition), f4(r.StdAbsPosition),
			f4(r.MeanFinalPriceGap), f4(r.ConvergenceRate), fmt.Sprintf("%.1f", r.MeanRounds), f4(r.MeanTotalVolume))
	}
	return t.String()
}

func f4(x float64) string { return strconv.FormatFloat(x, 'f', 4, 64) }
