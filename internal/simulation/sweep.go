package simulation

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepConfig describes a risk-aversion sweep.
type SweepConfig struct {
	// RhoValues are the homogeneous populations to compare.
	RhoValues []float64 `mapstructure:"rho_values" json:"rho_values"`
	// Seeds are the runs per rho; seed i is base.Seed+i.
	Seeds int `mapstructure:"seeds" json:"seeds"`
	// Workers bounds concurrent runs; 0 means GOMAXPROCS.
	Workers int `mapstructure:"workers" json:"workers"`
}

// DefaultSweepConfig returns the sweep used by the CLI.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		RhoValues: []float64{0.25, 0.5, 1, 2, 4},
		Seeds:     5,
	}
}

// SweepRow aggregates all runs for one rho. The position statistics are
// taken over each run's mean |position|, one value per seed.
type SweepRow struct {
	Rho               float64 `json:"rho"`
	Runs              int     `json:"runs"`
	MeanAbsPosition   float64 `json:"mean_abs_position"`
	StdAbsPosition    float64 `json:"std_abs_position"`
	MeanFinalPriceGap float64 `json:"mean_final_price_gap"`
	ConvergenceRate   float64 `json:"convergence_rate"`
	MeanRounds        float64 `json:"mean_rounds"`
	MeanTotalVolume   float64 `json:"mean_total_volume"`
}

// AnalyzeRhoEffect runs base once per (rho, seed) with every agent sharing
// that rho, and summarizes each rho. Rows follow sweep.RhoValues order.
func AnalyzeRhoEffect(ctx context.Context, sweep SweepConfig, base Config, log *zap.Logger) ([]SweepRow, error) {
	if len(sweep.RhoValues) == 0 || sweep.Seeds <= 0 {
		return nil, fmt.Errorf("%w: sweep needs rho values and seeds > 0", ErrInvalidConfig)
	}
	for _, rho := range sweep.RhoValues {
		if !(rho > 0) {
			return nil, fmt.Errorf("%w: sweep rho must be > 0, got %v", ErrInvalidConfig, rho)
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	workers := sweep.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]Result, len(sweep.RhoValues))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rho := range sweep.RhoValues {
		results[i] = make([]Result, sweep.Seeds)
		for j := 0; j < sweep.Seeds; j++ {
			cfg := base
			cfg.FixedRho = rho
			cfg.Seed = base.Seed + uint64(j)
			g.Go(func() error {
				res, err := Run(gctx, cfg, WithLogger(log.With(zap.Float64("rho", rho))))
				if err != nil {
					return fmt.Errorf("rho %v seed %d: %w", rho, cfg.Seed, err)
				}
				results[i][j] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]SweepRow, len(sweep.RhoValues))
	for i, rho := range sweep.RhoValues {
		rows[i] = summarizeSweep(rho, results[i])
		log.Info("rho sweep row",
			zap.Float64("rho", rho),
			zap.Float64("mean_abs_position", rows[i].MeanAbsPosition),
			zap.Float64("convergence_rate", rows[i].ConvergenceRate),
		)
	}
	return rows, nil
}

func summarizeSweep(rho float64, runs []Result) SweepRow {
	row := SweepRow{Rho: rho, Runs: len(runs)}
	perRun := make([]float64, 0, len(runs))
	for _, r := range runs {
		var abs float64
		for _, pos := range r.FinalPositions {
			abs += math.Abs(pos)
		}
		if n := len(r.FinalPositions); n > 0 {
			abs /= float64(n)
		}
		perRun = append(perRun, abs)
		row.MeanFinalPriceGap += r.PriceGap()
		row.MeanRounds += float64(r.RoundsRun)
		row.MeanTotalVolume += r.TotalVolume()
		if r.Converged {
			row.ConvergenceRate++
		}
	}
	n := float64(len(runs))
	row.MeanFinalPriceGap /= n
	row.MeanRounds /= n
	row.MeanTotalVolume /= n
	row.ConvergenceRate /= n
	row.MeanAbsPosition, row.StdAbsPosition = meanStd(perRun)
	return row
}

// meanStd returns the mean and population standard deviation.
func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, x := range xs {
		ss += (x - mean) * (x - mean)
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
