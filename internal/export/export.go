// Package export writes run and sweep results to disk as JSON and CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"

	"github.com/zappabad/cdamarket/internal/simulation"
)

// Precision is the number of decimal places written to CSV cells.
const Precision = 10

// Artifacts are the files written for one run.
type Artifacts struct {
	Name       string
	JSON       string
	Timeseries string
	Agents     string
	RhoSummary string
}

// Paths lists every artifact path.
func (a Artifacts) Paths() []string {
	return []string{a.JSON, a.Timeseries, a.Agents, a.RhoSummary}
}

// WriteRun writes <name>.json, <name>_timeseries.csv, <name>_agents.csv and
// <name>_rho_summary.csv under dir, creating it if needed. An empty name
// falls back to the run id, then to a fresh uuid.
func WriteRun(dir, name string, res simulation.Result) (Artifacts, error) {
	if name == "" {
		name = res.RunID
	}
	if name == "" {
		name = uuid.NewString()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("create output dir: %w", err)
	}
	a := Artifacts{
		Name:       name,
		JSON:       filepath.Join(dir, name+".json"),
		Timeseries: filepath.Join(dir, name+"_timeseries.csv"),
		Agents:     filepath.Join(dir, name+"_agents.csv"),
		RhoSummary: filepath.Join(dir, name+"_rho_summary.csv"),
	}

	if err := writeJSON(a.JSON, res); err != nil {
		return a, err
	}
	if err := writeCSV(a.Timeseries, timeseriesRows(res)); err != nil {
		return a, err
	}
	if err := writeCSV(a.Agents, agentRows(res)); err != nil {
		return a, err
	}
	if err := writeCSV(a.RhoSummary, rhoRows(res)); err != nil {
		return a, err
	}
	return a, nil
}

// WriteSweep writes <name>_sweep.csv under dir and returns its path.
func WriteSweep(dir, name string, rows []simulation.SweepRow) (string, error) {
	if name == "" {
		name = uuid.NewString()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, name+"_sweep.csv")
	records := [][]string{{
		"rho", "runs", "mean_abs_position", "std_abs_position",
		"mean_final_price_gap", "convergence_rate", "mean_rounds", "mean_total_volume",
	}}
	for _, r := range rows {
		records = append(records, []string{
			num(r.Rho), strconv.Itoa(r.Runs), num(r.MeanAbsPosition), num(r.StdAbsPosition),
			num(r.MeanFinalPriceGap), num(r.ConvergenceRate), num(r.MeanRounds), num(r.MeanTotalVolume),
		})
	}
	return path, writeCSV(path, records)
}

// timeseriesRows has one row per recorded price. Row 0 is the opening price
// and has no volume.
func timeseriesRows(res simulation.Result) [][]string {
	records := [][]string{{"round", "price", "abs_error_vs_ground_truth", "trade_volume"}}
	for t, p := range res.PriceSeries {
		var errCell, volCell string
		if t < len(res.ErrorSeries) {
			errCell = num(res.ErrorSeries[t])
		}
		if t > 0 && t-1 < len(res.TradeVolume) {
			volCell = num(res.TradeVolume[t-1])
		}
		records = append(records, []string{strconv.Itoa(t), num(p), errCell, volCell})
	}
	return records
}

func agentRows(res simulation.Result) [][]string {
	records := [][]string{{"agent_id", "rho", "final_shares", "final_cash"}}
	for i := range res.FinalPositions {
		var rho, cash string
		if i < len(res.FinalRhos) {
			rho = num(res.FinalRhos[i])
		}
		if i < len(res.FinalCash) {
			cash = num(res.FinalCash[i])
		}
		records = append(records, []string{strconv.Itoa(i), rho, num(res.FinalPositions[i]), cash})
	}
	return records
}

func rhoRows(res simulation.Result) [][]string {
	records := [][]string{{"rho", "avg_shares", "avg_cash"}}
	for _, g := range res.RhoSummary {
		records = append(records, []string{num(g.Rho), num(g.AvgShares), num(g.AvgCash)})
	}
	return records
}

// num renders x rounded to Precision places without trailing zeros.
func num(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return ""
	}
	return decimal.NewFromFloat(x).Round(Precision).String()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
