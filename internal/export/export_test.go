package export

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zappabad/cdamarket/internal/simulation"
)

func sampleResult() simulation.Result {
	return simulation.Result{
		RunID:          "abc",
		Mechanism:      simulation.MechanismCDA,
		Seed:           7,
		GroundTruth:    0.7,
		NumAgents:      2,
		RoundsRun:      2,
		FinalPrice:     0.65,
		StopReason:     simulation.StopMaxRounds,
		PriceSeries:    []float64{0.5, 0.6, 0.65},
		ErrorSeries:    []float64{0.2, 0.1, 0.05},
		TradeVolume:    []float64{3, 0.1 + 0.2},
		TradeCount:     []int{1, 1},
		FinalPositions: []float64{2.5, -2.5},
		FinalCash:      []float64{98.5, 101.5},
		FinalRhos:      []float64{1, 2},
		RhoSummary: []simulation.RhoGroup{
			{Rho: 1, Agents: 1, AvgShares: 2.5, AvgCash: 98.5},
			{Rho: 2, Agents: 1, AvgShares: -2.5, AvgCash: 101.5},
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	res := sampleResult()

	a, err := WriteRun(dir, "run1", res)
	require.NoError(t, err)
	assert.Equal(t, "run1", a.Name)
	for _, p := range a.Paths() {
		assert.FileExists(t, p)
	}

	ts := readCSV(t, a.Timeseries)
	assert.Equal(t, [][]string{
		{"round", "price", "abs_error_vs_ground_truth", "trade_volume"},
		{"0", "0.5", "0.2", ""},
		{"1", "0.6", "0.1", "3"},
		{"2", "0.65", "0.05", "0.3"},
	}, ts)

	agents := readCSV(t, a.Agents)
	assert.Equal(t, [][]string{
		{"agent_id", "rho", "final_shares", "final_cash"},
		{"0", "1", "2.5", "98.5"},
		{"1", "2", "-2.5", "101.5"},
	}, agents)

	rho := readCSV(t, a.RhoSummary)
	assert.Equal(t, [][]string{
		{"rho", "avg_shares", "avg_cash"},
		{"1", "2.5", "98.5"},
		{"2", "-2.5", "101.5"},
	}, rho)

	raw, err := os.ReadFile(a.JSON)
	require.NoError(t, err)
	var back simulation.Result
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, res.PriceSeries, back.PriceSeries)
	assert.Equal(t, res.StopReason, back.StopReason)
	assert.Equal(t, res.RhoSummary, back.RhoSummary)
}

func TestWriteRunNames(t *testing.T) {
	dir := t.TempDir()

	a, err := WriteRun(dir, "", sampleResult())
	require.NoError(t, err)
	assert.Equal(t, "abc", a.Name)

	res := sampleResult()
	res.RunID = ""
	a, err = WriteRun(dir, "", res)
	require.NoError(t, err)
	assert.Len(t, a.Name, 36)
	assert.FileExists(t, filepath.Join(dir, a.Name+"_agents.csv"))
}

func TestWriteSweep(t *testing.T) {
	rows := []simulation.SweepRow{
		{Rho: 0.5, Runs: 3, MeanAbsPosition: 40, StdAbsPosition: 5, ConvergenceRate: 1.0 / 3, MeanRounds: 12},
	}
	path, err := WriteSweep(t.TempDir(), "s", rows)
	require.NoError(t, err)
	assert.Equal(t, "s_sweep.csv", filepath.Base(path))

	records := readCSV(t, path)
	require.Len(t, records, 2)
	assert.Equal(t, "rho", records[0][0])
	assert.Equal(t, []string{"0.5", "3", "40", "5", "0", "0.3333333333", "12", "0"}, records[1])
}

func TestNum(t *testing.T) {
	assert.Equal(t, "0.999", num(0.999))
	assert.Equal(t, "-1", num(-1))
	assert.Equal(t, "", num(math.NaN()))
	assert.Equal(t, "", num(math.Inf(1)))
}
