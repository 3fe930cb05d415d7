package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeRhoEffect(t *testing.T) {
	base := smallConfig()
	sweep := SweepConfig{RhoValues: []float64{0.5, 4}, Seeds: 3, Workers: 2}

	rows, err := AnalyzeRhoEffect(context.Background(), sweep, base, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 0.5, rows[0].Rho)
	assert.Equal(t, 4.0, rows[1].Rho)
	for _, r := range rows {
		assert.Equal(t, 3, r.Runs)
		assert.Equal(t, float64(base.NumRounds), r.MeanRounds)
		assert.GreaterOrEqual(t, r.ConvergenceRate, 0.0)
		assert.LessOrEqual(t, r.ConvergenceRate, 1.0)
		assert.GreaterOrEqual(t, r.StdAbsPosition, 0.0)
	}
	// risk-averse agents hold smaller positions
	assert.Less(t, rows[1].MeanAbsPosition, rows[0].MeanAbsPosition)

	again, err := AnalyzeRhoEffect(context.Background(), sweep, base, nil)
	require.NoError(t, err)
	assert.Equal(t, rows, again)
}

func TestAnalyzeRhoEffectRejectsBadInput(t *testing.T) {
	base := smallConfig()
	_, err := AnalyzeRhoEffect(context.Background(), SweepConfig{Seeds: 1}, base, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = AnalyzeRhoEffect(context.Background(), SweepConfig{RhoValues: []float64{1, -1}, Seeds: 1}, base, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	base.NumAgents = 0
	_, err = AnalyzeRhoEffect(context.Background(), SweepConfig{RhoValues: []float64{1}, Seeds: 2}, base, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestAnalyzeRhoEffectCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AnalyzeRhoEffect(ctx, SweepConfig{RhoValues: []float64{1}, Seeds: 2}, smallConfig(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMeanStd(t *testing.T) {
	m, s := meanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.Equal(t, 5.0, m)
	assert.Equal(t, 2.0, s)

	m, s = meanStd(nil)
	assert.Zero(t, m)
	assert.Zero(t, s)
}

func TestSummarizeSweepUsesPerRunMeans(t *testing.T) {
	tests := []struct {
		name     string
		runs     []Result
		wantMean float64
		wantStd  float64
	}{
		{
			name: "equal run means with different spread",
			runs: []Result{
				{FinalPositions: []float64{1, 3}},
				{FinalPositions: []float64{-1, 3}},
			},
			wantMean: 2,
			wantStd:  0,
		},
		{
			name: "different run means",
			runs: []Result{
				{FinalPositions: []float64{1, -1}},
				{FinalPositions: []float64{3, 3, -3}},
			},
			wantMean: 2,
			wantStd:  1,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			row := summarizeSweep(1, tc.runs)
			assert.Equal(t, len(tc.runs), row.Runs)
			assert.InDelta(t, tc.wantMean, row.MeanAbsPosition, 1e-12)
			assert.InDelta(t, tc.wantStd, row.StdAbsPosition, 1e-12)
		})
	}
}
