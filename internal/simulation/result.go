package simulation

import (
	"math"
	"sort"

	"github.com/zappabad/cdamarket/internal/trader"
	"github.com/zappabad/cdamarket/internal/trader/strategy"
)

// StopReason records why a run ended.
type StopReason string

const (
	StopConverged StopReason = "converged"
	StopIdle      StopReason = "idle"
	StopMaxRounds StopReason = "max_rounds"
	StopCanceled  StopReason = "canceled"
)

// RhoGroup aggregates final holdings of agents sharing a risk aversion.
type RhoGroup struct {
	Rho          float64 `json:"rho"`
	Agents       int     `json:"agents"`
	AvgShares    float64 `json:"avg_shares"`
	AvgAbsShares float64 `json:"avg_abs_shares"`
	AvgCash      float64 `json:"avg_cash"`
}

// Result is everything a run produced. PriceSeries and ErrorSeries start
// with the opening price, so they hold RoundsRun+1 entries; the per-round
// series hold RoundsRun.
type Result struct {
	RunID     string    `json:"run_id,omitempty"`
	Mechanism Mechanism `json:"mechanism"`

	Seed              uint64     `json:"seed"`
	GroundTruth       float64    `json:"ground_truth"`
	NumAgents         int        `json:"n_agents"`
	RoundsRequested   int        `json:"n_rounds_requested"`
	RoundsRun         int        `json:"rounds_run"`
	MeanInitialBelief float64    `json:"mean_initial_belief"`
	ConvergenceTarget float64    `json:"convergence_target"`
	ConvergenceTol    float64    `json:"convergence_tol"`
	FinalPrice        float64    `json:"final_price"`
	FinalError        float64    `json:"final_error"`
	Converged         bool       `json:"converged"`
	StopReason        StopReason `json:"stop_reason"`

	PriceSeries      []float64    `json:"price_series"`
	ErrorSeries      []float64    `json:"error_series"`
	TradeVolume      []float64    `json:"trade_volume"`
	TradeCount       []int        `json:"trade_count"`
	SignalSeries     []float64    `json:"signal_series,omitempty"`
	MeanBeliefSeries []float64    `json:"mean_belief_series"`
	InventorySeries  [][2]float64 `json:"inventory_series,omitempty"`

	FinalPositions []float64  `json:"final_positions"`
	FinalCash      []float64  `json:"final_cash"`
	FinalRhos      []float64  `json:"final_rhos"`
	FinalBeliefs   []float64  `json:"final_beliefs"`
	RhoSummary     []RhoGroup `json:"rho_summary"`

	Strategy strategy.Config `json:"strategy"`
	Signals  *SignalConfig   `json:"signals,omitempty"`
	LMSR     *LMSRConfig     `json:"lmsr,omitempty"`
}

// TotalVolume sums executed volume over all rounds.
func (r Result) TotalVolume() float64 {
	var v float64
	for _, x := range r.TradeVolume {
		v += x
	}
	return v
}

// TotalTrades sums trade counts over all rounds.
func (r Result) TotalTrades() int {
	var n int
	for _, x := range r.TradeCount {
		n += x
	}
	return n
}

// PriceGap is |final price - mean initial belief|.
func (r Result) PriceGap() float64 {
	return math.Abs(r.FinalPrice - r.MeanInitialBelief)
}

func summarizeByRho(agents []*trader.Agent) []RhoGroup {
	groups := map[float64]*RhoGroup{}
	for _, a := range agents {
		g, ok := groups[a.Rho]
		if !ok {
			g = &RhoGroup{Rho: a.Rho}
			groups[a.Rho] = g
		}
		g.Agents++
		g.AvgShares += a.Shares
		g.AvgAbsShares += math.Abs(a.Shares)
		g.AvgCash += a.Cash
	}
	out := make([]RhoGroup, 0, len(groups))
	for _, g := range groups {
		n := float64(g.Agents)
		g.AvgShares /= n
		g.AvgAbsShares /= n
		g.AvgCash /= n
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rho < out[j].Rho })
	return out
}

