// Package simulation drives a population of CRRA agents against a pricing
// venue round by round and records how the price evolves.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/zappabad/cdamarket/internal/belief"
	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/internal/trader"
)

// snapshotDepth is how many price levels per side a RoundSnapshot carries.
const snapshotDepth = 10

// Option customizes a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver publishes a snapshot after every round.
func WithObserver(o Observer) Option {
	return func(s *Simulation) { s.observer = o }
}

// WithRunID tags the result and every log line.
func WithRunID(id string) Option {
	return func(s *Simulation) { s.runID = id }
}

// Simulation owns the agents, the venue and the random source of one run.
// It is not safe for concurrent use; run independent simulations instead.
type Simulation struct {
	cfg      Config
	log      *zap.Logger
	observer Observer
	runID    string

	rng    *rand.Rand
	agents []*trader.Agent
	venue  venue
	book   *core.Book // nil unless the venue is a CDA

	meanInitialBelief float64
}

// New draws the population and builds the venue.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulation{
		cfg: cfg,
		log: zap.NewNop(),
		rng: newRNG(cfg.Seed),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("mechanism", string(cfg.Mechanism)), zap.Uint64("seed", cfg.Seed))
	if s.runID != "" {
		s.log = s.log.With(zap.String("run_id", s.runID))
	}

	s.agents, s.meanInitialBelief = drawPopulation(cfg, s.rng)

	switch cfg.Mechanism {
	case MechanismCDA:
		v, err := newCDAVenue(cfg, s.agents)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		s.venue, s.book = v, v.book
	case MechanismLMSR:
		v, err := newLMSRVenue(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		s.venue = v
	}
	return s, nil
}

// Run executes one simulation with cfg.
func Run(ctx context.Context, cfg Config, opts ...Option) (Result, error) {
	s, err := New(cfg, opts...)
	if err != nil {
		return Result{}, err
	}
	return s.Run(ctx)
}

// RunCDA runs cfg on the continuous double auction.
func RunCDA(ctx context.Context, cfg Config, opts ...Option) (Result, error) {
	cfg.Mechanism = MechanismCDA
	return Run(ctx, cfg, opts...)
}

// RunLMSR runs cfg against the LMSR market maker.
func RunLMSR(ctx context.Context, cfg Config, opts ...Option) (Result, error) {
	cfg.Mechanism = MechanismLMSR
	return Run(ctx, cfg, opts...)
}

// Agents returns the live agents. They are mutated by Run.
func (s *Simulation) Agents() []*trader.Agent { return s.agents }

// Book returns the order book, or nil for the lmsr mechanism.
func (s *Simulation) Book() *core.Book { return s.book }

// target is the price the run is expected to converge to: the truth once
// agents learn from signals, otherwise the population's mean prior.
func (s *Simulation) target() float64 {
	if s.cfg.Signals.Enabled {
		return s.cfg.GroundTruth
	}
	return s.meanInitialBelief
}

// Run plays rounds until a stop rule fires. Cancellation is checked between
// rounds; the partial result is returned with the context error.
func (s *Simulation) Run(ctx context.Context) (Result, error) {
	res := s.newResult()
	price := s.venue.price()
	res.PriceSeries = append(res.PriceSeries, price)
	res.ErrorSeries = append(res.ErrorSeries, math.Abs(price-s.cfg.GroundTruth))
	if err := s.publish(ctx, 0, roundStats{}, math.NaN(), false, ""); err != nil {
		return s.finish(res, StopCanceled), err
	}

	var (
		stable, idle int
		stop         StopReason
		order        = make([]*trader.Agent, len(s.agents))
		minTrade     = s.cfg.minTradeSize()
	)
	for round := 1; round <= s.cfg.NumRounds; round++ {
		if err := ctx.Err(); err != nil {
			return s.finish(res, StopCanceled), err
		}

		signal, hasSignal := math.NaN(), false
		if s.cfg.Signals.Enabled {
			sig, err := s.observeSignal()
			if err != nil {
				return s.finish(res, StopCanceled), err
			}
			signal, hasSignal = sig, true
			res.SignalSeries = append(res.SignalSeries, sig)
		}

		copy(order, s.agents)
		if s.cfg.ShuffleAgents {
			s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		st, err := s.venue.round(order)
		if err != nil {
			return s.finish(res, StopCanceled), fmt.Errorf("round %d: %w", round, err)
		}

		price = s.venue.price()
		res.RoundsRun = round
		res.PriceSeries = append(res.PriceSeries, price)
		res.ErrorSeries = append(res.ErrorSeries, math.Abs(price-s.cfg.GroundTruth))
		res.TradeVolume = append(res.TradeVolume, st.volume)
		res.TradeCount = append(res.TradeCount, len(st.trades))
		res.MeanBeliefSeries = append(res.MeanBeliefSeries, s.meanBelief())
		if v, ok := s.venue.(*lmsrVenue); ok {
			res.InventorySeries = append(res.InventorySeries, v.maker.Inventory)
		}

		if math.Abs(price-res.ConvergenceTarget) <= s.cfg.ConvergenceTol {
			stable++
		} else {
			stable = 0
		}
		if st.volume <= minTrade {
			idle++
		} else {
			idle = 0
		}
		switch {
		case stable >= s.cfg.StableRounds:
			stop = StopConverged
		case idle >= s.cfg.MaxIdleRounds:
			stop = StopIdle
		case round == s.cfg.NumRounds:
			stop = StopMaxRounds
		}

		s.log.Debug("round complete",
			zap.Int("round", round),
			zap.Float64("price", price),
			zap.Float64("volume", st.volume),
			zap.Int("trades", len(st.trades)),
		)
		if err := s.publish(ctx, round, st, signal, hasSignal, stop); err != nil {
			return s.finish(res, StopCanceled), err
		}
		if stop != "" {
			break
		}
	}
	return s.finish(res, stop), nil
}

func (s *Simulation) observeSignal() (float64, error) {
	sig, err := s.cfg.Signals.Spec.Generate(s.cfg.GroundTruth, s.rng)
	if err != nil {
		return 0, err
	}
	for _, a := range s.agents {
		if err := a.UpdateBelief(sig, s.cfg.Signals.Update); err != nil {
			return 0, err
		}
	}
	return sig, nil
}

func (s *Simulation) newResult() Result {
	res := Result{
		RunID:             s.runID,
		Mechanism:         s.cfg.Mechanism,
		Seed:              s.cfg.Seed,
		GroundTruth:       s.cfg.GroundTruth,
		NumAgents:         s.cfg.NumAgents,
		RoundsRequested:   s.cfg.NumRounds,
		MeanInitialBelief: s.meanInitialBelief,
		ConvergenceTarget: s.target(),
		ConvergenceTol:    s.cfg.ConvergenceTol,
		Strategy:          s.cfg.Strategy,
	}
	if s.cfg.Signals.Enabled {
		sig := s.cfg.Signals
		res.Signals = &sig
	}
	if s.cfg.Mechanism == MechanismLMSR {
		l := s.cfg.LMSR
		res.LMSR = &l
	}
	return res
}

func (s *Simulation) finish(res Result, stop StopReason) Result {
	if stop == "" {
		stop = StopMaxRounds
	}
	res.StopReason = stop
	res.FinalPrice = res.PriceSeries[len(res.PriceSeries)-1]
	res.FinalError = math.Abs(res.FinalPrice - s.cfg.GroundTruth)
	res.Converged = math.Abs(res.FinalPrice-res.ConvergenceTarget) <= s.cfg.ConvergenceTol

	n := len(s.agents)
	res.FinalPositions = make([]float64, n)
	res.FinalCash = make([]float64, n)
	res.FinalRhos = make([]float64, n)
	res.FinalBeliefs = make([]float64, n)
	for i, a := range s.agents {
		res.FinalPositions[i] = a.Shares
		res.FinalCash[i] = a.Cash
		res.FinalRhos[i] = a.Rho
		res.FinalBeliefs[i] = a.Belief
	}
	res.RhoSummary = summarizeByRho(s.agents)

	lvl := zap.InfoLevel
	if stop == StopCanceled {
		lvl = zap.WarnLevel
	}
	s.log.Log(lvl, "simulation finished",
		zap.String("stop_reason", string(stop)),
		zap.Int("rounds_run", res.RoundsRun),
		zap.Float64("final_price", res.FinalPrice),
		zap.Float64("target", res.ConvergenceTarget),
		zap.Bool("converged", res.Converged),
		zap.Float64("total_volume", res.TotalVolume()),
	)
	return res
}

func (s *Simulation) meanBelief() float64 {
	var sum float64
	for _, a := range s.agents {
		sum += a.Belief
	}
	return sum / float64(len(s.agents))
}

func (s *Simulation) publish(ctx context.Context, round int, st roundStats, signal float64, hasSignal bool, stop StopReason) error {
	if s.observer == nil {
		return nil
	}
	snap := RoundSnapshot{
		Round:      round,
		Mechanism:  s.cfg.Mechanism,
		Price:      s.venue.price(),
		Volume:     st.volume,
		Trades:     st.trades,
		Events:     st.events,
		Signal:     signal,
		HasSignal:  hasSignal,
		MeanBelief: s.meanBelief(),
		Done:       stop != "",
		StopReason: stop,
		Agents:     make([]AgentState, len(s.agents)),
	}
	if s.book != nil {
		snap.BestBid, snap.HasBid = s.book.BestBid()
		snap.BestAsk, snap.HasAsk = s.book.BestAsk()
		snap.Bids = s.book.Levels(core.SideBuy, snapshotDepth)
		snap.Asks = s.book.Levels(core.SideSell, snapshotDepth)
	}
	for i, a := range s.agents {
		snap.Agents[i] = AgentState{ID: a.ID, Belief: a.Belief, Rho: a.Rho, Cash: a.Cash, Shares: a.Shares}
	}
	if err := s.observer.OnRound(ctx, snap); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("observer: %w", err)
	}
	return nil
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// drawPopulation samples beliefs from a clipped normal around the ground
// truth and assigns risk aversion, returning the agents and mean belief.
func drawPopulation(cfg Config, rng *rand.Rand) ([]*trader.Agent, float64) {
	agents := make([]*trader.Agent, cfg.NumAgents)
	beliefs := make([]float64, cfg.NumAgents)
	var sum float64
	for i := range beliefs {
		beliefs[i] = belief.ClipProb(cfg.GroundTruth + cfg.Sigma*rng.NormFloat64())
		sum += beliefs[i]
	}
	for i := range agents {
		rho := cfg.FixedRho
		if rho == 0 {
			rho = cfg.RhoValues[rng.IntN(len(cfg.RhoValues))]
		}
		agents[i] = trader.NewAgent(core.AgentID(i), cfg.InitialCash, beliefs[i], rho)
	}
	return agents, sum / float64(cfg.NumAgents)
}
