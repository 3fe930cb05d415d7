package simulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zappabad/cdamarket/internal/belief"
	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/internal/trader/strategy"
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// Mechanism selects the venue agents trade against.
type Mechanism string

const (
	// MechanismCDA matches agents against each other on a limit order book.
	MechanismCDA Mechanism = "cda"
	// MechanismLMSR has every agent trade with an automated market maker.
	MechanismLMSR Mechanism = "lmsr"
)

// ParseMechanism accepts cda or lmsr.
func ParseMechanism(s string) (Mechanism, error) {
	switch m := Mechanism(strings.ToLower(strings.TrimSpace(s))); m {
	case MechanismCDA, MechanismLMSR:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown mechanism %q", ErrInvalidConfig, s)
	}
}

// SignalConfig controls the public signal drawn at the start of each round.
type SignalConfig struct {
	// Enabled turns on per-round signals and belief updates.
	Enabled bool `mapstructure:"enabled" json:"enabled"`
	// Spec is the signal distribution.
	Spec belief.SignalSpec `mapstructure:"spec" json:"spec"`
	// Update is how agents fold the signal into their belief.
	Update belief.Update `mapstructure:"update" json:"update"`
}

// LMSRConfig configures the market-maker venue.
type LMSRConfig struct {
	// Liquidity is the b parameter; larger b moves the price less per share.
	Liquidity float64 `mapstructure:"liquidity" json:"liquidity"`
	// MinTradeSize skips trades smaller than this.
	MinTradeSize float64 `mapstructure:"min_trade_size" json:"min_trade_size"`
}

// Config holds configuration for one simulation run.
type Config struct {
	// Mechanism is the venue, cda or lmsr.
	Mechanism Mechanism `mapstructure:"mechanism" json:"mechanism"`
	// Seed drives every random draw; equal seeds give equal runs.
	Seed uint64 `mapstructure:"seed" json:"seed"`
	// GroundTruth is the true probability the claim pays out.
	GroundTruth float64 `mapstructure:"ground_truth" json:"ground_truth"`
	// NumAgents is the population size.
	NumAgents int `mapstructure:"n_agents" json:"n_agents"`
	// NumRounds caps the number of rounds.
	NumRounds int `mapstructure:"n_rounds" json:"n_rounds"`
	// InitialCash is every agent's starting cash.
	InitialCash float64 `mapstructure:"initial_cash" json:"initial_cash"`
	// Sigma is the spread of initial beliefs around GroundTruth.
	Sigma float64 `mapstructure:"sigma" json:"sigma"`
	// RhoValues are drawn uniformly per agent unless FixedRho is set.
	RhoValues []float64 `mapstructure:"rho_values" json:"rho_values"`
	// FixedRho > 0 gives every agent the same risk aversion.
	FixedRho float64 `mapstructure:"fixed_rho" json:"fixed_rho"`
	// ConvergenceTol is how close the price must sit to its target.
	ConvergenceTol float64 `mapstructure:"convergence_tol" json:"convergence_tol"`
	// StableRounds consecutive rounds within tolerance stop the run.
	StableRounds int `mapstructure:"stable_rounds" json:"stable_rounds"`
	// MaxIdleRounds consecutive rounds without volume stop the run.
	MaxIdleRounds int `mapstructure:"max_idle_rounds" json:"max_idle_rounds"`
	// ShuffleAgents randomizes the order agents act in each round.
	ShuffleAgents bool `mapstructure:"shuffle_agents" json:"shuffle_agents"`

	Book     core.Config     `mapstructure:"book" json:"book"`
	Strategy strategy.Config `mapstructure:"strategy" json:"strategy"`
	Signals  SignalConfig    `mapstructure:"signals" json:"signals"`
	LMSR     LMSRConfig      `mapstructure:"lmsr" json:"lmsr"`
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		Mechanism:      MechanismCDA,
		Seed:           42,
		GroundTruth:    0.70,
		NumAgents:      50,
		NumRounds:      500,
		InitialCash:    100,
		Sigma:          0.10,
		RhoValues:      []float64{0.5, 1.0, 2.0},
		ConvergenceTol: 1e-2,
		StableRounds:   5,
		MaxIdleRounds:  25,
		ShuffleAgents:  true,
		Book:           core.DefaultConfig(),
		Strategy:       strategy.DefaultConfig(),
		Signals: SignalConfig{
			Spec:   belief.DefaultSignalSpec(),
			Update: belief.DefaultUpdate(),
		},
		LMSR: LMSRConfig{
			Liquidity:    100,
			MinTradeSize: 1e-9,
		},
	}
}

// Validate checks that a run with c is well defined.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}
	if _, err := ParseMechanism(string(c.Mechanism)); err != nil {
		return err
	}
	switch {
	case c.NumAgents <= 0:
		return invalid("n_agents must be > 0, got %d", c.NumAgents)
	case c.NumRounds <= 0:
		return invalid("n_rounds must be > 0, got %d", c.NumRounds)
	case !(c.GroundTruth > 0 && c.GroundTruth < 1):
		return invalid("ground_truth must be in (0,1), got %v", c.GroundTruth)
	case c.Sigma < 0:
		return invalid("sigma must be >= 0, got %v", c.Sigma)
	case !(c.InitialCash > 0):
		return invalid("initial_cash must be > 0, got %v", c.InitialCash)
	case c.FixedRho < 0:
		return invalid("fixed_rho must be >= 0, got %v", c.FixedRho)
	case c.ConvergenceTol < 0:
		return invalid("convergence_tol must be >= 0, got %v", c.ConvergenceTol)
	case c.StableRounds < 1:
		return invalid("stable_rounds must be >= 1, got %d", c.StableRounds)
	case c.MaxIdleRounds < 1:
		return invalid("max_idle_rounds must be >= 1, got %d", c.MaxIdleRounds)
	}
	if c.FixedRho == 0 {
		if len(c.RhoValues) == 0 {
			return invalid("rho_values is empty and fixed_rho is unset")
		}
		for _, r := range c.RhoValues {
			if !(r > 0) {
				return invalid("rho values must be > 0, got %v", r)
			}
		}
	}
	if err := c.Strategy.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Signals.Enabled {
		if err := c.Signals.Spec.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		if err := c.Signals.Update.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	if c.Mechanism == MechanismLMSR && !(c.LMSR.Liquidity > 0) {
		return invalid("lmsr liquidity must be > 0, got %v", c.LMSR.Liquidity)
	}
	return nil
}

// minTradeSize is the volume below which a round counts as idle.
func (c Config) minTradeSize() float64 {
	if c.Mechanism == MechanismLMSR {
		return c.LMSR.MinTradeSize
	}
	return c.Strategy.MinTradeSize
}
