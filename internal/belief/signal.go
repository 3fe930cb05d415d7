package belief

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

var ErrUnknownMode = errors.New("unknown signal mode")

// Mode selects the distribution of the public signal.
type Mode string

const (
	// ModeBernoulli draws 1 with probability p*, else 0.
	ModeBernoulli Mode = "bernoulli"
	// ModeBinomial draws k ~ Binomial(n, p*) and reports k/n.
	ModeBinomial Mode = "binomial"
	// ModeGaussian draws N(p*, sigma) clipped to [Low, High].
	ModeGaussian Mode = "gaussian"
)

// ParseMode accepts bernoulli, binomial or gaussian.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeBernoulli, ModeBinomial, ModeGaussian:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// SignalSpec describes how the round's public signal is drawn.
type SignalSpec struct {
	Mode  Mode    `mapstructure:"mode" json:"mode"`
	N     int     `mapstructure:"n" json:"n"`
	Sigma float64 `mapstructure:"sigma" json:"sigma"`
	Low   float64 `mapstructure:"low" json:"low"`
	High  float64 `mapstructure:"high" json:"high"`
}

// DefaultSignalSpec is a 25-draw binomial signal.
func DefaultSignalSpec() SignalSpec {
	return SignalSpec{
		Mode:  ModeBinomial,
		N:     25,
		Sigma: 0.08,
		Low:   ProbLow,
		High:  ProbHigh,
	}
}

// Validate rejects unknown modes.
func (s SignalSpec) Validate() error {
	if _, err := ParseMode(string(s.Mode)); err != nil {
		return err
	}
	if s.Mode == ModeGaussian && !(s.Low < s.High) {
		return fmt.Errorf("signal bounds [%v, %v] are empty", s.Low, s.High)
	}
	return nil
}

// Generate draws one signal about groundTruth.
func (s SignalSpec) Generate(groundTruth float64, rng *rand.Rand) (float64, error) {
	switch s.Mode {
	case ModeBernoulli:
		if rng.Float64() < groundTruth {
			return 1, nil
		}
		return 0, nil
	case ModeBinomial:
		n := max(s.N, 1)
		k := 0
		for range n {
			if rng.Float64() < groundTruth {
				k++
			}
		}
		return float64(k) / float64(n), nil
	case ModeGaussian:
		return Clip(groundTruth+s.Sigma*rng.NormFloat64(), s.Low, s.High), nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s.Mode)
	}
}
