// Package belief generates public signals about the claim's true probability
// and folds them into agent beliefs.
package belief

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrUnknownMethod   = errors.New("unknown belief update method")
	ErrInvalidWeight   = errors.New("belief weight must be in [0,1]")
	ErrInvalidStrength = errors.New("prior and observation strength must be > 0")
)

const (
	// ProbLow and ProbHigh bound every belief and gaussian signal.
	ProbLow  = 0.01
	ProbHigh = 0.99
)

// Clip bounds p to [lo, hi].
func Clip(p, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, p))
}

// ClipProb bounds p to [ProbLow, ProbHigh].
func ClipProb(p float64) float64 { return Clip(p, ProbLow, ProbHigh) }

// Method selects how a signal moves a belief.
type Method string

const (
	MethodWeighted Method = "weighted"
	MethodBeta     Method = "beta"
)

// ParseMethod accepts "weighted" or "beta".
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case MethodWeighted, MethodBeta:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Weighted returns (1-w)*prior + w*signal, clipped.
func Weighted(prior, signal, w float64) (float64, error) {
	if !(w >= 0 && w <= 1) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidWeight, w)
	}
	return ClipProb((1-w)*prior + w*signal), nil
}

// Beta treats the prior as Beta(p*n0, (1-p)*n0) and the signal as k = s*n1
// successes out of n1 pseudo-observations; it returns the posterior mean.
func Beta(prior, signal, priorStrength, obsStrength float64) (float64, error) {
	if !(priorStrength > 0) || !(obsStrength > 0) {
		return 0, fmt.Errorf("%w: prior=%v obs=%v", ErrInvalidStrength, priorStrength, obsStrength)
	}
	p := ClipProb(prior)
	s := ClipProb(signal)

	alpha := p*priorStrength + s*obsStrength
	beta := (1-p)*priorStrength + (obsStrength - s*obsStrength)
	return ClipProb(alpha / (alpha + beta)), nil
}

// Update configures a belief update rule.
type Update struct {
	Method        Method  `mapstructure:"method" json:"method"`
	Weight        float64 `mapstructure:"weight" json:"weight"`
	PriorStrength float64 `mapstructure:"prior_strength" json:"prior_strength"`
	ObsStrength   float64 `mapstructure:"obs_strength" json:"obs_strength"`
}

// DefaultUpdate is the pseudo-count rule with a prior worth 20 observations
// and a signal worth 5.
func DefaultUpdate() Update {
	return Update{
		Method:        MethodBeta,
		Weight:        0.10,
		PriorStrength: 20,
		ObsStrength:   5,
	}
}

// Validate checks the parameters the selected method uses.
func (u Update) Validate() error {
	switch u.Method {
	case MethodWeighted:
		if !(u.Weight >= 0 && u.Weight <= 1) {
			return fmt.Errorf("%w: %v", ErrInvalidWeight, u.Weight)
		}
	case MethodBeta:
		if !(u.PriorStrength > 0) || !(u.ObsStrength > 0) {
			return fmt.Errorf("%w: prior=%v obs=%v", ErrInvalidStrength, u.PriorStrength, u.ObsStrength)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, u.Method)
	}
	return nil
}

// Apply returns the belief after observing signal.
func (u Update) Apply(prior, signal float64) (float64, error) {
	switch u.Method {
	case MethodWeighted:
		return Weighted(prior, signal, u.Weight)
	case MethodBeta:
		return Beta(prior, signal, u.PriorStrength, u.ObsStrength)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, u.Method)
	}
}
