package core

import (
	"fmt"
	"math"
)

// Config holds the price grid and numeric tolerances of a Book. Zero fields
// mean unset and take their DefaultConfig value, so InitialReferencePrice
// cannot be configured as 0.
type Config struct {
	TickSize              float64 `mapstructure:"tick_size" json:"tick_size"`
	MinPrice              float64 `mapstructure:"min_price" json:"min_price"`
	MaxPrice              float64 `mapstructure:"max_price" json:"max_price"`
	InitialReferencePrice float64 `mapstructure:"initial_price" json:"initial_price"`
	Epsilon               float64 `mapstructure:"epsilon" json:"epsilon"`
}

// DefaultConfig returns a config for a probability-priced binary claim.
func DefaultConfig() Config {
	return Config{
		TickSize:              1e-4,
		MinPrice:              0.001,
		MaxPrice:              0.999,
		InitialReferencePrice: 0.5,
		Epsilon:               1e-12,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickSize == 0 {
		c.TickSize = def.TickSize
	}
	if c.MinPrice == 0 && c.MaxPrice == 0 {
		c.MinPrice, c.MaxPrice = def.MinPrice, def.MaxPrice
	}
	if c.InitialReferencePrice == 0 {
		c.InitialReferencePrice = def.InitialReferencePrice
	}
	if c.Epsilon == 0 {
		c.Epsilon = def.Epsilon
	}
	return c
}

// Validate checks the grid is usable.
func (c Config) Validate() error {
	switch {
	case !(c.TickSize > 0) || math.IsInf(c.TickSize, 0):
		return fmt.Errorf("%w: tick size %v", ErrInvalidConfig, c.TickSize)
	case !(c.MinPrice < c.MaxPrice):
		return fmt.Errorf("%w: min price %v not below max price %v", ErrInvalidConfig, c.MinPrice, c.MaxPrice)
	case c.MaxPrice-c.MinPrice < c.TickSize:
		return fmt.Errorf("%w: price band narrower than one tick", ErrInvalidConfig)
	case c.Epsilon < 0:
		return fmt.Errorf("%w: negative epsilon", ErrInvalidConfig)
	}
	return nil
}
