package strategy

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/zappabad/cdamarket/internal/belief"
	"github.com/zappabad/cdamarket/internal/orderbook/core"
	"github.com/zappabad/cdamarket/internal/trader"
)

var ErrUnknownPolicy = errors.New("unknown order policy")

// Policy decides between resting and crossing orders.
type Policy string

const (
	// PolicyLimit always quotes a limit order around the belief.
	PolicyLimit Policy = "limit"
	// PolicyMarket always crosses the spread.
	PolicyMarket Policy = "market"
	// PolicyHybrid crosses only when the belief is through the opposite
	// quote and far enough from the reference price.
	PolicyHybrid Policy = "hybrid"
)

// ParsePolicy accepts limit, market or hybrid.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyLimit, PolicyMarket, PolicyHybrid:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// Config holds the CRRA order policy parameters.
type Config struct {
	Policy          Policy  `mapstructure:"order_policy" json:"order_policy"`
	LimitOffset     float64 `mapstructure:"limit_offset" json:"limit_offset"`
	MarketOrderEdge float64 `mapstructure:"market_order_edge" json:"market_order_edge"`
	MinTradeSize    float64 `mapstructure:"min_trade_size" json:"min_trade_size"`
	MinQuote        float64 `mapstructure:"min_quote" json:"min_quote"`
	MaxQuote        float64 `mapstructure:"max_quote" json:"max_quote"`
}

// DefaultConfig returns the hybrid policy quoting one cent inside the belief.
func DefaultConfig() Config {
	return Config{
		Policy:          PolicyHybrid,
		LimitOffset:     0.01,
		MarketOrderEdge: 0.08,
		MinTradeSize:    1e-6,
		MinQuote:        0.001,
		MaxQuote:        0.999,
	}
}

// Validate rejects unknown policies and negative parameters.
func (c Config) Validate() error {
	if _, err := ParsePolicy(string(c.Policy)); err != nil {
		return err
	}
	if c.LimitOffset < 0 || c.MarketOrderEdge < 0 || c.MinTradeSize < 0 {
		return fmt.Errorf("negative policy parameter: offset=%v edge=%v min=%v",
			c.LimitOffset, c.MarketOrderEdge, c.MinTradeSize)
	}
	if !(c.MinQuote < c.MaxQuote) {
		return fmt.Errorf("quote bounds [%v, %v] are empty", c.MinQuote, c.MaxQuote)
	}
	return nil
}

// CRRA sizes orders from the agent's optimal trade at the reference price.
type CRRA struct {
	cfg Config
}

// NewCRRA creates a CRRA strategy.
func NewCRRA(cfg Config) (*CRRA, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &CRRA{cfg: cfg}, nil
}

// Step implements Strategy.
func (s *CRRA) Step(a *trader.Agent, q Quote) (trader.OrderIntent, bool) {
	x := a.OptimalTrade(q.Reference)
	if math.Abs(x) < s.cfg.MinTradeSize {
		return trader.OrderIntent{}, false
	}
	side := core.SideBuy
	if x < 0 {
		side = core.SideSell
	}
	target := math.Abs(x)

	if s.crosses(a, side, q) {
		// worst-case fill price for the collateral check
		risk := 1.0
		if side == core.SideSell {
			risk = 0.0
		}
		qty := a.ClipQuantity(side, target, risk)
		if qty < s.cfg.MinTradeSize {
			return trader.OrderIntent{}, false
		}
		return trader.OrderIntent{Kind: core.OrderKindMarket, Side: side, Quantity: qty}, true
	}

	limit := a.Belief - s.cfg.LimitOffset
	if side == core.SideSell {
		limit = a.Belief + s.cfg.LimitOffset
	}
	limit = belief.Clip(limit, s.cfg.MinQuote, s.cfg.MaxQuote)

	qty := a.ClipQuantity(side, target, limit)
	if qty < s.cfg.MinTradeSize {
		return trader.OrderIntent{}, false
	}
	return trader.OrderIntent{Kind: core.OrderKindLimit, Side: side, Quantity: qty, LimitPrice: limit}, true
}

func (s *CRRA) crosses(a *trader.Agent, side core.Side, q Quote) bool {
	switch s.cfg.Policy {
	case PolicyMarket:
		return true
	case PolicyHybrid:
		edge := math.Abs(a.Belief - q.Reference)
		if edge < s.cfg.MarketOrderEdge {
			return false
		}
		if side == core.SideBuy {
			return q.HasAsk && a.Belief >= q.BestAsk
		}
		return q.HasBid && a.Belief <= q.BestBid
	default:
		return false
	}
}
