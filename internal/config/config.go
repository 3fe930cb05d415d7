// Package config layers simulation settings from defaults, an optional YAML
// file, CDA_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/segmentio/encoding/json"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/zappabad/cdamarket/internal/simulation"
)

// EnvPrefix prefixes every environment override, e.g. CDA_N_AGENTS or
// CDA_BOOK_TICK_SIZE.
const EnvPrefix = "CDA"

// Output controls run artifacts.
type Output struct {
	// Dir is where artifacts are written; empty disables export.
	Dir string `mapstructure:"dir" json:"dir"`
	// Name is the artifact base name; empty uses the run id.
	Name string `mapstructure:"name" json:"name"`
}

// Log controls the process logger.
type Log struct {
	Level string `mapstructure:"level" json:"level"`
	// File, when set, receives log output instead of stderr.
	File string `mapstructure:"file" json:"file"`
}

// Settings is everything an entry point needs.
type Settings struct {
	simulation.Config `mapstructure:",squash"`

	Sweep  simulation.SweepConfig `mapstructure:"sweep" json:"sweep"`
	Output Output                 `mapstructure:"output" json:"output"`
	Log    Log                    `mapstructure:"log" json:"log"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Config: simulation.DefaultConfig(),
		Sweep:  simulation.SweepConfig{Seeds: 5},
		Log:    Log{Level: "info"},
	}
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"mechanism":     "mechanism",
	"seed":          "seed",
	"ground-truth":  "ground_truth",
	"agents":        "n_agents",
	"rounds":        "n_rounds",
	"cash":          "initial_cash",
	"sigma":         "sigma",
	"rho":           "rho_values",
	"fixed-rho":     "fixed_rho",
	"tol":           "convergence_tol",
	"stable-rounds": "stable_rounds",
	"max-idle":      "max_idle_rounds",
	"shuffle":       "shuffle_agents",
	"tick":          "book.tick_size",
	"policy":        "strategy.order_policy",
	"signals":       "signals.enabled",
	"signal-mode":   "signals.spec.mode",
	"belief-update": "signals.update.method",
	"liquidity":     "lmsr.liquidity",
	"sweep-rho":     "sweep.rho_values",
	"sweep-seeds":   "sweep.seeds",
	"sweep-workers": "sweep.workers",
	"out":           "output.dir",
	"name":          "output.name",
	"log-level":     "log.level",
	"log-file":      "log.file",
}

// RegisterFlags defines the flags Load understands on fs. Flag defaults
// only document; unset flags never override file or environment values.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("config", "", "path to a YAML config file")
	fs.String("mechanism", string(d.Mechanism), "pricing venue: cda or lmsr")
	fs.Uint64("seed", d.Seed, "random seed")
	fs.Float64("ground-truth", d.GroundTruth, "true probability of the claim")
	fs.Int("agents", d.NumAgents, "number of agents")
	fs.Int("rounds", d.NumRounds, "maximum number of rounds")
	fs.Float64("cash", d.InitialCash, "initial cash per agent")
	fs.Float64("sigma", d.Sigma, "spread of initial beliefs")
	fs.StringSlice("rho", formatFloats(d.RhoValues), "risk aversion values drawn per agent")
	fs.Float64("fixed-rho", d.FixedRho, "give every agent this risk aversion (0 = draw from --rho)")
	fs.Float64("tol", d.ConvergenceTol, "convergence tolerance")
	fs.Int("stable-rounds", d.StableRounds, "rounds within tolerance before stopping")
	fs.Int("max-idle", d.MaxIdleRounds, "rounds without volume before stopping")
	fs.Bool("shuffle", d.ShuffleAgents, "shuffle agent order every round")
	fs.Float64("tick", d.Book.TickSize, "order book tick size")
	fs.String("policy", string(d.Strategy.Policy), "order policy: limit, market or hybrid")
	fs.Bool("signals", d.Signals.Enabled, "draw a public signal every round")
	fs.String("signal-mode", string(d.Signals.Spec.Mode), "signal distribution: bernoulli, binomial or gaussian")
	fs.String("belief-update", string(d.Signals.Update.Method), "belief update: weighted or beta")
	fs.Float64("liquidity", d.LMSR.Liquidity, "LMSR liquidity parameter b")
	fs.StringSlice("sweep-rho", nil, "run a risk aversion sweep over these values")
	fs.Int("sweep-seeds", 5, "runs per rho in a sweep")
	fs.Int("sweep-workers", 0, "concurrent sweep runs (0 = GOMAXPROCS)")
	fs.String("out", "", "directory for run artifacts")
	fs.String("name", "", "artifact base name")
	fs.String("log-level", d.Log.Level, "log level")
	fs.String("log-file", "", "write logs to this file")
}

// Load builds Settings from defaults, then path (if non-empty), then the
// environment, then any flags on fs that were set. fs may be nil.
func Load(path string, fs *pflag.FlagSet) (Settings, error) {
	v := viper.New()
	if err := setDefaults(v, Default()); err != nil {
		return Settings{}, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Settings{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := s.Config.Validate(); err != nil {
		return Settings{}, err
	}
	if len(s.Sweep.RhoValues) > 0 && s.Sweep.Seeds <= 0 {
		return Settings{}, fmt.Errorf("%w: sweep.seeds must be > 0 when sweep.rho_values is set", simulation.ErrInvalidConfig)
	}
	return s, nil
}

// setDefaults registers every leaf of d so environment variables can
// override keys that no file mentions.
func setDefaults(v *viper.Viper, d Settings) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return fmt.Errorf("decode defaults: %w", err)
	}
	walkDefaults(v, "", tree)
	return nil
}

func walkDefaults(v *viper.Viper, prefix string, tree map[string]any) {
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := val.(map[string]any); ok {
			walkDefaults(v, key, sub)
			continue
		}
		v.SetDefault(key, val)
	}
}

func formatFloats(xs []float64) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = fmt.Sprint(x)
	}
	return out
}
