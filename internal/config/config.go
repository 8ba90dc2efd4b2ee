// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() builds a Config with defaults; Load layers file, env and flags on top.
// - Validate reports problems wrapped in ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"

	"github.com/okian/mrelo/internal/domain/elo"
	"github.com/okian/mrelo/internal/domain/params"
	"github.com/okian/mrelo/internal/domain/optimizer"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory match queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of rating workers. Ratings depend on
	// match order, so anything above 1 trades determinism for throughput.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the match ID deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps the limit query parameter.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DBPath is the SQLite file holding rated matches and imported games.
	// Empty disables match history.
	DBPath string `koanf:"db_path"`

	// EloParams overrides single entries of the default parameter set,
	// keyed by name ("k_start") or gene index ("5").
	EloParams map[string]float64 `koanf:"elo_params"`

	// MOVMethod selects the margin of victory scaling: log or exp.
	MOVMethod string `koanf:"mov_method"`

	// Optimizer holds the tuner settings.
	Optimizer OptimizerConfig `koanf:"optimizer"`
}

// OptimizerConfig configures parameter fitting.
type OptimizerConfig struct {
	Population       int     `koanf:"population"`
	Parents          int     `koanf:"parents"`
	Generations      int     `koanf:"generations"`
	CrossoverRate    float64 `koanf:"crossover_rate"`
	MutationRate     float64 `koanf:"mutation_rate"`
	Parallelism      int     `koanf:"parallelism"`
	Seed             uint64  `koanf:"seed"`
	StaleGenerations int     `koanf:"stale_generations"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		EventQueueSize:      10_000,
		WorkerCount:         1,
		DedupeSize:          50_000,
		MaxLeaderboardLimit: 100,
		DBPath:              "mrelo.db",
		MOVMethod:           elo.MOVLog.String(),
		Optimizer: OptimizerConfig{
			Population:       optimizer.DefaultPopulation,
			Parents:          optimizer.DefaultParents,
			Generations:      optimizer.DefaultGenerations,
			CrossoverRate:    optimizer.DefaultCrossoverRate,
			MutationRate:     optimizer.DefaultMutationRate,
			Parallelism:      optimizer.DefaultParallelism,
			StaleGenerations: 50,
		},
	}
}

// Params returns the default parameter set with EloParams applied on top.
func (c *Config) Params() (params.Set, error) {
	set := params.Defaults()
	if len(c.EloParams) == 0 {
		return set, nil
	}
	overrides, err := params.Parse(c.EloParams)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for p, v := range overrides {
		set[p] = v
	}
	return set, nil
}

// Method parses MOVMethod.
func (c *Config) Method() (elo.Method, error) {
	m, err := elo.ParseMethod(c.MOVMethod)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return m, nil
}

// Validate checks values the service cannot start with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if _, err := c.Method(); err != nil {
		return err
	}
	set, err := c.Params()
	if err != nil {
		return err
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}
