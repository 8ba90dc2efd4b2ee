package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const (
	envPrefix = "MRELO_"
	envConfig = envPrefix + "CONFIG"
)

// sections are the nested keys reachable from flat env names, e.g.
// MRELO_OPTIMIZER_SEED -> optimizer.seed.
var sections = []string{"optimizer", "elo_params"} //nolint:gochecknoglobals // static key table

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if MRELO_CONFIG is set
//  3. env (prefix MRELO_)
func Load(ctx context.Context) (*Config, error) {
	return LoadWithFlags(ctx, "", nil)
}

// LoadWithFlags is Load with an explicit config file, which wins over
// MRELO_CONFIG, and explicitly set flags applied last. Flag names use
// dashes ("worker-count") and map to keys with underscores; the optimizer
// flags are accepted without their section ("population").
func LoadWithFlags(_ context.Context, path string, flags *pflag.FlagSet) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(envConfig)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if flags != nil {
		known := optimizerKeys()
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || f.Name == "config" {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := known[key]; ok {
				key = "optimizer." + key
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("%w: flags: %w", ErrLoadConfig, err)
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if s == "config" {
		return ""
	}
	for _, sec := range sections {
		if rest, ok := strings.CutPrefix(s, sec+"_"); ok {
			return sec + "." + rest
		}
	}
	return s
}

func optimizerKeys() map[string]struct{} {
	return map[string]struct{}{
		"population":        {},
		"parents":           {},
		"generations":       {},
		"crossover_rate":    {},
		"mutation_rate":     {},
		"parallelism":       {},
		"seed":              {},
		"stale_generations": {},
	}
}
