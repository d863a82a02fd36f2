package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if SCORECARD_CONFIG is set
//  3. env (prefix SCORECARD_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("SCORECARD_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Env keys map SCORECARD_MAX_LEADERBOARD_LIMIT -> max_leaderboard_limit.
	// Underscores are preserved to match the koanf tags; nested weight keys
	// use double underscores, e.g. SCORECARD_WEIGHTS__ON_TIME.
	envProvider := env.Provider("SCORECARD_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "scorecard_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	if cfg.DemoTickMS < 1 {
		return fmt.Errorf("%w: demo_tick_ms must be positive", ErrInvalidConfig)
	}
	for name, w := range map[string]float64{
		"productivity": cfg.Weights.Productivity,
		"completion":   cfg.Weights.Completion,
		"on_time":      cfg.Weights.OnTime,
		"review":       cfg.Weights.Review,
		"hr_feedback":  cfg.Weights.HRFeedback,
	} {
		if w < 0 {
			return fmt.Errorf("%w: weight %s must not be negative", ErrInvalidConfig, name)
		}
	}
	return nil
}
