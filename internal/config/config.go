// Package config defines service configuration structures and loading.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors are wrapped via this package's sentinel kinds.
package config

import (
	"github.com/okian/scorecard/internal/domain/scoring"
	"github.com/okian/scorecard/internal/domain/timeutil"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// DisplayOffsetMinutes fixes the UTC offset used for display
	// timestamps; dashboards render IST regardless of server locale.
	DisplayOffsetMinutes int `koanf:"display_offset_minutes"`

	// Demo seeds the in-memory store and runs the task simulator.
	Demo bool `koanf:"demo"`

	// DemoTickMS is the simulator mutation interval.
	DemoTickMS int `koanf:"demo_tick_ms"`

	// Weights are the composite score multipliers.
	Weights scoring.Weights `koanf:"weights"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9090",
		MaxLeaderboardLimit:  100,
		DisplayOffsetMinutes: timeutil.DefaultOffsetMinutes,
		Demo:                 false,
		DemoTickMS:           2000,
		Weights:              scoring.DefaultWeights(),
	}
}
