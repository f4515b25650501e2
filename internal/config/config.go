package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/roach88/walkthrough/internal/engine"
)

// Config holds environment-provided defaults.
type Config struct {
	Format  string `env:"WALKTHROUGH_FORMAT" envDefault:"text"`
	Speed   Speed  `env:"WALKTHROUGH_SPEED"` // Zero when unset
	Verbose bool   `env:"WALKTHROUGH_VERBOSE"`
	LogFile string `env:"WALKTHROUGH_LOG_FILE"`
}

// Speed is a playback multiplier accepting the same forms as --speed ("2", "2x").
type Speed float64

// IsSet reports whether WALKTHROUGH_SPEED was provided.
func (s Speed) IsSet() bool {
	return s > 0
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Speed) UnmarshalText(text []byte) error {
	v, err := engine.ParseSpeed(string(text))
	if err != nil {
		return err
	}
	*s = Speed(v)
	return nil
}

// String renders the multiplier as "2x".
func (s Speed) String() string {
	return engine.FormatSpeed(float64(s))
}

// Load reads the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Format != "text" && cfg.Format != "json" {
		return Config{}, fmt.Errorf("parse env: WALKTHROUGH_FORMAT must be text or json, got %q", cfg.Format)
	}
	return cfg, nil
}
