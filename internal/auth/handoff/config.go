package handoff

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config controls handoff token issuance.
type Config struct {
	Secret string        `env:"CROSSING_SPACE_HANDOFF_SECRET"`
	MaxAge time.Duration `env:"CROSSING_SPACE_HANDOFF_MAX_AGE" envDefault:"5m"`
}

// LoadConfigFromEnv returns handoff configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	_ = env.Parse(&cfg)
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Minute
	}
	return cfg
}
