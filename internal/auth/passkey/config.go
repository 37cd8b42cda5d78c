package passkey

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/louisbranch/crossing.space/internal/platform/branding"
)

// Config controls WebAuthn relying party settings.
type Config struct {
	RPDisplayName   string        `env:"CROSSING_SPACE_WEBAUTHN_RP_DISPLAY_NAME"`
	RPID            string        `env:"CROSSING_SPACE_WEBAUTHN_RP_ID"             envDefault:"localhost"`
	RPOrigins       []string      `env:"CROSSING_SPACE_WEBAUTHN_RP_ORIGINS"        envSeparator:","`
	ChallengeTTL    time.Duration `env:"CROSSING_SPACE_WEBAUTHN_CHALLENGE_TTL"     envDefault:"5m"`
	StrictSignCount bool          `env:"CROSSING_SPACE_WEBAUTHN_STRICT_SIGN_COUNT" envDefault:"false"`
}

// LoadConfigFromEnv returns passkey configuration with defaults.
func LoadConfigFromEnv() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		// Parse sets every field it could read; repair only the broken ones.
		if cfg.RPID == "" {
			cfg.RPID = "localhost"
		}
		if cfg.ChallengeTTL <= 0 {
			cfg.ChallengeTTL = 5 * time.Minute
		}
	}
	if cfg.RPDisplayName == "" {
		cfg.RPDisplayName = branding.AppName
	}
	if len(cfg.RPOrigins) == 0 {
		cfg.RPOrigins = []string{"http://localhost:8086"}
	}
	return cfg
}
