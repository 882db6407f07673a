package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	SessionTTLHours         int `env:"SESSION_TTL_HOURS" envDefault:"12"`
	RememberMeTTLHours      int `env:"REMEMBER_ME_TTL_HOURS" envDefault:"336"`
	SessionMaxLifetimeHours int `env:"SESSION_MAX_LIFETIME_HOURS" envDefault:"720"`

	QRTTLSeconds int `env:"QR_TTL_SECONDS" envDefault:"180"`

	LoginRateLimitPerMin int `env:"LOGIN_RATE_LIMIT_PER_MIN" envDefault:"5"`
	ScanRateLimitPerMin  int `env:"SCAN_RATE_LIMIT_PER_MIN" envDefault:"60"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLHours) * time.Hour
}

func (c *Config) RememberMeTTL() time.Duration {
	return time.Duration(c.RememberMeTTLHours) * time.Hour
}

func (c *Config) SessionMaxLifetime() time.Duration {
	return time.Duration(c.SessionMaxLifetimeHours) * time.Hour
}

func (c *Config) QRTTL() time.Duration {
	return time.Duration(c.QRTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.SessionTTLHours <= 0 {
		return fmt.Errorf("SESSION_TTL_HOURS must be positive")
	}
	if c.RememberMeTTLHours < c.SessionTTLHours {
		return fmt.Errorf("REMEMBER_ME_TTL_HOURS must be at least SESSION_TTL_HOURS")
	}
	if c.SessionMaxLifetimeHours < c.RememberMeTTLHours {
		return fmt.Errorf("SESSION_MAX_LIFETIME_HOURS must be at least REMEMBER_ME_TTL_HOURS")
	}
	if c.QRTTLSeconds <= 0 {
		return fmt.Errorf("QR_TTL_SECONDS must be positive")
	}

	if isProduction {
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
		if c.QRTTLSeconds > 600 {
			log.Warn().Int("seconds", c.QRTTLSeconds).Msg("QR_TTL_SECONDS is unusually long for production")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
