package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains the coordinator runtime settings. Empty backing-service
// addresses disable the matching integration.
type Config struct {
	AppName     string `env:"APP_NAME" envDefault:"gamelift-local"`
	ServiceName string
	Env         string `env:"APP_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"PORT" envDefault:"9001"`

	// PublicIPAddress is advertised to workers and clients as the game session address.
	PublicIPAddress string `env:"PUBLIC_IP_ADDRESS" envDefault:"localhost"`

	PostgresURL string `env:"POSTGRES_URL"`
	RedisAddr   string `env:"REDIS_ADDR"`
	NATSURL     string `env:"NATS_URL"`

	EventBuffer     int           `env:"EVENT_BUFFER" envDefault:"256"`
	PresenceTTL     time.Duration `env:"PRESENCE_TTL" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from environment variables.
func Load(serviceName string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.ServiceName = serviceName
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		return Config{}, fmt.Errorf("invalid PORT: %d", cfg.HTTPPort)
	}
	if cfg.EventBuffer <= 0 {
		return Config{}, fmt.Errorf("invalid EVENT_BUFFER: %d", cfg.EventBuffer)
	}
	return cfg, nil
}
