package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	RespawnImmediate = "immediate"
	RespawnBackoff   = "backoff"
)

var ErrInvalidSupervisorConfig = errors.New("invalid supervisor config")

// Supervisor mirrors process-manager.json.
type Supervisor struct {
	ProcessCount   int           `mapstructure:"processCount"`
	WorkingDir     string        `mapstructure:"workingDir"`
	Command        string        `mapstructure:"command"`
	CommandArgs    []string      `mapstructure:"commandArgs"`
	StaggerDelay   time.Duration `mapstructure:"staggerDelay"`
	RespawnPolicy  string        `mapstructure:"respawnPolicy"`
	BackoffInitial time.Duration `mapstructure:"backoffInitial"`
	BackoffMax     time.Duration `mapstructure:"backoffMax"`

	AppName  string `mapstructure:"appName"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"logLevel"`
}

// LoadSupervisor reads the supervisor file at path. Any key can be
// overridden with a SUPERVISOR_<KEY> environment variable.
func LoadSupervisor(path string) (Supervisor, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("SUPERVISOR")
	v.AutomaticEnv()

	v.SetDefault("staggerDelay", "100ms")
	v.SetDefault("respawnPolicy", RespawnImmediate)
	v.SetDefault("backoffInitial", "1s")
	v.SetDefault("backoffMax", "30s")
	v.SetDefault("appName", "gamelift-local")
	v.SetDefault("env", "development")
	v.SetDefault("logLevel", "info")

	if err := v.ReadInConfig(); err != nil {
		return Supervisor{}, fmt.Errorf("read supervisor config %s: %w", path, err)
	}

	var cfg Supervisor
	if err := v.Unmarshal(&cfg); err != nil {
		return Supervisor{}, fmt.Errorf("decode supervisor config: %w", err)
	}
	cfg.RespawnPolicy = strings.ToLower(strings.TrimSpace(cfg.RespawnPolicy))
	if err := cfg.Validate(); err != nil {
		return Supervisor{}, err
	}
	return cfg, nil
}

func (c Supervisor) Validate() error {
	switch {
	case c.ProcessCount <= 0:
		return fmt.Errorf("%w: processCount must be positive, got %d", ErrInvalidSupervisorConfig, c.ProcessCount)
	case strings.TrimSpace(c.Command) == "":
		return fmt.Errorf("%w: command is required", ErrInvalidSupervisorConfig)
	case c.StaggerDelay < 0:
		return fmt.Errorf("%w: staggerDelay must not be negative", ErrInvalidSupervisorConfig)
	}
	switch c.RespawnPolicy {
	case RespawnImmediate:
	case RespawnBackoff:
		if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
			return fmt.Errorf("%w: backoff needs 0 < backoffInitial <= backoffMax", ErrInvalidSupervisorConfig)
		}
	default:
		return fmt.Errorf("%w: unknown respawnPolicy %q", ErrInvalidSupervisorConfig, c.RespawnPolicy)
	}
	return nil
}
