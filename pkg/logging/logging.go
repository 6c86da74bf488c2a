package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a zerolog logger pre-configured with app and service metadata.
// Unknown or empty levels fall back to info.
func New(appName, serviceName, env, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, appName, serviceName, env, level)
}

func NewWithWriter(out io.Writer, appName, serviceName, env, level string) zerolog.Logger {
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Str("app", appName).
		Str("service", serviceName).
		Str("env", env).
		Logger()

	return logger
}

func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
