// Package logging configures the zerolog loggers used across parcel.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	EnvLogLevel   = "PARCEL_LOG_LEVEL"
	EnvLogFormat  = "PARCEL_LOG_FORMAT"
	EnvLogNoColor = "PARCEL_LOG_NOCOLOR"
)

// Formats
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config selects the level and output format
type Config struct {
	Level   string
	Format  string
	NoColor bool
	Output  io.Writer
}

// New builds a logger for app. Environment variables override cfg.
func New(app string, cfg Config) zerolog.Logger {
	applyEnvOverrides(&cfg)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != FormatJSON {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	level, ok := ParseLevel(cfg.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("app", app).Logger()
}

// Nop returns a logger that discards everything
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Format = strings.ToLower(v)
	}
	if v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(EnvLogNoColor))); err == nil {
		cfg.NoColor = v
	}
}

// ParseLevel maps a level name to a zerolog level
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
