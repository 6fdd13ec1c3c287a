package log

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds a console logger on stdout at the given level (debug, info, warn, error).
func New(level string) *zerolog.Logger {
	return NewWithWriter(level, os.Stdout)
}

// NewWithWriter is New with an explicit destination. The client binary logs
// to stderr so notices on stdout stay readable.
func NewWithWriter(level string, out io.Writer) *zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	logger := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &logger
}

// Named returns a child logger tagged with a component field.
func Named(base *zerolog.Logger, component string) *zerolog.Logger {
	logger := base.With().Str("component", component).Logger()
	return &logger
}

// ParseLevel maps a level name to zerolog; empty or unknown names mean info.
func ParseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
