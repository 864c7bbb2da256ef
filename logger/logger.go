package logger

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// New creates a zerolog logger writing to out.
// Supports console/json format and level names as zerolog parses them ("debug", "info", ...).
func New(logLevel string, logFormat string, out io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	writer := out
	switch logFormat {
	case "json":
	case "", "console":
		writer = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (want console or json)", logFormat)
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}
