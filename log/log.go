// Package log provides the structured logger shared by the manager, WAL,
// and snapshot store: one zerolog.Logger per component, tagged by name,
// honoring DEBUG=1 and PRETTY=1 the way the engine's operators expect.
package log

import (
	"os"

	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.TimestampFieldName = "time"
}

// New returns a logger tagged with component, writing structured JSON to
// stdout (or a human-readable console writer when PRETTY=1) at Info level
// (or Debug when DEBUG=1).
func New(component string) zerolog.Logger {
	var out zerolog.ConsoleWriter
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", component).Logger()

	if os.Getenv("PRETTY") == "1" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
		logger = logger.Output(out)
	}
	if os.Getenv("DEBUG") == "1" {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}
