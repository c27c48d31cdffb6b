// Package observability provides logger setup and formatted CLI output.
package observability

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates a timestamped logger writing to stdout, human-readable
// when console is set and JSON otherwise. An empty level means info.
func NewLogger(level string, console bool) (zerolog.Logger, error) {
	return newLogger(os.Stdout, level, console)
}

func newLogger(out io.Writer, level string, console bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(level)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger(), nil
}
