// Package logger builds the zerolog loggers used across the application.
package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to stdout, tagged with a role field
// ("app", "syncd") so the two binaries' logs can be told apart.
func New(role string) zerolog.Logger {
	return zerolog.New(os.Stdout).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("role", role).
		Logger()
}

// NewWriter is New with an explicit sink; tests pass io.Discard or a buffer.
func NewWriter(w io.Writer, role string) zerolog.Logger {
	return zerolog.New(w).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Str("role", role).
		Logger()
}
