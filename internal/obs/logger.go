// Package obs wires structured logging for the corpus engine. Per
// spec.md §6, stdout is reserved strictly for the stdio JSON-RPC
// transport; every logger returned from this package writes to stderr.
package obs

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/corpuserr"
)

// New builds the process-wide logger. human=true renders a
// zerolog.ConsoleWriter (for interactive CLI use); human=false emits raw
// JSON lines (for production/ingestion into log aggregation).
func New(human bool) zerolog.Logger {
	var w io.Writer = os.Stderr
	if human {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// LogError logs a *corpuserr.Error at error level with its category as a
// structured field, or falls back to a generic internal-error log line
// for an unwrapped error.
func LogError(log zerolog.Logger, op string, err error) {
	if cerr, ok := corpuserr.As(err); ok {
		log.Error().
			Str("op", op).
			Str("category", string(cerr.Cat)).
			Interface("details", cerr.Details).
			Err(err).
			Msg(cerr.Message)
		return
	}
	log.Error().Str("op", op).Err(err).Msg("unclassified error")
}
