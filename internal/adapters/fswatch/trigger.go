package fswatch

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ingestgraph/corpus/internal/domain/ports"
)

// ScanFunc scans one candidate path and reports a short outcome string
// for logging (usecases.Orchestrator.ScanPath, adapted to avoid this
// adapter importing the usecases package directly).
type ScanFunc func(ctx context.Context, path string) (outcome string, err error)

// Run drains watch events and scans each created or modified path via
// scan, logging the outcome. Deletions are not retracted from the corpus
// (spec.md has no "unscan" operation); Run only logs them.
func Run(ctx context.Context, events <-chan ports.FileEvent, scan ScanFunc, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Operation == ports.FileDeleted {
				log.Debug().Str("path", ev.Path).Msg("watch saw deletion, no action taken")
				continue
			}
			outcome, err := scan(ctx, ev.Path)
			if err != nil {
				log.Warn().Err(err).Str("path", ev.Path).Msg("scan on watch event failed")
				continue
			}
			log.Info().Str("path", ev.Path).Str("outcome", outcome).Msg("watch-triggered scan")
		}
	}
}
