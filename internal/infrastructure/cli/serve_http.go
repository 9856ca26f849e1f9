package cli

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ingestgraph/corpus/internal/adapters/fswatch"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
	"github.com/ingestgraph/corpus/internal/infrastructure/httpapi"
	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

func newServeHTTPCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve-http",
		Short: "Run the HTTP tool transport",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := buildLogger(v)
			sess := buildSession(v)
			deps := buildDeps(v, log)
			registry := tools.NewRegistry(deps)

			ctx, cancel := rootContext()
			defer cancel()

			if watchDir := v.GetString("watch-dir"); watchDir != "" {
				startWatcher(ctx, sess, deps, watchDir, log)
			}

			server := httpapi.NewServer(registry, sess, deps.Clock, log, v.GetString("addr"))
			return server.Start(ctx)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("watch-dir", "", "optional directory to watch for new files and auto-ingest into the selected database")
	v.BindPFlags(cmd.Flags())
	return cmd
}

// startWatcher feeds fswatch events into Orchestrator.ScanPath for
// whichever database is selected at the time each event arrives
// (spec.md §4.3's manual ingest_directory tool, made automatic). It
// builds a fresh Orchestrator per event rather than caching one, the same
// per-call rebuild tools.Deps.services uses, so a database switch between
// events is always honored.
func startWatcher(ctx context.Context, sess *usecases.Session, deps tools.Deps, dir string, log zerolog.Logger) {
	w, err := fswatch.New(nil)
	if err != nil {
		log.Warn().Err(err).Msg("cli: failed to start file watcher")
		return
	}
	events, err := w.Watch(ctx, dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("cli: failed to watch directory")
		return
	}
	go func() {
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				store, _, cerr := sess.CurrentDatabase()
				if cerr != nil {
					continue
				}
				prov := usecases.NewProvenanceService(store, deps.Clock)
				clustering := usecases.NewClusteringService(store, deps.Embed, prov, deps.Clock, log)
				orch := usecases.NewOrchestrator(store, prov, deps.OCR, deps.Embed, deps.Vision, deps.Extractors, deps.ImagesDir, deps.Clock, log, clustering)
				if _, err := orch.ScanPath(ctx, ev.Path); err != nil {
					log.Warn().Err(err).Str("path", ev.Path).Msg("cli: watch-triggered ingest failed")
				}
			}
		}
	}()
}
