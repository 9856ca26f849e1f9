// Package cli implements the cobra/viper command-line entrypoint of
// spec.md §6. The teacher has no CLI at all (it is a server-only repo),
// so the subcommand shape here follows cobra's own documented root +
// subcommand pattern rather than any one example's file, with flag/env
// binding done through viper the way the pack's
// mvp-joe-project-cortex-style manifest pairs the two libraries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ingestgraph/corpus/internal/adapters/clock"
	"github.com/ingestgraph/corpus/internal/adapters/embedding"
	"github.com/ingestgraph/corpus/internal/adapters/extractor"
	"github.com/ingestgraph/corpus/internal/adapters/ocr"
	"github.com/ingestgraph/corpus/internal/adapters/storage/sqlite"
	"github.com/ingestgraph/corpus/internal/adapters/vision"
	"github.com/ingestgraph/corpus/internal/domain/ports"
	"github.com/ingestgraph/corpus/internal/domain/usecases"
	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

// Execute builds and runs the corpusd root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "corpusd",
		Short: "Content-addressed document corpus service",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("storage-path", "./data", "root directory for database files")
	flags.Int("vector-dim", 768, "embedding vector dimension")
	flags.String("ocr-url", "http://localhost:8100", "OCR service base URL")
	flags.String("embed-url", "http://localhost:11434", "embedding service base URL")
	flags.String("embed-model", "nomic-embed-text", "embedding model name")
	flags.String("vision-url", "http://localhost:11434", "vision model service base URL")
	flags.String("vision-model", "llava", "vision model name")
	flags.String("pdf-extractor-url", "", "optional external PDF image extractor service URL")
	flags.String("log-level", "info", "zerolog level: debug|info|warn|error")

	v.BindPFlags(flags)
	v.SetEnvPrefix("CORPUSD")
	v.AutomaticEnv()

	root.AddCommand(newServeStdioCmd(v))
	root.AddCommand(newServeHTTPCmd(v))
	root.AddCommand(newToolsCmd(v))

	return root
}

// buildLogger returns a stderr-only zerolog.Logger at the configured
// level: stdout is reserved for the stdio transport's protocol stream,
// so every diagnostic — even for the HTTP transport, which has no such
// constraint — goes to stderr for consistency across transports.
func buildLogger(v *viper.Viper) zerolog.Logger {
	level, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
}

// buildDeps wires every external adapter the registry needs, following
// the teacher's NewServer constructor: adapters are built once at process
// start from flags/env, independent of which database gets selected later.
func buildDeps(v *viper.Viper, log zerolog.Logger) tools.Deps {
	var extractors []ports.FileExtractor
	if url := v.GetString("pdf-extractor-url"); url != "" {
		extractors = append(extractors, extractor.NewPDFExtractor(url))
	}
	return tools.Deps{
		OCR:        ocr.NewClient(v.GetString("ocr-url"), log),
		Embed:      embedding.NewOllamaAdapter(v.GetString("embed-url"), v.GetString("embed-model"), "1", log),
		Vision:     vision.NewOllamaAdapter(v.GetString("vision-url"), v.GetString("vision-model"), log),
		Extractors: extractors,
		ImagesDir:  v.GetString("storage-path"),
		Clock:      clock.System{},
		Log:        log,
		TopK:       10,
	}
}

func buildSession(v *viper.Viper) *usecases.Session {
	opener := sqlite.NewOpener(v.GetString("storage-path"), v.GetInt("vector-dim"))
	return usecases.NewSession(opener, usecases.DefaultConfig())
}

// rootContext cancels on SIGINT/SIGTERM, the same graceful-shutdown
// trigger the teacher's Start methods listen for via context.
func rootContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
