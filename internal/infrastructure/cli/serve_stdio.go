package cli

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ingestgraph/corpus/internal/infrastructure/stdio"
	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

func newServeStdioCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve-stdio",
		Short: "Run the newline-framed JSON-RPC transport over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := buildLogger(v)
			sess := buildSession(v)
			registry := tools.NewRegistry(buildDeps(v, log))

			ctx, cancel := rootContext()
			defer cancel()

			return stdio.NewServer(registry, sess, log).Serve(ctx, os.Stdin, os.Stdout)
		},
	}
}
