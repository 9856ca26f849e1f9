package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ingestgraph/corpus/internal/infrastructure/tools"
)

func newToolsCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List every registered tool name",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := buildLogger(v)
			registry := tools.NewRegistry(buildDeps(v, log))
			names := registry.Names()
			sort.Strings(names)
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
}
