// Command corpusd is the process entrypoint: it wires the cobra/viper CLI
// and hands off to whichever transport subcommand the caller selects
// (serve-stdio, serve-http, tools). The teacher ships no cmd/ binary at
// all — this entrypoint exists only to carry spec.md §6's transport
// surface, generalized from the teacher's single NewServer/Start call.
package main

import (
	"fmt"
	"os"

	"github.com/ingestgraph/corpus/internal/infrastructure/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
