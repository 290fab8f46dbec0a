// Command squint compiles a .squint source file to control text, an
// optional event/timeline log, and an optional deterministic simulation
// trace (spec §6.1).
package main

import (
	"fmt"
	"os"

	"github.com/squint-run/squint/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "squint: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
