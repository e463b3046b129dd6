// Command jobenginectl is an operational CLI for the job engine's HTTP
// API. It never imports internal/engine: it talks to a running scheduler
// exclusively over HTTP, so it works against any deployment it can reach.
package main

import (
	"fmt"
	"os"

	"github.com/minisource/jobengine/cmd/jobenginectl/commands"
)

func main() {
	root := commands.NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
