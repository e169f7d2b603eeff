// Command forge is the entry point for the FORGE build engine CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/enri312/forge/internal/cli"
	"github.com/enri312/forge/internal/forgeerrors"
)

// Version, commit, and date are set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(forgeerrors.ExitCode(err))
}
