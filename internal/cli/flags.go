// Package cli provides FORGE's command-line interface: a thin cobra.Command
// tree whose RunE handlers do nothing but wire manifest -> workspace ->
// graph -> scheduler and print the result, per spec.md §1's choice to leave
// argument parsing and flag design out of the engine's own scope.
package cli

import (
	"github.com/spf13/cobra"
)

// Output format constants for the --output flag.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// GlobalFlags holds flags available to every subcommand.
type GlobalFlags struct {
	// Workers overrides build.workers from the layered configuration.
	// Zero means "use whatever Load resolved."
	Workers int
	// Verbose enables debug-level logging.
	Verbose bool
	// Quiet suppresses info-level logging (warn level only).
	Quiet bool
	// NoCache disables both cache tiers for this invocation regardless
	// of what the layered configuration enabled.
	NoCache bool
	// Output selects the report rendering: "text" or "json".
	Output string
	// RootDir is the directory to load the root manifest from.
	// Defaults to the current directory.
	RootDir string
	// Progress renders a live per-task view instead of logging task
	// events as they happen. Ignored when stdout is not a terminal.
	Progress bool
	// TelemetryAddr, if non-empty, serves the build's event stream as
	// SSE at "<addr>/events" for the duration of the build.
	TelemetryAddr string
}

// AddGlobalFlags registers the flags every FORGE subcommand inherits.
func AddGlobalFlags(cmd *cobra.Command, flags *GlobalFlags) {
	cmd.PersistentFlags().IntVar(&flags.Workers, "workers", 0, "number of tasks to run concurrently within one layer (0 = use configured default)")
	cmd.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug-level logging")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress info-level logging")
	cmd.PersistentFlags().BoolVar(&flags.NoCache, "no-cache", false, "disable the cache for this build")
	cmd.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "report format (text|json)")
	cmd.PersistentFlags().StringVarP(&flags.RootDir, "root", "C", ".", "root directory containing the top-level forge.toml")
	cmd.PersistentFlags().BoolVar(&flags.Progress, "progress", false, "render a live per-task progress view instead of log lines")
	cmd.PersistentFlags().StringVar(&flags.TelemetryAddr, "telemetry-addr", "", "serve the build's event stream as SSE at <addr>/events")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// IsValidOutputFormat reports whether format is a supported --output value.
func IsValidOutputFormat(format string) bool {
	return format == OutputText || format == OutputJSON
}
