package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enri312/forge/internal/forgeerrors"
)

// BuildInfo carries version metadata set at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func formatVersion(info BuildInfo) string {
	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", info.Version, info.Commit, info.Date)
}

// newRootCmd assembles the full FORGE command tree.
func newRootCmd(flags *GlobalFlags, info BuildInfo) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "forge",
		Short:   "FORGE builds multi-language, multi-module projects with cached, parallel task execution",
		Version: formatVersion(info),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if !IsValidOutputFormat(flags.Output) {
				return forgeerrors.Wrapf(forgeerrors.ErrConfig, "invalid --output %q, want text or json", flags.Output)
			}
			initLoggerFromFlags(flags)
			return nil
		},
		SilenceUsage: true,
	}

	AddGlobalFlags(cmd, flags)

	AddBuildCommand(cmd, flags)
	AddTestCommand(cmd, flags)
	AddPackageCommand(cmd, flags)
	AddRunCommand(cmd, flags)
	AddCleanCommand(cmd, flags)
	AddCacheCommand(cmd, flags)

	return cmd
}

// Execute runs the root command with ctx and returns the error a
// RunE handler produced, if any. The caller is responsible for
// translating it into a process exit code via forgeerrors.ExitCode.
func Execute(ctx context.Context, info BuildInfo) error {
	flags := &GlobalFlags{}
	cmd := newRootCmd(flags, info)
	return cmd.ExecuteContext(ctx)
}
