package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/graph"
)

// AddBuildCommand registers "forge build": compile and package every
// project in the workspace rooted at --root.
func AddBuildCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Compile and package every project in the workspace",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngineCommand(cmd.Context(), flags, graph.GoalBuild)
		},
	})
}

// AddTestCommand registers "forge test": compile, resolve test
// dependencies, and run every project's test task.
func AddTestCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Run every project's test task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngineCommand(cmd.Context(), flags, graph.GoalTest)
		},
	})
}

// AddPackageCommand registers "forge package": an alias for build
// that exists so a user thinking in terms of "just give me the jar"
// doesn't need to remember that package is a dependency of build, not
// a separate pass (§4.3: package always runs as part of compiling).
func AddPackageCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "package",
		Short: "Compile and package every project (alias for build)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngineCommand(cmd.Context(), flags, graph.GoalBuild)
		},
	})
}

// AddRunCommand registers "forge run": builds the workspace, then
// relies on §4.8's driver-synthesized "run" tasks (present only for
// projects whose manifest declares an entry point) to execute.
func AddRunCommand(root *cobra.Command, flags *GlobalFlags) {
	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Build the workspace and execute any driver-provided run tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEngineCommand(cmd.Context(), flags, graph.GoalBuild)
		},
	})
}

// runEngineCommand is the shared tail of build/test/package/run: build
// an engine from resolved flags+config, execute the graph, print the
// report, and translate a failed report into a process exit code via
// forgeerrors.ExitCode.
func runEngineCommand(ctx context.Context, flags *GlobalFlags, goal graph.Goal) error {
	e, err := newEngine(flags)
	if err != nil {
		return err
	}

	var result error
	err = runWithSignals(ctx, func(runCtx context.Context) error {
		rep, runErr := e.run(runCtx, flags.RootDir, goal, uuid.NewString())
		if runErr != nil {
			return runErr
		}
		if printErr := printReport(rep, flags.Output); printErr != nil {
			return printErr
		}
		if !rep.Success {
			result = forgeerrors.NewExitCoded(forgeerrors.ErrDriverFailure, 1)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return result
}
