// Package driver defines the abstract language-driver contract named
// in §4.8: plan(project) -> task-seeds, execute(task, ctx) ->
// {outputs, exitStatus, logStream}, outputs(task) -> paths. A driver
// is the only component permitted to spawn external processes (§4.5
// step 3); it owns process lifecycle, translates language-specific
// diagnostics into structured log levels, and is responsible for
// normalizing any output bytes that would otherwise be
// nondeterministic (e.g. embedded build timestamps).
//
// Concrete drivers select by the project's language tag at
// workspace-load time via Registry — a tagged-variant discriminator,
// not runtime reflection, exactly as §9's design notes require.
package driver

import (
	"context"
	"time"

	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// TaskSeed is the minimal description a Driver.Plan implementation
// returns for a task the graph builder does not already know how to
// synthesize generically (§4.3's universal resolve-deps/compile/
// test/package tasks are built by internal/graph directly; Plan
// supplies the language-specific extras, such as the "run" task,
// whose command template and upstream wiring depend on the driver).
type TaskSeed struct {
	Kind            task.Kind
	Qualifier       string
	CommandTemplate string
	// Upstream holds bare kinds/qualifiers scoped to the same
	// project (e.g. task.KindPackage); internal/graph qualifies them
	// with the project name when wiring the seed into the graph.
	Upstream []task.Kind
}

// Level is a structured log severity a driver infers from a
// compiler's or interpreter's diagnostic line prefix.
type Level string

// The log levels a driver may report; LogMessage events carry one of
// these per §4.6.
const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// LogLine is one line of driver stdout/stderr, classified by Level.
type LogLine struct {
	Level Level
	Text  string
}

// ExecInput is everything Execute needs to run one task: the
// resolved classpath/dependency paths, the project's source and
// output directories, environment, the literal command (for custom
// and hook tasks where there is no compiler to invoke), and a sink
// for streamed log lines.
type ExecInput struct {
	Task      *task.Task
	Project   *workspace.Project
	Classpath []string
	SourceDir string
	OutputDir string
	Env       []string
	Command   string
	Timeout   time.Duration
	OnLogLine func(LogLine)
}

// Result is what Execute returns: the produced artifact paths, the
// process exit status, and whether the invocation was killed for
// exceeding its deadline.
type Result struct {
	Outputs    []string
	ExitStatus int
	TimedOut   bool
}

// Driver is the per-language contract. Execute must produce outputs
// that are a pure function of ExecInput (no I/O beyond what
// ExecInput declares) so the fingerprint the scheduler already
// computed remains valid for the produced bytes.
type Driver interface {
	// Language reports which manifest.Language this driver serves.
	Language() manifest.Language

	// Plan returns the language-specific task seeds for project p,
	// beyond the universal set internal/graph always synthesizes.
	Plan(p *workspace.Project) ([]TaskSeed, error)

	// Execute runs one task's compiler/interpreter invocation.
	Execute(ctx context.Context, in ExecInput) (Result, error)

	// Outputs returns the artifact paths Execute is expected to
	// produce for t, used by the fingerprinter and cache before
	// Execute has actually run (e.g. to populate a cache-hit restore
	// list without invoking the driver at all).
	Outputs(t *task.Task, p *workspace.Project) []string
}
