// Package task defines the unit of work the graph builder synthesizes
// and the scheduler executes: a stable ID, a kind, its input/output
// descriptors, and its upstream dependency set, plus the task state
// machine in §3 of the engine design.
package task

import (
	"fmt"
	"strings"
)

// Kind identifies what a task does. The scheduler dispatches on Kind
// to decide which driver operation to invoke.
type Kind string

// The five built-in task kinds plus the synthetic "hook" kind used for
// lifecycle hook commands (§4.7). Custom user tasks use KindCustom.
const (
	KindResolveDeps Kind = "resolve-deps"
	KindCompile     Kind = "compile"
	KindTest        Kind = "test"
	KindPackage     Kind = "package"
	KindRun         Kind = "run"
	KindCustom      Kind = "custom"
	KindHook        Kind = "hook"
)

// State is a task's position in the lifecycle state machine:
// pending -> ready -> running -> {success, cached, failed, skipped-upstream}.
type State string

// The task lifecycle states from §3.
const (
	StatePending         State = "pending"
	StateReady           State = "ready"
	StateRunning         State = "running"
	StateSuccess         State = "success"
	StateCached          State = "cached"
	StateFailed          State = "failed"
	StateSkippedUpstream State = "skipped-upstream"
)

// Terminal reports whether s is one of the task's terminal states.
func (s State) Terminal() bool {
	switch s {
	case StateSuccess, StateCached, StateFailed, StateSkippedUpstream:
		return true
	default:
		return false
	}
}

// SuccessLike reports whether s counts as "done cleanly" for the
// purpose of unblocking downstream tasks (§3: ready when every
// upstream task is in {success, cached}).
func (s State) SuccessLike() bool {
	return s == StateSuccess || s == StateCached
}

// ID is a task's stable identifier: "<project>/<kind>[/<qualifier>]",
// e.g. "api/compile", "auth/package", "api/custom/lint".
type ID string

// NewID builds an ID from its components. qualifier may be empty.
func NewID(project string, kind Kind, qualifier string) ID {
	if qualifier == "" {
		return ID(fmt.Sprintf("%s/%s", project, kind))
	}
	return ID(fmt.Sprintf("%s/%s/%s", project, kind, qualifier))
}

// Project returns the leading project-name component of id.
func (id ID) Project() string {
	parts := strings.SplitN(string(id), "/", 2)
	return parts[0]
}

// String satisfies fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Input bundles everything a task declares it reads: source file
// paths, upstream task IDs, resolved dependency artifact paths, and
// the manifest sub-tree governing the task — the set the engine design
// requires to fully determine Output (no I/O beyond declared inputs).
type Input struct {
	SourcePaths     []string
	Upstream        []ID
	DependencyPaths []string
	ManifestSubtree []byte
}

// Output describes the artifact paths a task produces.
type Output struct {
	Paths []string
}

// Task is one node in the task graph.
type Task struct {
	ID          ID
	Kind        Kind
	ProjectName string
	Qualifier   string

	// CommandTemplate is the literal command driving Fingerprint
	// computation and, for custom/hook tasks, the shell command the
	// driver actually runs.
	CommandTemplate string

	Input  Input
	Output Output

	// Upstream holds the IDs of every task that must reach a
	// success-like terminal state before this task may start.
	Upstream []ID

	// TimeoutSeconds is the per-task deadline, zero meaning "use the
	// scheduler's default timeout" (resolved at dispatch time).
	TimeoutSeconds int

	state State
}

// State returns the task's current lifecycle state.
func (t *Task) State() State {
	if t.state == "" {
		return StatePending
	}
	return t.state
}

// SetState transitions the task to s. The graph and scheduler are the
// only callers; Task itself enforces no transition table because the
// legal transitions are a property of graph position (computed
// upstream-readiness), not of the Task value alone.
func (t *Task) SetState(s State) {
	t.state = s
}
