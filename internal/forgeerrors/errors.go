// Package forgeerrors provides centralized error handling for FORGE.
//
// This package defines sentinel errors used for programmatic error
// categorization throughout the engine. All error kinds can be checked
// using errors.Is().
//
// IMPORTANT: this package MUST NOT import any other internal package.
// Only standard library imports are allowed.
package forgeerrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the error taxonomy in the engine design.
// Callers should check these with errors.Is(), never string matching.
var (
	// ErrConfig indicates the manifest was malformed or failed validation.
	ErrConfig = errors.New("config error")

	// ErrCyclicModules indicates the workspace module graph contains a cycle.
	ErrCyclicModules = errors.New("cyclic modules")

	// ErrCyclicTasks indicates the task graph contains a cycle.
	ErrCyclicTasks = errors.New("cyclic tasks")

	// ErrBadInputs indicates a symlink loop or unreadable source file
	// while fingerprinting a task's inputs.
	ErrBadInputs = errors.New("bad inputs")

	// ErrDriverFailure indicates a language driver returned a non-zero
	// exit status or timed out.
	ErrDriverFailure = errors.New("driver failure")

	// ErrCacheCorrupt indicates a cache entry failed its integrity check.
	ErrCacheCorrupt = errors.New("cache corrupt")

	// ErrRemoteTransient indicates a non-fatal network or remote store error.
	ErrRemoteTransient = errors.New("remote cache transient error")

	// ErrInterrupted indicates the build was canceled by the user.
	ErrInterrupted = errors.New("interrupted")

	// ErrTaskNotFound indicates a referenced task ID does not exist in the graph.
	ErrTaskNotFound = errors.New("task not found")

	// ErrModuleNotFound indicates a manifest referenced a module path that
	// does not resolve to a readable manifest.
	ErrModuleNotFound = errors.New("module not found")

	// ErrModuleOutsideRoot indicates a manifest's modules entry resolves
	// to a directory outside the workspace root.
	ErrModuleOutsideRoot = errors.New("module resolves outside workspace root")

	// ErrTaskNameCollision indicates a custom task name collides with a
	// built-in task kind.
	ErrTaskNameCollision = errors.New("task name collides with built-in task")
)

// ExitCoded wraps an error with an explicit process exit code, mirroring
// the exit code taxonomy in the engine design (0/1/2/3/130).
type ExitCoded struct {
	Err  error
	Code int
}

// NewExitCoded wraps err to indicate the process should exit with code.
func NewExitCoded(err error, code int) *ExitCoded {
	return &ExitCoded{Err: err, Code: code}
}

// Error implements the error interface.
func (e *ExitCoded) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCoded) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for err: 0 for a nil error,
// the code of a wrapped ExitCoded, otherwise 130 for ErrInterrupted, 2
// for configuration and cycle errors, 3 for ErrCacheCorrupt, and 1 for
// anything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *ExitCoded
	if errors.As(err, &ec) {
		return ec.Code
	}
	switch {
	case errors.Is(err, ErrInterrupted):
		return 130
	case errors.Is(err, ErrConfig), errors.Is(err, ErrCyclicModules), errors.Is(err, ErrCyclicTasks), errors.Is(err, ErrModuleOutsideRoot):
		return 2
	case errors.Is(err, ErrCacheCorrupt):
		return 3
	default:
		return 1
	}
}

// Wrap annotates err with msg at a package boundary, returning nil if err
// is nil. The wrapped error preserves the chain for errors.Is/errors.As.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf annotates err with a formatted message, returning nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
