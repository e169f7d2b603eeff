// Package testutil provides shared test helpers for FORGE's engine
// packages: a temp-workspace builder that writes forge.toml files to
// disk the way a real project tree would, and an in-memory Driver
// that satisfies internal/driver.Driver without spawning a process —
// grounded on the teacher's internal/testutil package, which this
// repo's domain (manifests, drivers, fingerprints) required growing
// well beyond the teacher's handful of mock sentinel errors.
package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// WriteManifest writes contents to dir/forge.toml, creating dir if
// needed. internal/graph's tests assemble their workspace fixtures
// from it; internal/workspace's and internal/scheduler's tests use
// their own local copies.
func WriteManifest(t testingT, dir, contents string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, manifest.FileName)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSource writes contents to dir/rel, creating parent directories
// as needed, for tests that need a real file on disk for the
// fingerprinter's tree hash to walk.
func WriteSource(t testingT, dir, rel, contents string) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// testingT is the subset of *testing.T this package needs, so it has
// no direct "testing" import and can't accidentally be pulled into a
// non-test binary.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

// FakeDriver is an in-memory driver.Driver: Execute never spawns a
// process, it just writes a deterministic marker file into the
// project's output directory, so scheduler tests can exercise the
// full cache/fingerprint/execute path without a real javac/kotlinc/
// python toolchain installed on the test host.
type FakeDriver struct {
	Lang manifest.Language

	// Invocations counts how many times Execute actually ran (as
	// opposed to serving a cache hit), letting tests assert the
	// "build at most once per fingerprint" invariant (S6).
	Invocations int

	// Fail, if non-nil, is returned by Execute instead of writing the
	// marker file, for driver-failure scenario tests (S3).
	Fail error
}

// NewFakeDriver returns a FakeDriver registered for lang.
func NewFakeDriver(lang manifest.Language) *FakeDriver {
	return &FakeDriver{Lang: lang}
}

// Language implements driver.Driver.
func (d *FakeDriver) Language() manifest.Language { return d.Lang }

// Plan implements driver.Driver with no language-specific extra
// tasks; every FakeDriver-backed project relies solely on
// internal/graph's universal per-project task synthesis.
func (d *FakeDriver) Plan(*workspace.Project) ([]driver.TaskSeed, error) {
	return nil, nil
}

// Execute implements driver.Driver by writing one marker file per
// output path Outputs declares, rather than invoking a real
// compiler.
func (d *FakeDriver) Execute(_ context.Context, in driver.ExecInput) (driver.Result, error) {
	d.Invocations++
	if d.Fail != nil {
		return driver.Result{ExitStatus: 1}, d.Fail
	}

	outputs := d.Outputs(in.Task, in.Project)
	for _, out := range outputs {
		if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
			return driver.Result{}, err
		}
		marker := fmt.Sprintf("built %s\n", in.Task.ID)
		if err := os.WriteFile(out, []byte(marker), 0o600); err != nil {
			return driver.Result{}, err
		}
	}
	if in.OnLogLine != nil {
		in.OnLogLine(driver.LogLine{Level: driver.LevelInfo, Text: fmt.Sprintf("built %s", in.Task.ID)})
	}
	return driver.Result{Outputs: outputs, ExitStatus: 0}, nil
}

// Outputs implements driver.Driver with one conventional artifact per
// task kind, mirroring the real drivers' naming (package -> jar for
// JVM languages, a marker file otherwise) closely enough for
// fingerprint/cache round-trip tests.
func (d *FakeDriver) Outputs(t *task.Task, p *workspace.Project) []string {
	outDir := filepath.Join(p.Path, p.Manifest.Project.OutputDir)
	switch t.Kind {
	case task.KindPackage:
		if d.Lang == manifest.LanguageJava || d.Lang == manifest.LanguageKotlin {
			return []string{filepath.Join(outDir, p.Name()+".jar")}
		}
		return []string{filepath.Join(outDir, p.Name()+".whl")}
	default:
		return []string{filepath.Join(outDir, string(t.Kind)+".out")}
	}
}
