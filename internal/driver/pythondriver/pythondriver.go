// Package pythondriver implements driver.Driver for Python projects.
// Python has no separate compile step in the JVM sense, so "compile"
// is a syntax-check pass (py_compile) that still gives the scheduler
// a real driver invocation and real output bytes to fingerprint;
// "package" builds a source distribution via setup tooling is out of
// scope, so package instead normalizes the source tree into a
// deterministic zip — venv/pip management itself is delegated to the
// resolver, per spec.md §1.
package pythondriver

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// Driver implements driver.Driver for manifest.LanguagePython.
type Driver struct{}

// New returns a ready-to-register Python driver.
func New() *Driver { return &Driver{} }

// Language implements driver.Driver.
func (d *Driver) Language() manifest.Language { return manifest.LanguagePython }

// Plan implements driver.Driver. A project with a main-script gets a
// "run" task that just invokes the interpreter — Python needs no
// packaged artifact to run, unlike the JVM drivers, so run depends on
// compile (the syntax check) rather than package.
func (d *Driver) Plan(p *workspace.Project) ([]driver.TaskSeed, error) {
	if p.Manifest.Python == nil || p.Manifest.Python.MainScript == "" {
		return nil, nil
	}
	return []driver.TaskSeed{{
		Kind:            task.KindRun,
		CommandTemplate: fmt.Sprintf("python3 %s", p.Manifest.Python.MainScript),
		Upstream:        []task.Kind{task.KindCompile},
	}}, nil
}

// Execute implements driver.Driver.
func (d *Driver) Execute(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	switch in.Task.Kind {
	case task.KindCompile:
		return d.compile(ctx, in)
	case task.KindPackage:
		return d.pkg(in)
	case task.KindTest:
		return d.test(ctx, in)
	case task.KindRun:
		return d.run(ctx, in)
	default:
		exitStatus, timedOut, err := driver.RunCommand(ctx, in.Project.Path, in.Command, in.Env, in.Timeout, driver.ClassifyByPrefix, in.OnLogLine)
		return driver.Result{ExitStatus: exitStatus, TimedOut: timedOut}, err
	}
}

func (d *Driver) compile(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	cmd := fmt.Sprintf("python3 -m py_compile $(find %s -name '*.py')", shellQuote(in.SourceDir))
	exitStatus, timedOut, err := driver.RunCommand(ctx, in.Project.Path, cmd, in.Env, in.Timeout, pythonClassify, in.OnLogLine)
	return driver.Result{ExitStatus: exitStatus, TimedOut: timedOut}, err
}

func (d *Driver) test(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	testSource := in.SourceDir
	if in.Task.Input.SourcePaths != nil {
		testSource = in.Task.Input.SourcePaths[0]
	}
	cmd := fmt.Sprintf("python3 -m pytest %s", shellQuote(testSource))
	exitStatus, timedOut, err := driver.RunCommand(ctx, in.Project.Path, cmd, in.Env, in.Timeout, pythonClassify, in.OnLogLine)
	return driver.Result{ExitStatus: exitStatus, TimedOut: timedOut}, err
}

func (d *Driver) run(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	exitStatus, timedOut, err := driver.RunCommand(ctx, in.Project.Path, in.Command, in.Env, in.Timeout, pythonClassify, in.OnLogLine)
	return driver.Result{ExitStatus: exitStatus, TimedOut: timedOut}, err
}

// pkg zips the project's source tree into a deterministic archive:
// entries sorted by path, zero mod-times, so byte-identical inputs
// always produce a byte-identical package artifact — the
// normalization §4.8 requires of any driver that would otherwise
// embed nondeterministic bytes (a naive zip writer stamps each
// entry's current time).
func (d *Driver) pkg(in driver.ExecInput) (driver.Result, error) {
	outPath := filepath.Join(in.OutputDir, in.Project.Name()+".zip")
	if err := os.MkdirAll(in.OutputDir, 0o750); err != nil {
		return driver.Result{ExitStatus: 1}, err
	}

	var rels []string
	walkErr := filepath.WalkDir(in.SourceDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(in.SourceDir, path)
		if relErr != nil {
			return relErr
		}
		rels = append(rels, rel)
		return nil
	})
	if walkErr != nil {
		return driver.Result{ExitStatus: 1}, walkErr
	}
	sort.Strings(rels)

	f, err := os.Create(outPath) //nolint:gosec // outPath is derived from the project's own configured output dir
	if err != nil {
		return driver.Result{ExitStatus: 1}, err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, rel := range rels {
		if err := addDeterministicEntry(zw, in.SourceDir, rel); err != nil {
			_ = zw.Close()
			return driver.Result{ExitStatus: 1}, err
		}
	}
	if err := zw.Close(); err != nil {
		return driver.Result{ExitStatus: 1}, err
	}

	return driver.Result{Outputs: []string{outPath}, ExitStatus: 0}, nil
}

func addDeterministicEntry(zw *zip.Writer, sourceDir, rel string) error {
	content, err := os.ReadFile(filepath.Join(sourceDir, rel)) //nolint:gosec // rel is a walk result under the project's own source directory
	if err != nil {
		return err
	}
	hdr := &zip.FileHeader{Name: filepath.ToSlash(rel), Method: zip.Deflate}
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(content)
	return err
}

// Outputs implements driver.Driver.
func (d *Driver) Outputs(t *task.Task, p *workspace.Project) []string {
	outDir := filepath.Join(p.Path, p.Manifest.Project.OutputDir)
	switch t.Kind {
	case task.KindPackage:
		return []string{filepath.Join(outDir, p.Name()+".zip")}
	default:
		return nil
	}
}

func pythonClassify(line string) driver.Level {
	return driver.ClassifyByPrefix(line)
}

func shellQuote(s string) string {
	return "'" + filepathEscape(s) + "'"
}

func filepathEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'', '\\', '\'', '\'')
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
