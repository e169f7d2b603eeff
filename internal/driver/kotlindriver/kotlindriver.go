// Package kotlindriver implements driver.Driver for Kotlin projects
// by shelling out to kotlinc for compile/test and producing a jar for
// package, mirroring javadriver's minimal exec.Command plumbing —
// real kotlinc invocation details (incremental compilation daemons,
// K2 frontend selection) are out of scope per spec.md §1.
package kotlindriver

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// Driver implements driver.Driver for manifest.LanguageKotlin.
type Driver struct{}

// New returns a ready-to-register Kotlin driver.
func New() *Driver { return &Driver{} }

// Language implements driver.Driver.
func (d *Driver) Language() manifest.Language { return manifest.LanguageKotlin }

// Plan implements driver.Driver.
func (d *Driver) Plan(p *workspace.Project) ([]driver.TaskSeed, error) {
	if p.Manifest.Kotlin == nil || p.Manifest.Kotlin.MainClass == "" {
		return nil, nil
	}
	return []driver.TaskSeed{{
		Kind:            task.KindRun,
		CommandTemplate: fmt.Sprintf("java -cp %%classpath%% %s", p.Manifest.Kotlin.MainClass),
		Upstream:        []task.Kind{task.KindPackage},
	}}, nil
}

// Execute implements driver.Driver.
func (d *Driver) Execute(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	switch in.Task.Kind {
	case task.KindCompile:
		return d.compile(ctx, in)
	case task.KindPackage:
		return d.pkg(ctx, in)
	case task.KindTest:
		return d.test(ctx, in)
	case task.KindRun:
		return d.run(ctx, in)
	default:
		return d.runCommand(ctx, in, in.Command)
	}
}

func (d *Driver) compile(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	classesDir := filepath.Join(in.OutputDir, "classes")
	cp := strings.Join(in.Classpath, string(filepath.ListSeparator))
	cmd := fmt.Sprintf("mkdir -p %s && kotlinc -d %s", shellQuote(classesDir), shellQuote(classesDir))
	if cp != "" {
		cmd += " -cp " + shellQuote(cp)
	}
	cmd += " " + shellQuote(in.SourceDir)
	return d.runCommand(ctx, in, cmd)
}

// pkg builds the jar directly via archive/zip, the same deterministic
// approach javadriver uses: shelling out to the jar tool stamps each
// entry with its real mtime, so two fresh builds of identical class
// files would produce byte-different jars.
func (d *Driver) pkg(_ context.Context, in driver.ExecInput) (driver.Result, error) {
	classesDir := filepath.Join(in.OutputDir, "classes")
	jarPath := filepath.Join(in.OutputDir, in.Project.Name()+".jar")
	if err := buildDeterministicJar(jarPath, classesDir); err != nil {
		return driver.Result{ExitStatus: 1}, err
	}
	return driver.Result{Outputs: []string{jarPath}, ExitStatus: 0}, nil
}

func buildDeterministicJar(jarPath, classesDir string) error {
	var rels []string
	walkErr := filepath.WalkDir(classesDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(classesDir, path)
		if relErr != nil {
			return relErr
		}
		rels = append(rels, rel)
		return nil
	})
	if walkErr != nil {
		return walkErr
	}
	sort.Strings(rels)

	f, err := os.Create(jarPath) //nolint:gosec // jarPath is derived from the project's own configured output dir
	if err != nil {
		return err
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, rel := range rels {
		if err := addDeterministicJarEntry(zw, classesDir, rel); err != nil {
			_ = zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addDeterministicJarEntry(zw *zip.Writer, classesDir, rel string) error {
	content, err := os.ReadFile(filepath.Join(classesDir, rel)) //nolint:gosec // rel is a walk result under the project's own classes dir
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

func (d *Driver) test(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	classesDir := filepath.Join(in.OutputDir, "classes")
	testClassesDir := filepath.Join(in.OutputDir, "test-classes")
	cp := strings.Join(append([]string{classesDir}, in.Classpath...), string(filepath.ListSeparator))
	testSource := in.SourceDir
	if in.Task.Input.SourcePaths != nil {
		testSource = in.Task.Input.SourcePaths[0]
	}
	cmd := fmt.Sprintf(
		"mkdir -p %s && kotlinc -cp %s -d %s %s && java -cp %s org.junit.platform.console.ConsoleLauncher --scan-classpath",
		shellQuote(testClassesDir), shellQuote(cp), shellQuote(testClassesDir), shellQuote(testSource),
		shellQuote(cp+string(filepath.ListSeparator)+testClassesDir),
	)
	return d.runCommand(ctx, in, cmd)
}

func (d *Driver) run(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	jarPath := filepath.Join(in.Project.Path, in.Project.Manifest.Project.OutputDir, in.Project.Name()+".jar")
	cp := strings.Join(append([]string{jarPath}, in.Classpath...), string(filepath.ListSeparator))
	cmd := strings.ReplaceAll(in.Command, "%classpath%", shellQuote(cp))
	return d.runCommand(ctx, in, cmd)
}

// Outputs implements driver.Driver.
func (d *Driver) Outputs(t *task.Task, p *workspace.Project) []string {
	outDir := filepath.Join(p.Path, p.Manifest.Project.OutputDir)
	switch t.Kind {
	case task.KindCompile:
		return []string{filepath.Join(outDir, "classes")}
	case task.KindPackage:
		return []string{filepath.Join(outDir, p.Name()+".jar")}
	case task.KindTest:
		return []string{filepath.Join(outDir, "test-classes")}
	default:
		return nil
	}
}

func (d *Driver) runCommand(ctx context.Context, in driver.ExecInput, cmd string) (driver.Result, error) {
	exitStatus, timedOut, err := driver.RunCommand(ctx, in.Project.Path, cmd, in.Env, in.Timeout, driver.ClassifyByPrefix, in.OnLogLine)
	return driver.Result{ExitStatus: exitStatus, TimedOut: timedOut}, err
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
