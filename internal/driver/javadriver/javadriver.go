// Package javadriver implements driver.Driver for Java projects: it
// shells out to javac for compile and java for test and run, and
// writes the package jar itself via archive/zip.
// Per spec.md §1, per-language compiler invocation internals are
// explicitly out of scope — this is the minimal exec.Command plumbing
// needed to make the engine runnable end to end, not a production
// javac integration (classpath scanning, annotation processors,
// incremental compilation inside javac itself are all driver-internal
// concerns the spec leaves unspecified).
package javadriver

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

// Driver implements driver.Driver for manifest.LanguageJava.
type Driver struct{}

// New returns a ready-to-register Java driver.
func New() *Driver { return &Driver{} }

// Language implements driver.Driver.
func (d *Driver) Language() manifest.Language { return manifest.LanguageJava }

// Plan implements driver.Driver. Java projects with a main-class add
// a "run" task depending on package, since "java -cp ... MainClass"
// needs the packaged jar, not just compiled classes.
func (d *Driver) Plan(p *workspace.Project) ([]driver.TaskSeed, error) {
	if p.Manifest.Java == nil || p.Manifest.Java.MainClass == "" {
		return nil, nil
	}
	return []driver.TaskSeed{{
		Kind:            task.KindRun,
		CommandTemplate: fmt.Sprintf("java -cp %%classpath%% %s", p.Manifest.Java.MainClass),
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
		return execCommand(ctx, in, in.Command)
	}
}

func (d *Driver) compile(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	classesDir := filepath.Join(in.OutputDir, "classes")
	cp := strings.Join(in.Classpath, string(filepath.ListSeparator))
	cmd := fmt.Sprintf("mkdir -p %s && javac -d %s", shellQuote(classesDir), shellQuote(classesDir))
	if cp != "" {
		cmd += " -cp " + shellQuote(cp)
	}
	cmd += fmt.Sprintf(" $(find %s -name '*.java')", shellQuote(in.SourceDir))
	return execCommand(ctx, in, cmd)
}

// pkg builds the jar directly via archive/zip rather than shelling out
// to the jar tool, which stamps each entry with its real mtime: two
// fresh builds of identical class files would otherwise produce
// byte-different jars, breaking the "cache hit restores outputs
// byte-equal to a fresh build" invariant. Entries are walked in sorted
// path order with no mod-time set, mirroring pythondriver's
// deterministic zip packaging.
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
		"mkdir -p %s && javac -cp %s -d %s $(find %s -name '*.java') && java -cp %s org.junit.platform.console.ConsoleLauncher --classpath=%s --scan-classpath",
		shellQuote(testClassesDir), shellQuote(cp), shellQuote(testClassesDir), shellQuote(testSource),
		shellQuote(cp+string(filepath.ListSeparator)+testClassesDir), shellQuote(testClassesDir),
	)
	return execCommand(ctx, in, cmd)
}

func (d *Driver) run(ctx context.Context, in driver.ExecInput) (driver.Result, error) {
	jarPath := filepath.Join(in.Project.Path, in.Project.Manifest.Project.OutputDir, in.Project.Name()+".jar")
	cp := strings.Join(append([]string{jarPath}, in.Classpath...), string(filepath.ListSeparator))
	cmd := strings.ReplaceAll(in.Command, "%classpath%", shellQuote(cp))
	return execCommand(ctx, in, cmd)
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

func execCommand(ctx context.Context, in driver.ExecInput, cmd string) (driver.Result, error) {
	exitStatus, timedOut, err := driver.RunCommand(ctx, in.Project.Path, cmd, in.Env, in.Timeout, javaClassify, logSink(in))
	return driver.Result{
		Outputs:    nil, // the caller (scheduler) fills this from Driver.Outputs once ExitStatus==0
		ExitStatus: exitStatus,
		TimedOut:   timedOut,
	}, err
}

func logSink(in driver.ExecInput) func(driver.LogLine) {
	if in.OnLogLine == nil {
		return nil
	}
	return in.OnLogLine
}

// javaClassify recognizes javac/java diagnostic prefixes ("error:",
// "warning:") in addition to the generic heuristic.
func javaClassify(line string) driver.Level {
	lower := strings.ToLower(strings.TrimSpace(line))
	switch {
	case strings.Contains(lower, "error:"):
		return driver.LevelError
	case strings.Contains(lower, "warning:"):
		return driver.LevelWarn
	default:
		return driver.ClassifyByPrefix(line)
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
