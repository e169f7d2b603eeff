package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/enri312/forge/internal/cache"
	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/driver/resolver"
	"github.com/enri312/forge/internal/eventbus"
	"github.com/enri312/forge/internal/fingerprint"
	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// execute runs a single task to a terminal result: resolve-deps tasks
// go through the resolver directly (§1's resolver/driver boundary);
// every other kind is fingerprinted, checked against the cache, and
// on a miss dispatched to the project's language driver with
// at-most-one-concurrent-build-per-fingerprint enforced by
// cache.Store.Once.
func (s *Scheduler) execute(ctx context.Context, r *run, t *task.Task, proj *workspace.Project) TaskResult {
	if t.Kind == task.KindResolveDeps {
		return s.executeResolveDeps(ctx, t, proj)
	}

	fp, err := s.fingerprintOf(r, t, proj)
	if err != nil {
		return TaskResult{State: task.StateFailed, Err: err}
	}
	r.setFingerprint(t.ID, fp)

	lookup, err := s.Cache.Lookup(fp)
	if err == nil && lookup.Hit {
		outDir := filepath.Join(proj.Path, proj.Manifest.Project.OutputDir)
		if extractErr := cache.Extract(lookup.Entry.Bundle, outDir); extractErr == nil {
			r.recordCacheHit(lookup.Source, int64(len(lookup.Entry.Bundle)))
			t.Output = task.Output{Paths: s.outputsFor(t, proj)}
			return TaskResult{State: task.StateCached, CacheSource: lookup.Source}
		}
	}
	r.recordMiss()

	// Each flight re-checks the cache and stores its entry before it
	// ends, so a sibling whose lookup missed just before another flight
	// for this fingerprint finished never invokes the driver again.
	_, buildErr, _ := s.Cache.Once(fp, func() (cache.Entry, error) {
		if again, err := s.Cache.Lookup(fp); err == nil && again.Hit {
			return again.Entry, nil
		}
		built, err := s.build(ctx, t, proj)
		if err != nil {
			return built, err
		}
		built.Meta.Fingerprint = fp.Hex()
		if storeErr := s.Cache.Store(fp, built); storeErr != nil {
			s.Log.Warn().Err(storeErr).Str("task", string(t.ID)).Msg("failed to write cache entry")
		}
		return built, nil
	})
	if buildErr != nil {
		return TaskResult{State: task.StateFailed, Err: buildErr}
	}

	t.Output = task.Output{Paths: s.outputsFor(t, proj)}
	return TaskResult{State: task.StateSuccess, ExitStatus: 0}
}

// build invokes the project's driver for t and packs its declared
// outputs into a cache entry. It is the function cache.Store.Once
// dedupes across concurrent callers sharing t's fingerprint.
func (s *Scheduler) build(ctx context.Context, t *task.Task, proj *workspace.Project) (cache.Entry, error) {
	d, err := s.Drivers.For(proj.Manifest.Language())
	if err != nil {
		return cache.Entry{}, err
	}

	in := s.execInput(t, proj, d)
	result, err := d.Execute(ctx, in)
	if err != nil {
		return cache.Entry{}, err
	}
	if result.TimedOut {
		return cache.Entry{}, fmt.Errorf("%w: %s timed out after %s", forgeerrors.ErrDriverFailure, t.ID, in.Timeout)
	}
	if result.ExitStatus != 0 {
		return cache.Entry{}, fmt.Errorf("%w: %s exited with status %d", forgeerrors.ErrDriverFailure, t.ID, result.ExitStatus)
	}

	outDir := filepath.Join(proj.Path, proj.Manifest.Project.OutputDir)
	bundle, err := cache.Pack(outDir, d.Outputs(t, proj))
	if err != nil {
		return cache.Entry{}, err
	}

	return cache.Entry{
		Bundle: bundle,
		Meta: cache.Meta{
			TaskKind:  string(t.Kind),
			CreatedAt: s.Clock.Now(),
			SizeBytes: int64(len(bundle)),
		},
	}, nil
}

func (s *Scheduler) execInput(t *task.Task, proj *workspace.Project, d driver.Driver) driver.ExecInput {
	outDir := filepath.Join(proj.Path, proj.Manifest.Project.OutputDir)
	sourceDir := proj.Path
	if len(t.Input.SourcePaths) > 0 {
		sourceDir = t.Input.SourcePaths[0]
	}

	timeout := s.defaultTimeout()
	if t.TimeoutSeconds > 0 {
		timeout = time.Duration(t.TimeoutSeconds) * time.Second
	}

	return driver.ExecInput{
		Task:      t,
		Project:   proj,
		Classpath: s.classpathFor(t, proj),
		SourceDir: sourceDir,
		OutputDir: outDir,
		Command:   t.CommandTemplate,
		Timeout:   timeout,
		OnLogLine: func(line driver.LogLine) {
			s.Bus.Publish(eventbus.Event{
				Type:     eventbus.TypeLogMessage,
				At:       s.Clock.Now(),
				TaskName: string(t.ID),
				Level:    string(line.Level),
				Text:     line.Text,
			})
		},
	}
}

// classpathFor projects the workspace's JVM module classpath plus
// this project's own resolved compile dependencies (the resolve-deps
// task's recorded Output.Paths, read through the graph so no
// separate storage is needed). A test task additionally picks up the
// qualified "test" resolve-deps task's output.
func (s *Scheduler) classpathFor(t *task.Task, proj *workspace.Project) []string {
	cp := s.Workspace.JVMClasspathEntries(proj)
	if depsTask := s.Graph.Task(task.NewID(proj.Name(), task.KindResolveDeps, "")); depsTask != nil {
		cp = append(cp, depsTask.Output.Paths...)
	}
	if t.Kind == task.KindTest {
		if testDepsTask := s.Graph.Task(task.NewID(proj.Name(), task.KindResolveDeps, "test")); testDepsTask != nil {
			cp = append(cp, testDepsTask.Output.Paths...)
		}
	}
	return cp
}

func (s *Scheduler) outputsFor(t *task.Task, proj *workspace.Project) []string {
	d, err := s.Drivers.For(proj.Manifest.Language())
	if err != nil {
		return nil
	}
	return d.Outputs(t, proj)
}

func (s *Scheduler) executeResolveDeps(ctx context.Context, t *task.Task, proj *workspace.Project) TaskResult {
	coords := make([]resolver.Coordinate, 0, len(t.Input.DependencyPaths))
	for _, raw := range t.Input.DependencyPaths {
		coords = append(coords, splitCoordinate(raw))
	}

	paths, err := s.Resolver.Resolve(ctx, coords)
	if err != nil {
		return TaskResult{State: task.StateFailed, Err: err}
	}

	t.Output = task.Output{Paths: paths}
	return TaskResult{State: task.StateSuccess}
}

func splitCoordinate(raw string) resolver.Coordinate {
	for i := len(raw) - 1; i >= 0; i-- {
		if raw[i] == '@' {
			return resolver.Coordinate{Name: raw[:i], Version: raw[i+1:]}
		}
	}
	return resolver.Coordinate{Name: raw}
}

// fingerprintOf computes t's composite fingerprint per §4.2: language
// tag/version, t's command template or, when it has none, its stable
// kind tag (the manifest
// sub-tree already captures anything a real command template would
// vary, per internal/fingerprint.CanonicalManifestSubtree's doc
// comment), the task's own input tree hash, its dependency-set hash,
// and its upstream tasks' already-computed fingerprints.
func (s *Scheduler) fingerprintOf(r *run, t *task.Task, proj *workspace.Project) (fingerprint.Fingerprint, error) {
	treeHash, err := s.treeHashFor(t)
	if err != nil {
		return fingerprint.Fingerprint{}, err
	}

	depHash := fingerprint.DependencySetHash(dependenciesFromPaths(t.Input.DependencyPaths))

	upstream := make([]fingerprint.Fingerprint, 0, len(t.Upstream))
	for _, up := range t.Upstream {
		if fp, ok := r.fingerprintOf(up); ok {
			upstream = append(upstream, fp)
		}
	}

	commandTemplate := t.CommandTemplate
	if commandTemplate == "" {
		commandTemplate = string(t.Kind)
	}

	return fingerprint.TaskFingerprint(fingerprint.TaskInput{
		Language:        proj.Manifest.Language(),
		LanguageVersion: languageVersion(proj.Manifest),
		CommandTemplate: commandTemplate,
		TreeHash:        treeHash,
		DepSetHash:      depHash,
		Upstream:        upstream,
		ManifestSubtree: fingerprint.CanonicalManifestSubtree(string(t.Kind), proj.Manifest),
	}), nil
}

func (s *Scheduler) treeHashFor(t *task.Task) (fingerprint.Fingerprint, error) {
	if len(t.Input.SourcePaths) == 0 {
		return fingerprint.Fingerprint{}, nil
	}
	return fingerprint.TreeHashAll(t.Input.SourcePaths)
}

func dependenciesFromPaths(paths []string) []fingerprint.Dependency {
	deps := make([]fingerprint.Dependency, 0, len(paths))
	for _, p := range paths {
		c := splitCoordinate(p)
		deps = append(deps, fingerprint.Dependency{Coordinate: c.Name, Version: c.Version})
	}
	return deps
}

func languageVersion(m *manifest.Manifest) string {
	switch m.Language() {
	case manifest.LanguageJava:
		if m.Java != nil {
			return m.Java.Target
		}
	case manifest.LanguageKotlin:
		if m.Kotlin != nil {
			return m.Kotlin.JVMTarget
		}
	}
	return ""
}

