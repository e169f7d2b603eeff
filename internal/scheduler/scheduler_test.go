package scheduler_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enri312/forge/internal/cache"
	"github.com/enri312/forge/internal/cache/local"
	"github.com/enri312/forge/internal/clock"
	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/driver/resolver"
	"github.com/enri312/forge/internal/eventbus"
	"github.com/enri312/forge/internal/graph"
	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/scheduler"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// fakeDriver marks every file under a task's source directory as
// compiled by copying it into the task's declared output path, and
// counts how many times Execute actually ran per task kind, so a
// test can assert a cache hit or a singleflight dedup skipped it.
type fakeDriver struct {
	lang  manifest.Language
	calls map[task.Kind]*int32
	fail  map[task.Kind]bool
}

func newFakeDriver(lang manifest.Language) *fakeDriver {
	return &fakeDriver{
		lang:  lang,
		calls: make(map[task.Kind]*int32),
		fail:  make(map[task.Kind]bool),
	}
}

func (d *fakeDriver) Language() manifest.Language { return d.lang }

func (d *fakeDriver) Plan(*workspace.Project) ([]driver.TaskSeed, error) { return nil, nil }

func (d *fakeDriver) callCount(k task.Kind) int32 {
	c, ok := d.calls[k]
	if !ok {
		return 0
	}
	return atomic.LoadInt32(c)
}

func (d *fakeDriver) Execute(_ context.Context, in driver.ExecInput) (driver.Result, error) {
	counter, ok := d.calls[in.Task.Kind]
	if !ok {
		var zero int32
		counter = &zero
		d.calls[in.Task.Kind] = counter
	}
	atomic.AddInt32(counter, 1)

	if d.fail[in.Task.Kind] {
		return driver.Result{ExitStatus: 1}, nil
	}

	for _, out := range d.Outputs(in.Task, in.Project) {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return driver.Result{}, err
		}
		marker := filepath.Join(out, "marker.txt")
		if err := os.WriteFile(marker, []byte(string(in.Task.Kind)), 0o600); err != nil {
			return driver.Result{}, err
		}
	}
	return driver.Result{ExitStatus: 0}, nil
}

func (d *fakeDriver) Outputs(t *task.Task, p *workspace.Project) []string {
	return []string{filepath.Join(p.Path, p.Manifest.Project.OutputDir, string(t.Kind))}
}

func newJavaProject(t *testing.T, name string) *workspace.Project {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "Main.java"), []byte("class Main {}"), 0o600))

	m := &manifest.Manifest{
		Project: manifest.Project{Name: name, Language: "java", OutputDir: "build"},
		Java:    &manifest.JavaSection{Source: "src", Target: "17"},
	}
	return &workspace.Project{Manifest: m, Path: root, StateDir: filepath.Join(root, ".forge")}
}

func newScheduler(t *testing.T, proj *workspace.Project, drv driver.Driver, res resolver.Resolver) (*scheduler.Scheduler, *graph.Graph, *fakeDriver) {
	t.Helper()
	ws := &workspace.Workspace{Root: 0, Projects: []*workspace.Project{proj}}

	g, err := graph.Build(ws, graph.Goal("build"))
	require.NoError(t, err)

	localStore, err := local.New(t.TempDir())
	require.NoError(t, err)
	cacheStore := cache.New(localStore, nil, zerolog.Nop())

	fd, _ := drv.(*fakeDriver)

	s := &scheduler.Scheduler{
		Graph:     g,
		Workspace: ws,
		Drivers:   driver.NewRegistry(drv),
		Resolver:  res,
		Cache:     cacheStore,
		Bus:       eventbus.New(64),
		Clock:     clock.Frozen{At: time.Unix(0, 0)},
		Log:       zerolog.Nop(),
		Workers:   4,
	}
	return s, g, fd
}

func TestScheduler_RunSucceedsEndToEnd(t *testing.T) {
	proj := newJavaProject(t, "api")
	drv := newFakeDriver(manifest.LanguageJava)
	s, _, _ := newScheduler(t, proj, drv, resolver.Static{})

	report, err := s.Run(context.Background(), "build-1")
	require.NoError(t, err)
	assert.True(t, report.Success)

	compileID := task.NewID("api", task.KindCompile, "")
	res, ok := report.Tasks[compileID]
	require.True(t, ok)
	assert.Equal(t, task.StateSuccess, res.State)
}

func TestScheduler_FailureSkipsDownstream(t *testing.T) {
	proj := newJavaProject(t, "api")
	drv := newFakeDriver(manifest.LanguageJava)
	drv.fail[task.KindCompile] = true
	s, _, _ := newScheduler(t, proj, drv, resolver.Static{})

	report, err := s.Run(context.Background(), "build-2")
	require.NoError(t, err)
	assert.False(t, report.Success)

	compileID := task.NewID("api", task.KindCompile, "")
	assert.Equal(t, task.StateFailed, report.Tasks[compileID].State)

	packageID := task.NewID("api", task.KindPackage, "")
	assert.Equal(t, task.StateSkippedUpstream, report.Tasks[packageID].State)

	testID := task.NewID("api", task.KindTest, "")
	assert.Equal(t, task.StateSkippedUpstream, report.Tasks[testID].State)
}

func TestScheduler_SecondRunHitsCache(t *testing.T) {
	proj := newJavaProject(t, "api")
	drv := newFakeDriver(manifest.LanguageJava)

	ws := &workspace.Workspace{Root: 0, Projects: []*workspace.Project{proj}}
	g, err := graph.Build(ws, graph.Goal("build"))
	require.NoError(t, err)

	localStore, err := local.New(t.TempDir())
	require.NoError(t, err)
	cacheStore := cache.New(localStore, nil, zerolog.Nop())

	newRunScheduler := func() *scheduler.Scheduler {
		return &scheduler.Scheduler{
			Graph:     g,
			Workspace: ws,
			Drivers:   driver.NewRegistry(drv),
			Resolver:  resolver.Static{},
			Cache:     cacheStore,
			Bus:       eventbus.New(64),
			Clock:     clock.Frozen{At: time.Unix(0, 0)},
			Log:       zerolog.Nop(),
			Workers:   4,
		}
	}

	first := newRunScheduler()
	report1, err := first.Run(context.Background(), "build-1")
	require.NoError(t, err)
	require.True(t, report1.Success)

	compileID := task.NewID("api", task.KindCompile, "")
	require.Equal(t, task.StateSuccess, report1.Tasks[compileID].State)
	require.Equal(t, int32(1), drv.callCount(task.KindCompile))

	second := newRunScheduler()
	report2, err := second.Run(context.Background(), "build-2")
	require.NoError(t, err)
	require.True(t, report2.Success)

	assert.Equal(t, task.StateCached, report2.Tasks[compileID].State)
	assert.Equal(t, int32(1), drv.callCount(task.KindCompile), "a cache hit must not re-invoke the driver")
	assert.Equal(t, 1, report2.CacheStats.LocalHits)
}

func TestScheduler_ResolveDepsUsesResolverNotDriver(t *testing.T) {
	proj := newJavaProject(t, "api")
	proj.Manifest.Dependencies = map[string]string{"org.example:lib": "1.0.0"}
	drv := newFakeDriver(manifest.LanguageJava)
	res := resolver.Static{Paths: map[string]string{"org.example:lib@1.0.0": "/tmp/lib-1.0.0.jar"}}

	s, g, _ := newScheduler(t, proj, drv, res)

	report, err := s.Run(context.Background(), "build-1")
	require.NoError(t, err)
	require.True(t, report.Success)

	depsID := task.NewID("api", task.KindResolveDeps, "")
	depsTask := g.Task(depsID)
	require.NotNil(t, depsTask)
	assert.Equal(t, []string{"/tmp/lib-1.0.0.jar"}, depsTask.Output.Paths)

	assert.Equal(t, int32(0), drv.callCount(task.KindResolveDeps), "resolve-deps must never reach the driver")
}

func TestScheduler_PublishesBuildAndTaskEvents(t *testing.T) {
	proj := newJavaProject(t, "api")
	drv := newFakeDriver(manifest.LanguageJava)
	s, _, _ := newScheduler(t, proj, drv, resolver.Static{})

	sub := s.Bus.Subscribe()
	defer sub.Unsubscribe()

	_, err := s.Run(context.Background(), "build-1")
	require.NoError(t, err)

	var sawStart, sawFinish bool
	drain := true
	for drain {
		select {
		case ev := <-sub.C:
			switch ev.Type {
			case eventbus.TypeBuildStarted:
				sawStart = true
			case eventbus.TypeBuildFinished:
				sawFinish = true
			}
		default:
			drain = false
		}
	}
	assert.True(t, sawStart)
	assert.True(t, sawFinish)
}
