package scheduler_test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
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
	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/graph"
	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/scheduler"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// fakeRemoteTier is an in-memory cache.RemoteTier: populated entries
// simulate a remote store shared across otherwise-independent local
// tiers ("different hosts"); getErr simulates every Get failing an
// integrity check, per forgeerrors.ErrCacheCorrupt.
type fakeRemoteTier struct {
	mu      sync.Mutex
	entries map[string]cache.Entry
	getErr  error
}

func newFakeRemoteTier() *fakeRemoteTier {
	return &fakeRemoteTier{entries: make(map[string]cache.Entry)}
}

func (f *fakeRemoteTier) Head(fingerprintHex string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[fingerprintHex]
	return ok, nil
}

func (f *fakeRemoteTier) Get(fingerprintHex string) (cache.Entry, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return cache.Entry{}, false, f.getErr
	}
	e, ok := f.entries[fingerprintHex]
	return e, ok, nil
}

func (f *fakeRemoteTier) Put(fingerprintHex string, entry cache.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[fingerprintHex] = entry
	return nil
}

func writeForgeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forge.toml"), []byte(content), 0o600))
}

func writeSource(t *testing.T, projectDir, className string) {
	t.Helper()
	srcDir := filepath.Join(projectDir, "src")
	require.NoError(t, os.MkdirAll(srcDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, className+".java"), []byte("class "+className+" {}"), 0o600))
}

func newRunScheduler(g *graph.Graph, ws *workspace.Workspace, drv driver.Driver, c *cache.Store) *scheduler.Scheduler {
	return &scheduler.Scheduler{
		Graph:     g,
		Workspace: ws,
		Drivers:   driver.NewRegistry(drv),
		Resolver:  resolver.Static{},
		Cache:     c,
		Bus:       eventbus.New(64),
		Clock:     clock.Frozen{At: time.Unix(0, 0)},
		Log:       zerolog.Nop(),
		Workers:   4,
	}
}

// S1: a two-module workspace (api depends on core) builds core's
// package before api's compile can start, and a second run over the
// same workspace hits the local cache for both.
func TestScheduler_MultiModuleClasspathAndSecondRunCaches(t *testing.T) {
	root := t.TempDir()
	writeForgeManifest(t, root, `
modules = ["core"]

[project]
name = "api"
language = "java"

[java]
source = "src"
`)
	writeSource(t, root, "Api")

	coreDir := filepath.Join(root, "core")
	writeForgeManifest(t, coreDir, `
[project]
name = "core"
language = "java"

[java]
source = "src"
`)
	writeSource(t, coreDir, "Core")

	ws, err := workspace.Load(root)
	require.NoError(t, err)
	require.Len(t, ws.Projects, 2)

	drv := newFakeDriver(manifest.LanguageJava)
	apiCompile := task.NewID("api", task.KindCompile, "")
	coreCompile := task.NewID("core", task.KindCompile, "")

	g, err := graph.Build(ws, graph.GoalBuild)
	require.NoError(t, err)
	apiTask := g.Task(apiCompile)
	require.NotNil(t, apiTask)
	assert.Contains(t, apiTask.Upstream, task.NewID("core", task.KindPackage, ""))

	localStore, err := local.New(t.TempDir())
	require.NoError(t, err)
	cacheStore := cache.New(localStore, nil, zerolog.Nop())

	first := newRunScheduler(g, ws, drv, cacheStore)
	report1, err := first.Run(context.Background(), "build-1")
	require.NoError(t, err)
	require.True(t, report1.Success)
	assert.Equal(t, task.StateSuccess, report1.Tasks[apiCompile].State)
	assert.Equal(t, task.StateSuccess, report1.Tasks[coreCompile].State)
	require.Equal(t, int32(2), drv.callCount(task.KindCompile))

	g2, err := graph.Build(ws, graph.GoalBuild)
	require.NoError(t, err)
	second := newRunScheduler(g2, ws, drv, cacheStore)
	report2, err := second.Run(context.Background(), "build-2")
	require.NoError(t, err)
	require.True(t, report2.Success)
	assert.Equal(t, task.StateCached, report2.Tasks[apiCompile].State)
	assert.Equal(t, task.StateCached, report2.Tasks[coreCompile].State)
	assert.Equal(t, int32(2), drv.callCount(task.KindCompile), "a cached second run must not re-invoke the driver")
	assert.Equal(t, 2, report2.CacheStats.LocalHits)
}

// S2: a cyclic module declaration is rejected by workspace.Load before
// any graph is built, and the resulting error maps to exit code 2.
func TestScheduler_CyclicWorkspaceNeverReachesGraph(t *testing.T) {
	root := t.TempDir()
	writeForgeManifest(t, root, `
modules = ["dep"]

[project]
name = "app"
language = "java"

[java]
source = "src"
`)
	depDir := filepath.Join(root, "dep")
	writeForgeManifest(t, depDir, `
modules = [".."]

[project]
name = "dep"
language = "java"

[java]
source = "src"
`)

	ws, err := workspace.Load(root)
	require.Error(t, err)
	assert.Nil(t, ws)
	assert.ErrorIs(t, err, forgeerrors.ErrCyclicModules)
	assert.Equal(t, 2, forgeerrors.ExitCode(err))
}

// S4: a remote cache entry populated by a first build satisfies a
// second scheduler run over a completely fresh local tier, simulating
// a second host sharing only the remote store.
func TestScheduler_RemoteCacheHitAcrossFreshLocalTier(t *testing.T) {
	proj := newJavaProject(t, "api")
	ws := &workspace.Workspace{Root: 0, Projects: []*workspace.Project{proj}}

	drv := newFakeDriver(manifest.LanguageJava)
	compileID := task.NewID("api", task.KindCompile, "")
	remote := newFakeRemoteTier()

	g1, err := graph.Build(ws, graph.GoalBuild)
	require.NoError(t, err)
	firstLocal, err := local.New(t.TempDir())
	require.NoError(t, err)
	first := newRunScheduler(g1, ws, drv, cache.New(firstLocal, remote, zerolog.Nop()))

	report1, err := first.Run(context.Background(), "build-1")
	require.NoError(t, err)
	require.True(t, report1.Success)
	require.Equal(t, int32(1), drv.callCount(task.KindCompile))

	g2, err := graph.Build(ws, graph.GoalBuild)
	require.NoError(t, err)
	secondLocal, err := local.New(t.TempDir())
	require.NoError(t, err)
	second := newRunScheduler(g2, ws, drv, cache.New(secondLocal, remote, zerolog.Nop()))

	report2, err := second.Run(context.Background(), "build-2")
	require.NoError(t, err)
	require.True(t, report2.Success)

	assert.Equal(t, task.StateCached, report2.Tasks[compileID].State)
	assert.Equal(t, cache.SourceRemote, report2.Tasks[compileID].CacheSource)
	assert.Equal(t, int32(1), drv.callCount(task.KindCompile), "a remote cache hit must not re-invoke the driver")
	assert.Equal(t, 1, report2.CacheStats.RemoteHits)
}

// S5: a remote entry that fails its integrity check degrades to a
// miss, logs a warning naming the fingerprint, and the scheduler
// recomputes the task via the driver rather than failing the build.
func TestScheduler_RemoteCacheCorruptRecomputesAndWarns(t *testing.T) {
	proj := newJavaProject(t, "api")
	ws := &workspace.Workspace{Root: 0, Projects: []*workspace.Project{proj}}

	g, err := graph.Build(ws, graph.GoalBuild)
	require.NoError(t, err)

	localStore, err := local.New(t.TempDir())
	require.NoError(t, err)

	remote := newFakeRemoteTier()
	remote.getErr = forgeerrors.ErrCacheCorrupt

	var logBuf bytes.Buffer
	cacheStore := cache.New(localStore, remote, zerolog.New(&logBuf))

	drv := newFakeDriver(manifest.LanguageJava)
	s := newRunScheduler(g, ws, drv, cacheStore)

	report, err := s.Run(context.Background(), "build-1")
	require.NoError(t, err)
	require.True(t, report.Success)

	compileID := task.NewID("api", task.KindCompile, "")
	assert.Equal(t, task.StateSuccess, report.Tasks[compileID].State)
	assert.Equal(t, int32(1), drv.callCount(task.KindCompile), "a corrupt remote entry must fall through to a real build")
	assert.Contains(t, logBuf.String(), "cache corrupt")
}

// S6: 62 sibling modules with byte-identical manifests and sources
// share one compile fingerprint. Only one of them should ever reach
// the driver; the rest resolve from the cache the first build
// populates, whether via a local-cache promotion or via
// cache.Store.Once's singleflight dedup for whichever siblings race
// it.
func TestScheduler_DiamondDedupesIdenticalSiblingFingerprints(t *testing.T) {
	const siblings = 62

	root := t.TempDir()
	writeForgeManifest(t, root, fmt.Sprintf(`
modules = [%s]

[project]
name = "sink"
language = "java"

[java]
source = "src"
`, quotedList(siblingNames(siblings))))
	writeSource(t, root, "Sink")

	for i := 0; i < siblings; i++ {
		name := fmt.Sprintf("mid%02d", i)
		dir := filepath.Join(root, name)
		writeForgeManifest(t, dir, `
modules = ["../common"]

[project]
name = "`+name+`"
language = "java"

[java]
source = "src"
`)
		writeSource(t, dir, "Mid")
	}

	commonDir := filepath.Join(root, "common")
	writeForgeManifest(t, commonDir, `
[project]
name = "common"
language = "java"

[java]
source = "src"
`)
	writeSource(t, commonDir, "Common")

	ws, err := workspace.Load(root)
	require.NoError(t, err)
	require.Len(t, ws.Projects, siblings+2)

	g, err := graph.Build(ws, graph.GoalBuild)
	require.NoError(t, err)

	localStore, err := local.New(t.TempDir())
	require.NoError(t, err)
	cacheStore := cache.New(localStore, nil, zerolog.Nop())

	drv := newFakeDriver(manifest.LanguageJava)
	s := newRunScheduler(g, ws, drv, cacheStore)

	report, err := s.Run(context.Background(), "build-1")
	require.NoError(t, err)
	require.True(t, report.Success)

	// common + one shared mid fingerprint + sink.
	assert.Equal(t, int32(3), drv.callCount(task.KindCompile))
	assert.Equal(t, int32(3), drv.callCount(task.KindPackage))
}

func siblingNames(n int) []string {
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = fmt.Sprintf("mid%02d", i)
	}
	return names
}

func quotedList(names []string) string {
	var b bytes.Buffer
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"` + n + `"`)
	}
	return b.String()
}
