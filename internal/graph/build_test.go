package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/driver/javadriver"
	"github.com/enri312/forge/internal/graph"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/testutil"
	"github.com/enri312/forge/internal/workspace"
)

func newJavaWorkspace(t *testing.T, mainClass string) *workspace.Workspace {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteManifest(t, dir, `
[project]
name = "api"
language = "java"

[java]
source = "src/main/java"
main-class = "`+mainClass+`"
`)
	ws, err := workspace.Load(dir)
	require.NoError(t, err)
	return ws
}

func TestBuildWithDrivers_AddsRunTaskForMainClass(t *testing.T) {
	ws := newJavaWorkspace(t, "com.example.Main")
	registry := driver.NewRegistry(javadriver.New())

	g, err := graph.BuildWithDrivers(ws, graph.GoalBuild, registry)
	require.NoError(t, err)

	runID := task.NewID("api", task.KindRun, "")
	runTask := g.Task(runID)
	require.NotNil(t, runTask)
	assert.Contains(t, runTask.Upstream, task.NewID("api", task.KindPackage, ""))
}

func TestBuildWithDrivers_NilRegistryMatchesBuild(t *testing.T) {
	ws := newJavaWorkspace(t, "com.example.Main")

	viaBuild, err := graph.Build(ws, graph.GoalBuild)
	require.NoError(t, err)
	viaNilDrivers, err := graph.BuildWithDrivers(ws, graph.GoalBuild, nil)
	require.NoError(t, err)

	assert.Nil(t, viaBuild.Task(task.NewID("api", task.KindRun, "")))
	assert.Nil(t, viaNilDrivers.Task(task.NewID("api", task.KindRun, "")))
}

func TestBuildWithDrivers_NoMainClassAddsNoRunTask(t *testing.T) {
	ws := newJavaWorkspace(t, "")
	registry := driver.NewRegistry(javadriver.New())

	g, err := graph.BuildWithDrivers(ws, graph.GoalBuild, registry)
	require.NoError(t, err)
	assert.Nil(t, g.Task(task.NewID("api", task.KindRun, "")))
}
