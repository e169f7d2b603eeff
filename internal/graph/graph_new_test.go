package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/graph"
	"github.com/enri312/forge/internal/task"
)

func newTask(id task.ID, upstream ...task.ID) *task.Task {
	return &task.Task{ID: id, Upstream: upstream}
}

func TestNew_LayersLongestPathAndSortsWithinLayer(t *testing.T) {
	compile := newTask("api/compile")
	pkg := newTask("api/package", "api/compile")
	test := newTask("api/test", "api/compile")
	run := newTask("api/run", "api/package")

	g, err := graph.New([]*task.Task{run, test, pkg, compile})
	require.NoError(t, err)

	layers := g.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, []task.ID{"api/compile"}, layers[0])
	assert.Equal(t, []task.ID{"api/package", "api/test"}, layers[1])
	assert.Equal(t, []task.ID{"api/run"}, layers[2])
}

func TestNew_DetectsSimpleCycle(t *testing.T) {
	a := newTask("api/a", "api/b")
	b := newTask("api/b", "api/a")

	_, err := graph.New([]*task.Task{a, b})
	require.Error(t, err)
	assert.ErrorIs(t, err, forgeerrors.ErrCyclicTasks)
}

func TestNew_DetectsSelfCycle(t *testing.T) {
	a := newTask("api/a", "api/a")

	_, err := graph.New([]*task.Task{a})
	require.Error(t, err)
	assert.ErrorIs(t, err, forgeerrors.ErrCyclicTasks)
}

func TestNew_RejectsUnknownUpstream(t *testing.T) {
	a := newTask("api/a", "api/ghost")

	_, err := graph.New([]*task.Task{a})
	require.Error(t, err)
	assert.ErrorIs(t, err, forgeerrors.ErrTaskNotFound)
}

func TestNew_DiamondSharesLayerZeroDependency(t *testing.T) {
	compile := newTask("api/compile")
	left := newTask("api/left", "api/compile")
	right := newTask("api/right", "api/compile")
	join := newTask("api/join", "api/left", "api/right")

	g, err := graph.New([]*task.Task{compile, left, right, join})
	require.NoError(t, err)

	layers := g.Layers()
	require.Len(t, layers, 3)
	assert.Equal(t, []task.ID{"api/compile"}, layers[0])
	assert.Equal(t, []task.ID{"api/left", "api/right"}, layers[1])
	assert.Equal(t, []task.ID{"api/join"}, layers[2])
}

func TestGraph_DownstreamFindsDependents(t *testing.T) {
	compile := newTask("api/compile")
	pkg := newTask("api/package", "api/compile")
	test := newTask("api/test", "api/compile")

	g, err := graph.New([]*task.Task{compile, pkg, test})
	require.NoError(t, err)

	down := g.Downstream("api/compile")
	assert.ElementsMatch(t, []task.ID{"api/package", "api/test"}, down)
	assert.Empty(t, g.Downstream("api/package"))
}

func TestGraph_TaskLooksUpByID(t *testing.T) {
	compile := newTask("api/compile")
	g, err := graph.New([]*task.Task{compile})
	require.NoError(t, err)

	assert.Same(t, compile, g.Task("api/compile"))
	assert.Nil(t, g.Task("api/missing"))
}
