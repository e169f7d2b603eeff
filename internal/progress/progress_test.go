package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enri312/forge/internal/eventbus"
)

func TestModel_TracksTaskLifecycle(t *testing.T) {
	bus := eventbus.New(16)
	m := New(bus)

	bus.Publish(eventbus.Event{Type: eventbus.TypeBuildStarted, BuildID: "build-1"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeTaskStarted, TaskName: "api/compile"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeTaskFinished, TaskName: "api/compile", DurationMs: 42})
	bus.Publish(eventbus.Event{Type: eventbus.TypeBuildFinished, BuildID: "build-1", Success: true})

	for i := 0; i < 4; i++ {
		ev, ok := <-m.sub.C
		require.True(t, ok)
		model, _ := m.Update(eventMsg(ev))
		m = model.(*Model)
	}

	assert.Equal(t, "build-1", m.buildID)
	assert.True(t, m.finished)
	assert.True(t, m.success)
	require.Contains(t, m.rows, "api/compile")
	assert.Equal(t, "success", m.rows["api/compile"].state)
	assert.Contains(t, m.View().Content, "api/compile")
	assert.Contains(t, m.View().Content, "success")
}

func TestModel_MarksFailedTask(t *testing.T) {
	bus := eventbus.New(16)
	m := New(bus)

	bus.Publish(eventbus.Event{Type: eventbus.TypeTaskStarted, TaskName: "api/test"})
	bus.Publish(eventbus.Event{Type: eventbus.TypeTaskFinished, TaskName: "api/test", Failed: true})

	for i := 0; i < 2; i++ {
		ev := <-m.sub.C
		model, _ := m.Update(eventMsg(ev))
		m = model.(*Model)
	}

	assert.Equal(t, "failed", m.rows["api/test"].state)
}
