// Package hook expands a manifest's four lifecycle-phase command
// lists into synthetic tasks the graph builder attaches to their
// phase's parent task (§4.7): pre-build/pre-test commands run
// upstream of compile/test, post-build/post-test commands run
// downstream of package/test.
//
// Commands within one phase run sequentially — each command's task
// depends on the previous command's task in listing order — because
// §4.7 requires preserving user intent (a second command may assume
// the first one's side effects).
package hook

import (
	"fmt"

	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/task"
)

// Phase identifies one of the four lifecycle phases using the
// manifest's own HookPhase type.
type Phase = manifest.HookPhase

// Expand returns the ordered synthetic tasks for one phase of one
// project's hooks. The returned tasks' Upstream fields already chain
// command[i+1] after command[i]; the caller (internal/graph) is
// responsible for wiring the phase's first/last task into the
// surrounding build graph per the attachment rule in the package doc.
func Expand(projectName string, m *manifest.Manifest, phase Phase) []*task.Task {
	commands := m.Hooks.Commands(phase)
	tasks := make([]*task.Task, 0, len(commands))

	var prev task.ID
	for i, cmd := range commands {
		id := task.NewID(projectName, task.KindHook, fmt.Sprintf("%s/%d", phase, i))
		t := &task.Task{
			ID:              id,
			Kind:            task.KindHook,
			ProjectName:     projectName,
			Qualifier:       fmt.Sprintf("%s/%d", phase, i),
			CommandTemplate: cmd,
		}
		if i > 0 {
			t.Upstream = []task.ID{prev}
		}
		tasks = append(tasks, t)
		prev = id
	}
	return tasks
}

// FirstID returns the ID of the first command task for phase, or ""
// if the phase has no commands — the ID downstream tasks (e.g.
// compile, for a pre-build phase) should add to their own Upstream.
func FirstID(tasks []*task.Task) task.ID {
	if len(tasks) == 0 {
		return ""
	}
	return tasks[0].ID
}

// LastID returns the ID of the last command task for phase, or "" if
// the phase has no commands — the ID an attaching task (e.g. a
// post-build CLI's next step) should depend on.
func LastID(tasks []*task.Task) task.ID {
	if len(tasks) == 0 {
		return ""
	}
	return tasks[len(tasks)-1].ID
}
