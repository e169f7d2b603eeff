// Package graph builds the typed DAG of tasks for a workspace and
// goal, detects cycles, and computes the longest-path execution
// layering the scheduler runs against (§4.3).
//
// Like internal/workspace, the graph is kept as a node slice plus an
// edge relation rather than node-owns-neighbor pointers, so cycle
// detection is a plain index-based DFS regardless of target-language
// ownership rules.
package graph

import (
	"fmt"
	"sort"

	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/task"
)

// Graph is the frozen task DAG for one build invocation.
type Graph struct {
	tasks   []*task.Task
	byID    map[task.ID]int
	layers  [][]task.ID // layers[i] = task IDs at longest-path depth i, lexicographically sorted
}

// Tasks returns every task in the graph, in insertion order.
func (g *Graph) Tasks() []*task.Task {
	return g.tasks
}

// Task returns the task with the given ID, or nil if not found.
func (g *Graph) Task(id task.ID) *task.Task {
	idx, ok := g.byID[id]
	if !ok {
		return nil
	}
	return g.tasks[idx]
}

// Layers returns the execution layering: Layers()[i] is the
// lexicographically sorted set of task IDs at longest-path depth i.
// Tasks within a layer have no edges between them and may run
// concurrently; layer i+1 tasks all depend, directly or transitively,
// on at least one task in layer <= i.
func (g *Graph) Layers() [][]task.ID {
	return g.layers
}

// Downstream returns the IDs of every task that lists id as an
// upstream dependency, used by the scheduler to fan out
// skipped-upstream propagation after a failure.
func (g *Graph) Downstream(id task.ID) []task.ID {
	var out []task.ID
	for _, t := range g.tasks {
		for _, up := range t.Upstream {
			if up == id {
				out = append(out, t.ID)
				break
			}
		}
	}
	return out
}

// New builds a Graph from a flat set of tasks whose Upstream fields
// are already populated by the caller (the workspace-aware task
// synthesis in internal/hook and the per-project builder in build.go).
//
// New validates that every upstream ID refers to a task present in
// the set (ErrTaskNotFound), detects cycles via DFS white/gray/black
// coloring (ErrCyclicTasks, reported with the offending cycle), and
// computes the longest-path layering.
func New(tasks []*task.Task) (*Graph, error) {
	g := &Graph{
		tasks: tasks,
		byID:  make(map[task.ID]int, len(tasks)),
	}
	for i, t := range tasks {
		g.byID[t.ID] = i
	}

	for _, t := range tasks {
		for _, up := range t.Upstream {
			if _, ok := g.byID[up]; !ok {
				return nil, fmt.Errorf("%w: %s references unknown upstream task %s", forgeerrors.ErrTaskNotFound, t.ID, up)
			}
		}
	}

	if err := detectCycle(tasks, g.byID); err != nil {
		return nil, err
	}

	layerOf, err := layer(tasks, g.byID)
	if err != nil {
		return nil, err
	}

	maxLayer := 0
	for _, l := range layerOf {
		if l > maxLayer {
			maxLayer = l
		}
	}
	layers := make([][]task.ID, maxLayer+1)
	for _, t := range tasks {
		layers[layerOf[t.ID]] = append(layers[layerOf[t.ID]], t.ID)
	}
	for i := range layers {
		sort.Slice(layers[i], func(a, b int) bool { return layers[i][a] < layers[i][b] })
	}
	g.layers = layers

	return g, nil
}

type color int

const (
	white color = iota
	gray
	black
)

// detectCycle runs a DFS over the upstream relation, coloring nodes
// white/gray/black exactly as §4.3 specifies: encountering a gray
// node (one currently on the DFS stack) means a cycle closes back on
// itself.
func detectCycle(tasks []*task.Task, byID map[task.ID]int) error {
	colors := make([]color, len(tasks))
	var stack []task.ID

	var visit func(idx int) error
	visit = func(idx int) error {
		colors[idx] = gray
		stack = append(stack, tasks[idx].ID)

		for _, up := range tasks[idx].Upstream {
			upIdx := byID[up]
			switch colors[upIdx] {
			case gray:
				cycle := append(append([]task.ID{}, stack...), up)
				return fmt.Errorf("%w: %s", forgeerrors.ErrCyclicTasks, formatCycle(cycle))
			case white:
				if err := visit(upIdx); err != nil {
					return err
				}
			}
		}

		colors[idx] = black
		stack = stack[:len(stack)-1]
		return nil
	}

	for i := range tasks {
		if colors[i] == white {
			if err := visit(i); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatCycle(ids []task.ID) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += string(id)
	}
	return out
}

// layer computes layer(t) = 1 + max(layer(u) for u in upstream(t)),
// layer(leaf) = 0, via memoized DFS. The cycle check above guarantees
// this terminates.
func layer(tasks []*task.Task, byID map[task.ID]int) (map[task.ID]int, error) {
	memo := make(map[task.ID]int, len(tasks))

	var depth func(t *task.Task) int
	depth = func(t *task.Task) int {
		if d, ok := memo[t.ID]; ok {
			return d
		}
		if len(t.Upstream) == 0 {
			memo[t.ID] = 0
			return 0
		}
		max := 0
		for _, up := range t.Upstream {
			d := depth(tasks[byID[up]])
			if d+1 > max {
				max = d + 1
			}
		}
		memo[t.ID] = max
		return max
	}

	for _, t := range tasks {
		depth(t)
	}
	return memo, nil
}
