// Package workspace resolves the transitive closure of a root
// manifest's modules into an immutable Workspace: an ordered list of
// Project nodes plus the DAG of module edges between them.
//
// The workspace graph is kept as projects []Project plus edges
// []edge{parent, child int}, never as node-owns-neighbor pointers —
// this sidesteps Go's lack of fixed node ownership in cyclic data and
// keeps cycle detection a simple index-based DFS.
package workspace

import (
	"path/filepath"

	"github.com/enri312/forge/internal/manifest"
)

// Project is one node in the workspace: its manifest, its resolved
// absolute directory, and the absolute path of its own .forge/ state
// directory. A Project exclusively owns both.
type Project struct {
	Manifest  *manifest.Manifest
	Path      string
	StateDir  string
	ModuleRel string // path as declared in the parent's modules list, "" for the root
}

// Name returns the project's manifest name, used as the leading
// component of every task ID belonging to it.
func (p *Project) Name() string {
	return p.Manifest.Project.Name
}

// edge records that Projects[Parent] declared Projects[Child] as one
// of its modules.
type edge struct {
	Parent int
	Child  int
}

// Workspace is the frozen result of loading a root manifest and its
// transitive modules. It is immutable once returned by Load: callers
// never mutate Projects or edges after construction.
type Workspace struct {
	Root     int // index into Projects of the workspace root
	Projects []*Project
	edges    []edge
}

// ProjectByName returns the project with the given manifest name, or
// nil if no such project exists in the workspace.
func (w *Workspace) ProjectByName(name string) *Project {
	for _, p := range w.Projects {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// UpstreamModules returns the direct module dependencies declared by
// project p (the children of p in the module DAG).
func (w *Workspace) UpstreamModules(p *Project) []*Project {
	idx := w.indexOf(p)
	var out []*Project
	for _, e := range w.edges {
		if e.Parent == idx {
			out = append(out, w.Projects[e.Child])
		}
	}
	return out
}

// TransitiveUpstreamModules returns every project reachable from p by
// following module edges, in discovery order with duplicates removed.
// This is the classpath projection basis: for a JVM project, the
// package task outputs of every project in this set must be prepended
// to its compile classpath (§4.1 — this is the reason modules form a
// DAG rather than a free graph).
func (w *Workspace) TransitiveUpstreamModules(p *Project) []*Project {
	visited := make(map[int]bool)
	var order []*Project

	var visit func(idx int)
	visit = func(idx int) {
		for _, e := range w.edges {
			if e.Parent != idx {
				continue
			}
			if visited[e.Child] {
				continue
			}
			visited[e.Child] = true
			order = append(order, w.Projects[e.Child])
			visit(e.Child)
		}
	}
	visit(w.indexOf(p))
	return order
}

func (w *Workspace) indexOf(p *Project) int {
	for i, proj := range w.Projects {
		if proj == p {
			return i
		}
	}
	return -1
}

// RootProject returns the workspace's root project.
func (w *Workspace) RootProject() *Project {
	return w.Projects[w.Root]
}

// stateDirFor returns the per-project .forge/ directory path.
func stateDirFor(projectDir string) string {
	return filepath.Join(projectDir, ".forge")
}
