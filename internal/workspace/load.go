package workspace

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/manifest"
)

// visitState tracks a module's position in the in-progress DFS, the
// same white/gray/black coloring used for task-graph cycle detection.
type visitState int

const (
	unvisited visitState = iota
	inProgress
	done
)

// Load reads the manifest at rootDir and recursively resolves every
// path in its modules list, relative to the declaring manifest's own
// directory, into a Workspace.
//
// Every module path must resolve to a directory inside rootDir; one
// that escapes the workspace root (e.g. "../lib-a") fails with
// ErrModuleOutsideRoot before its manifest is even read.
//
// A module is visited by the absolute directory it resolves to. If a
// directory is revisited while still in-progress (an ancestor on the
// current DFS path declares it, directly or transitively, as its own
// module) Load fails with CyclicModules; the error names the full
// cycle path for diagnostics. Revisiting a directory that has already
// finished loading is not an error — diamond dependencies between
// modules are expected and only load each project once.
func Load(rootDir string) (*Workspace, error) {
	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, forgeerrors.Wrapf(forgeerrors.ErrConfig, "workspace root: %v", err)
	}

	l := &loader{
		rootAbs: abs,
		states:  make(map[string]visitState),
		byPath:  make(map[string]int),
	}

	rootIdx, err := l.visit(abs, "")
	if err != nil {
		return nil, err
	}

	return &Workspace{
		Root:     rootIdx,
		Projects: l.projects,
		edges:    l.edges,
	}, nil
}

type loader struct {
	rootAbs  string // workspace root; every resolved module must stay inside it
	states   map[string]visitState
	byPath   map[string]int
	projects []*Project
	edges    []edge
	path     []string // directories currently on the DFS stack, for cycle reporting
}

// visit loads the manifest at dir (if not already loaded), recurses
// into its modules, and returns its index in l.projects. moduleRel is
// the path as the parent manifest declared it, or "" for the root.
func (l *loader) visit(dir, moduleRel string) (int, error) {
	switch l.states[dir] {
	case inProgress:
		cycle := append(append([]string{}, l.path...), dir)
		return -1, fmt.Errorf("%w: %s", forgeerrors.ErrCyclicModules, formatCycle(cycle))
	case done:
		return l.byPath[dir], nil
	}

	l.states[dir] = inProgress
	l.path = append(l.path, dir)

	m, err := manifest.Load(dir)
	if err != nil {
		return -1, err
	}

	p := &Project{
		Manifest:  m,
		Path:      dir,
		StateDir:  stateDirFor(dir),
		ModuleRel: moduleRel,
	}
	idx := len(l.projects)
	l.projects = append(l.projects, p)
	l.byPath[dir] = idx

	for _, rel := range m.Modules {
		childDir, err := filepath.Abs(filepath.Join(dir, rel))
		if err != nil {
			return -1, forgeerrors.Wrapf(forgeerrors.ErrConfig, "module %q: %v", rel, err)
		}

		if err := l.checkContainment(childDir); err != nil {
			return -1, fmt.Errorf("module %q: %w", rel, err)
		}

		childIdx, err := l.visit(childDir, rel)
		if err != nil {
			return -1, err
		}

		l.edges = append(l.edges, edge{Parent: idx, Child: childIdx})
	}

	l.path = l.path[:len(l.path)-1]
	l.states[dir] = done

	return idx, nil
}

// checkContainment rejects a module path that resolves outside the
// workspace root: rel is relative to the root only once it no longer
// starts with "..", the standard filepath.Rel escape marker.
func (l *loader) checkContainment(childDir string) error {
	rel, err := filepath.Rel(l.rootAbs, childDir)
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerrors.ErrModuleOutsideRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s resolves outside %s", forgeerrors.ErrModuleOutsideRoot, childDir, l.rootAbs)
	}
	return nil
}

func formatCycle(path []string) string {
	out := ""
	for i, p := range path {
		if i > 0 {
			out += " -> "
		}
		out += filepath.Base(p)
	}
	return out
}
