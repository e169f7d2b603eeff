package graph

import (
	"fmt"
	"path/filepath"

	"github.com/enri312/forge/internal/driver"
	"github.com/enri312/forge/internal/hook"
	"github.com/enri312/forge/internal/manifest"
	"github.com/enri312/forge/internal/task"
	"github.com/enri312/forge/internal/workspace"
)

// Goal names a synthesized root target. Build currently treats every
// goal identically (it always synthesizes the full per-project task
// set) since spec.md does not define goal-scoped pruning; Goal exists
// so a future CLI verb ("forge test" vs "forge build") can select a
// subset without changing the graph's synthesis rules.
type Goal string

// The two named goals the CLI surface exposes.
const (
	GoalBuild Goal = "build"
	GoalTest  Goal = "test"
)

// Build synthesizes the full task graph for a workspace per §4.3: for
// every project a resolve-deps task, a compile task depending on
// resolve-deps and on upstream projects' package tasks, a package
// task depending on compile, a test task depending on compile plus
// test-dependency resolution, every custom task, and the four
// lifecycle-hook phases expanded and attached to their parent task.
func Build(ws *workspace.Workspace, goal Goal) (*Graph, error) {
	return BuildWithDrivers(ws, goal, nil)
}

// BuildWithDrivers is Build plus §4.8's driver.Plan extension point:
// for every project whose language has a registered driver, the
// driver's own language-specific task seeds (e.g. a Java project
// with a main-class gets a "run" task depending on package) are
// synthesized alongside the universal per-project set. drivers may
// be nil, in which case BuildWithDrivers behaves exactly like Build.
func BuildWithDrivers(ws *workspace.Workspace, _ Goal, drivers *driver.Registry) (*Graph, error) {
	var tasks []*task.Task

	for _, p := range ws.Projects {
		projectTasks, err := buildProjectTasks(ws, p)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, projectTasks...)

		if drivers != nil {
			seedTasks, err := buildDriverSeedTasks(p, drivers)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, seedTasks...)
		}
	}

	return New(tasks)
}

// buildDriverSeedTasks synthesizes tasks from a project's driver's
// Plan seeds, qualifying each seed's bare-kind upstream references to
// the same project (§4.8: Plan supplies language-specific extras
// beyond the universal compile/test/package/resolve-deps set; Plan
// implementations never know the project name, so internal/graph is
// responsible for qualifying their upstream references).
func buildDriverSeedTasks(p *workspace.Project, drivers *driver.Registry) ([]*task.Task, error) {
	d, err := drivers.For(p.Manifest.Language())
	if err != nil {
		// No driver registered for this language: the engine still
		// built the universal task set above; language-specific extras
		// are simply unavailable, not a fatal workspace-load error.
		return nil, nil //nolint:nilerr // absent driver is not fatal for graph construction
	}

	seeds, err := d.Plan(p)
	if err != nil {
		return nil, fmt.Errorf("%s: plan: %w", p.Name(), err)
	}

	name := p.Name()
	tasks := make([]*task.Task, 0, len(seeds))
	for _, seed := range seeds {
		upstream := make([]task.ID, 0, len(seed.Upstream))
		for _, k := range seed.Upstream {
			upstream = append(upstream, task.NewID(name, k, ""))
		}
		tasks = append(tasks, &task.Task{
			ID:              task.NewID(name, seed.Kind, seed.Qualifier),
			Kind:            seed.Kind,
			ProjectName:     name,
			Qualifier:       seed.Qualifier,
			CommandTemplate: seed.CommandTemplate,
			Upstream:        upstream,
		})
	}
	return tasks, nil
}

func buildProjectTasks(ws *workspace.Workspace, p *workspace.Project) ([]*task.Task, error) {
	name := p.Name()
	m := p.Manifest

	var tasks []*task.Task

	resolveDeps := &task.Task{
		ID:          task.NewID(name, task.KindResolveDeps, ""),
		Kind:        task.KindResolveDeps,
		ProjectName: name,
		Input:       task.Input{DependencyPaths: dependencyCoordinates(m.Dependencies)},
	}
	tasks = append(tasks, resolveDeps)

	resolveTestDeps := &task.Task{
		ID:          task.NewID(name, task.KindResolveDeps, "test"),
		Kind:        task.KindResolveDeps,
		ProjectName: name,
		Qualifier:   "test",
		Input:       task.Input{DependencyPaths: dependencyCoordinates(m.TestDependencies)},
	}
	tasks = append(tasks, resolveTestDeps)

	preBuild := hook.Expand(name, m, manifest.HookPreBuild)
	postBuild := hook.Expand(name, m, manifest.HookPostBuild)
	preTest := hook.Expand(name, m, manifest.HookPreTest)
	postTest := hook.Expand(name, m, manifest.HookPostTest)
	tasks = append(tasks, preBuild...)
	tasks = append(tasks, postBuild...)
	tasks = append(tasks, preTest...)
	tasks = append(tasks, postTest...)

	compileUpstream := []task.ID{resolveDeps.ID}
	for _, up := range ws.UpstreamModules(p) {
		compileUpstream = append(compileUpstream, task.NewID(up.Name(), task.KindPackage, ""))
	}
	if id := hook.LastID(preBuild); id != "" {
		compileUpstream = append(compileUpstream, id)
	}

	compile := &task.Task{
		ID:          task.NewID(name, task.KindCompile, ""),
		Kind:        task.KindCompile,
		ProjectName: name,
		Upstream:    compileUpstream,
		Input:       task.Input{SourcePaths: sourcePaths(p)},
	}
	tasks = append(tasks, compile)

	pkg := &task.Task{
		ID:          task.NewID(name, task.KindPackage, ""),
		Kind:        task.KindPackage,
		ProjectName: name,
		Upstream:    []task.ID{compile.ID},
	}
	tasks = append(tasks, pkg)

	for _, t := range postBuild {
		t.Upstream = appendIfFirst(t.Upstream, pkg.ID)
	}

	testUpstream := []task.ID{compile.ID, resolveTestDeps.ID}
	if id := hook.LastID(preTest); id != "" {
		testUpstream = append(testUpstream, id)
	}
	test := &task.Task{
		ID:          task.NewID(name, task.KindTest, ""),
		Kind:        task.KindTest,
		ProjectName: name,
		Upstream:    testUpstream,
		Input:       task.Input{SourcePaths: sourcePaths(p)},
	}
	tasks = append(tasks, test)

	for _, t := range postTest {
		t.Upstream = appendIfFirst(t.Upstream, test.ID)
	}

	customTasks, err := buildCustomTasks(name, m)
	if err != nil {
		return nil, err
	}
	tasks = append(tasks, customTasks...)

	return tasks, nil
}

// appendIfFirst attaches parent as an additional upstream dependency
// of the first command in a hook-phase chain (t.Upstream is otherwise
// empty for that command, since it is its phase's entry point).
func appendIfFirst(upstream []task.ID, parent task.ID) []task.ID {
	if len(upstream) > 0 {
		return upstream
	}
	return []task.ID{parent}
}

func buildCustomTasks(projectName string, m *manifest.Manifest) ([]*task.Task, error) {
	var out []*task.Task
	for name, def := range m.Tasks {
		id := task.NewID(projectName, task.KindCustom, name)
		upstream := make([]task.ID, 0, len(def.DependsOn))
		for _, dep := range def.DependsOn {
			upstream = append(upstream, qualifyTaskRef(projectName, dep))
		}
		out = append(out, &task.Task{
			ID:              id,
			Kind:            task.KindCustom,
			ProjectName:     projectName,
			Qualifier:       name,
			CommandTemplate: def.Command,
			Upstream:        upstream,
		})
	}
	return out, nil
}

// qualifyTaskRef resolves a depends-on entry from a [tasks.<name>]
// table into a fully qualified task.ID: a bare kind ("compile") is
// scoped to the declaring project, while a "project/kind" reference
// crosses project boundaries.
func qualifyTaskRef(projectName, ref string) task.ID {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '/' {
			return task.ID(ref)
		}
	}
	return task.ID(fmt.Sprintf("%s/%s", projectName, ref))
}

func dependencyCoordinates(deps map[string]string) []string {
	out := make([]string, 0, len(deps))
	for coord, version := range deps {
		out = append(out, coord+"@"+version)
	}
	return out
}

// sourcePaths resolves a project's manifest-relative source directory
// against its absolute project path, since a task's fingerprint tree
// hash and a driver's compile/test invocation both need a path that
// resolves regardless of the process's own working directory.
func sourcePaths(p *workspace.Project) []string {
	m := p.Manifest
	switch m.Language() {
	case manifest.LanguageJava:
		if m.Java != nil {
			return []string{filepath.Join(p.Path, m.Java.Source)}
		}
	case manifest.LanguageKotlin:
		if m.Kotlin != nil {
			return []string{filepath.Join(p.Path, m.Kotlin.Source)}
		}
	case manifest.LanguagePython:
		if m.Python != nil {
			return []string{filepath.Join(p.Path, m.Python.Source)}
		}
	}
	return nil
}
