package workspace_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enri312/forge/internal/forgeerrors"
	"github.com/enri312/forge/internal/workspace"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forge.toml"), []byte(content), 0o600))
}

func TestLoad_SingleProject(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[project]
name = "core"
language = "python"
`)

	ws, err := workspace.Load(root)
	require.NoError(t, err)
	assert.Len(t, ws.Projects, 1)
	assert.Equal(t, "core", ws.RootProject().Name())
}

// Module paths must stay inside the workspace root, so every fixture
// below nests its modules as subdirectories of root rather than
// siblings of it.
func TestLoad_ResolvesModulesTransitively(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
modules = ["lib-a"]

[project]
name = "app"
language = "java"

[java]
source = "src"
`)
	libA := filepath.Join(root, "lib-a")
	writeManifest(t, libA, `
modules = ["../lib-b"]

[project]
name = "lib-a"
language = "java"

[java]
source = "src"
`)
	libB := filepath.Join(root, "lib-b")
	writeManifest(t, libB, `
[project]
name = "lib-b"
language = "java"

[java]
source = "src"
`)

	ws, err := workspace.Load(root)
	require.NoError(t, err)
	require.Len(t, ws.Projects, 3)

	app := ws.RootProject()
	upstream := ws.TransitiveUpstreamModules(app)
	require.Len(t, upstream, 2)
	assert.Equal(t, "lib-a", upstream[0].Name())
	assert.Equal(t, "lib-b", upstream[1].Name())

	entries := ws.JVMClasspathEntries(app)
	require.Len(t, entries, 2)
	assert.Contains(t, entries[0], "lib-a.jar")
	assert.Contains(t, entries[1], "lib-b.jar")
}

func TestLoad_RejectsModuleOutsideRoot(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
modules = ["../lib-a"]

[project]
name = "app"
language = "java"

[java]
source = "src"
`)
	libA := filepath.Join(root, "..", "lib-a")
	writeManifest(t, libA, `
[project]
name = "lib-a"
language = "java"

[java]
source = "src"
`)

	_, err := workspace.Load(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, forgeerrors.ErrModuleOutsideRoot)
}

func TestLoad_DetectsModuleCycle(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
modules = ["dep"]

[project]
name = "app"
language = "python"
`)
	dep := filepath.Join(root, "dep")
	// dep points back at root, forming the cycle app -> dep -> app.
	writeManifest(t, dep, `
modules = ["`+relModulePath(dep, root)+`"]

[project]
name = "dep"
language = "python"
`)

	_, err := workspace.Load(root)
	require.Error(t, err)
	assert.ErrorIs(t, err, forgeerrors.ErrCyclicModules)
}

func relModulePath(from, to string) string {
	rel, err := filepath.Rel(from, to)
	if err != nil {
		return to
	}
	return rel
}

func TestLoad_DiamondDependencyLoadsOnce(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
modules = ["a", "b"]

[project]
name = "app"
language = "python"
`)
	a := filepath.Join(root, "a")
	writeManifest(t, a, `
modules = ["../shared"]

[project]
name = "a"
language = "python"
`)
	b := filepath.Join(root, "b")
	writeManifest(t, b, `
modules = ["../shared"]

[project]
name = "b"
language = "python"
`)
	shared := filepath.Join(root, "shared")
	writeManifest(t, shared, `
[project]
name = "shared"
language = "python"
`)

	ws, err := workspace.Load(root)
	require.NoError(t, err)
	// app, a, b, shared: four distinct projects, shared loaded only once.
	assert.Len(t, ws.Projects, 4)
	assert.NotNil(t, ws.ProjectByName("shared"))
}

func TestLoad_MissingModuleManifest(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
modules = ["missing"]

[project]
name = "app"
language = "python"
`)

	_, err := workspace.Load(root)
	assert.Error(t, err)
}
