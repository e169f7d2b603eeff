package fingerprint_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enri312/forge/internal/fingerprint"
	"github.com/enri312/forge/internal/manifest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestTreeHash_DeterministicAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "A.java"), "class A {}")
	writeFile(t, filepath.Join(dir, "src", "B.java"), "class B {}")

	h1, err := fingerprint.TreeHash(dir)
	require.NoError(t, err)
	h2, err := fingerprint.TreeHash(dir)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestTreeHash_ChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A.java"), "class A {}")
	before, err := fingerprint.TreeHash(dir)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "A.java"), "class A { int x; }")
	after, err := fingerprint.TreeHash(dir)
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestTreeHash_IgnoresEmptyDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "A.java"), "class A {}")
	before, err := fingerprint.TreeHash(dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "empty"), 0o755))
	after, err := fingerprint.TreeHash(dir)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestTreeHash_PathRenameChangesHash(t *testing.T) {
	dirA := t.TempDir()
	writeFile(t, filepath.Join(dirA, "A.java"), "class A {}")
	dirB := t.TempDir()
	writeFile(t, filepath.Join(dirB, "B.java"), "class A {}")

	hA, err := fingerprint.TreeHash(dirA)
	require.NoError(t, err)
	hB, err := fingerprint.TreeHash(dirB)
	require.NoError(t, err)

	assert.NotEqual(t, hA, hB, "identical content under a different relative path must hash differently")
}

func TestTreeHash_SymlinkResolvesToTargetContent(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}

	target := t.TempDir()
	writeFile(t, filepath.Join(target, "A.java"), "class A {}")

	linkDir := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(target, "A.java"), filepath.Join(linkDir, "Link.java")))

	linked, err := fingerprint.TreeHash(linkDir)
	require.NoError(t, err)
	direct, err := fingerprint.TreeHash(target)
	require.NoError(t, err)
	// different relative path ("Link.java" vs "A.java") so the tree
	// hashes must differ even though the underlying bytes are identical.
	assert.NotEqual(t, linked, direct)
}

func TestTreeHash_SymlinkCycleFailsWithBadInputs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require elevated privileges on windows")
	}

	dir := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(dir, "b"), filepath.Join(dir, "a")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "a"), filepath.Join(dir, "b")))

	_, err := fingerprint.TreeHash(dir)
	assert.Error(t, err)
}

func TestTreeHashAll_OrderIndependent(t *testing.T) {
	dirA := t.TempDir()
	writeFile(t, filepath.Join(dirA, "Main.java"), "class Main {}")
	dirB := t.TempDir()
	writeFile(t, filepath.Join(dirB, "MainTest.java"), "class MainTest {}")

	forward, err := fingerprint.TreeHashAll([]string{dirA, dirB})
	require.NoError(t, err)
	backward, err := fingerprint.TreeHashAll([]string{dirB, dirA})
	require.NoError(t, err)

	assert.Equal(t, forward, backward)
}

func TestTreeHashAll_ChangesWhenEitherRootChanges(t *testing.T) {
	dirA := t.TempDir()
	writeFile(t, filepath.Join(dirA, "Main.java"), "class Main {}")
	dirB := t.TempDir()
	writeFile(t, filepath.Join(dirB, "MainTest.java"), "class MainTest {}")

	before, err := fingerprint.TreeHashAll([]string{dirA, dirB})
	require.NoError(t, err)

	writeFile(t, filepath.Join(dirB, "MainTest.java"), "class MainTest { void t() {} }")
	after, err := fingerprint.TreeHashAll([]string{dirA, dirB})
	require.NoError(t, err)

	assert.NotEqual(t, before, after)
}

func TestDependencySetHash_OrderIndependent(t *testing.T) {
	a := []fingerprint.Dependency{
		{Coordinate: "org.example:lib", Version: "1.0.0"},
		{Coordinate: "org.example:other", Version: "2.0.0"},
	}
	b := []fingerprint.Dependency{
		{Coordinate: "org.example:other", Version: "2.0.0"},
		{Coordinate: "org.example:lib", Version: "1.0.0"},
	}
	assert.Equal(t, fingerprint.DependencySetHash(a), fingerprint.DependencySetHash(b))
}

func TestDependencySetHash_ChangesWithVersion(t *testing.T) {
	a := []fingerprint.Dependency{{Coordinate: "org.example:lib", Version: "1.0.0"}}
	b := []fingerprint.Dependency{{Coordinate: "org.example:lib", Version: "1.0.1"}}
	assert.NotEqual(t, fingerprint.DependencySetHash(a), fingerprint.DependencySetHash(b))
}

func TestTaskFingerprint_DeterministicAndOrderIndependentUpstream(t *testing.T) {
	m := &manifest.Manifest{
		Project: manifest.Project{Name: "core", Language: "java", OutputDir: "build"},
		Java:    &manifest.JavaSection{Source: "src", Target: "17"},
	}
	tree := fingerprint.Fingerprint{1, 2, 3}
	deps := fingerprint.Fingerprint{4, 5, 6}
	up1 := fingerprint.Fingerprint{7}
	up2 := fingerprint.Fingerprint{8}

	in1 := fingerprint.TaskInput{
		Language:        manifest.LanguageJava,
		LanguageVersion: "17",
		CommandTemplate: "javac",
		TreeHash:        tree,
		DepSetHash:      deps,
		Upstream:        []fingerprint.Fingerprint{up1, up2},
		ManifestSubtree: fingerprint.CanonicalManifestSubtree("compile", m),
	}
	in2 := in1
	in2.Upstream = []fingerprint.Fingerprint{up2, up1}

	assert.Equal(t, fingerprint.TaskFingerprint(in1), fingerprint.TaskFingerprint(in2))
}

func TestTaskFingerprint_ChangesWithCommandTemplate(t *testing.T) {
	m := &manifest.Manifest{
		Project: manifest.Project{Name: "core", Language: "python", OutputDir: "build"},
		Python:  &manifest.PythonSection{Source: "src"},
	}
	base := fingerprint.TaskInput{
		Language:        manifest.LanguagePython,
		LanguageVersion: "3.12",
		CommandTemplate: "python -m pytest",
		ManifestSubtree: fingerprint.CanonicalManifestSubtree("test", m),
	}
	changed := base
	changed.CommandTemplate = "python -m unittest"

	assert.NotEqual(t, fingerprint.TaskFingerprint(base), fingerprint.TaskFingerprint(changed))
}

func TestTaskFingerprint_ChangesAcrossLanguagesWithSameTree(t *testing.T) {
	javaManifest := &manifest.Manifest{
		Project: manifest.Project{Name: "core", Language: "java", OutputDir: "build"},
		Java:    &manifest.JavaSection{Source: "src", Target: "17"},
	}
	kotlinManifest := &manifest.Manifest{
		Project: manifest.Project{Name: "core", Language: "kotlin", OutputDir: "build"},
		Kotlin:  &manifest.KotlinSection{Source: "src"},
	}

	shared := fingerprint.Fingerprint{9, 9, 9}
	java := fingerprint.TaskFingerprint(fingerprint.TaskInput{
		Language:        manifest.LanguageJava,
		CommandTemplate: "compile",
		TreeHash:        shared,
		ManifestSubtree: fingerprint.CanonicalManifestSubtree("compile", javaManifest),
	})
	kotlin := fingerprint.TaskFingerprint(fingerprint.TaskInput{
		Language:        manifest.LanguageKotlin,
		CommandTemplate: "compile",
		TreeHash:        shared,
		ManifestSubtree: fingerprint.CanonicalManifestSubtree("compile", kotlinManifest),
	})

	assert.NotEqual(t, java, kotlin)
}
