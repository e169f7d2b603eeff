// Package manifest parses and validates a single project's forge.toml.
//
// A Manifest is the logical description of one project as defined by
// the engine design: a language tag, a language-specific section, a
// dependency map, a test-dependency map, an optional list of
// sub-module paths, ordered lifecycle hook commands, custom tasks, and
// an optional remote cache block.
package manifest

// Language identifies the primary language of a project.
type Language string

// The three supported languages. The resolver and driver layers key
// off this tag to select their language-specific behavior.
const (
	LanguageJava   Language = "java"
	LanguageKotlin Language = "kotlin"
	LanguagePython Language = "python"
)

// HookPhase names one of the four lifecycle phases a hook command can
// attach to.
type HookPhase string

// The four lifecycle phases, in the order they run relative to their
// parent task (pre-build/pre-test run upstream, post-build/post-test
// run downstream).
const (
	HookPreBuild  HookPhase = "pre-build"
	HookPostBuild HookPhase = "post-build"
	HookPreTest   HookPhase = "pre-test"
	HookPostTest  HookPhase = "post-test"
)

// Project holds the [project] table: metadata common to every
// manifest regardless of language.
type Project struct {
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Language    string `toml:"language"`
	OutputDir   string `toml:"output_dir"`
	Description string `toml:"description"`
}

// JavaSection holds the [java] table.
type JavaSection struct {
	Source     string `toml:"source"`
	TestSource string `toml:"test-source"`
	Target     string `toml:"target"`
	MainClass  string `toml:"main-class"`
}

// KotlinSection holds the [kotlin] table.
type KotlinSection struct {
	Source    string `toml:"source"`
	JVMTarget string `toml:"jvm_target"`
	MainClass string `toml:"main-class"`
}

// PythonSection holds the [python] table.
type PythonSection struct {
	Source     string `toml:"source"`
	MainScript string `toml:"main-script"`
}

// Task describes a [tasks.<name>] entry: a custom, user-declared unit
// of work with its own dependency list.
type Task struct {
	Command     string   `toml:"command"`
	DependsOn   []string `toml:"depends-on"`
	Description string   `toml:"description"`
}

// Hooks holds the [hooks] table: four ordered command lists keyed by
// lifecycle phase.
type Hooks struct {
	PreBuild  []string `toml:"pre-build"`
	PostBuild []string `toml:"post-build"`
	PreTest   []string `toml:"pre-test"`
	PostTest  []string `toml:"post-test"`
}

// Commands returns the ordered command list for phase.
func (h Hooks) Commands(phase HookPhase) []string {
	switch phase {
	case HookPreBuild:
		return h.PreBuild
	case HookPostBuild:
		return h.PostBuild
	case HookPreTest:
		return h.PreTest
	case HookPostTest:
		return h.PostTest
	default:
		return nil
	}
}

// Cache holds the [cache] table: the remote cache tier's connection
// details for this project.
type Cache struct {
	Enabled      bool   `toml:"enabled"`
	Endpoint     string `toml:"endpoint"`
	AccessKeyRef string `toml:"access-key-ref"`
}

// Manifest is the fully parsed, not-yet-validated contents of a
// forge.toml file.
type Manifest struct {
	Project          Project           `toml:"project"`
	Java             *JavaSection      `toml:"java"`
	Kotlin           *KotlinSection    `toml:"kotlin"`
	Python           *PythonSection    `toml:"python"`
	Dependencies     map[string]string `toml:"dependencies"`
	TestDependencies map[string]string `toml:"test-dependencies"`
	Hooks            Hooks             `toml:"hooks"`
	Modules          []string          `toml:"modules"`
	Tasks            map[string]Task   `toml:"tasks"`
	Cache            *Cache            `toml:"cache"`

	// dir is the absolute directory the manifest was loaded from. It is
	// set by Load and is not part of the TOML schema.
	dir string
}

// Dir returns the absolute directory this manifest was loaded from.
func (m *Manifest) Dir() string {
	return m.dir
}

// Language returns the project's language tag as a typed Language.
func (m *Manifest) Language() Language {
	return Language(m.Project.Language)
}

// builtinTaskKinds are the task kinds the graph builder synthesizes
// automatically; a custom task name colliding with one of these is a
// validation error.
var builtinTaskKinds = map[string]struct{}{
	"resolve-deps": {},
	"compile":      {},
	"test":         {},
	"package":      {},
	"run":          {},
}

// IsBuiltinTaskName reports whether name collides with a synthesized
// built-in task kind.
func IsBuiltinTaskName(name string) bool {
	_, ok := builtinTaskKinds[name]
	return ok
}
