package workspace

import (
	"path/filepath"

	"github.com/enri312/forge/internal/manifest"
)

// JVMClasspathEntries returns the package-task output artifact paths
// of every project in p's transitive module closure that produces a
// JVM artifact (java or kotlin). The order matches
// TransitiveUpstreamModules: discovery order, so nearer dependencies
// shadow farther ones when two modules happen to export a
// same-named class.
//
// This is the classpath projection named in §4.1: compiling or
// testing a JVM project must see the packaged output of every
// upstream module on its classpath, not just its own sources. outputs
// of Python upstream modules are never projected — Python has no
// classpath concept.
func (w *Workspace) JVMClasspathEntries(p *Project) []string {
	var entries []string
	for _, up := range w.TransitiveUpstreamModules(p) {
		switch up.Manifest.Language() {
		case manifest.LanguageJava, manifest.LanguageKotlin:
			entries = append(entries, packageArtifactPath(up))
		}
	}
	return entries
}

// packageArtifactPath returns the conventional location of a
// project's package-task output: <output_dir>/<project-name>.jar for
// JVM projects. The driver layer is the actual producer of this path;
// this is only the path the scheduler and downstream compile tasks
// agree to look for it at.
func packageArtifactPath(p *Project) string {
	return filepath.Join(p.Path, p.Manifest.Project.OutputDir, p.Name()+".jar")
}
