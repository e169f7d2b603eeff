// Package resolver defines the dependency-resolver contract spec.md
// §1 places out of scope: "the engine consumes a resolver that yields
// a set of local artifact paths." Resolving a coordinate/version
// against Maven Central or PyPI, and any SAT-style version
// arbitration, happens entirely on the other side of this interface —
// per §1's Non-goals the engine assumes a flat, already-pinned set.
package resolver

import "context"

// Coordinate is one dependency reference: a coordinate string
// ("group:artifact" for Maven, a PyPI project name, …) plus a pinned
// version specifier, exactly as declared in a manifest's
// [dependencies] or [test-dependencies] table.
type Coordinate struct {
	Name    string
	Version string
}

// Resolver resolves a flat, pinned dependency set into local artifact
// paths the driver can place on a compile classpath or a Python
// environment. A Resolver implementation owns the actual download
// (Maven Central, PyPI, a local mirror, …); the engine only consumes
// its output.
type Resolver interface {
	// Resolve returns the local filesystem path of each coordinate in
	// deps, in the same order. An unresolvable coordinate is a fatal
	// error for the owning resolve-deps task.
	Resolve(ctx context.Context, deps []Coordinate) ([]string, error)
}

// Static is a Resolver that returns a fixed, pre-resolved path for
// every coordinate it is configured with — the trivial implementation
// a test or an offline/vendored build uses in place of a real
// Maven/PyPI client.
type Static struct {
	Paths map[string]string // "name@version" -> local path
}

// Resolve implements Resolver by looking up each coordinate's
// pre-resolved path; a coordinate absent from Paths resolves to its
// bare coordinate string, so a Static resolver is still useful in
// tests that only assert on fingerprints, not real file contents.
func (s Static) Resolve(_ context.Context, deps []Coordinate) ([]string, error) {
	out := make([]string, len(deps))
	for i, d := range deps {
		key := d.Name + "@" + d.Version
		if p, ok := s.Paths[key]; ok {
			out[i] = p
			continue
		}
		out[i] = key
	}
	return out, nil
}
