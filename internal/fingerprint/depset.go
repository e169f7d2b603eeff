package fingerprint

import "sort"

// Dependency is one coordinate-version pair from a manifest's
// dependencies or test-dependencies map.
type Dependency struct {
	Coordinate string
	Version    string
}

// DependencySetHash canonicalizes deps by sorting on
// coordinate-then-version and returns a Fingerprint over the sorted
// sequence, so {"a":"1", "b":"2"} and {"b":"2", "a":"1"} — the same
// set read from a Go map in two different iteration orders — always
// hash identically.
func DependencySetHash(deps []Dependency) Fingerprint {
	sorted := make([]Dependency, len(deps))
	copy(sorted, deps)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Coordinate != sorted[j].Coordinate {
			return sorted[i].Coordinate < sorted[j].Coordinate
		}
		return sorted[i].Version < sorted[j].Version
	})

	w := newFrameWriter()
	for _, d := range sorted {
		w.writeString(d.Coordinate)
		w.writeString(d.Version)
	}
	return w.sum()
}

// DependenciesFromMap converts a manifest dependency map (coordinate
// -> version) into the Dependency slice DependencySetHash expects.
func DependenciesFromMap(m map[string]string) []Dependency {
	deps := make([]Dependency, 0, len(m))
	for coord, version := range m {
		deps = append(deps, Dependency{Coordinate: coord, Version: version})
	}
	return deps
}
