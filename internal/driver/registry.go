package driver

import (
	"fmt"

	"github.com/enri312/forge/internal/manifest"
)

// Registry selects a Driver by a project's language tag — a tagged
// discriminator, never reflection, per §9's design notes.
type Registry struct {
	drivers map[manifest.Language]Driver
}

// NewRegistry builds a Registry from a set of drivers, keyed by each
// driver's own Language().
func NewRegistry(drivers ...Driver) *Registry {
	r := &Registry{drivers: make(map[manifest.Language]Driver, len(drivers))}
	for _, d := range drivers {
		r.drivers[d.Language()] = d
	}
	return r
}

// For returns the Driver registered for lang, or an error if no
// driver is registered for that language.
func (r *Registry) For(lang manifest.Language) (Driver, error) {
	d, ok := r.drivers[lang]
	if !ok {
		return nil, fmt.Errorf("no driver registered for language %q", lang)
	}
	return d, nil
}
