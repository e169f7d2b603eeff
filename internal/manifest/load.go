package manifest

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/enri312/forge/internal/forgeerrors"
)

// FileName is the manifest's conventional file name inside a project
// directory.
const FileName = "forge.toml"

// Load reads and parses the forge.toml file at dir/forge.toml and
// validates it. dir is recorded on the returned Manifest so later
// components can resolve source/output paths relative to it.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)

	raw, err := os.ReadFile(path) //nolint:gosec // path is workspace-internal, not user-supplied at runtime
	if err != nil {
		return nil, forgeerrors.Wrapf(forgeerrors.ErrConfig, "%s: %v", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(raw, &m); err != nil {
		return nil, forgeerrors.Wrapf(forgeerrors.ErrConfig, "%s: parse error: %v", path, err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, forgeerrors.Wrapf(forgeerrors.ErrConfig, "%s: %v", path, err)
	}
	m.dir = abs

	if err := Validate(&m); err != nil {
		return nil, forgeerrors.Wrapf(forgeerrors.ErrConfig, "%s: %v", path, err)
	}

	return &m, nil
}
