// Package local implements the local filesystem cache tier from §4.4:
// objects/<first2>/<fingerprint_hex> for artifact bundles,
// meta/<fingerprint_hex>.json for metadata, atomic put via
// temp-file-then-rename, and a presence check (Head) cheap enough to
// run on every task start before deciding whether to extract.
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/enri312/forge/internal/cache"
	"github.com/enri312/forge/internal/flock"
	"github.com/enri312/forge/internal/forgeerrors"
)

// SchemaVersion is written to config.json on first initialization of
// a cache root and is bumped whenever the on-disk layout changes
// incompatibly.
const SchemaVersion = 1

// Store is the local, per-user cache tier rooted at a directory such
// as ~/.forge/cache.
type Store struct {
	Root string
}

// New returns a Store rooted at root, creating the directory layout
// (objects/, meta/, config.json) if it does not already exist.
func New(root string) (*Store, error) {
	s := &Store{Root: root}
	if err := s.ensureLayout(); err != nil {
		return nil, err
	}
	return s, nil
}

type config struct {
	SchemaVersion int `json:"schema_version"`
}

// ensureLayout creates objects/, meta/, and config.json under Root if
// absent. It tries a non-blocking advisory exclusive lock on
// config.json while initializing; if another process already holds
// it, initialization goes ahead without the lock, and both processes
// may write the same schema record. This is the only lock the local
// tier ever takes — artifact and meta
// writes rely purely on atomic rename (§5: content addressing makes
// a last-rename-wins race safe without an inter-process lock).
func (s *Store) ensureLayout() error {
	if err := os.MkdirAll(filepath.Join(s.Root, "objects"), 0o750); err != nil {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "cache root %s: %v", s.Root, err)
	}
	if err := os.MkdirAll(filepath.Join(s.Root, "meta"), 0o750); err != nil {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "cache root %s: %v", s.Root, err)
	}

	configPath := filepath.Join(s.Root, "config.json")
	f, err := os.OpenFile(configPath, os.O_RDWR|os.O_CREATE, 0o640) //nolint:gosec // configPath is derived from the caller-chosen cache root, not user input
	if err != nil {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "cache root %s: %v", s.Root, err)
	}
	defer f.Close()

	if lockErr := flock.Exclusive(f.Fd()); lockErr == nil {
		defer func() { _ = flock.Unlock(f.Fd()) }()
	}

	info, statErr := f.Stat()
	if statErr == nil && info.Size() > 0 {
		return nil
	}

	enc := json.NewEncoder(f)
	return enc.Encode(config{SchemaVersion: SchemaVersion})
}

func (s *Store) objectPath(fingerprintHex string) string {
	return filepath.Join(s.Root, "objects", fingerprintHex[:2], fingerprintHex)
}

func (s *Store) metaPath(fingerprintHex string) string {
	return filepath.Join(s.Root, "meta", fingerprintHex+".json")
}

// Head reports whether fingerprintHex has a cached entry, without
// reading its contents.
func (s *Store) Head(fingerprintHex string) bool {
	_, err := os.Stat(s.objectPath(fingerprintHex))
	return err == nil
}

// Get reads a cached entry's bundle and metadata.
func (s *Store) Get(fingerprintHex string) (cache.Entry, error) {
	bundle, err := os.ReadFile(s.objectPath(fingerprintHex)) //nolint:gosec // path built from a validated hex fingerprint
	if err != nil {
		return cache.Entry{}, err
	}

	metaBytes, err := os.ReadFile(s.metaPath(fingerprintHex)) //nolint:gosec // path built from a validated hex fingerprint
	if err != nil {
		return cache.Entry{}, err
	}
	var meta cache.Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return cache.Entry{}, fmt.Errorf("%w: %v", forgeerrors.ErrCacheCorrupt, err)
	}

	return cache.Entry{Bundle: bundle, Meta: meta}, nil
}

// Put atomically writes entry under fingerprintHex: both the bundle
// and the metadata are written to a temp file in the same directory
// and renamed into place, so a reader never observes a partially
// written entry (§4.4's "Put is atomic via temp-file + rename").
func (s *Store) Put(fingerprintHex string, entry cache.Entry) error {
	if err := atomicWrite(s.objectPath(fingerprintHex), entry.Bundle); err != nil {
		return err
	}
	metaBytes, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}
	return atomicWrite(s.metaPath(fingerprintHex), metaBytes)
}

// Purge removes every object and metadata entry under the local
// tier, recreating the empty objects/ and meta/ directories
// afterward. Per §4.4, the engine enforces no retention policy of
// its own; Purge is the "external purge operation" the spec allows
// the CLI to invoke, wired in internal/cli as `forge cache purge`.
func (s *Store) Purge() error {
	if err := os.RemoveAll(filepath.Join(s.Root, "objects")); err != nil {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "purge cache %s: %v", s.Root, err)
	}
	if err := os.RemoveAll(filepath.Join(s.Root, "meta")); err != nil {
		return forgeerrors.Wrapf(forgeerrors.ErrConfig, "purge cache %s: %v", s.Root, err)
	}
	return s.ensureLayout()
}

func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o640); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
