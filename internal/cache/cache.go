package cache

import (
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/enri312/forge/internal/fingerprint"
	"github.com/enri312/forge/internal/forgeerrors"
)

// LocalTier is the interface internal/cache/local.Store satisfies.
type LocalTier interface {
	Head(fingerprintHex string) bool
	Get(fingerprintHex string) (Entry, error)
	Put(fingerprintHex string, entry Entry) error
}

// Purger is optionally satisfied by a LocalTier that supports the
// "external purge operation" §4.4 allows the CLI to invoke
// (internal/cache/local.Store.Purge). Store.Purge no-ops if the
// configured local tier does not implement it.
type Purger interface {
	Purge() error
}

// RemoteTier is the interface internal/cache/remote.Store satisfies.
// It is optional: a Store built with no remote tier behaves as a
// local-only cache.
type RemoteTier interface {
	Head(fingerprintHex string) (bool, error)
	Get(fingerprintHex string) (Entry, bool, error)
	Put(fingerprintHex string, entry Entry) error
}

// Store orchestrates the two tiers per §4.4's lookup protocol and
// guarantees at most one in-flight build per fingerprint across
// concurrently scheduled tasks that happen to share one, via a
// singleflight.Group keyed by fingerprint hex.
type Store struct {
	local  LocalTier
	remote RemoteTier
	log    zerolog.Logger
	group  singleflight.Group
}

// New returns a Store over local, with remote optional (nil disables
// the remote tier entirely). log receives a warning whenever a remote
// entry fails its integrity check (§7's CacheCorrupt condition).
func New(local LocalTier, remote RemoteTier, log zerolog.Logger) *Store {
	return &Store{local: local, remote: remote, log: log}
}

// Lookup implements §4.4's read path: local head, then (if absent and
// a remote tier is configured) remote head+get+verify, promoting a
// remote hit into the local tier so later lookups on this machine
// don't cross the network again.
func (s *Store) Lookup(f fingerprint.Fingerprint) (Result, error) {
	fingerprintHex := f.Hex()

	if s.local.Head(fingerprintHex) {
		entry, err := s.local.Get(fingerprintHex)
		if err != nil {
			return Result{}, err
		}
		return Result{Hit: true, Source: SourceLocal, Entry: entry}, nil
	}

	if s.remote == nil {
		return Result{Hit: false, Source: SourceMiss}, nil
	}

	entry, found, err := s.remote.Get(fingerprintHex)
	if err != nil {
		if errors.Is(err, forgeerrors.ErrCacheCorrupt) {
			s.log.Warn().Str("fingerprint", fingerprintHex).Err(err).Msg("remote cache entry failed integrity check, recomputing")
		}
		// Both a corrupt entry and a transient remote failure degrade
		// to a miss rather than failing the build: the driver still
		// runs, per §4.4/§7.
		return Result{Hit: false, Source: SourceMiss}, nil //nolint:nilerr // intentional degrade-to-miss
	}
	if !found {
		return Result{Hit: false, Source: SourceMiss}, nil
	}

	if putErr := s.local.Put(fingerprintHex, entry); putErr != nil {
		return Result{}, putErr
	}
	return Result{Hit: true, Source: SourceRemote, Entry: entry}, nil
}

// Store writes entry into the local tier, then opportunistically into
// the remote tier. A remote write failure is swallowed: per the
// decision recorded for the cache's open question, it is never
// memoized as "already attempted," so a later task with the same
// fingerprint retries the upload rather than assuming it is
// permanently unreachable.
func (s *Store) Store(f fingerprint.Fingerprint, entry Entry) error {
	fingerprintHex := f.Hex()

	if err := s.local.Put(fingerprintHex, entry); err != nil {
		return err
	}
	if s.remote != nil {
		_ = s.remote.Put(fingerprintHex, entry)
	}
	return nil
}

// Purge clears the local cache tier if it implements Purger. The
// remote tier is never purged by this call — §4.4 treats it as a
// shared store other builds and hosts may still depend on; clearing
// it is outside this engine's authority.
func (s *Store) Purge() error {
	if p, ok := s.local.(Purger); ok {
		return p.Purge()
	}
	return nil
}

// Once ensures that, among all concurrent callers sharing the same
// fingerprint, exactly one runs build; the rest block and receive its
// result. This is the mechanism behind the "diamond dependency built
// once" invariant when the scheduler's layering alone would otherwise
// let two sibling tasks both miss the cache for an identical
// fingerprint and race to invoke the driver.
func (s *Store) Once(f fingerprint.Fingerprint, build func() (Entry, error)) (Entry, error, bool) {
	fingerprintHex := f.Hex()
	v, err, shared := s.group.Do(fingerprintHex, func() (interface{}, error) {
		return build()
	})
	if err != nil {
		return Entry{}, err, shared
	}
	return v.(Entry), nil, shared
}
