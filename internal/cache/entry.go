// Package cache implements the two-tier content-addressed artifact
// store from §4.4: a local filesystem tier always consulted first,
// and an optional remote object-store tier consulted on a local miss.
// Package cache owns the lookup/store orchestration and the
// at-most-one-concurrent-build-per-fingerprint in-flight table;
// internal/cache/local and internal/cache/remote implement the two
// tiers themselves.
package cache

import "time"

// Source names which tier satisfied a lookup, carried on
// eventbus.Event{CacheSource: ...} and in an entry's Meta record.
type Source string

// The two cache tiers plus "miss" for a lookup that invoked the
// driver.
const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
	SourceMiss   Source = "miss"
)

// Meta is the small metadata record stored alongside every artifact
// bundle, per §3/§6: producing task kind, wall time, byte size,
// origin tier, and creation timestamp.
type Meta struct {
	Fingerprint     string    `json:"fingerprint"`
	TaskKind        string    `json:"task-kind"`
	CreatedAt       time.Time `json:"created-at"`
	DurationMs      int64     `json:"duration-ms"`
	SizeBytes       int64     `json:"size-bytes"`
	ProducerVersion string    `json:"producer-version"`
}

// Entry is a cache hit's full payload: the artifact bundle bytes (a
// gzip-compressed tar rooted at the project output directory, per
// §6) plus its Meta record.
type Entry struct {
	Bundle []byte
	Meta   Meta
}

// Result is what a Lookup call returns: whether the entry was found,
// which tier served it, and the entry itself on a hit.
type Result struct {
	Hit    bool
	Source Source
	Entry  Entry
}
