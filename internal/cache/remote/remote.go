// Package remote implements the optional remote object-store cache
// tier from §4.4: a shared cache consulted on a local miss, keyed by
// fingerprint hex, storing two blobs per key (the artifact bundle and
// its JSON metadata) with SHA-256 integrity verification on read.
//
// It is built on github.com/mrz1836/go-cache, which pools Redis
// connections over github.com/gomodule/redigo; tests exercise it
// against github.com/alicebob/miniredis/v2 rather than a live Redis
// server.
package remote

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	gocache "github.com/mrz1836/go-cache"

	"github.com/enri312/forge/internal/cache"
	"github.com/enri312/forge/internal/forgeerrors"
)

// Store is the remote cache tier. It holds a pooled connection to a
// Redis-compatible endpoint acquired through go-cache.
type Store struct {
	pool *gocache.Client
	ttl  time.Duration
}

// Config describes how to reach the remote cache endpoint. Credential
// is never a literal secret: it names an environment variable holding
// one, per SPEC_FULL.md's config-layer convention for anything
// secret-shaped.
type Config struct {
	Endpoint         string
	CredentialEnvRef string
	MaxActiveConns   int
	MaxIdleConns     int
	IdleTimeout      time.Duration
	TTL              time.Duration
}

// Connect opens a pooled connection to cfg.Endpoint via go-cache's
// pool constructor.
func Connect(cfg Config) (*Store, error) {
	maxActive := cfg.MaxActiveConns
	if maxActive <= 0 {
		maxActive = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 4
	}
	idleTimeout := cfg.IdleTimeout
	if idleTimeout <= 0 {
		idleTimeout = 4 * time.Minute
	}

	redisURL := cfg.Endpoint
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}

	pool, err := gocache.Connect(context.Background(), redisURL, maxActive, maxIdle, 0, idleTimeout, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: connect remote cache: %v", forgeerrors.ErrRemoteTransient, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Store{pool: pool, ttl: ttl}, nil
}

func objectKey(fingerprintHex string) string { return "forge:obj:" + fingerprintHex }
func metaKey(fingerprintHex string) string   { return "forge:meta:" + fingerprintHex }

// Head reports whether fingerprintHex has a remote entry, without
// downloading its body.
func (s *Store) Head(fingerprintHex string) (bool, error) {
	conn := s.pool.GetConnection()
	defer conn.Close()

	exists, err := gocache.ExistsRaw(conn, objectKey(fingerprintHex))
	if err != nil {
		return false, fmt.Errorf("%w: head %s: %v", forgeerrors.ErrRemoteTransient, fingerprintHex, err)
	}
	return exists, nil
}

// Get downloads the bundle and metadata for fingerprintHex, verifying
// the bundle's SHA-256 digest matches fingerprintHex before returning
// it — the read-side half of §4.4's integrity requirement for entries
// that crossed the network.
func (s *Store) Get(fingerprintHex string) (cache.Entry, bool, error) {
	conn := s.pool.GetConnection()
	defer conn.Close()

	bundle, err := gocache.GetBytesRaw(conn, objectKey(fingerprintHex))
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("%w: get %s: %v", forgeerrors.ErrRemoteTransient, fingerprintHex, err)
	}
	if bundle == nil {
		return cache.Entry{}, false, nil
	}

	sum := sha256.Sum256(bundle)
	if hex.EncodeToString(sum[:]) != fingerprintHex {
		return cache.Entry{}, false, fmt.Errorf("%w: remote bundle for %s failed integrity check", forgeerrors.ErrCacheCorrupt, fingerprintHex)
	}

	metaBytes, err := gocache.GetBytesRaw(conn, metaKey(fingerprintHex))
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("%w: get meta %s: %v", forgeerrors.ErrRemoteTransient, fingerprintHex, err)
	}
	var meta cache.Meta
	if metaBytes != nil {
		if err := json.Unmarshal(metaBytes, &meta); err != nil {
			return cache.Entry{}, false, fmt.Errorf("%w: meta %s: %v", forgeerrors.ErrCacheCorrupt, fingerprintHex, err)
		}
	}

	return cache.Entry{Bundle: bundle, Meta: meta}, true, nil
}

// Put uploads entry under fingerprintHex. Failures are always
// transient-classified: per the put-retried-opportunistically
// decision, a failed remote Put is never remembered as "already
// attempted," so the next build that misses on this fingerprint and
// produces it tries the upload again rather than assuming it is
// hopeless.
func (s *Store) Put(fingerprintHex string, entry cache.Entry) error {
	conn := s.pool.GetConnection()
	defer conn.Close()

	metaBytes, err := json.Marshal(entry.Meta)
	if err != nil {
		return err
	}

	if err := gocache.SetExpRaw(conn, objectKey(fingerprintHex), entry.Bundle, s.ttl); err != nil {
		return fmt.Errorf("%w: put %s: %v", forgeerrors.ErrRemoteTransient, fingerprintHex, err)
	}
	if err := gocache.SetExpRaw(conn, metaKey(fingerprintHex), metaBytes, s.ttl); err != nil {
		return fmt.Errorf("%w: put meta %s: %v", forgeerrors.ErrRemoteTransient, fingerprintHex, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
