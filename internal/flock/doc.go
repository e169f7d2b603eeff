// Package flock provides cross-platform advisory file locking.
//
// The local cache store uses it to guard its config.json schema-version
// file against concurrent first-initialization by two FORGE processes;
// artifact and metadata writes themselves stay lock-free (§5: content
// addressing makes a last-rename-wins race safe without any
// inter-process lock).
//
// Usage:
//
//	file, _ := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
//	if err := flock.Exclusive(file.Fd()); err != nil {
//	    // Lock not acquired - file is in use
//	}
//	defer flock.Unlock(file.Fd())
package flock
