package fingerprint

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/enri312/forge/internal/forgeerrors"
)

// TreeHash recursively content-hashes every regular file under root
// and returns a single Fingerprint over the sorted sequence of
// (relative path, file content hash) pairs.
//
// Directory entries themselves are not hashed, only the files they
// contain — an empty directory contributes nothing to the hash, so
// adding or removing one does not change a project's fingerprint.
// Symlinks are resolved to their target's content hash; a symlink
// that resolves back into a cycle aborts with forgeerrors.ErrBadInputs
// rather than hanging.
func TreeHash(root string) (Fingerprint, error) {
	entries, err := collectFiles(root)
	if err != nil {
		return Fingerprint{}, err
	}

	sort.Strings(entries)

	w := newFrameWriter()
	for _, rel := range entries {
		contentHash, err := hashFile(filepath.Join(root, rel), make(map[string]bool))
		if err != nil {
			return Fingerprint{}, err
		}
		w.writeString(rel)
		w.writeBytes(contentHash[:])
	}
	return w.sum(), nil
}

// TreeHashAll combines the TreeHash of every root into one
// Fingerprint, order-independent (roots are sorted before hashing),
// so a task whose Input.SourcePaths lists both a main source
// directory and a test source directory gets one stable fingerprint
// contribution regardless of the order those paths were declared in.
func TreeHashAll(roots []string) (Fingerprint, error) {
	sorted := make([]string, len(roots))
	copy(sorted, roots)
	sort.Strings(sorted)

	w := newFrameWriter()
	for _, root := range sorted {
		h, err := TreeHash(root)
		if err != nil {
			return Fingerprint{}, err
		}
		w.writeString(root)
		w.writeBytes(h[:])
	}
	return w.sum(), nil
}

// collectFiles walks root and returns the slash-normalized relative
// paths of every regular file and symlink (directories themselves are
// excluded), in filesystem walk order — the caller sorts them.
func collectFiles(root string) ([]string, error) {
	var rels []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rels = append(rels, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, forgeerrors.Wrapf(forgeerrors.ErrBadInputs, "walking %s: %v", root, err)
	}
	return rels, nil
}

// hashFile returns the SHA-256 of path's content, following symlinks.
// seen tracks absolute paths already on the current resolution chain
// so a symlink cycle is detected rather than followed forever.
func hashFile(path string, seen map[string]bool) ([sha256.Size]byte, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return [sha256.Size]byte{}, forgeerrors.Wrapf(forgeerrors.ErrBadInputs, "%s: %v", path, err)
	}
	if seen[abs] {
		return [sha256.Size]byte{}, fmt.Errorf("%w: symlink cycle at %s", forgeerrors.ErrBadInputs, path)
	}
	seen[abs] = true

	info, err := os.Lstat(path)
	if err != nil {
		return [sha256.Size]byte{}, forgeerrors.Wrapf(forgeerrors.ErrBadInputs, "%s: %v", path, err)
	}

	if info.Mode()&os.ModeSymlink != 0 {
		target, err := os.Readlink(path)
		if err != nil {
			return [sha256.Size]byte{}, forgeerrors.Wrapf(forgeerrors.ErrBadInputs, "%s: %v", path, err)
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(filepath.Dir(path), target)
		}
		return hashFile(target, seen)
	}

	f, err := os.Open(path) //nolint:gosec // path is workspace-internal project source, not arbitrary user input
	if err != nil {
		return [sha256.Size]byte{}, forgeerrors.Wrapf(forgeerrors.ErrBadInputs, "%s: %v", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return [sha256.Size]byte{}, forgeerrors.Wrapf(forgeerrors.ErrBadInputs, "%s: %v", path, err)
	}

	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}
