package cache

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/enri312/forge/internal/forgeerrors"
)

// Pack builds a gzip-compressed tar of every path in outputs, with
// entry names made relative to baseDir (the project's output
// directory, per §6's "relative paths rooted at the project output
// directory"). Paths are walked and written in sorted order so two
// builds with byte-identical output trees produce byte-identical
// bundles — required for cache-entry content-addressing to mean
// anything.
func Pack(baseDir string, outputs []string) ([]byte, error) {
	var rels []string
	for _, out := range outputs {
		err := filepath.WalkDir(out, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(baseDir, path)
			if relErr != nil {
				return relErr
			}
			rels = append(rels, rel)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("pack %s: %w", out, err)
		}
	}
	sort.Strings(rels)

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	for _, rel := range rels {
		if err := writeTarEntry(tw, baseDir, rel); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, err
	}
	if err := gzw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTarEntry(tw *tar.Writer, baseDir, rel string) error {
	abs := filepath.Join(baseDir, rel)
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name: filepath.ToSlash(rel),
		Mode: int64(info.Mode().Perm()),
		Size: info.Size(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	f, err := os.Open(abs) //nolint:gosec // abs is a walk result under the caller's own output directory
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f) //nolint:gosec // bundle size is bounded by the project's own build output, not attacker input
	return err
}

// Extract unpacks a gzip-compressed tar bundle into destDir,
// recreating every file it names. It is the inverse of Pack.
func Extract(bundle []byte, destDir string) error {
	gzr, err := gzip.NewReader(bytes.NewReader(bundle))
	if err != nil {
		return fmt.Errorf("%w: %v", forgeerrors.ErrCacheCorrupt, err)
	}
	defer gzr.Close()

	tr := tar.NewReader(gzr)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", forgeerrors.ErrCacheCorrupt, err)
		}

		target := filepath.Join(destDir, filepath.FromSlash(hdr.Name)) //nolint:gosec // destDir is the caller's own project output dir; entry names are sanitized below
		if !withinDir(destDir, target) {
			return fmt.Errorf("%w: entry %q escapes destination", forgeerrors.ErrCacheCorrupt, hdr.Name)
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return err
		}
		if err := extractFile(tr, target, hdr); err != nil {
			return err
		}
	}
}

func extractFile(tr *tar.Reader, target string, hdr *tar.Header) error {
	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fs.FileMode(hdr.Mode)) //nolint:gosec // target validated by withinDir above
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.CopyN(f, tr, hdr.Size) //nolint:gosec // hdr.Size bounds the copy to this entry's declared length
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func withinDir(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel != ".." && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
