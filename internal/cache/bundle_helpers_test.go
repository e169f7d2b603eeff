package cache_test

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/require"
)

// forgedTraversalBundle builds a gzip-tar whose single entry tries to
// write above the extraction root, exercising Extract's zip-slip
// guard.
func forgedTraversalBundle(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gzw)

	payload := []byte("escape")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "../../etc/forge-escape",
		Mode: 0o600,
		Size: int64(len(payload)),
	}))
	_, err := tw.Write(payload)
	require.NoError(t, err)

	require.NoError(t, tw.Close())
	require.NoError(t, gzw.Close())
	return buf.Bytes()
}
