package lfs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func contentOID(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err, "NewLocalStore error")
	return store
}

func TestLocalStorePutVerified_RoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	content := []byte("some large binary object")
	oid := contentOID(content)

	err := store.PutVerified(t.Context(), oid, int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err, "PutVerified error")

	size, ok, err := store.Stat(t.Context(), oid)
	require.NoError(t, err, "Stat error")
	require.True(t, ok, "expected object to exist after publication")
	require.Equal(t, int64(len(content)), size, "stored size")

	rc, err := store.Open(t.Context(), oid)
	require.NoError(t, err, "Open error")
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err, "reading object stream")
	require.Equal(t, content, got, "stored bytes")
}

func TestLocalStorePutVerified_ShardedLayout(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err, "NewLocalStore error")

	content := []byte("sharded")
	oid := contentOID(content)

	require.NoError(t, store.PutVerified(t.Context(), oid, int64(len(content)), bytes.NewReader(content)), "PutVerified error")

	want := filepath.Join(root, ".lfs", "objects", oid[0:2], oid[2:4], oid)
	_, statErr := os.Stat(want)
	require.NoError(t, statErr, "expected object at sharded path %s", want)
}

func TestLocalStorePutVerified_SizeMismatch(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	content := []byte("truncated upload")
	oid := contentOID(content)

	err := store.PutVerified(t.Context(), oid, int64(len(content))+5, bytes.NewReader(content))
	require.Error(t, err, "expected size mismatch to fail")

	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr, "expected a VerifyError")
	require.Equal(t, fmt.Sprintf("Incomplete upload of %s", oid), verifyErr.Reason, "error reason")

	_, ok, statErr := store.Stat(t.Context(), oid)
	require.NoError(t, statErr, "Stat error")
	require.False(t, ok, "failed upload must publish nothing")
}

func TestLocalStorePutVerified_DigestMismatch(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	content := []byte("actual content")
	oid := contentOID([]byte("claimed content"))

	err := store.PutVerified(t.Context(), oid, int64(len(content)), bytes.NewReader(content))
	require.Error(t, err, "expected digest mismatch to fail")

	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr, "expected a VerifyError")
	require.Equal(t, fmt.Sprintf("Content doesn't match SHA-256 digest: %s", oid), verifyErr.Reason, "error reason")

	_, ok, statErr := store.Stat(t.Context(), oid)
	require.NoError(t, statErr, "Stat error")
	require.False(t, ok, "failed upload must publish nothing")
}

func TestLocalStorePutVerified_FailedAttemptLeavesNoStaging(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err, "NewLocalStore error")

	content := []byte("will not verify")
	oid := contentOID([]byte("something else"))

	require.Error(t, store.PutVerified(t.Context(), oid, int64(len(content)), bytes.NewReader(content)), "expected verification failure")

	entries, err := os.ReadDir(filepath.Join(root, ".lfs", "temp"))
	require.NoError(t, err, "reading temp dir")
	require.Empty(t, entries, "staging file must be cleaned up after a failed attempt")
}

func TestLocalStorePutVerified_IdempotentReupload(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	content := []byte("upload me twice")
	oid := contentOID(content)

	require.NoError(t, store.PutVerified(t.Context(), oid, int64(len(content)), bytes.NewReader(content)), "first upload")

	// The second attempt is a no-op success; the body is not even consumed.
	body := bytes.NewReader([]byte("different bytes entirely"))
	require.NoError(t, store.PutVerified(t.Context(), oid, int64(len(content)), body), "second upload")
	require.Equal(t, len("different bytes entirely"), body.Len(), "no-op upload must not consume the body")

	rc, err := store.Open(t.Context(), oid)
	require.NoError(t, err, "Open error")
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err, "reading object stream")
	require.Equal(t, content, got, "stored bytes must be unchanged")
}

func TestLocalStoreStat_Absent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	_, ok, err := store.Stat(t.Context(), strings.Repeat("ab", 32))
	require.NoError(t, err, "absence must not be an error")
	require.False(t, ok, "expected object to be absent")
}

func TestLocalStorePutVerified_ConcurrentDistinctOIDs(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	var contents [][]byte
	for i := 0; i < 16; i++ {
		contents = append(contents, bytes.Repeat([]byte{byte(i + 1)}, 4096+i))
	}

	var eg errgroup.Group
	for _, content := range contents {
		eg.Go(func() error {
			return store.PutVerified(t.Context(), contentOID(content), int64(len(content)), bytes.NewReader(content))
		})
	}
	require.NoError(t, eg.Wait(), "concurrent uploads")

	for _, content := range contents {
		rc, err := store.Open(t.Context(), contentOID(content))
		require.NoError(t, err, "Open error")

		got, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err, "reading object stream")
		require.Equal(t, content, got, "stored bytes after concurrent uploads")
	}
}

func TestLocalStorePutVerified_ConcurrentSameOID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	content := bytes.Repeat([]byte("same-object "), 1024)
	oid := contentOID(content)

	var eg errgroup.Group
	for i := 0; i < 8; i++ {
		eg.Go(func() error {
			return store.PutVerified(t.Context(), oid, int64(len(content)), bytes.NewReader(content))
		})
	}
	require.NoError(t, eg.Wait(), "concurrent same-OID uploads")

	rc, err := store.Open(t.Context(), oid)
	require.NoError(t, err, "Open error")
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err, "reading object stream")
	require.Equal(t, content, got, "stored bytes after racing uploads")
}
