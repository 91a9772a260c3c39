package lfs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LocalStore is a ContentStore backed by the local filesystem. Objects live
// under a two-level sharded layout rooted at <root>/.lfs:
//
//	<root>/.lfs/objects/<oid[0:2]>/<oid[2:4]>/<oid>
//	<root>/.lfs/temp/                            (upload staging)
//
// An object file only ever appears at its canonical path via a rename of a
// fully verified staging file, so readers never observe partial content.
type LocalStore struct {
	objectsDir string
	tempDir    string
}

// NewLocalStore creates the objects and temp directories under root and
// returns the store. Creation is idempotent.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}

	base := filepath.Join(root, ".lfs")
	s := &LocalStore{
		objectsDir: filepath.Join(base, "objects"),
		tempDir:    filepath.Join(base, "temp"),
	}

	for _, dir := range []string{s.objectsDir, s.tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	return s, nil
}

// objectPath returns the canonical path for oid. The caller is expected to
// have validated the OID already; the length check is a backstop.
func (s *LocalStore) objectPath(oid string) (string, error) {
	if len(oid) != oidLength {
		return "", fmt.Errorf("invalid oid length: %d", len(oid))
	}
	return filepath.Join(s.objectsDir, oid[0:2], oid[2:4], oid), nil
}

func (s *LocalStore) Stat(_ context.Context, oid string) (int64, bool, error) {
	objPath, err := s.objectPath(oid)
	if err != nil {
		return 0, false, err
	}

	info, err := os.Stat(objPath)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return info.Size(), true, nil
}

func (s *LocalStore) Open(_ context.Context, oid string) (io.ReadCloser, error) {
	objPath, err := s.objectPath(oid)
	if err != nil {
		return nil, err
	}
	return os.Open(objPath)
}

// PutVerified streams body into a staging file while hashing and counting in
// a single pass, then publishes via rename once both checks hold.
func (s *LocalStore) PutVerified(ctx context.Context, oid string, declaredSize int64, body io.Reader) error {
	objPath, err := s.objectPath(oid)
	if err != nil {
		return err
	}

	// Idempotent re-upload: published objects are immutable, so an existing
	// file at the canonical path already carries verified content.
	if _, err := os.Stat(objPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	// A fresh staging file per attempt; concurrent uploads of one OID must
	// never share a temp path.
	tempFile, err := os.CreateTemp(s.tempDir, oid+"-*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	published := false
	defer func() {
		if err := tempFile.Close(); err != nil && !published {
			slog.Debug("Close staging file", "path", tempFile.Name(), "err", err)
		}
		if err := os.Remove(tempFile.Name()); err != nil && !os.IsNotExist(err) {
			slog.Debug("Remove staging file", "path", tempFile.Name(), "err", err)
		}
	}()

	digest := NewDigest()
	written, err := io.Copy(io.MultiWriter(tempFile, digest), body)
	if err != nil {
		return fmt.Errorf("write staging file: %w", err)
	}

	if written != declaredSize {
		return errIncompleteUpload(oid)
	}
	if DigestHex(digest) != oid {
		return errDigestMismatch(oid)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close staging file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(objPath), 0o755); err != nil {
		return fmt.Errorf("create shard dir: %w", err)
	}

	if err := moveFile(tempFile.Name(), objPath); err != nil {
		return fmt.Errorf("publish object: %w", err)
	}
	published = true

	return nil
}
