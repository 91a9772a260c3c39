package lfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config configures an S3Store.
type S3Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// S3Store is a ContentStore backed by an S3-compatible bucket. Object keys
// mirror the local sharded layout (objects/<oid[0:2]>/<oid[2:4]>/<oid>).
// Uploads are staged and verified on local disk first, so the bucket never
// holds an object whose content does not match its key.
type S3Store struct {
	client *minio.Client
	bucket string
}

// NewS3Store connects to the configured endpoint. It does not create the
// bucket; provisioning is an operator concern.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket must not be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

func s3ObjectKey(oid string) (string, error) {
	if len(oid) != oidLength {
		return "", fmt.Errorf("invalid oid length: %d", len(oid))
	}
	return path.Join("objects", oid[0:2], oid[2:4], oid), nil
}

// isNoSuchKey reports whether err is the S3 "key does not exist" error.
func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

func (s *S3Store) Stat(ctx context.Context, oid string) (int64, bool, error) {
	key, err := s3ObjectKey(oid)
	if err != nil {
		return 0, false, err
	}

	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if isNoSuchKey(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return info.Size, true, nil
}

func (s *S3Store) Open(ctx context.Context, oid string) (io.ReadCloser, error) {
	key, err := s3ObjectKey(oid)
	if err != nil {
		return nil, err
	}

	// GetObject defers errors to the first Read, so stat first to surface a
	// missing key as not-found.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("object %s: %w", oid, fs.ErrNotExist)
		}
		return nil, err
	}

	return s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
}

func (s *S3Store) PutVerified(ctx context.Context, oid string, declaredSize int64, body io.Reader) error {
	key, err := s3ObjectKey(oid)
	if err != nil {
		return err
	}

	if _, ok, err := s.Stat(ctx, oid); err != nil {
		return err
	} else if ok {
		return nil
	}

	tempFile, err := os.CreateTemp("", "lfsd-"+oid+"-*")
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	defer func() {
		_ = tempFile.Close()
		_ = os.Remove(tempFile.Name())
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

	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind staging file: %w", err)
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, tempFile, written, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}); err != nil {
		return fmt.Errorf("publish object: %w", err)
	}

	return nil
}
