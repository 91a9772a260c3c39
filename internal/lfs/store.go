package lfs

import (
	"context"
	"fmt"
	"io"
)

// ContentStore persists immutable objects addressed by their SHA-256 hex
// digest. Implementations must be safe for concurrent use across distinct
// OIDs; concurrent writers of the same OID must never corrupt each other.
type ContentStore interface {
	// Stat reports whether the object exists and, if so, its byte size.
	// Absence is signalled by ok=false, not by an error.
	Stat(ctx context.Context, oid string) (size int64, ok bool, err error)

	// Open returns a sequential reader over the object's bytes. The caller
	// drives backpressure and must close the reader.
	Open(ctx context.Context, oid string) (io.ReadCloser, error)

	// PutVerified streams body into the store and publishes the object only
	// after both the byte count matches declaredSize and the SHA-256 digest of
	// the received bytes matches oid. A failed attempt publishes nothing. If
	// the object is already stored, the body is not consumed and the call is a
	// no-op success.
	PutVerified(ctx context.Context, oid string, declaredSize int64, body io.Reader) error
}

// VerifyError reports an upload that completed transfer but failed
// verification against its declared size or digest.
type VerifyError struct {
	Reason string
}

func (e *VerifyError) Error() string {
	return e.Reason
}

func errIncompleteUpload(oid string) *VerifyError {
	return &VerifyError{Reason: fmt.Sprintf("Incomplete upload of %s", oid)}
}

func errDigestMismatch(oid string) *VerifyError {
	return &VerifyError{Reason: fmt.Sprintf("Content doesn't match SHA-256 digest: %s", oid)}
}
