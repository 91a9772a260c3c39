package lfs

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
)

// oidLength is the length of a SHA-256 digest in lowercase hex characters.
const oidLength = 64

// IsValidOID reports whether s is a well-formed object identifier: exactly 64
// lowercase hexadecimal characters. It says nothing about whether an object
// with that identifier exists.
func IsValidOID(s string) bool {
	if len(s) != oidLength {
		return false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}

	return true
}

// NewDigest returns an incremental SHA-256 hasher. Feed it content chunk by
// chunk and finish with DigestHex; large objects must never be buffered whole.
func NewDigest() hash.Hash {
	return sha256.New()
}

// DigestHex finalizes h and returns the digest as lowercase hex.
func DigestHex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
