package lfs

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidOID(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("content"))
	valid := hex.EncodeToString(sum[:])

	tests := []struct {
		name string
		oid  string
		want bool
	}{
		{name: "valid digest", oid: valid, want: true},
		{name: "all zeros", oid: strings.Repeat("0", 64), want: true},
		{name: "empty", oid: "", want: false},
		{name: "too short", oid: strings.Repeat("a", 63), want: false},
		{name: "too long", oid: strings.Repeat("a", 65), want: false},
		{name: "uppercase hex", oid: strings.Repeat("A", 64), want: false},
		{name: "non-hex character", oid: strings.Repeat("g", 64), want: false},
		{name: "embedded slash", oid: strings.Repeat("a", 32) + "/" + strings.Repeat("a", 31), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, IsValidOID(tc.oid), "IsValidOID(%q)", tc.oid)
		})
	}
}

func TestDigestIncremental(t *testing.T) {
	t.Parallel()

	content := []byte("hello, large file storage")
	sum := sha256.Sum256(content)
	want := hex.EncodeToString(sum[:])

	// Feeding chunk by chunk must match a one-shot digest.
	h := NewDigest()
	for _, chunk := range [][]byte{content[:5], content[5:11], content[11:]} {
		_, err := h.Write(chunk)
		require.NoError(t, err, "writing chunk to digest")
	}

	require.Equal(t, want, DigestHex(h), "incremental digest")
}
