// Package cryptox computes the BLAKE2b checksums written next to backup files.
package cryptox

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Checksum returns the BLAKE2b-256 digest of data.
func Checksum(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// ChecksumHex is Checksum hex-encoded, the format stored in .b2sum files.
func ChecksumHex(data []byte) string {
	return hex.EncodeToString(Checksum(data))
}

// Verify compares data against a hex digest. Surrounding whitespace and a
// trailing "  filename" part, as written by b2sum, are ignored.
func Verify(data []byte, sumHex string) (bool, error) {
	fields := strings.Fields(sumHex)
	if len(fields) == 0 {
		return false, fmt.Errorf("empty checksum")
	}
	want, err := hex.DecodeString(fields[0])
	if err != nil {
		return false, fmt.Errorf("decode checksum: %w", err)
	}
	return subtle.ConstantTimeCompare(Checksum(data), want) == 1, nil
}
