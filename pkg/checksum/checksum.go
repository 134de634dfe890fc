// Package checksum hashes document content with SHA-256. Upload
// handlers use it to verify a client-supplied digest against the bytes
// actually received, and the storage backends report the same hex
// encoding so values compare end to end.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// CalculateSHA256 streams the reader through SHA-256 and returns the
// lowercase hex digest.
func CalculateSHA256(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySHA256 reports whether the reader's content hashes to expected.
// Comparison is case-insensitive since clients send both hex casings.
func VerifySHA256(r io.Reader, expected string) (bool, error) {
	actual, err := CalculateSHA256(r)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(actual, expected), nil
}
