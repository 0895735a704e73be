// Package checksum produces the content digests behind document save
// conflict detection and record-file change tracking.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data. Save requests carry
// it as an If-Match value; the record index compares it to skip unchanged
// source files.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
