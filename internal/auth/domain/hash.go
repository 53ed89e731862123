package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken hashes a raw bearer secret with the same strategy used at
// issue time, so lookups compare digests instead of secrets.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
