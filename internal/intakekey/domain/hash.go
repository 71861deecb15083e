package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey hashes a raw intake key. Only the hash is stored.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
