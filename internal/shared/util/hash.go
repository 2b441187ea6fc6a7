package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashOwnerKey returns a filesystem-safe identifier for an applicant ID.
func HashOwnerKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
