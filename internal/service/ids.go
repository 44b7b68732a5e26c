package service

import (
	"crypto/sha256"
	"encoding/hex"
)

// documentSourceID derives a stable source id from uploaded bytes so the
// same file uploaded twice maps to the same chunks.
func documentSourceID(content []byte) string {
	sum := sha256.Sum256(content)
	return "doc:" + hex.EncodeToString(sum[:])[:16]
}
