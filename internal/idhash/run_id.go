package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(instance|started_at)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(instance string, startedAt int64) string {
	data := fmt.Sprintf("%s|%d", instance, startedAt)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
