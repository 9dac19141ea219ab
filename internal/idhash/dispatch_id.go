package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"listingwatch/internal/domain"
)

// ComputeDispatchID computes a deterministic dispatch_id using SHA256.
// Formula: SHA256(run_id|slug|channel|recipient)
// Returns hex-encoded hash (64 characters).
func ComputeDispatchID(
	runID string,
	slug string,
	channel domain.Channel,
	recipient string,
) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		runID,
		slug,
		string(channel),
		recipient,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
