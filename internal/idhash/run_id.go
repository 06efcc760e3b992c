// Package idhash derives deterministic identifiers for scenario runs and
// their trades.
package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(request_json|started_at_ms)
// Returns the base58-encoded hash.
func ComputeRunID(requestJSON []byte, startedAtMs int64) string {
	h := sha256.New()
	h.Write(requestJSON)
	fmt.Fprintf(h, "|%d", startedAtMs)
	return base58.Encode(h.Sum(nil))
}
