package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|step|symbol|profile|fold_start|entry_time)
// Returns the base58-encoded hash.
func ComputeTradeID(
	runID string,
	step int,
	symbol string,
	profile string,
	foldStart int64,
	entryTime int64,
) string {
	data := fmt.Sprintf("%s|%d|%s|%s|%d|%d",
		runID,
		step,
		symbol,
		profile,
		foldStart,
		entryTime,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
