// Package cache memoizes computed statistics payloads. Two backends
// implement the same interface: an in-process TTL map and Redis for
// deployments that share results between instances.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// DefaultTTL applies when a Set is issued without a positive TTL.
const DefaultTTL = time.Hour

// Cache stores encoded response payloads under deterministic keys.
// Sets are best-effort; a failed fill only costs a recomputation.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
	Clear(ctx context.Context) error
	Stats() Stats
	Close() error
}

// Stats summarizes backend activity since start.
type Stats struct {
	Backend string `json:"backend"`
	Entries int64  `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Sets    int64  `json:"sets"`
}

// Key derives a cache key from an operation name and the canonical
// JSON encoding of its parameters. Equal parameters always map to the
// same key; the SHA-256 keeps arbitrary filter payloads bounded.
func Key(op string, params any) string {
	payload, err := json.Marshal(params)
	if err != nil {
		// Unmarshalable params cannot be memoized safely; degrade to a
		// never-hit key.
		payload = []byte(time.Now().Format(time.RFC3339Nano))
	}
	sum := sha256.Sum256(payload)
	return op + ":" + hex.EncodeToString(sum[:])
}
