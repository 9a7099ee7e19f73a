package metadata

import (
	"context"
)

// Known keys.
const (
	KeyUsername = "username"
	KeySalt     = "salt"
	KeyVerifier = "verifier"
	// KeyLastReconcile holds the RFC 3339 time of the last reconcile pass.
	KeyLastReconcile = "last_reconcile"
)

// AuthKeys are the keys offline login needs. Logout removes them.
var AuthKeys = []string{KeyUsername, KeySalt, KeyVerifier}

// Repository is a small key-value store for per-device settings. A missing
// key reads as nil, never as an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMany returns the stored subset of keys. Absent keys are left out.
	GetMany(ctx context.Context, keys ...string) (map[string][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys; unknown keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
