// Package kv provides the local key-value store backing cart persistence.
package kv

import "context"

// Store is an interface for string key-value persistence.
// It abstracts the underlying storage, allowing for different implementations (e.g., in-memory, sqlite file).
type Store interface {
	// Get retrieves the value for key.
	// The second return value reports whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}
