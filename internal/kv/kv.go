// Package kv provides the key-value persistence used for settings and history.
// Values are opaque strings or doubles stored under fixed keys.
package kv

import "context"

// Store is a key-value persistence provider.
type Store interface {
	// GetString returns the value stored at key. ok is false when absent.
	GetString(ctx context.Context, key string) (value string, ok bool, err error)

	// SetString stores value at key, replacing any previous value.
	SetString(ctx context.Context, key, value string) error

	// GetDouble returns the number stored at key. ok is false when absent.
	GetDouble(ctx context.Context, key string) (value float64, ok bool, err error)

	// SetDouble stores value at key, replacing any previous value.
	SetDouble(ctx context.Context, key string, value float64) error
}
