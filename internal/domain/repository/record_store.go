package repository

import (
	"context"
	"strings"
)

// RecordStore defines raw persistence for cache records.
// Implementations should be provided by the infrastructure layer (filesystem, SQLite,
// Redis, MinIO, PostgreSQL). Stores know nothing about record contents; decoding and
// validation belong to the caller.
type RecordStore interface {
	// Get returns the payload stored under key.
	// Returns ErrRecordNotFound if nothing is stored.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the payload stored under key.
	Put(ctx context.Context, key string, payload []byte) error

	// Delete removes the payload stored under key.
	// Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that could escape a store's namespace.
func ValidateKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
