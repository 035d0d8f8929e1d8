// Package storage persists source documents and extraction results, and
// exposes the processed-key listing that backs the dedup ledger.
package storage

import (
	"context"
	"errors"
)

// ErrUnavailable marks a store that cannot currently be reached; always
// classified transient by callers.
var ErrUnavailable = errors.New("store unavailable")

// Store is the blob-storage collaborator. Writes are idempotent overwrites;
// re-running a completed upload produces the same objects.
type Store interface {
	// ListProcessedKeys returns the loan keys that already have persisted
	// results, derived from the blob layout (one folder per key).
	ListProcessedKeys(ctx context.Context) (map[string]struct{}, error)

	// PutObject writes raw bytes at path, overwriting any existing object.
	PutObject(ctx context.Context, path string, data []byte) error

	// PutJSON marshals v and writes it at path, overwriting.
	PutJSON(ctx context.Context, path string, v any) error
}
