// Package blobstore abstracts snapshot storage for the activity
// store's object-storage backend. Snapshots are small immutable blobs
// read and written whole, so the contract is byte-level rather than
// streaming.
package blobstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blobstore: not found")

// BlobStore stores named immutable blobs.
type BlobStore interface {
	// Get reads a blob. Returns ErrNotFound when it does not exist.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is a no-op.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}
