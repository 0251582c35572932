package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key doesn't exist in a bucket
	ErrNotFound = errors.New("record not found")

	// ErrClosed is returned after the store handle was torn down
	ErrClosed = errors.New("store closed")
)

// Record is a single keyed value in a bucket.
type Record struct {
	Key   string
	Value []byte
}

// Store is the durable key-value abstraction shared by the cache regions and
// the persistent queue. Buckets spring into existence on first write.
//
// Implementations must be safe for concurrent use; conflicting writes are
// serialized by the backing storage.
type Store interface {
	// Get retrieves a value, or ErrNotFound
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put writes a value, overwriting any previous one (last write wins)
	Put(ctx context.Context, bucket, key string, value []byte) error

	// Append stores value under a store-assigned id. Ids are strictly
	// increasing per bucket and never reused, even after DropBucket.
	Append(ctx context.Context, bucket string, value []byte) (int64, error)

	// Delete removes a key; deleting a missing key is not an error
	Delete(ctx context.Context, bucket, key string) error

	// List returns every record of a bucket in insertion order
	List(ctx context.Context, bucket string) ([]Record, error)

	// Buckets lists non-empty buckets whose name starts with prefix
	Buckets(ctx context.Context, prefix string) ([]string, error)

	// DropBucket deletes a bucket and all of its records
	DropBucket(ctx context.Context, bucket string) error

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	// Close releases backend resources
	Close() error
}
