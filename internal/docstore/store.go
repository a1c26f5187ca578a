// Package docstore implements the remote backend as JSON documents in a flat
// key/value object store: S3 in production, memory in tests.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Get for a missing key.
var ErrNotFound = errors.New("document not found")

// Store is a flat namespace of documents addressed by slash-separated keys.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error

	// Get returns ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns every key under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
