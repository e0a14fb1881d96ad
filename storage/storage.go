package storage

import (
	"context"
	"errors"
)

/*
Storage providers hold outline snapshots as opaque blobs addressed by
slash-separated keys. Keys sort lexically in the order snapshots are taken,
which List relies on.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when an object is not found.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface for a blob storage provider.
type Provider interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// List returns the keys beginning with prefix in ascending order.
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, key string) error
	String() string
}
