package outlinemgr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/wkalt/outline/storage"
)

type config struct {
	verify     bool
	snapshots  storage.Provider
	registerer prometheus.Registerer
	now        func() time.Time
	cacheSize  int
}

// Option is an option for the outline manager.
type Option func(*config)

// WithInvariantChecks validates the whole book inside the transaction after
// every mutation. A violation rolls the mutation back and is returned as an
// InvariantViolationError. This costs a full scan per mutation.
func WithInvariantChecks(enabled bool) Option {
	return func(c *config) {
		c.verify = enabled
	}
}

// WithSnapshotProvider sets the blob store that book snapshots are written
// to. Without one, snapshot operations return ErrSnapshotsDisabled.
func WithSnapshotProvider(provider storage.Provider) Option {
	return func(c *config) {
		c.snapshots = provider
	}
}

// WithRegisterer registers the manager's metrics with reg. By default the
// metrics are collected but not registered anywhere.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}

// WithClock overrides the clock used to timestamp snapshots.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithListingCache caches the pre-order listing of up to books books, so
// that reads do not rescan the store. Mutations through the manager
// invalidate the book they touch. Writes made to the store by anything else,
// including other managers on a shared database, are not seen until the
// entry is evicted, so leave this off unless the manager is the only writer.
func WithListingCache(books int) Option {
	return func(c *config) {
		c.cacheSize = books
	}
}
