package service

import (
	"github.com/wkalt/outline/storage"
)

// Option is a functional option for the outline service.
type Option func(*Options)

// Options contains options for the outline service.
type Options struct {
	Port             int
	Driver           string
	DSN              string
	AllowedOrigins   []string
	SharedKey        string
	SnapshotProvider storage.Provider
	VerifyInvariants bool
	CacheSize        int
}

// WithPort sets the port to listen on. Zero picks a free port.
func WithPort(port int) Option {
	return func(opts *Options) {
		opts.Port = port
	}
}

// WithDatabase sets the database driver, sqlite3 or postgres, and its data
// source name.
func WithDatabase(driver string, dsn string) Option {
	return func(opts *Options) {
		opts.Driver = driver
		opts.DSN = dsn
	}
}

// WithAllowedOrigins sets the origins allowed to make cross-origin requests.
func WithAllowedOrigins(origins []string) Option {
	return func(opts *Options) {
		opts.AllowedOrigins = origins
	}
}

// WithSharedKey requires clients to present key as a bearer token.
func WithSharedKey(key string) Option {
	return func(opts *Options) {
		opts.SharedKey = key
	}
}

// WithSnapshotProvider enables book snapshots in provider.
func WithSnapshotProvider(provider storage.Provider) Option {
	return func(opts *Options) {
		opts.SnapshotProvider = provider
	}
}

// WithInvariantChecks validates each book after every mutation.
func WithInvariantChecks(enabled bool) Option {
	return func(opts *Options) {
		opts.VerifyInvariants = enabled
	}
}

// WithListingCache caches the listings of up to books books in memory. Only
// use it when this server is the database's only writer.
func WithListingCache(books int) Option {
	return func(opts *Options) {
		opts.CacheSize = books
	}
}
