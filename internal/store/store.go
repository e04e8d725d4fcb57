// Package store provides atomic set-if-absent key stores with expiry that back
// the idempotency guard.
package store

import (
	"context"
	"regexp"
	"time"

	"github.com/rotisserie/eris"
)

// Store is a key store with atomic set-if-absent and per-key expiry.
// Implementations must be safe for concurrent use across goroutines and,
// for shared drivers, across processes.
type Store interface {
	// SetIfAbsent records key for ttl. It returns true when the key was
	// absent or expired, false when a live entry already exists.
	SetIfAbsent(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AdmittedAt returns when a live key was recorded. The bool is false
	// when the key is absent or expired.
	AdmittedAt(ctx context.Context, key string) (time.Time, bool, error)

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Pruner is implemented by drivers whose expired entries stay on disk until
// removed. Redis and the memory driver expire keys natively.
type Pruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Driver names accepted by New.
const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// DefaultTable is the table used by SQL drivers when none is configured.
const DefaultTable = "idempotency_keys"

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

func validTable(name string) (string, error) {
	if name == "" {
		return DefaultTable, nil
	}
	if !tableNameRe.MatchString(name) {
		return "", eris.Errorf("store: invalid table name %q", name)
	}
	return name, nil
}

// Options selects and configures a driver.
type Options struct {
	Driver string
	URL    string
	Table  string
}

// New opens the store for opts.Driver. It does not ping the backend; the
// guard decides what an unreachable store means.
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverRedis:
		return NewRedis(opts.URL)
	case DriverPostgres:
		return NewPostgres(ctx, opts.URL, opts.Table)
	case DriverSQLite:
		return NewSQLite(opts.URL, opts.Table)
	case DriverMemory:
		return NewMemory()
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}
