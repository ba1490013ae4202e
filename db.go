package tenantdb

import (
	"github.com/rs/zerolog"
)

// DB mediates every operation between application code and a shared Store,
// enforcing tenant isolation. It is safe for concurrent use; all per-request
// state travels on the context, never on the handle.
type DB struct {
	store    Store
	registry *Registry
	clock    Clock
	log      zerolog.Logger
	strict   bool
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for security events and classification
// warnings. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(db *DB) { db.log = log }
}

// WithClock overrides the timestamp source for audit-field stamping.
func WithClock(clock Clock) Option {
	return func(db *DB) { db.clock = clock }
}

// WithRegistry replaces the default collection classification.
func WithRegistry(r *Registry) Option {
	return func(db *DB) { db.registry = r }
}

// Strict makes operations on unregistered collection names fail with
// ErrUnknownCollection instead of defaulting them to tenant scope. It is a
// property of the handle, not of the registry, so a registry shared between
// handles is never mutated and option order does not matter.
func Strict() Option {
	return func(db *DB) { db.strict = true }
}

// New wraps a Store with the isolation layer.
func New(store Store, opts ...Option) *DB {
	db := &DB{
		store:    store,
		registry: DefaultRegistry(),
		clock:    SystemClock{},
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Collection returns the guarded accessor for a named collection.
func (db *DB) Collection(name string) *Collection {
	return &Collection{db: db, name: name}
}
