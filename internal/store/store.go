// Package store defines the document store the resolvers read from and write
// to. Backends live in subpackages; they all share the equality filter
// semantics implemented by Matches.
package store

import (
	"context"
)

// IDField is the key under which every backend stores a record's identifier.
const IDField = "_id"

// Record is a schema-less document.
type Record = map[string]any

// Filter is an equality filter: a record matches when every key of the
// filter is present in the record with an equal value. An empty filter
// matches everything.
type Filter map[string]any

// Store is a handle to one database. Implementations are safe for
// concurrent use.
type Store interface {
	// Backend names the implementation ("mongo", "badger", "postgres").
	Backend() string
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection is a named set of records.
type Collection interface {
	Name() string
	// Find returns every matching record in the backend's native order.
	Find(ctx context.Context, filter Filter) ([]Record, error)
	// FindOne returns the first matching record, or (nil, nil) when nothing
	// matches.
	FindOne(ctx context.Context, filter Filter) (Record, error)
	// Insert stores a copy of rec and returns it with its generated IDField.
	// An IDField already present in rec is kept.
	Insert(ctx context.Context, rec Record) (Record, error)
}
