package executor

import (
	"context"
)

// Runtime is the host integration surface the Executor resolves fields through.
//
// The Executor drains synchronous fields through ResolveSync as it walks a
// selection set, and collects resolver-backed (Async) fields of one depth into
// a single BatchResolveAsync call. Results of a batch must line up with the
// tasks (results[i] belongs to tasks[i]); each element fails independently,
// so one broken field never takes its siblings down.
//
// Errors returned from any method become located GraphQL errors. A null or
// failed value for a Non-Null field propagates to the enclosing root field.
//
// Implementations are shared across concurrent requests and must not mutate
// source or args values.
type Runtime interface {
	// ResolveSync returns the raw value of a field that has no resolver,
	// typically by projecting it from source. Return (nil, nil) for null.
	ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error)

	// BatchResolveAsync resolves all resolver-backed fields of one depth.
	// len(results) must equal len(tasks), in the same order.
	BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult

	// ResolveType names the concrete object type of a value whose declared
	// type is an interface or union.
	ResolveType(ctx context.Context, abstractType string, value any) (string, error)

	// SerializeLeafValue turns a raw scalar or enum value into a JSON-safe Go
	// value (string, bool, int/int64, float64).
	SerializeLeafValue(ctx context.Context, scalarOrEnumTypeName string, value any) (any, error)
}

type AsyncResolveTask struct {
	// ObjectType is the parent GraphQL object type name for the field.
	ObjectType string
	// Field is the GraphQL field name to resolve.
	Field string
	// Source is the parent object value (nil for root fields).
	Source any
	// Args are the field arguments, coerced to Go values per the schema.
	Args map[string]any
	// Path is the response path of the field, for diagnostics.
	Path Path
}

type AsyncResolveResult struct {
	// Value is the resolved raw value prior to completion, or nil on error.
	Value any
	// Error contains a failure specific to this element.
	Error error
}
