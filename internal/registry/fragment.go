package registry

import (
	"context"

	"github.com/hanpama/fieldguide/internal/executor"
)

// Fragment is one independently authored piece of the schema.
type Fragment struct {
	// Name identifies the fragment in build errors and SDL source positions.
	Name string
	// TypeDef is SDL text. It may be empty.
	TypeDef string
	// Resolvers maps type name to field name to resolver. It may be nil.
	Resolvers ResolverMap
}

// ResolverMap is keyed by object type name, then field name.
type ResolverMap map[string]map[string]ResolverFunc

// ResolverFunc computes the value of one field.
type ResolverFunc func(ctx context.Context, p ResolveParams) (any, error)

// ResolveParams is what a resolver receives for a single field instance.
type ResolveParams struct {
	// Source is the parent value; nil for root fields.
	Source any
	// Args are the coerced field arguments, with schema defaults applied.
	Args map[string]any
	// ObjectType and Field name the field being resolved.
	ObjectType string
	Field      string
	// Path is the response path of the field.
	Path executor.Path
}
