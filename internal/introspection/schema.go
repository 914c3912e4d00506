package introspection

import (
	"sync"

	"github.com/pkg/errors"

	language "github.com/hanpama/fieldguide/internal/language"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

// builtinTypes are the __Schema, __Type, ... definitions gqlparser ships in
// its prelude, converted once per process.
var builtinTypes = sync.OnceValues(func() ([]*schema.Type, error) {
	src, err := language.LoadSchema(&language.Source{Name: "introspection", Input: "type Query { _: Boolean }"})
	if err != nil {
		return nil, errors.Wrap(err, "load introspection prelude")
	}
	return schema.BuildIntrospectionTypes(src), nil
})

// extendSchema returns a copy of original with the introspection types added
// and __schema/__type appended to its query type. original is not modified.
func extendSchema(original *schema.Schema) (*schema.Schema, error) {
	types, err := builtinTypes()
	if err != nil {
		return nil, err
	}

	extended := &schema.Schema{
		QueryType:        original.QueryType,
		MutationType:     original.MutationType,
		SubscriptionType: original.SubscriptionType,
		Types:            make(map[string]*schema.Type, len(original.Types)+len(types)),
		Directives:       original.Directives,
		Description:      original.Description,
	}
	for name, t := range original.Types {
		extended.Types[name] = t
	}
	for _, t := range types {
		extended.Types[t.Name] = t
	}

	query := original.GetQueryType()
	if query == nil {
		return nil, errors.New("schema has no query type")
	}
	q := *query
	q.Fields = append(append([]*schema.Field(nil), query.Fields...),
		schema.NewField("__schema", "Access the current type schema of this server.",
			schema.NonNullType(schema.NamedType("__Schema"))),
		schema.NewField("__type", "Request the type information of a single type.",
			schema.NamedType("__Type")).
			AddArgument(schema.NewInputValue("name", "", schema.NonNullType(schema.NamedType("String")))),
	)
	extended.Types[q.Name] = &q
	return extended, nil
}
