package introspection

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	executor "github.com/hanpama/fieldguide/internal/executor"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

// Wrapped pairs a runtime that answers introspection fields with the schema
// extended by the introspection types. Execute against both together.
type Wrapped struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap returns base extended with __schema and __type on the query root.
// Everything that is not an introspection field goes to base unchanged.
func Wrap(base executor.Runtime, sch *schema.Schema) (*Wrapped, error) {
	extended, err := extendSchema(sch)
	if err != nil {
		return nil, err
	}
	return &Wrapped{
		Runtime: &runtime{base: base, schema: sch},
		Schema:  extended,
	}, nil
}

type runtime struct {
	base executor.Runtime
	// schema is the unextended schema, which is what introspection reports.
	schema *schema.Schema
}

func (r *runtime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	switch src := source.(type) {
	case *schema.Schema:
		if v, ok := resolveSchemaField(src, field); ok {
			return v, nil
		}
	case *schema.Type:
		if v, ok := resolveTypeField(r.schema, src, field, args); ok {
			return v, nil
		}
	case *schema.TypeRef:
		if v, ok := resolveTypeRefField(r.schema, src, field, args); ok {
			return v, nil
		}
	case *schema.Field:
		if v, ok := resolveFieldField(src, field, args); ok {
			return v, nil
		}
	case *schema.InputValue:
		if v, ok := resolveInputValueField(src, field); ok {
			return v, nil
		}
	case *schema.EnumValue:
		if v, ok := resolveEnumValueField(src, field); ok {
			return v, nil
		}
	case *schema.Directive:
		if v, ok := resolveDirectiveField(src, field, args); ok {
			return v, nil
		}
	}

	if objectType == r.schema.QueryType {
		switch field {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}
	return r.base.ResolveSync(ctx, objectType, field, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

// SerializeLeafValue answers the two introspection enums itself; the base
// runtime does not know about them.
func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	if strings.HasPrefix(typ, "__") {
		return fmt.Sprint(value), nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

func resolveSchemaField(sch *schema.Schema, field string) (any, bool) {
	switch field {
	case "description":
		return optional(sch.Description), true
	case "types":
		out := make([]*schema.Type, 0, len(sch.Types))
		for _, t := range sch.Types {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	case "queryType":
		return sch.GetQueryType(), true
	case "mutationType":
		return sch.GetMutationType(), true
	case "subscriptionType":
		return sch.GetSubscriptionType(), true
	case "directives":
		out := make([]*schema.Directive, 0, len(sch.Directives))
		for _, d := range sch.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out, true
	}
	return nil, false
}

func resolveTypeField(sch *schema.Schema, t *schema.Type, field string, args map[string]any) (any, bool) {
	switch field {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return optional(t.Description), true
	case "specifiedByURL":
		if t.SpecifiedByURL == nil {
			return nil, true
		}
		return *t.SpecifiedByURL, true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := []*schema.Field{}
		for _, f := range t.GetOrderedFields() {
			if f.IsDeprecated && !includeDeprecated(args) {
				continue
			}
			out = append(out, f)
		}
		return out, true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		return lookupTypes(sch, t.Interfaces), true
	case "possibleTypes":
		if t.Kind != schema.TypeKindInterface && t.Kind != schema.TypeKindUnion {
			return nil, true
		}
		return lookupTypes(sch, t.PossibleTypes), true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		out := []*schema.EnumValue{}
		for _, ev := range t.EnumValues {
			if ev.IsDeprecated && !includeDeprecated(args) {
				continue
			}
			out = append(out, ev)
		}
		return out, true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		return filterInputValues(t.InputFields, args), true
	case "isOneOf":
		return t.OneOf, true
	case "ofType":
		// Named types never wrap anything; List and Non-Null are TypeRefs.
		return nil, true
	}
	return nil, false
}

// resolveTypeRefField answers __Type fields for a type reference. Wrapping
// references report LIST or NON_NULL; named references defer to the type.
func resolveTypeRefField(sch *schema.Schema, tr *schema.TypeRef, field string, args map[string]any) (any, bool) {
	if tr.Kind == schema.TypeRefKindNonNull || tr.Kind == schema.TypeRefKindList {
		switch field {
		case "kind":
			return string(tr.Kind), true
		case "ofType":
			return tr.OfType, true
		case "isOneOf":
			return nil, true
		}
		return nil, true
	}
	def := sch.Types[tr.Named]
	if def == nil {
		return nil, true
	}
	return resolveTypeField(sch, def, field, args)
}

func resolveFieldField(f *schema.Field, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return f.Name, true
	case "description":
		return optional(f.Description), true
	case "args":
		return filterInputValues(f.Arguments, args), true
	case "type":
		return f.Type, true
	case "isDeprecated":
		return f.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(f.IsDeprecated, f.DeprecationReason), true
	}
	return nil, false
}

func resolveInputValueField(a *schema.InputValue, field string) (any, bool) {
	switch field {
	case "name":
		return a.Name, true
	case "description":
		return optional(a.Description), true
	case "type":
		return a.Type, true
	case "defaultValue":
		if a.DefaultValue == nil {
			return nil, true
		}
		return formatValue(a.DefaultValue), true
	case "isDeprecated":
		return a.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(a.IsDeprecated, a.DeprecationReason), true
	}
	return nil, false
}

func resolveEnumValueField(ev *schema.EnumValue, field string) (any, bool) {
	switch field {
	case "name":
		return ev.Name, true
	case "description":
		return optional(ev.Description), true
	case "isDeprecated":
		return ev.IsDeprecated, true
	case "deprecationReason":
		return deprecationReason(ev.IsDeprecated, ev.DeprecationReason), true
	}
	return nil, false
}

func resolveDirectiveField(d *schema.Directive, field string, args map[string]any) (any, bool) {
	switch field {
	case "name":
		return d.Name, true
	case "description":
		return optional(d.Description), true
	case "isRepeatable":
		return d.IsRepeatable, true
	case "locations":
		return d.Locations, true
	case "args":
		return filterInputValues(d.Arguments, args), true
	}
	return nil, false
}

func lookupTypes(sch *schema.Schema, names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := sch.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

func filterInputValues(in []*schema.InputValue, args map[string]any) []*schema.InputValue {
	out := []*schema.InputValue{}
	for _, iv := range in {
		if iv.IsDeprecated && !includeDeprecated(args) {
			continue
		}
		out = append(out, iv)
	}
	return out
}

func includeDeprecated(args map[string]any) bool {
	b, _ := args["includeDeprecated"].(bool)
	return b
}

func deprecationReason(deprecated bool, reason string) any {
	if !deprecated {
		return nil
	}
	return reason
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// formatValue renders a coerced default value as a GraphQL literal.
func formatValue(v any) string {
	switch v := v.(type) {
	case string:
		return strconv.Quote(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = formatValue(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(v[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}
