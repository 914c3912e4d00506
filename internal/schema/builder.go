package schema

import (
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	language "github.com/hanpama/fieldguide/internal/language"
)

func NewSchema(description string) *Schema {
	return &Schema{
		Description: description,
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
	}
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	if s.Types == nil {
		s.Types = make(map[string]*Type)
	}
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	if s.Directives == nil {
		s.Directives = make(map[string]*Directive)
	}
	s.Directives[d.Name] = d
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type            { t.Fields = append(t.Fields, f); return t }
func (t *Type) AddInterface(name string) *Type     { t.Interfaces = append(t.Interfaces, name); return t }
func (t *Type) AddPossibleType(name string) *Type  { t.PossibleTypes = append(t.PossibleTypes, name); return t }
func (t *Type) AddEnumValue(v *EnumValue) *Type    { t.EnumValues = append(t.EnumValues, v); return t }
func (t *Type) AddInputField(v *InputValue) *Type  { t.InputFields = append(t.InputFields, v); return t }
func (t *Type) SetOneOf(oneOf bool) *Type          { t.OneOf = oneOf; return t }
func (t *Type) SetSpecifiedByURL(url string) *Type { t.SpecifiedByURL = &url; return t }

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field         { f.Async = async; return f }
func (f *Field) AddArgument(arg *InputValue) *Field { f.Arguments = append(f.Arguments, arg); return f }
func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue { v.DefaultValue = value; return v }
func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(r bool) *Directive        { d.IsRepeatable = r; return d }
func (d *Directive) AddArgument(arg *InputValue) *Directive { d.Arguments = append(d.Arguments, arg); return d }

// AsyncFunc reports whether a field is resolver-backed.
type AsyncFunc func(typeName, fieldName string) bool

// BuildFromAST converts a validated gqlparser schema into the executable model.
// Introspection types (names starting with "__") are left out; they are added
// by the introspection wrapper. isAsync may be nil, in which case every field
// is projected from its parent value.
func BuildFromAST(src *language.Schema, isAsync AsyncFunc) *Schema {
	if isAsync == nil {
		isAsync = func(string, string) bool { return false }
	}
	s := NewSchema(src.Description)
	if src.Query != nil {
		s.SetQueryType(src.Query.Name)
	}
	if src.Mutation != nil {
		s.SetMutationType(src.Mutation.Name)
	}
	if src.Subscription != nil {
		s.SetSubscriptionType(src.Subscription.Name)
	}

	for name, def := range src.Types {
		if strings.HasPrefix(name, "__") {
			continue
		}
		s.AddType(buildType(src, def, isAsync))
	}
	for name, dir := range src.Directives {
		if strings.HasPrefix(name, "__") {
			continue
		}
		s.AddDirective(buildDirective(dir))
	}
	return s
}

// BuildIntrospectionTypes converts the built-in "__" types every loaded
// schema carries (__Schema, __Type, __TypeKind and friends).
func BuildIntrospectionTypes(src *language.Schema) []*Type {
	var out []*Type
	for name, def := range src.Types {
		if strings.HasPrefix(name, "__") {
			out = append(out, buildType(src, def, nil))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func buildType(src *language.Schema, def *ast.Definition, isAsync AsyncFunc) *Type {
	t := NewType(def.Name, kindOf(def.Kind), def.Description)
	t.BuiltIn = def.BuiltIn

	switch def.Kind {
	case ast.Object, ast.Interface:
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			t.AddField(buildField(fd, def.Kind == ast.Object && isAsync != nil && isAsync(def.Name, fd.Name)))
		}
		if def.Kind == ast.Interface {
			for _, pt := range src.GetPossibleTypes(def) {
				t.AddPossibleType(pt.Name)
			}
			sort.Strings(t.PossibleTypes)
		}
	case ast.Union:
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
	case ast.Enum:
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
	case ast.InputObject:
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
		for _, fd := range def.Fields {
			in := NewInputValue(fd.Name, fd.Description, TypeRefFromAST(fd.Type)).SetDefault(defaultValue(fd.DefaultValue))
			if reason, ok := deprecation(fd.Directives); ok {
				in.Deprecate(reason)
			}
			t.AddInputField(in)
		}
	case ast.Scalar:
		if d := def.Directives.ForName("specifiedBy"); d != nil {
			if arg := d.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				t.SetSpecifiedByURL(arg.Value.Raw)
			}
		}
	}
	return t
}

func buildField(fd *ast.FieldDefinition, async bool) *Field {
	f := NewField(fd.Name, fd.Description, TypeRefFromAST(fd.Type)).SetAsync(async)
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, arg := range fd.Arguments {
		f.AddArgument(buildArgument(arg))
	}
	return f
}

func buildArgument(arg *ast.ArgumentDefinition) *InputValue {
	in := NewInputValue(arg.Name, arg.Description, TypeRefFromAST(arg.Type)).SetDefault(defaultValue(arg.DefaultValue))
	if reason, ok := deprecation(arg.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildDirective(dir *ast.DirectiveDefinition) *Directive {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		d.AddArgument(buildArgument(arg))
	}
	return d
}

// TypeRefFromAST converts a parsed type reference.
func TypeRefFromAST(t *ast.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(TypeRefFromAST(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func kindOf(k ast.DefinitionKind) TypeKind {
	switch k {
	case ast.Object:
		return TypeKindObject
	case ast.Interface:
		return TypeKindInterface
	case ast.Union:
		return TypeKindUnion
	case ast.Enum:
		return TypeKindEnum
	case ast.InputObject:
		return TypeKindInputObject
	}
	return TypeKindScalar
}

func defaultValue(v *ast.Value) any {
	if v == nil {
		return nil
	}
	out, err := v.Value(nil)
	if err != nil {
		return nil
	}
	return out
}

func deprecation(dirs ast.DirectiveList) (string, bool) {
	d := dirs.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "No longer supported", true
}

// BuildFromSDL parses SDL and returns the corresponding Schema with every
// field marked synchronous.
func BuildFromSDL(sdl string) (*Schema, error) {
	src, err := language.LoadSchema(&language.Source{Name: "schema.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}
	return BuildFromAST(src, nil), nil
}
