package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hanpama/fieldguide/internal/executor"
	language "github.com/hanpama/fieldguide/internal/language"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

// ExecutableSchema is the merged, validated schema together with its
// resolvers. It is immutable and safe to share across requests.
type ExecutableSchema struct {
	ast       *language.Schema
	schema    *schema.Schema
	resolvers *mergedResolvers
	runtime   *Runtime
}

// Build merges fragments into an ExecutableSchema. It has no side effects.
func Build(fragments []Fragment, opts ...Option) (*ExecutableSchema, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	src, err := loadSchema(o.rootDocument, fragments)
	if err != nil {
		return nil, err
	}

	var merged *mergedResolvers
	if o.shallowMerge {
		merged = mergeResolversShallow(fragments)
	} else if merged, err = mergeResolvers(fragments); err != nil {
		return nil, err
	}

	if err := checkDeclared(src, merged); err != nil {
		return nil, err
	}
	if o.requireNonScalar {
		if err := checkNonScalarResolvers(src, merged); err != nil {
			return nil, err
		}
	}

	sch := schema.BuildFromAST(src, func(typeName, fieldName string) bool {
		_, ok := merged.lookup(typeName, fieldName)
		return ok
	})
	return &ExecutableSchema{
		ast:       src,
		schema:    sch,
		resolvers: merged,
		runtime:   newRuntime(sch, merged, o.maxConcurrency),
	}, nil
}

func loadSchema(root string, fragments []Fragment) (*language.Schema, error) {
	sources := make([]*language.Source, 0, len(fragments)+1)
	if strings.TrimSpace(root) != "" {
		sources = append(sources, &language.Source{Name: "root", Input: root})
	}
	for i, f := range fragments {
		if strings.TrimSpace(f.TypeDef) == "" {
			continue
		}
		sources = append(sources, &language.Source{Name: fragmentName(f, i), Input: f.TypeDef})
	}

	src, err := language.LoadSchema(sources...)
	if err != nil {
		var list language.ErrorList
		if errors.As(err, &list) {
			return nil, &SchemaBuildError{Errors: list}
		}
		return nil, &SchemaBuildError{Errors: language.ErrorList{{Message: err.Error()}}}
	}
	return src, nil
}

func checkDeclared(src *language.Schema, merged *mergedResolvers) error {
	for _, typeName := range sortedKeys(merged.funcs) {
		def := src.Types[typeName]
		for _, field := range sortedKeys(merged.funcs[typeName]) {
			owner := merged.owners[typeName][field]
			if def == nil || def.Kind != language.Object {
				return &UndeclaredResolverError{Fragment: owner, Type: typeName, Field: field, TypeMissing: true}
			}
			if def.Fields.ForName(field) == nil {
				return &UndeclaredResolverError{Fragment: owner, Type: typeName, Field: field}
			}
		}
	}
	return nil
}

func checkNonScalarResolvers(src *language.Schema, merged *mergedResolvers) error {
	for _, typeName := range sortedKeys(src.Types) {
		def := src.Types[typeName]
		if def.BuiltIn || def.Kind != language.Object || strings.HasPrefix(typeName, "__") {
			continue
		}
		for _, fd := range def.Fields {
			if strings.HasPrefix(fd.Name, "__") {
				continue
			}
			named := src.Types[fd.Type.Name()]
			if named == nil || named.IsLeafType() {
				continue
			}
			if _, ok := merged.lookup(typeName, fd.Name); !ok {
				return &MissingResolverError{Type: typeName, Field: fd.Name}
			}
		}
	}
	return nil
}

func fragmentName(f Fragment, i int) string {
	if f.Name != "" {
		return f.Name
	}
	return fmt.Sprintf("fragment#%d", i)
}

// Schema returns the executor's view of the merged schema.
func (s *ExecutableSchema) Schema() *schema.Schema { return s.schema }

// AST returns the validated gqlparser schema, used for query validation.
func (s *ExecutableSchema) AST() *language.Schema { return s.ast }

// SDL renders the merged schema.
func (s *ExecutableSchema) SDL() string { return language.FormatSchema(s.ast) }

// Runtime returns the executor runtime that dispatches to the resolvers.
func (s *ExecutableSchema) Runtime() executor.Runtime { return s.runtime }

// HasResolver reports whether typeName.field has a registered resolver.
func (s *ExecutableSchema) HasResolver(typeName, field string) bool {
	_, ok := s.resolvers.lookup(typeName, field)
	return ok
}
