package executor

import (
	"context"
	"fmt"
	"reflect"

	language "github.com/hanpama/fieldguide/internal/language"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// Schema returns the schema the executor runs against.
func (e *Executor) Schema() *schema.Schema { return e.schema }

// executionState holds the state of one operation.
type executionState struct {
	ctx       context.Context
	runtime   Runtime
	schema    *schema.Schema
	document  *language.QueryDocument
	variables map[string]any
	data      *OrderedMap
	pending   []asyncTask
	errors    []GraphQLError
	// response paths already nulled by a Non-Null violation
	nullified map[string]struct{}
}

type asyncTask struct {
	task      AsyncResolveTask
	path      Path
	fieldType *schema.TypeRef
	fields    []*language.Field
}

// ExecuteRequest runs one operation of document. The document is expected to
// have passed validation against the schema.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	operation, err := selectOperation(document, operationName)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	variables, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	var rootType *schema.Type
	switch operation.Operation {
	case language.Query:
		rootType = e.schema.GetQueryType()
	case language.Mutation:
		rootType = e.schema.GetMutationType()
	case language.Subscription:
		rootType = e.schema.GetSubscriptionType()
	default:
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}
	if rootType == nil {
		return &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("schema does not support %s operations", operation.Operation)}}}
	}

	s := &executionState{
		ctx:       ctx,
		runtime:   e.runtime,
		schema:    e.schema,
		document:  document,
		variables: variables,
		data:      NewOrderedMap(),
		errors:    []GraphQLError{},
		nullified: make(map[string]struct{}),
	}

	if operation.Operation == language.Mutation {
		// Root mutation fields run one after another, each to completion.
		for _, group := range s.collectFields(rootType, operation.SelectionSet).fields {
			s.executeGroup(s.data, rootType, initialValue, group, Path{})
			s.drain()
		}
	} else {
		for _, group := range s.collectFields(rootType, operation.SelectionSet).fields {
			s.executeGroup(s.data, rootType, initialValue, group, Path{})
		}
		s.drain()
	}

	return &ExecutionResult{Data: s.data, Errors: s.errors}
}

// drain flushes queued resolver-backed fields depth by depth until none remain.
func (s *executionState) drain() {
	for len(s.pending) > 0 {
		batch := make([]asyncTask, 0, len(s.pending))
		for _, at := range s.pending {
			if !s.isNullified(at.path) {
				batch = append(batch, at)
			}
		}
		s.pending = nil
		if len(batch) == 0 {
			return
		}

		tasks := make([]AsyncResolveTask, len(batch))
		for i, at := range batch {
			tasks[i] = at.task
		}
		results := s.runtime.BatchResolveAsync(s.ctx, tasks)
		for i, at := range batch {
			var res AsyncResolveResult
			if i < len(results) {
				res = results[i]
			} else {
				res = AsyncResolveResult{Error: fmt.Errorf("runtime returned no result for %s.%s", at.task.ObjectType, at.task.Field)}
			}
			s.completeAsync(at, res)
		}
	}
}

// executeSelectionSet resolves selectionSet against value. It returns nil when
// a Non-Null child came back null, which nulls the object itself.
func (s *executionState) executeSelectionSet(objectType *schema.Type, selectionSet language.SelectionSet, value any, path Path) *OrderedMap {
	out := NewOrderedMap()
	for _, group := range s.collectFields(objectType, selectionSet).fields {
		if !s.executeGroup(out, objectType, value, group, path) {
			return nil
		}
	}
	return out
}

// executeGroup resolves one response key into out. It reports false when a
// Non-Null field resolved to null below the root.
func (s *executionState) executeGroup(out *OrderedMap, objectType *schema.Type, value any, group collectedField, path Path) bool {
	field := group.Fields[0]
	fieldPath := path.append(group.ResponseName)

	if field.Name == "__typename" {
		out.Set(group.ResponseName, objectType.Name)
		return true
	}

	fieldDef := objectType.Field(field.Name)
	if fieldDef == nil {
		s.addFieldError(fmt.Sprintf("Cannot query field %q on type %q", field.Name, objectType.Name), group.Fields, fieldPath)
		return true
	}

	args := coerceArgumentValues(s, fieldDef, field, fieldPath)

	if fieldDef.Async {
		out.Set(group.ResponseName, nil)
		s.pending = append(s.pending, asyncTask{
			task: AsyncResolveTask{
				ObjectType: objectType.Name,
				Field:      field.Name,
				Source:     value,
				Args:       args,
				Path:       fieldPath,
			},
			path:      fieldPath,
			fieldType: fieldDef.Type,
			fields:    group.Fields,
		})
		return true
	}

	raw, err := s.runtime.ResolveSync(s.ctx, objectType.Name, field.Name, value, args)
	if err != nil {
		s.addResolverError(err, group.Fields, fieldPath)
		raw = nil
	}
	completed := s.completeValue(fieldDef.Type, group.Fields, raw, fieldPath)
	if isNullish(completed) {
		out.Set(group.ResponseName, nil)
		if schema.IsNonNull(fieldDef.Type) && len(path) > 0 {
			return false
		}
		return true
	}
	out.Set(group.ResponseName, completed)
	return true
}

func (s *executionState) completeAsync(at asyncTask, res AsyncResolveResult) {
	if s.isNullified(at.path) {
		return
	}
	var completed any
	if res.Error != nil {
		s.addResolverError(res.Error, at.fields, at.path)
	} else {
		completed = s.completeValue(at.fieldType, at.fields, res.Value, at.path)
	}

	if isNullish(completed) {
		if schema.IsNonNull(at.fieldType) && len(at.path) > 1 {
			root := rootFieldPath(at.path)
			s.setValue(root, nil)
			s.markNullified(root)
			return
		}
		s.setValue(at.path, nil)
		return
	}
	s.setValue(at.path, completed)
}

func (s *executionState) completeValue(fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !s.hasErrorAt(path) {
				s.addFieldError(fmt.Sprintf("Cannot return null for non-nullable field %s", path), fields, path)
			}
			return nil
		}
		return s.completeValue(schema.Unwrap(fieldType), fields, result, path)
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return s.completeList(fieldType, fields, result, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typ := s.schema.Types[namedType]
	if typ == nil {
		s.addFieldError(fmt.Sprintf("Unknown type: %s", namedType), fields, path)
		return nil
	}

	switch typ.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		out, err := s.runtime.SerializeLeafValue(s.ctx, namedType, result)
		if err != nil {
			s.addFieldError(err.Error(), fields, path)
			return nil
		}
		return out
	case schema.TypeKindObject:
		return s.completeObject(typ, fields, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		name, err := s.runtime.ResolveType(s.ctx, namedType, result)
		if err != nil {
			s.addFieldError(err.Error(), fields, path)
			return nil
		}
		concrete := s.schema.Types[name]
		if concrete == nil || concrete.Kind != schema.TypeKindObject || !possibleType(typ, concrete) {
			s.addFieldError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", namedType, name), fields, path)
			return nil
		}
		return s.completeObject(concrete, fields, result, path)
	}
	s.addFieldError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typ.Kind), fields, path)
	return nil
}

func (s *executionState) completeList(listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	items, ok := result.([]any)
	if !ok {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			s.addFieldError(fmt.Sprintf("Expected list value, got %T", result), fields, path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := range items {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	out := make([]any, len(items))
	for i, item := range items {
		v := s.completeValue(inner, fields, item, path.append(i))
		if isNullish(v) {
			if schema.IsNonNull(inner) {
				return nil
			}
			v = nil
		}
		out[i] = v
	}
	return out
}

func (s *executionState) completeObject(objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	obj := s.executeSelectionSet(objectType, merged, result, path)
	if obj == nil {
		return nil
	}
	return obj
}

// setValue writes v into the response tree at p. Missing or nulled parents
// are left alone.
func (s *executionState) setValue(p Path, v any) {
	if len(p) == 0 {
		return
	}
	var cur any = s.data
	for _, elem := range p[:len(p)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := cur.(*OrderedMap)
			if !ok || m == nil {
				return
			}
			cur, _ = m.Get(e)
		case int:
			list, ok := cur.([]any)
			if !ok || e >= len(list) {
				return
			}
			cur = list[e]
		}
	}
	switch e := p[len(p)-1].(type) {
	case string:
		if m, ok := cur.(*OrderedMap); ok && m != nil {
			m.Set(e, v)
		}
	case int:
		if list, ok := cur.([]any); ok && e < len(list) {
			list[e] = v
		}
	}
}

func (s *executionState) markNullified(p Path) {
	if key := p.String(); key != "" {
		s.nullified[key] = struct{}{}
	}
}

func (s *executionState) isNullified(p Path) bool {
	if len(s.nullified) == 0 {
		return false
	}
	for i := 1; i <= len(p); i++ {
		if _, ok := s.nullified[p[:i].String()]; ok {
			return true
		}
	}
	return false
}

func (s *executionState) addFieldError(message string, fields []*language.Field, path Path) {
	s.errors = append(s.errors, GraphQLError{Message: message, Locations: locationsOf(fields), Path: path})
}

// extensionsCarrier is implemented by resolver errors that want to attach
// structured data (e.g. an error code) to the response.
type extensionsCarrier interface {
	Extensions() map[string]any
}

func (s *executionState) addResolverError(err error, fields []*language.Field, path Path) {
	ge := GraphQLError{Message: err.Error(), Locations: locationsOf(fields), Path: path}
	if ec, ok := err.(extensionsCarrier); ok {
		ge.Extensions = ec.Extensions()
	}
	s.errors = append(s.errors, ge)
}

func (s *executionState) hasErrorAt(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

func locationsOf(fields []*language.Field) []Location {
	if len(fields) == 0 || fields[0].Position == nil {
		return nil
	}
	return []Location{{Line: fields[0].Position.Line, Column: fields[0].Position.Column}}
}

func rootFieldPath(p Path) Path {
	if len(p) == 0 {
		return p
	}
	return Path{p[0]}
}

func selectOperation(document *language.QueryDocument, operationName string) (*language.OperationDefinition, error) {
	if operationName == "" {
		switch len(document.Operations) {
		case 0:
			return nil, fmt.Errorf("document contains no operations")
		case 1:
			return document.Operations[0], nil
		default:
			return nil, fmt.Errorf("must provide operation name if query contains multiple operations")
		}
	}
	if op := document.Operations.ForName(operationName); op != nil {
		return op, nil
	}
	return nil, fmt.Errorf("unknown operation named %q", operationName)
}

func possibleType(abstract, object *schema.Type) bool {
	for _, name := range abstract.PossibleTypes {
		if name == object.Name {
			return true
		}
	}
	return false
}

// isNullish returns true for nil interfaces and typed nils (map, slice, ptr, interface)
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
