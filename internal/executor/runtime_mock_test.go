package executor_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	executor "github.com/hanpama/fieldguide/internal/executor"
	language "github.com/hanpama/fieldguide/internal/language"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

type mockResolver func(ctx context.Context, source any, args map[string]any) (any, error)

func value(v any) mockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return v, nil }
}

func fail(err error) mockResolver {
	return func(context.Context, any, map[string]any) (any, error) { return nil, err }
}

type call struct {
	Kind       string
	ObjectType string
	Field      string
	Args       map[string]any
	BatchID    int
}

// mockRuntime records every call. Sync calls project map keys when no
// resolver is registered for the field.
type mockRuntime struct {
	mu        sync.Mutex
	resolvers map[string]mockResolver
	calls     []call
	batchSeq  int
	truncate  bool
}

func newMockRuntime(resolvers map[string]mockResolver) *mockRuntime {
	return &mockRuntime{resolvers: resolvers}
}

func (m *mockRuntime) ResolveSync(ctx context.Context, objectType, field string, source any, args map[string]any) (any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, call{Kind: "sync", ObjectType: objectType, Field: field, Args: args})
	r := m.resolvers[objectType+"."+field]
	m.mu.Unlock()
	if r != nil {
		return r(ctx, source, args)
	}
	if src, ok := source.(map[string]any); ok {
		return src[field], nil
	}
	return nil, nil
}

func (m *mockRuntime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	m.mu.Lock()
	m.batchSeq++
	batchID := m.batchSeq
	m.mu.Unlock()

	results := make([]executor.AsyncResolveResult, len(tasks))
	for i, task := range tasks {
		m.mu.Lock()
		m.calls = append(m.calls, call{Kind: "async", ObjectType: task.ObjectType, Field: task.Field, Args: task.Args, BatchID: batchID})
		r := m.resolvers[task.ObjectType+"."+task.Field]
		m.mu.Unlock()
		if r == nil {
			continue
		}
		v, err := r(ctx, task.Source, task.Args)
		results[i] = executor.AsyncResolveResult{Value: v, Error: err}
	}
	if m.truncate && len(results) > 0 {
		return results[:len(results)-1]
	}
	return results
}

func (m *mockRuntime) ResolveType(ctx context.Context, abstractType string, v any) (string, error) {
	if src, ok := v.(map[string]any); ok {
		if name, ok := src["__typename"].(string); ok {
			return name, nil
		}
	}
	return "", fmt.Errorf("cannot resolve concrete type of %s", abstractType)
}

func (m *mockRuntime) SerializeLeafValue(ctx context.Context, typeName string, v any) (any, error) {
	return v, nil
}

func (m *mockRuntime) getCalls() []call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]call(nil), m.calls...)
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustBuildSchema builds sdl and marks the listed "Type.field" coordinates async.
func mustBuildSchema(t *testing.T, sdl string, async ...string) *schema.Schema {
	t.Helper()
	sch, err := schema.BuildFromSDL(sdl)
	if err != nil {
		t.Fatalf("schema error: %v", err)
	}
	for _, coord := range async {
		var typeName, fieldName string
		for i := range coord {
			if coord[i] == '.' {
				typeName, fieldName = coord[:i], coord[i+1:]
				break
			}
		}
		f := sch.Types[typeName].Field(fieldName)
		if f == nil {
			t.Fatalf("no field %s", coord)
		}
		f.SetAsync(true)
	}
	return sch
}
