package registry

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/hanpama/fieldguide/internal/eventbus"
	"github.com/hanpama/fieldguide/internal/events"
	"github.com/hanpama/fieldguide/internal/executor"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

// Runtime implements executor.Runtime over a merged resolver table.
//
//   - ResolveSync never calls a resolver. It projects the field from the
//     parent value: a map key or an exported struct field whose name or json
//     tag matches. Anything missing is null.
//   - BatchResolveAsync runs the resolvers of one depth concurrently, at most
//     maxConcurrency at a time, and returns results in task order. A failing
//     or panicking resolver only fails its own field.
type Runtime struct {
	schema         *schema.Schema
	resolvers      *mergedResolvers
	maxConcurrency int
}

var _ executor.Runtime = (*Runtime)(nil)

func newRuntime(sch *schema.Schema, resolvers *mergedResolvers, maxConcurrency int) *Runtime {
	return &Runtime{schema: sch, resolvers: resolvers, maxConcurrency: maxConcurrency}
}

func (r *Runtime) ResolveSync(ctx context.Context, objectType string, field string, source any, args map[string]any) (any, error) {
	return defaultResolve(source, field), nil
}

func (r *Runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	results := make([]executor.AsyncResolveResult, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if len(tasks) == 1 || r.maxConcurrency < 1 {
		for i := range tasks {
			results[i] = r.resolve(ctx, tasks[i])
		}
		return results
	}

	// Per-task failures live in results; the group itself never fails, so one
	// broken field cannot cancel its siblings.
	var g errgroup.Group
	g.SetLimit(r.maxConcurrency)
	for i := range tasks {
		g.Go(func() error {
			results[i] = r.resolve(ctx, tasks[i])
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Runtime) resolve(ctx context.Context, task executor.AsyncResolveTask) (res executor.AsyncResolveResult) {
	fn, ok := r.resolvers.lookup(task.ObjectType, task.Field)
	if !ok {
		return executor.AsyncResolveResult{Error: fmt.Errorf("no resolver registered for %s.%s", task.ObjectType, task.Field)}
	}

	path := task.Path.String()
	eventbus.Publish(ctx, events.ResolverStart{ObjectType: task.ObjectType, Field: task.Field, Path: path})
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res = executor.AsyncResolveResult{Error: errors.Errorf("resolver %s.%s panicked: %v", task.ObjectType, task.Field, p)}
		}
		eventbus.Publish(ctx, events.ResolverFinish{
			ObjectType: task.ObjectType,
			Field:      task.Field,
			Path:       path,
			Err:        res.Error,
			Duration:   time.Since(start),
		})
	}()

	if err := ctx.Err(); err != nil {
		return executor.AsyncResolveResult{Error: err}
	}
	v, err := fn(ctx, ResolveParams{
		Source:     task.Source,
		Args:       task.Args,
		ObjectType: task.ObjectType,
		Field:      task.Field,
		Path:       task.Path,
	})
	if err != nil {
		return executor.AsyncResolveResult{Error: err}
	}
	return executor.AsyncResolveResult{Value: v}
}

// ResolveType reads "__typename" from map values, falling back to the Go
// type name of struct values.
func (r *Runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	if name, ok := defaultResolve(value, "__typename").(string); ok && name != "" {
		return name, nil
	}
	rt := reflect.TypeOf(value)
	for rt != nil && rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt != nil && rt.Kind() == reflect.Struct {
		if t := r.schema.Types[rt.Name()]; t != nil && t.Kind == schema.TypeKindObject {
			return rt.Name(), nil
		}
	}
	return "", fmt.Errorf("cannot determine the concrete type of %s from %T", abstractType, value)
}

func (r *Runtime) SerializeLeafValue(ctx context.Context, typeName string, value any) (any, error) {
	switch typeName {
	case "Int":
		return serializeInt(value)
	case "Float":
		return serializeFloat(value)
	case "String":
		return serializeString(value)
	case "Boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("Boolean cannot represent a non boolean value: %v", value)
	case "ID":
		return serializeID(value)
	}
	if t := r.schema.Types[typeName]; t != nil && t.Kind == schema.TypeKindEnum {
		name := fmt.Sprint(value)
		for _, ev := range t.EnumValues {
			if ev.Name == name {
				return name, nil
			}
		}
		return nil, fmt.Errorf("Enum %q cannot represent value: %v", typeName, value)
	}
	return value, nil
}

// defaultResolve projects field out of source.
func defaultResolve(source any, field string) any {
	switch s := source.(type) {
	case nil:
		return nil
	case map[string]any:
		return s[field]
	}

	rv := reflect.ValueOf(source)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		v := rv.MapIndex(reflect.ValueOf(field).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			sf := rt.Field(i)
			if !sf.IsExported() {
				continue
			}
			if tag := strings.Split(sf.Tag.Get("json"), ",")[0]; tag == field || (tag == "" && strings.EqualFold(sf.Name, field)) {
				return rv.Field(i).Interface()
			}
		}
	}
	return nil
}

func serializeInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		if v <= math.MaxInt32 && v >= math.MinInt32 {
			return int(v), nil
		}
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		if v <= math.MaxInt32 {
			return int(v), nil
		}
	case float64:
		if v == math.Trunc(v) && v <= math.MaxInt32 && v >= math.MinInt32 {
			return int(v), nil
		}
	case float32:
		if float64(v) == math.Trunc(float64(v)) {
			return int(v), nil
		}
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		if i, err := strconv.ParseInt(v, 10, 32); err == nil {
			return int(i), nil
		}
	}
	return nil, fmt.Errorf("Int cannot represent value: %v", value)
}

func serializeFloat(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("Float cannot represent value: %v", value)
}

func serializeString(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case bool, int, int32, int64, float32, float64:
		return fmt.Sprint(v), nil
	}
	return nil, fmt.Errorf("String cannot represent value: %v", value)
}

func serializeID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int32, int64, uint32, uint64:
		return fmt.Sprint(v), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	return nil, fmt.Errorf("ID cannot represent value: %v", value)
}
