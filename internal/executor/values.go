package executor

import (
	stdjson "encoding/json"
	"fmt"
	"math"
	"strconv"

	jsoniter "github.com/json-iterator/go"

	language "github.com/hanpama/fieldguide/internal/language"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

// coerceVariableValues coerces raw request variables against the operation's
// variable definitions. Any failure stops execution.
func coerceVariableValues(
	s *schema.Schema,
	operation *language.OperationDefinition,
	variableValues map[string]any,
) (map[string]any, error) {
	coerced := make(map[string]any, len(operation.VariableDefinitions))
	for _, varDef := range operation.VariableDefinitions {
		name := varDef.Variable
		t := schema.TypeRefFromAST(varDef.Type)

		val, ok := variableValues[name]
		if !ok {
			if varDef.DefaultValue != nil {
				dv, err := varDef.DefaultValue.Value(nil)
				if err != nil {
					return nil, fmt.Errorf("variable $%s has an invalid default value: %v", name, err)
				}
				val = dv
			} else if schema.IsNonNull(t) {
				return nil, fmt.Errorf("variable $%s of required type %s was not provided", name, t)
			} else {
				continue
			}
		}
		if val == nil && schema.IsNonNull(t) {
			return nil, fmt.Errorf("variable $%s of non-null type %s must not be null", name, t)
		}
		cv, err := coerceValue(s, val, t)
		if err != nil {
			return nil, fmt.Errorf("variable $%s got invalid value: %v", name, err)
		}
		coerced[name] = cv
	}
	return coerced, nil
}

// coerceArgumentValues resolves field arguments against the coerced
// variables, filling in schema defaults. Coercion failures are recorded as
// field errors and the argument is left out.
func coerceArgumentValues(s *executionState, fieldDef *schema.Field, field *language.Field, path Path) map[string]any {
	coerced := make(map[string]any, len(fieldDef.Arguments))
	for _, argDef := range fieldDef.Arguments {
		arg := field.Arguments.ForName(argDef.Name)
		if arg == nil || (arg.Value != nil && arg.Value.Kind == language.Variable && !hasVariable(s.variables, arg.Value.Raw)) {
			if argDef.DefaultValue != nil {
				if cv, err := coerceValue(s.schema, argDef.DefaultValue, argDef.Type); err == nil {
					coerced[argDef.Name] = cv
				}
			} else if schema.IsNonNull(argDef.Type) {
				s.addFieldError(fmt.Sprintf("Argument %q of required type %s was not provided", argDef.Name, argDef.Type), []*language.Field{field}, path)
			}
			continue
		}

		raw, err := arg.Value.Value(s.variables)
		if err == nil {
			raw, err = coerceValue(s.schema, raw, argDef.Type)
		}
		if err != nil {
			s.addFieldError(fmt.Sprintf("Argument %q has invalid value: %v", argDef.Name, err), []*language.Field{field}, path)
			continue
		}
		coerced[argDef.Name] = raw
	}
	return coerced
}

func hasVariable(vars map[string]any, name string) bool {
	_, ok := vars[name]
	return ok
}

// coerceValue coerces an input value to targetType.
func coerceValue(s *schema.Schema, value any, targetType *schema.TypeRef) (any, error) {
	if schema.IsNonNull(targetType) {
		if value == nil {
			return nil, fmt.Errorf("expected non-null %s", targetType)
		}
		return coerceValue(s, value, schema.Unwrap(targetType))
	}
	if value == nil {
		return nil, nil
	}
	if schema.IsList(targetType) {
		inner := schema.Unwrap(targetType)
		items, ok := value.([]any)
		if !ok {
			// a single value is a list of one
			item, err := coerceValue(s, value, inner)
			if err != nil {
				return nil, err
			}
			return []any{item}, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			cv, err := coerceValue(s, item, inner)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %v", i, err)
			}
			out[i] = cv
		}
		return out, nil
	}

	name := schema.GetNamedType(targetType)
	switch name {
	case "Int":
		return coerceInt(value)
	case "Float":
		return coerceFloat(value)
	case "String":
		if v, ok := value.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("cannot use %v (%T) as String", value, value)
	case "Boolean":
		if v, ok := value.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("cannot use %v (%T) as Boolean", value, value)
	case "ID":
		return coerceID(value)
	}

	typ := s.Types[name]
	if typ == nil {
		return nil, fmt.Errorf("unknown type %s", name)
	}
	switch typ.Kind {
	case schema.TypeKindEnum:
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("cannot use %v (%T) as %s", value, value, name)
		}
		for _, ev := range typ.EnumValues {
			if ev.Name == str {
				return str, nil
			}
		}
		return nil, fmt.Errorf("%q is not a value of %s", str, name)
	case schema.TypeKindInputObject:
		return coerceInputObject(s, typ, value)
	}
	// custom scalars pass through
	return value, nil
}

func coerceInputObject(s *schema.Schema, typ *schema.Type, value any) (any, error) {
	in, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot use %v (%T) as %s", value, value, typ.Name)
	}
	known := make(map[string]struct{}, len(typ.InputFields))
	out := make(map[string]any, len(typ.InputFields))
	for _, f := range typ.InputFields {
		known[f.Name] = struct{}{}
		raw, present := in[f.Name]
		if !present {
			if f.DefaultValue != nil {
				raw = f.DefaultValue
			} else if schema.IsNonNull(f.Type) {
				return nil, fmt.Errorf("field %s.%s of required type %s was not provided", typ.Name, f.Name, f.Type)
			} else {
				continue
			}
		}
		cv, err := coerceValue(s, raw, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %v", typ.Name, f.Name, err)
		}
		out[f.Name] = cv
	}
	for k := range in {
		if _, ok := known[k]; !ok {
			return nil, fmt.Errorf("field %q is not defined by type %s", k, typ.Name)
		}
	}
	if typ.OneOf && len(out) != 1 {
		return nil, fmt.Errorf("exactly one field of %s must be provided", typ.Name)
	}
	return out, nil
}

func coerceInt(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("%d overflows Int", v)
		}
		return int(v), nil
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("cannot use %v as Int", v)
		}
		return int(v), nil
	}
	if n, ok := numberLiteral(value); ok {
		i, err := strconv.ParseInt(n, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("cannot use %s as Int", n)
		}
		return int(i), nil
	}
	return nil, fmt.Errorf("cannot use %v (%T) as Int", value, value)
}

func coerceFloat(value any) (any, error) {
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
	}
	if n, ok := numberLiteral(value); ok {
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot use %s as Float", n)
		}
		return f, nil
	}
	return nil, fmt.Errorf("cannot use %v (%T) as Float", value, value)
}

func coerceID(value any) (any, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	}
	if n, ok := numberLiteral(value); ok {
		if _, err := strconv.ParseInt(n, 10, 64); err == nil {
			return n, nil
		}
	}
	return nil, fmt.Errorf("cannot use %v (%T) as ID", value, value)
}

// numberLiteral returns the text of a number decoded with UseNumber, which
// yields encoding/json's Number under both encoding/json and jsoniter.
// jsoniter.Number is accepted for values decoded into it directly.
func numberLiteral(value any) (string, bool) {
	switch v := value.(type) {
	case stdjson.Number:
		return string(v), true
	case jsoniter.Number:
		return string(v), true
	}
	return "", false
}
