package executor

import (
	"fmt"
	"strings"
)

// Path is a response path: field names (string) and list indices (int).
type Path []PathElement

type PathElement any

// String renders the path as "a.b[0].c".
func (p Path) String() string {
	var b strings.Builder
	for i, elem := range p {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(v)
		case int:
			fmt.Fprintf(&b, "[%d]", v)
		}
	}
	return b.String()
}

func (p Path) append(elem PathElement) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = elem
	return out
}

// Location is a line/column position in the query document.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// GraphQLError represents an error that occurred during execution
type GraphQLError struct {
	Message    string         `json:"message"`
	Locations  []Location     `json:"locations,omitempty"`
	Path       Path           `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return e.Path.String() + ": " + e.Message
}

// ExecutionResult represents the result of executing a GraphQL query
type ExecutionResult struct {
	Data   *OrderedMap    `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// PlainData returns Data as nested plain maps, or nil when execution never started.
func (r *ExecutionResult) PlainData() map[string]any {
	return r.Data.Plain()
}
