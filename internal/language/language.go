package language

import (
	"bytes"
	"errors"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
)

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// LoadSchema parses and validates the given sources as one schema document.
// The built-in prelude (scalars, @skip/@include, introspection types) is added
// automatically. Returned errors are always an ErrorList.
func LoadSchema(sources ...*Source) (*Schema, error) {
	s, err := gqlparser.LoadSchema(sources...)
	if err != nil {
		return nil, asErrorList(err)
	}
	return s, nil
}

// ValidateQuery runs the standard validation rules of doc against s.
func ValidateQuery(s *Schema, doc *QueryDocument) ErrorList {
	return validator.ValidateWithRules(s, doc, nil)
}

// FormatSchema renders s back to SDL.
func FormatSchema(s *Schema) string {
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchema(s)
	return buf.String()
}

func asErrorList(err error) ErrorList {
	var list gqlerror.List
	if errors.As(err, &list) {
		return list
	}
	var single *gqlerror.Error
	if errors.As(err, &single) {
		return gqlerror.List{single}
	}
	return gqlerror.List{{Message: err.Error()}}
}
