package registry

import (
	"fmt"
	"strings"

	language "github.com/hanpama/fieldguide/internal/language"
)

// SchemaBuildError reports that the merged SDL does not form a valid schema.
type SchemaBuildError struct {
	Errors language.ErrorList
}

func (e *SchemaBuildError) Error() string {
	if len(e.Errors) == 1 {
		return "schema build: " + e.Errors[0].Error()
	}
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("schema build: %d errors: %s", len(e.Errors), strings.Join(msgs, "; "))
}

func (e *SchemaBuildError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}

// DuplicateResolverError reports two fragments registering the same field.
type DuplicateResolverError struct {
	Type   string
	Field  string
	First  string
	Second string
}

func (e *DuplicateResolverError) Error() string {
	return fmt.Sprintf("resolver for %s.%s registered by both %q and %q", e.Type, e.Field, e.First, e.Second)
}

// UndeclaredResolverError reports a resolver for a type or field that the
// merged SDL does not declare.
type UndeclaredResolverError struct {
	Fragment    string
	Type        string
	Field       string
	TypeMissing bool
}

func (e *UndeclaredResolverError) Error() string {
	if e.TypeMissing {
		return fmt.Sprintf("fragment %q defines resolver %s.%s, but type %s is not declared", e.Fragment, e.Type, e.Field, e.Type)
	}
	return fmt.Sprintf("fragment %q defines resolver %s.%s, but the field is not declared", e.Fragment, e.Type, e.Field)
}

// MissingResolverError reports a non-scalar field without a resolver when
// WithRequireResolversForNonScalar is on.
type MissingResolverError struct {
	Type  string
	Field string
}

func (e *MissingResolverError) Error() string {
	return fmt.Sprintf("resolver missing for %s.%s", e.Type, e.Field)
}
