package executor

import (
	language "github.com/hanpama/fieldguide/internal/language"
	schema "github.com/hanpama/fieldguide/internal/schema"
)

// collectedFieldMap preserves field order from the original query
type collectedFieldMap struct {
	fields []collectedField
	index  map[string]int
}

type collectedField struct {
	ResponseName string
	Fields       []*language.Field
}

func (cfm *collectedFieldMap) add(responseName string, field *language.Field) {
	if idx, exists := cfm.index[responseName]; exists {
		cfm.fields[idx].Fields = append(cfm.fields[idx].Fields, field)
		return
	}
	cfm.index[responseName] = len(cfm.fields)
	cfm.fields = append(cfm.fields, collectedField{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

// collectFields groups the selections that apply to objectType by response name.
func (s *executionState) collectFields(objectType *schema.Type, selectionSet language.SelectionSet) *collectedFieldMap {
	grouped := &collectedFieldMap{index: make(map[string]int)}
	s.collectFieldsInto(objectType, selectionSet, grouped, make(map[string]bool))
	return grouped
}

func (s *executionState) collectFieldsInto(objectType *schema.Type, selectionSet language.SelectionSet, grouped *collectedFieldMap, visited map[string]bool) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !s.shouldInclude(sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			grouped.add(responseName, sel)

		case *language.InlineFragment:
			if !s.shouldInclude(sel.Directives) {
				continue
			}
			if !s.doesFragmentApply(objectType, sel.TypeCondition) {
				continue
			}
			s.collectFieldsInto(objectType, sel.SelectionSet, grouped, visited)

		case *language.FragmentSpread:
			if !s.shouldInclude(sel.Directives) {
				continue
			}
			if visited[sel.Name] {
				continue
			}
			visited[sel.Name] = true

			fragment := s.document.Fragments.ForName(sel.Name)
			if fragment == nil {
				continue
			}
			if !s.doesFragmentApply(objectType, fragment.TypeCondition) {
				continue
			}
			s.collectFieldsInto(objectType, fragment.SelectionSet, grouped, visited)
		}
	}
}

// doesFragmentApply reports whether a fragment with typeCondition selects on
// objectType, directly or through an interface or union.
func (s *executionState) doesFragmentApply(objectType *schema.Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	condition := s.schema.Types[typeCondition]
	if condition == nil {
		return false
	}
	switch condition.Kind {
	case schema.TypeKindInterface, schema.TypeKindUnion:
		return possibleType(condition, objectType)
	}
	return false
}

// shouldInclude evaluates @skip and @include.
func (s *executionState) shouldInclude(directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := s.directiveArgument(skip, "if").(bool); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := s.directiveArgument(include, "if").(bool); ok && !v {
			return false
		}
	}
	return true
}

func (s *executionState) directiveArgument(directive *language.Directive, name string) any {
	arg := directive.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return nil
	}
	v, err := arg.Value.Value(s.variables)
	if err != nil {
		return nil
	}
	return v
}
