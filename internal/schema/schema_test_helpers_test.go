package schema

import (
	language "github.com/hanpama/fieldguide/internal/language"
)

func buildWithResolvers(sdl string, async map[string]bool) (*Schema, error) {
	src, err := language.LoadSchema(&language.Source{Name: "test.graphql", Input: sdl})
	if err != nil {
		return nil, err
	}
	return BuildFromAST(src, func(typeName, fieldName string) bool {
		return async[typeName+"."+fieldName]
	}), nil
}
