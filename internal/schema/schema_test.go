package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/hanpama/fieldguide/internal/language"
)

const zooSDL = `
schema { query: Query mutation: Mutation }

type Query {
  animals(kind: Kind = BIRD): [Animal!]!
  animal(name: String!): Animal
}

type Mutation {
  addAnimal(name: String!): Animal
}

enum Kind {
  BIRD
  FISH @deprecated(reason: "gone")
}

type Animal {
  name: String
  tags: [String]
  legacy: Int @deprecated
}
`

func TestBuildFromASTRootsAndKinds(t *testing.T) {
	sch, err := BuildFromSDL(zooSDL)
	require.NoError(t, err)

	require.Equal(t, "Query", sch.QueryType)
	require.Equal(t, "Mutation", sch.MutationType)
	require.Empty(t, sch.SubscriptionType)
	require.True(t, sch.IsRootType("Mutation"))
	require.False(t, sch.IsRootType("Animal"))

	require.Equal(t, TypeKindObject, sch.Types["Animal"].Kind)
	require.Equal(t, TypeKindEnum, sch.Types["Kind"].Kind)
	require.Equal(t, TypeKindScalar, sch.Types["String"].Kind)
	require.True(t, sch.Types["String"].BuiltIn)
	require.NotContains(t, sch.Types, "__Schema")
	require.Contains(t, sch.Directives, "skip")
	require.Contains(t, sch.Directives, "include")
}

func TestBuildFromASTFieldsKeepDeclarationOrder(t *testing.T) {
	sch, err := BuildFromSDL(zooSDL)
	require.NoError(t, err)

	var names []string
	for _, f := range sch.Types["Animal"].GetOrderedFields() {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"name", "tags", "legacy"}, names)

	legacy := sch.Types["Animal"].Field("legacy")
	require.True(t, legacy.IsDeprecated)
	require.Equal(t, "No longer supported", legacy.DeprecationReason)
	require.Nil(t, sch.Types["Animal"].Field("missing"))

	fish := sch.Types["Kind"].EnumValues[1]
	require.Equal(t, "FISH", fish.Name)
	require.Equal(t, "gone", fish.DeprecationReason)
}

func TestBuildFromASTTypeRefsAndDefaults(t *testing.T) {
	sch, err := BuildFromSDL(zooSDL)
	require.NoError(t, err)

	animals := sch.GetQueryType().Field("animals")
	require.Equal(t, "[Animal!]!", animals.Type.String())
	require.True(t, IsNonNull(animals.Type))
	require.True(t, IsList(animals.Type))
	require.Equal(t, "Animal", GetNamedType(animals.Type))

	require.Len(t, animals.Arguments, 1)
	require.Equal(t, "BIRD", animals.Arguments[0].DefaultValue)

	name := sch.GetQueryType().Field("animal").Arguments[0]
	require.Equal(t, "String!", name.Type.String())
	require.Nil(t, name.DefaultValue)
}

func TestBuildFromASTMarksResolverBackedFieldsAsync(t *testing.T) {
	src, err := BuildFromSDL(zooSDL)
	require.NoError(t, err)
	require.False(t, src.GetQueryType().Field("animals").Async)

	sch, err := buildWithResolvers(zooSDL, map[string]bool{"Query.animals": true, "Mutation.addAnimal": true})
	require.NoError(t, err)
	require.True(t, sch.GetQueryType().Field("animals").Async)
	require.False(t, sch.GetQueryType().Field("animal").Async)
	require.True(t, sch.GetMutationType().Field("addAnimal").Async)
	require.False(t, sch.Types["Animal"].Field("name").Async)
}

func TestBuildFromSDLRejectsUnknownTypes(t *testing.T) {
	_, err := BuildFromSDL(`type Query { a: Missing }`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Missing")
}

func TestBuildIntrospectionTypes(t *testing.T) {
	src, err := language.LoadSchema(&language.Source{Name: "test.graphql", Input: `type Query { a: Int }`})
	require.NoError(t, err)

	types := BuildIntrospectionTypes(src)
	byName := map[string]*Type{}
	for _, typ := range types {
		byName[typ.Name] = typ
	}
	require.Contains(t, byName, "__Schema")
	require.Contains(t, byName, "__Type")
	require.Equal(t, TypeKindEnum, byName["__TypeKind"].Kind)
	require.NotNil(t, byName["__Type"].Field("fields"))
	require.False(t, byName["__Type"].Field("fields").Async)
	require.NotContains(t, byName, "Query")
}
