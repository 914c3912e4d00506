package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/fieldguide/internal/catalog"
	"github.com/hanpama/fieldguide/internal/executor"
	language "github.com/hanpama/fieldguide/internal/language"
	"github.com/hanpama/fieldguide/internal/registry"
	"github.com/hanpama/fieldguide/internal/store"
	"github.com/hanpama/fieldguide/internal/store/badgerstore"
)

type fixture struct {
	schema      *registry.ExecutableSchema
	collections catalog.Collections
}

func newFixture(t *testing.T, opts ...registry.Option) *fixture {
	t.Helper()
	s, err := badgerstore.Open(badgerstore.Options{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	c := catalog.Open(s)
	ctx := context.Background()
	for _, rec := range []store.Record{
		{"name": "owl", "airborne": true},
		{"name": "cat", "airborne": false},
		{"name": "bat", "airborne": true},
		{"name": "dog"},
	} {
		_, err := c.Animals.Insert(ctx, rec)
		require.NoError(t, err)
	}
	for _, rec := range []store.Record{
		{"name": "Pike Place Chowder", "city": "Seattle", "score": 92.5, "geo": map[string]any{"type": "Point", "coordinates": []any{-122.34, 47.61}},
			"inspections": []any{map[string]any{"date": "2017-03-01", "score": 5, "violations": []any{map[string]any{"code": 2200, "critical": true}}}}},
		{"name": "Seoul Garden", "city": "seattle"},
		{"name": "Heights Diner", "city": "Seattle Heights"},
		{"name": "Ferry Noodle", "city": "Seattle"},
	} {
		_, err := c.Locations.Insert(ctx, rec)
		require.NoError(t, err)
	}

	es, err := catalog.Build(c, nil, opts...)
	require.NoError(t, err)
	return &fixture{schema: es, collections: c}
}

func (f *fixture) run(t *testing.T, query string, vars map[string]any) *executor.ExecutionResult {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	require.Empty(t, language.ValidateQuery(f.schema.AST(), doc))
	return executor.NewExecutor(f.schema.Runtime(), f.schema.Schema()).ExecuteRequest(context.Background(), doc, "", vars, nil)
}

func names(t *testing.T, v any) []string {
	t.Helper()
	items, ok := v.([]any)
	require.True(t, ok, "expected a list, got %T", v)
	out := make([]string, len(items))
	for i, item := range items {
		out[i], _ = item.(map[string]any)["name"].(string)
	}
	return out
}

func TestGetAllAnimals_StoreOrder(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `{ getAllAnimals { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"owl", "cat", "bat", "dog"}, names(t, res.PlainData()["getAllAnimals"]))
}

func TestGetFlyingAnimals_OnlyAirborne(t *testing.T) {
	f := newFixture(t)
	res := f.run(t, `{ getFlyingAnimals { name airborne } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, []any{
		map[string]any{"name": "owl", "airborne": true},
		map[string]any{"name": "bat", "airborne": true},
	}, res.PlainData()["getFlyingAnimals"])
}

func TestGetAnimalByName(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `query($n: String!) { getAnimalByName(name: $n) { name airborne } }`, map[string]any{"n": "cat"})
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"name": "cat", "airborne": false}, res.PlainData()["getAnimalByName"])

	res = f.run(t, `{ getAnimalByName(name: "unicorn") { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"getAnimalByName": nil}, res.PlainData())
}

func TestAddAnimal_ReturnsCreatedRecord(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `mutation { addAnimal(name: "heron", airborne: true) { _id name airborne } }`, nil)
	require.Empty(t, res.Errors)
	created := res.PlainData()["addAnimal"].(map[string]any)
	assert.Equal(t, "heron", created["name"])
	assert.Equal(t, true, created["airborne"])
	id, _ := created["_id"].(string)
	assert.NotEmpty(t, id)

	res = f.run(t, `{ getAnimalByName(name: "heron") { _id name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"_id": id, "name": "heron"}, res.PlainData()["getAnimalByName"])

	res = f.run(t, `{ getAllAnimals { name } }`, nil)
	assert.Equal(t, []string{"owl", "cat", "bat", "dog", "heron"}, names(t, res.PlainData()["getAllAnimals"]))
}

func TestAddAnimal_OmittedArgumentIsNotStored(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `mutation { addAnimal(name: "mole") { name airborne } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, map[string]any{"name": "mole", "airborne": nil}, res.PlainData()["addAnimal"])

	rec, err := f.collections.Animals.FindOne(context.Background(), store.Filter{"name": "mole"})
	require.NoError(t, err)
	assert.NotContains(t, rec, "airborne")
}

func TestGetAllLocations_CityIsExactMatch(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `{ getAllLocations(city: "Seattle") { name city } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"Pike Place Chowder", "Ferry Noodle"}, names(t, res.PlainData()["getAllLocations"]))

	res = f.run(t, `{ getAllLocations { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Len(t, res.PlainData()["getAllLocations"], 4)

	res = f.run(t, `{ getAllLocations(city: "Tacoma") { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, []any{}, res.PlainData()["getAllLocations"])
}

func TestGetAllLocations_NullCityMatchesMissingCity(t *testing.T) {
	f := newFixture(t)
	_, err := f.collections.Locations.Insert(context.Background(), store.Record{"name": "Roadside Stand"})
	require.NoError(t, err)
	_, err = f.collections.Locations.Insert(context.Background(), store.Record{"name": "Unknown Cart", "city": nil})
	require.NoError(t, err)

	res := f.run(t, `query($c: String) { getAllLocations(city: $c) { name } }`, map[string]any{"c": nil})
	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"Roadside Stand", "Unknown Cart"}, names(t, res.PlainData()["getAllLocations"]))

	res = f.run(t, `{ getAllLocations(city: null) { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Equal(t, []string{"Roadside Stand", "Unknown Cart"}, names(t, res.PlainData()["getAllLocations"]))
}

func TestLocation_NestedTypesAndMissingFields(t *testing.T) {
	f := newFixture(t)

	res := f.run(t, `{ getAllLocations(city: "Seattle") {
		name phone score
		geo { type coordinates }
		inspections { date score violations { code critical repeat } }
	} }`, nil)
	require.Empty(t, res.Errors)

	first := res.PlainData()["getAllLocations"].([]any)[0]
	assert.Equal(t, map[string]any{
		"name":  "Pike Place Chowder",
		"phone": nil,
		"score": 92.5,
		"geo":   map[string]any{"type": "Point", "coordinates": []any{-122.34, 47.61}},
		"inspections": []any{map[string]any{
			"date":       "2017-03-01",
			"score":      5,
			"violations": []any{map[string]any{"code": 2200, "critical": true, "repeat": nil}},
		}},
	}, first)
}

func TestBuild_ShallowMergeLosesAnimalQueries(t *testing.T) {
	f := newFixture(t, registry.WithShallowResolverMerge())

	assert.False(t, f.schema.HasResolver("Query", "getAllAnimals"))
	assert.True(t, f.schema.HasResolver("Query", "getAllLocations"))

	res := f.run(t, `{ getAllAnimals { name } getAllLocations(city: "Seattle") { name } }`, nil)
	require.Empty(t, res.Errors)
	assert.Nil(t, res.PlainData()["getAllAnimals"])
	assert.Len(t, res.PlainData()["getAllLocations"], 2)
}

func TestBuild_DuplicateFragmentFails(t *testing.T) {
	c := catalog.Collections{}
	fragments := append(catalog.Fragments(c, nil), fragmentNamed(t, c, "animal.query"))
	_, err := registry.Build(fragments, registry.WithRootDocument(catalog.RootDocument))
	var buildErr *registry.SchemaBuildError
	require.ErrorAs(t, err, &buildErr)

	fragments = append(catalog.Fragments(c, nil), registry.Fragment{
		Name:      "animal.query.copy",
		Resolvers: fragmentNamed(t, c, "animal.query").Resolvers,
	})
	_, err = registry.Build(fragments, registry.WithRootDocument(catalog.RootDocument))
	var dup *registry.DuplicateResolverError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "animal.query", dup.First)
	assert.Equal(t, "animal.query.copy", dup.Second)
}

func fragmentNamed(t *testing.T, c catalog.Collections, name string) registry.Fragment {
	t.Helper()
	for _, f := range catalog.Fragments(c, nil) {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("no fragment %q", name)
	return registry.Fragment{}
}

func TestSDL(t *testing.T) {
	f := newFixture(t)
	sdl := f.schema.SDL()
	for _, want := range []string{"getAllAnimals", "getAllLocations", "addAnimal", "type Violation", "type Geo"} {
		assert.Contains(t, sdl, want)
	}
}

type brokenCollection struct{ store.Collection }

func (brokenCollection) Find(context.Context, store.Filter) ([]store.Record, error) {
	return nil, errors.New("connection reset")
}

func TestStoreFailureIsAFieldError(t *testing.T) {
	f := newFixture(t)
	c := f.collections
	c.Locations = brokenCollection{c.Locations}
	es, err := catalog.Build(c, nil)
	require.NoError(t, err)
	f.schema = es

	res := f.run(t, `{ getAllLocations { name } getAnimalByName(name: "owl") { name } }`, nil)
	assert.Equal(t, map[string]any{
		"getAllLocations": nil,
		"getAnimalByName": map[string]any{"name": "owl"},
	}, res.PlainData())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "connection reset", res.Errors[0].Message)
	assert.Equal(t, "getAllLocations", res.Errors[0].Path.String())
	assert.Equal(t, []executor.Location{{Line: 1, Column: 3}}, res.Errors[0].Locations)
}
