// Package catalog is the fieldguide schema: animal and restaurant-location
// types and the resolvers that read and write them.
package catalog

import (
	"embed"

	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/registry"
	"github.com/hanpama/fieldguide/internal/store"
)

// Collection names in the backing store.
const (
	AnimalsCollection   = "animals"
	LocationsCollection = "locations"
)

// RootDocument declares both operation roots.
const RootDocument = `schema {
  query: Query
  mutation: Mutation
}`

//go:embed schema/*.graphql
var schemaFS embed.FS

// Collections is the data the resolvers work on. It is built once at startup.
type Collections struct {
	Animals   store.Collection
	Locations store.Collection
}

// Open returns the catalog collections of s.
func Open(s store.Store) Collections {
	return Collections{
		Animals:   s.Collection(AnimalsCollection),
		Locations: s.Collection(LocationsCollection),
	}
}

// Fragments returns the catalog fragments, one per embedded SDL file, in
// name order, with the resolvers attached to the query and mutation files.
func Fragments(c Collections, log *zap.Logger) []registry.Fragment {
	if log == nil {
		log = zap.NewNop()
	}
	animals := &animalResolvers{animals: c.Animals, log: log}
	locations := &locationResolvers{locations: c.Locations, log: log}

	frags := must(registry.ReadFragments(schemaFS, "schema"))
	frags = must(registry.WithResolvers(frags, "animal.query", registry.ResolverMap{"Query": {
		"getAllAnimals":    animals.getAll,
		"getFlyingAnimals": animals.getFlying,
		"getAnimalByName":  animals.getByName,
	}}))
	frags = must(registry.WithResolvers(frags, "location.query", registry.ResolverMap{"Query": {
		"getAllLocations": locations.getAll,
	}}))
	frags = must(registry.WithResolvers(frags, "animal.mutation", registry.ResolverMap{"Mutation": {
		"addAnimal": animals.add,
	}}))
	return frags
}

// Build merges the catalog into an executable schema.
func Build(c Collections, log *zap.Logger, opts ...registry.Option) (*registry.ExecutableSchema, error) {
	opts = append([]registry.Option{registry.WithRootDocument(RootDocument)}, opts...)
	return registry.Build(Fragments(c, log), opts...)
}

// must panics on errors that can only come from the embedded schema files.
func must(frags []registry.Fragment, err error) []registry.Fragment {
	if err != nil {
		panic(err)
	}
	return frags
}
