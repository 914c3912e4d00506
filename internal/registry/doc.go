// Package registry composes independently authored schema fragments into one
// executable GraphQL schema.
//
// A Fragment carries SDL text, resolvers, or both. Build concatenates a root
// document with every fragment's SDL in sequence order, validates the result,
// and merges resolver maps field by field. Registering the same (type, field)
// twice is an error naming both fragments.
//
// Fields with a resolver are executed in batches by the executor; every other
// field is read from its parent value by name, and a missing property is null.
package registry
