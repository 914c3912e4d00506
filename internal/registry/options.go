package registry

import "runtime"

// DefaultRootDocument declares only the query root.
const DefaultRootDocument = `schema { query: Query }`

type options struct {
	rootDocument     string
	shallowMerge     bool
	requireNonScalar bool
	maxConcurrency   int
}

func defaultOptions() options {
	return options{
		rootDocument:   DefaultRootDocument,
		maxConcurrency: runtime.GOMAXPROCS(0) * 4,
	}
}

// Option configures Build.
type Option func(*options)

// WithRootDocument replaces the root schema document that precedes all
// fragments. An empty string omits it, leaving root types to be picked up by
// their conventional names.
func WithRootDocument(sdl string) Option {
	return func(o *options) { o.rootDocument = sdl }
}

// WithShallowResolverMerge merges resolver maps one level deep: a later
// fragment's resolvers for a type replace everything earlier fragments
// registered for that type. Fields of the earlier fragment silently lose
// their resolvers.
//
// Deprecated: kept to reproduce the behaviour of the first server generation.
// Use the default field-level merge.
func WithShallowResolverMerge() Option {
	return func(o *options) { o.shallowMerge = true }
}

// WithRequireResolversForNonScalar makes Build fail when a field of a user
// object type returns an object, interface, union or list of them and has no
// resolver.
func WithRequireResolversForNonScalar(require bool) Option {
	return func(o *options) { o.requireNonScalar = require }
}

// WithMaxConcurrency bounds how many resolvers of one batch run at once.
// Values below 1 run them sequentially.
func WithMaxConcurrency(n int) Option {
	return func(o *options) { o.maxConcurrency = n }
}
