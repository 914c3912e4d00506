package registry

import "sort"

// mergedResolvers is the two-level resolver table plus, for diagnostics, the
// fragment each entry came from.
type mergedResolvers struct {
	funcs  ResolverMap
	owners map[string]map[string]string
}

func (m *mergedResolvers) set(typeName, field, owner string, fn ResolverFunc) {
	if m.funcs[typeName] == nil {
		m.funcs[typeName] = make(map[string]ResolverFunc)
		m.owners[typeName] = make(map[string]string)
	}
	m.funcs[typeName][field] = fn
	m.owners[typeName][field] = owner
}

func (m *mergedResolvers) lookup(typeName, field string) (ResolverFunc, bool) {
	fn, ok := m.funcs[typeName][field]
	return fn, ok
}

func newMergedResolvers() *mergedResolvers {
	return &mergedResolvers{
		funcs:  make(ResolverMap),
		owners: make(map[string]map[string]string),
	}
}

// mergeResolvers merges every fragment's resolvers field by field. The same
// (type, field) from two fragments is a DuplicateResolverError.
func mergeResolvers(fragments []Fragment) (*mergedResolvers, error) {
	m := newMergedResolvers()
	for i, f := range fragments {
		name := fragmentName(f, i)
		for _, typeName := range sortedKeys(f.Resolvers) {
			fields := f.Resolvers[typeName]
			for _, field := range sortedKeys(fields) {
				fn := fields[field]
				if fn == nil {
					continue
				}
				if prev, ok := m.owners[typeName][field]; ok {
					return nil, &DuplicateResolverError{Type: typeName, Field: field, First: prev, Second: name}
				}
				m.set(typeName, field, name, fn)
			}
		}
	}
	return m, nil
}

// mergeResolversShallow merges only the first level: a fragment's field map
// for a type replaces the one held so far.
func mergeResolversShallow(fragments []Fragment) *mergedResolvers {
	m := newMergedResolvers()
	for i, f := range fragments {
		name := fragmentName(f, i)
		for typeName, fields := range f.Resolvers {
			delete(m.funcs, typeName)
			delete(m.owners, typeName)
			for field, fn := range fields {
				if fn != nil {
					m.set(typeName, field, name, fn)
				}
			}
		}
	}
	return m
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
