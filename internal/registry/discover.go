package registry

import (
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// ReadFragments loads every .graphql file under dir in fsys as a type-only
// fragment, named by its path relative to dir without the extension
// ("animal.query", "geo/point"). Fragments come back sorted by name.
func ReadFragments(fsys fs.FS, dir string) ([]Fragment, error) {
	var out []Fragment
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".graphql" {
			return nil
		}
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, strings.TrimSuffix(dir, "/")+"/"), ".graphql")
		out = append(out, Fragment{Name: name, TypeDef: string(b)})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "read fragments from %q", dir)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// WithResolvers returns a copy of fragments in which the fragment called
// name carries resolvers. An unknown name is an error.
func WithResolvers(fragments []Fragment, name string, resolvers ResolverMap) ([]Fragment, error) {
	out := append([]Fragment(nil), fragments...)
	for i := range out {
		if out[i].Name == name {
			out[i].Resolvers = resolvers
			return out, nil
		}
	}
	return nil, errors.Errorf("no fragment named %q", name)
}
