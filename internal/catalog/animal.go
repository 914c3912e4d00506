package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/registry"
	"github.com/hanpama/fieldguide/internal/store"
)

type animalResolvers struct {
	animals store.Collection
	log     *zap.Logger
}

func (r *animalResolvers) getAll(ctx context.Context, p registry.ResolveParams) (any, error) {
	return list(r.animals.Find(ctx, store.Filter{}))
}

func (r *animalResolvers) getFlying(ctx context.Context, p registry.ResolveParams) (any, error) {
	return list(r.animals.Find(ctx, store.Filter{"airborne": true}))
}

func (r *animalResolvers) getByName(ctx context.Context, p registry.ResolveParams) (any, error) {
	r.log.Debug("getAnimalByName", zap.Any("args", p.Args))
	rec, err := r.animals.FindOne(ctx, store.Filter{"name": p.Args["name"]})
	if err != nil || rec == nil {
		return nil, err
	}
	return rec, nil
}

// add inserts the arguments as a new animal and returns the stored record.
func (r *animalResolvers) add(ctx context.Context, p registry.ResolveParams) (any, error) {
	r.log.Debug("addAnimal", zap.Any("args", p.Args))
	rec, err := r.animals.Insert(ctx, store.Record(p.Args))
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// list turns a store result into a resolver result; no match is an empty list.
func list(recs []store.Record, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []store.Record{}
	}
	return recs, nil
}
