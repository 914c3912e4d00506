package catalog

import (
	"context"

	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/registry"
	"github.com/hanpama/fieldguide/internal/store"
)

type locationResolvers struct {
	locations store.Collection
	log       *zap.Logger
}

// getAll passes the arguments through as an equality filter.
func (r *locationResolvers) getAll(ctx context.Context, p registry.ResolveParams) (any, error) {
	r.log.Debug("getAllLocations", zap.Any("args", p.Args))
	return list(r.locations.Find(ctx, store.Filter(p.Args)))
}
