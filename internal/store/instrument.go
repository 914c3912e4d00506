package store

import (
	"context"
	"time"

	"github.com/hanpama/fieldguide/internal/eventbus"
	"github.com/hanpama/fieldguide/internal/events"
)

// Instrument wraps s so every collection call publishes an
// events.StoreFinish.
func Instrument(s Store) Store {
	if s == nil {
		return nil
	}
	if _, ok := s.(*instrumented); ok {
		return s
	}
	return &instrumented{Store: s}
}

type instrumented struct {
	Store
}

func (s *instrumented) Collection(name string) Collection {
	return &instrumentedCollection{Collection: s.Store.Collection(name), backend: s.Store.Backend()}
}

type instrumentedCollection struct {
	Collection
	backend string
}

func (c *instrumentedCollection) publish(ctx context.Context, op string, start time.Time, n int, err error) {
	eventbus.Publish(ctx, events.StoreFinish{
		Backend:    c.backend,
		Collection: c.Name(),
		Op:         op,
		Records:    n,
		Err:        err,
		Duration:   time.Since(start),
	})
}

func (c *instrumentedCollection) Find(ctx context.Context, filter Filter) ([]Record, error) {
	start := time.Now()
	recs, err := c.Collection.Find(ctx, filter)
	c.publish(ctx, "find", start, len(recs), err)
	return recs, err
}

func (c *instrumentedCollection) FindOne(ctx context.Context, filter Filter) (Record, error) {
	start := time.Now()
	rec, err := c.Collection.FindOne(ctx, filter)
	n := 0
	if rec != nil {
		n = 1
	}
	c.publish(ctx, "find_one", start, n, err)
	return rec, err
}

func (c *instrumentedCollection) Insert(ctx context.Context, rec Record) (Record, error) {
	start := time.Now()
	out, err := c.Collection.Insert(ctx, rec)
	n := 0
	if err == nil {
		n = 1
	}
	c.publish(ctx, "insert", start, n, err)
	return out, err
}
