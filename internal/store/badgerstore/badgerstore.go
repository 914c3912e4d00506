// Package badgerstore is an embedded store.Store on top of badger. It is
// used for local development and as the test fixture store; with InMemory
// set nothing touches the disk.
//
// Records are JSON documents keyed "c/<collection>/<seq>", where seq is a
// big-endian per-collection badger sequence, so a prefix scan yields
// insertion order.
package badgerstore

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/store"
)

const backendName = "badger"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Options struct {
	// Dir is the data directory. Ignored when InMemory is set.
	Dir      string
	InMemory bool
	// Logger receives badger's own log output. Nil silences it.
	Logger *zap.Logger
}

type Store struct {
	db *badger.DB

	mu   sync.Mutex
	seqs map[string]*badger.Sequence
}

var _ store.Store = (*Store)(nil)

// Open opens (or creates) the database. Failures are *store.ConnectionError.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if opts.Logger != nil {
		bopts = bopts.WithLogger(zapLogger{opts.Logger.Named("badger").Sugar()})
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, &store.ConnectionError{Backend: backendName, Err: err}
	}
	return &Store{db: db, seqs: make(map[string]*badger.Sequence)}, nil
}

func (s *Store) Backend() string { return backendName }

func (s *Store) Collection(name string) store.Collection {
	return &collection{s: s, name: name, prefix: []byte("c/" + name + "/")}
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return store.ErrClosed
	}
	return s.db.View(func(txn *badger.Txn) error { return nil })
}

// Close releases the leased sequences and closes the database.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db.IsClosed() {
		return nil
	}
	for name, seq := range s.seqs {
		if err := seq.Release(); err != nil {
			return errors.Wrapf(err, "release sequence %s", name)
		}
	}
	s.seqs = nil
	return s.db.Close()
}

func (s *Store) nextSeq(collection string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db.IsClosed() {
		return 0, store.ErrClosed
	}
	seq, ok := s.seqs[collection]
	if !ok {
		var err error
		seq, err = s.db.GetSequence([]byte("seq/"+collection), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "lease sequence %s", collection)
		}
		s.seqs[collection] = seq
	}
	return seq.Next()
}

type collection struct {
	s      *Store
	name   string
	prefix []byte
}

func (c *collection) Name() string { return c.name }

func (c *collection) Find(ctx context.Context, filter store.Filter) ([]store.Record, error) {
	var out []store.Record
	err := c.scan(ctx, func(rec store.Record) bool {
		if store.Matches(rec, filter) {
			out = append(out, rec)
		}
		return true
	})
	return out, err
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Record, error) {
	var found store.Record
	err := c.scan(ctx, func(rec store.Record) bool {
		if store.Matches(rec, filter) {
			found = rec
			return false
		}
		return true
	})
	return found, err
}

func (c *collection) Insert(ctx context.Context, rec store.Record) (store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc := store.Clone(rec)
	if doc == nil {
		doc = store.Record{}
	}
	if _, ok := doc[store.IDField]; !ok {
		doc[store.IDField] = uuid.NewString()
	}
	val, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s record", c.name)
	}

	n, err := c.s.nextSeq(c.name)
	if err != nil {
		return nil, err
	}
	key := make([]byte, len(c.prefix)+8)
	copy(key, c.prefix)
	binary.BigEndian.PutUint64(key[len(c.prefix):], n)

	if err := c.s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	}); err != nil {
		return nil, errors.Wrapf(err, "insert into %s", c.name)
	}
	// Hand back the decoded form so callers see what Find will return.
	var out store.Record
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, errors.Wrapf(err, "decode %s record", c.name)
	}
	return out, nil
}

// scan decodes records in key order until fn returns false.
func (c *collection) scan(ctx context.Context, fn func(store.Record) bool) error {
	if c.s.db.IsClosed() {
		return store.ErrClosed
	}
	err := c.s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(c.prefix); it.ValidForPrefix(c.prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec store.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return errors.Wrapf(err, "decode %s/%x", c.name, it.Item().Key())
			}
			if !fn(rec) {
				return nil
			}
		}
		return nil
	})
	return err
}

// zapLogger adapts a sugared zap logger to badger.Logger.
type zapLogger struct {
	l *zap.SugaredLogger
}

func (z zapLogger) Errorf(format string, args ...any)   { z.l.Errorf(format, args...) }
func (z zapLogger) Warningf(format string, args ...any) { z.l.Warnf(format, args...) }
func (z zapLogger) Infof(format string, args ...any)    { z.l.Debugf(format, args...) }
func (z zapLogger) Debugf(format string, args ...any)   { z.l.Debugf(format, args...) }
