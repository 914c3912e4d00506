// Package mongostore is the production store.Store, backed by MongoDB.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/store"
)

const backendName = "mongo"

type Options struct {
	URI string
	// Database overrides the database named in the URI path.
	Database string
	// ConnectTimeout bounds Connect and the initial Ping.
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Connect dials MongoDB and pings it once. There is no retry: any failure
// is returned as *store.ConnectionError.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dbName, err := databaseName(opts)
	if err != nil {
		return nil, &store.ConnectionError{Backend: backendName, Err: err}
	}

	if opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.ConnectTimeout)
		defer cancel()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(opts.URI))
	if err != nil {
		return nil, &store.ConnectionError{Backend: backendName, Err: err}
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &store.ConnectionError{Backend: backendName, Err: err}
	}

	logger.Info("Connected to MongoDB", zap.String("database", dbName))
	return &Store{client: client, db: client.Database(dbName), logger: logger}, nil
}

func databaseName(opts Options) (string, error) {
	if opts.Database != "" {
		return opts.Database, nil
	}
	cs, err := connstring.ParseAndValidate(opts.URI)
	if err != nil {
		return "", err
	}
	if cs.Database == "" {
		return "", errors.Errorf("no database in %q", cs.Original)
	}
	return cs.Database, nil
}

func (s *Store) Backend() string { return backendName }

func (s *Store) Collection(name string) store.Collection {
	return &collection{c: s.db.Collection(name)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	err := s.client.Disconnect(ctx)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil
	}
	return err
}

type collection struct {
	c *mongo.Collection
}

func (c *collection) Name() string { return c.c.Name() }

func (c *collection) Find(ctx context.Context, filter store.Filter) ([]store.Record, error) {
	cursor, err := c.c.Find(ctx, toBSONFilter(filter))
	if err != nil {
		return nil, wrap(err, "find in %s", c.c.Name())
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrap(err, "decode %s", c.c.Name())
	}
	out := make([]store.Record, len(docs))
	for i, doc := range docs {
		out[i] = normalizeDocument(doc)
	}
	return out, nil
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Record, error) {
	var doc bson.M
	err := c.c.FindOne(ctx, toBSONFilter(filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap(err, "find one in %s", c.c.Name())
	}
	return normalizeDocument(doc), nil
}

func (c *collection) Insert(ctx context.Context, rec store.Record) (store.Record, error) {
	doc := bson.M{}
	for k, v := range store.Clone(rec) {
		doc[k] = v
	}
	res, err := c.c.InsertOne(ctx, doc)
	if err != nil {
		return nil, wrap(err, "insert into %s", c.c.Name())
	}
	doc[store.IDField] = res.InsertedID
	return normalizeDocument(doc), nil
}

// toBSONFilter converts an equality filter. A hex string _id also matches
// the ObjectID it encodes, since clients only ever see the hex form.
func toBSONFilter(filter store.Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		if k == store.IDField {
			if s, ok := v.(string); ok {
				if oid, err := primitive.ObjectIDFromHex(s); err == nil {
					out[k] = bson.M{"$in": bson.A{oid, s}}
					continue
				}
			}
		}
		out[k] = v
	}
	return out
}

func wrap(err error, format string, args ...any) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Wrapf(err, format, args...)
}
