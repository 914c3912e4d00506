// Package pgstore keeps documents in a single PostgreSQL table as JSONB.
// Filters are pushed down as JSONB containment and re-checked with
// store.Matches, so results agree with the other backends.
package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hanpama/fieldguide/internal/store"
)

const backendName = "postgres"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// document is one row of the documents table. Seq orders rows by insertion.
type document struct {
	Seq        int64  `gorm:"column:seq;primaryKey;autoIncrement"`
	ID         string `gorm:"column:id;type:text;not null;uniqueIndex:documents_collection_id"`
	Collection string `gorm:"column:collection;type:text;not null;uniqueIndex:documents_collection_id"`
	Body       []byte `gorm:"column:body;type:jsonb;not null"`
	CreatedAt  time.Time
}

func (document) TableName() string { return "documents" }

type Options struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// AutoMigrate creates the documents table when missing.
	AutoMigrate bool
	LogLevel    string
	Logger      *zap.Logger
}

type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and optionally migrates. Failures are
// *store.ConnectionError.
func Open(ctx context.Context, opts Options) (*Store, error) {
	db, err := gorm.Open(postgres.Open(opts.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(opts.LogLevel)),
	})
	if err != nil {
		return nil, &store.ConnectionError{Backend: backendName, Err: err}
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, &store.ConnectionError{Backend: backendName, Err: err}
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, &store.ConnectionError{Backend: backendName, Err: err}
	}
	if opts.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(&document{}); err != nil {
			_ = sqlDB.Close()
			return nil, &store.ConnectionError{Backend: backendName, Err: errors.Wrap(err, "migrate documents")}
		}
	}
	s := New(db, opts.Logger)
	s.logger.Info("Connected to PostgreSQL")
	return s, nil
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{db: db, logger: log}
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "info":
		return logger.Info
	case "warn":
		return logger.Warn
	case "error":
		return logger.Error
	}
	return logger.Silent
}

func (s *Store) Backend() string { return backendName }

func (s *Store) Collection(name string) store.Collection {
	return &collection{s: s, name: name}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type collection struct {
	s    *Store
	name string
}

func (c *collection) Name() string { return c.name }

// query selects this collection's rows containing filter, in insertion order.
func (c *collection) query(ctx context.Context, filter store.Filter) (*gorm.DB, error) {
	tx := c.s.db.WithContext(ctx).Model(&document{}).Where("collection = ?", c.name)
	// Null values also match absent keys, which containment can't express;
	// those are left to store.Matches.
	contained := make(store.Filter, len(filter))
	for k, v := range filter {
		if v != nil {
			contained[k] = v
		}
	}
	if len(contained) > 0 {
		body, err := json.Marshal(contained)
		if err != nil {
			return nil, errors.Wrap(err, "encode filter")
		}
		tx = tx.Where("body @> ?::jsonb", string(body))
	}
	return tx.Order("seq"), nil
}

func (c *collection) Find(ctx context.Context, filter store.Filter) ([]store.Record, error) {
	tx, err := c.query(ctx, filter)
	if err != nil {
		return nil, err
	}
	var rows []document
	if err := tx.Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "find in %s", c.name)
	}
	out := make([]store.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := decode(row)
		if err != nil {
			return nil, err
		}
		if store.Matches(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (c *collection) FindOne(ctx context.Context, filter store.Filter) (store.Record, error) {
	// Containment can over-match nested values, so scan rather than LIMIT 1.
	recs, err := c.Find(ctx, filter)
	if err != nil || len(recs) == 0 {
		return nil, err
	}
	return recs[0], nil
}

func (c *collection) Insert(ctx context.Context, rec store.Record) (store.Record, error) {
	doc := store.Clone(rec)
	if doc == nil {
		doc = store.Record{}
	}
	if _, ok := doc[store.IDField]; !ok {
		doc[store.IDField] = uuid.NewString()
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "encode %s record", c.name)
	}
	row := document{ID: idString(doc[store.IDField]), Collection: c.name, Body: body}
	if err := c.s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, errors.Wrapf(err, "insert into %s", c.name)
	}
	return decode(row)
}

func decode(row document) (store.Record, error) {
	var rec store.Record
	if err := json.Unmarshal(row.Body, &rec); err != nil {
		return nil, errors.Wrapf(err, "decode %s/%s", row.Collection, row.ID)
	}
	return rec, nil
}

func idString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, _ := json.Marshal(v)
	return string(b)
}
