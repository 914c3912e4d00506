package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	"github.com/hanpama/fieldguide/internal/logger"
)

type ServerConfig struct {
	Addr         string        `env:"SERVER_ADDR" envDefault:":4000"`
	Timeout      time.Duration `env:"SERVER_TIMEOUT" envDefault:"10s"`
	MaxBodyBytes int64         `env:"SERVER_MAX_BODY_BYTES" envDefault:"1048576"`
	Pretty       bool          `env:"SERVER_PRETTY" envDefault:"false"`
	CORSOrigins  []string      `env:"SERVER_CORS_ORIGINS" envSeparator:","`
	// GraphiQL mounts the in-browser IDE; meant for development.
	GraphiQL        bool          `env:"SERVER_GRAPHIQL" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

type GraphQLConfig struct {
	Introspection  bool `env:"GRAPHQL_INTROSPECTION" envDefault:"true"`
	MaxConcurrency int  `env:"GRAPHQL_MAX_CONCURRENCY" envDefault:"0"`
	// ShallowMerge restores the legacy resolver merge. Deprecated.
	ShallowMerge bool `env:"GRAPHQL_SHALLOW_MERGE" envDefault:"false"`
}

type StoreConfig struct {
	Backend string `env:"STORE_BACKEND" envDefault:"mongo"`
}

type MongoConfig struct {
	URI            string        `env:"MONGO_URI" envDefault:"mongodb://localhost:27017/ohi"`
	Database       string        `env:"MONGO_DATABASE"`
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" envDefault:"10s"`
}

type BadgerConfig struct {
	Dir      string `env:"BADGER_DIR" envDefault:"./data/badger"`
	InMemory bool   `env:"BADGER_IN_MEMORY" envDefault:"false"`
}

type PostgresConfig struct {
	DSN             string        `env:"POSTGRES_DSN"`
	MaxConn         int           `env:"POSTGRES_MAX_CONN" envDefault:"10"`
	MaxIdleConn     int           `env:"POSTGRES_MAX_IDLE_CONN" envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"POSTGRES_CONN_MAX_LIFETIME" envDefault:"30m"`
	AutoMigrate     bool          `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`
	LogLevel        string        `env:"POSTGRES_LOG_LEVEL" envDefault:"WARN"`
}

type OtelConfig struct {
	Endpoint string `env:"OTEL_ENDPOINT"`
	Service  string `env:"OTEL_SERVICE" envDefault:"fieldguide"`
}

type MetricsConfig struct {
	Enabled   bool   `env:"METRICS_ENABLED" envDefault:"true"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"fieldguide"`
}

type Config struct {
	Server   ServerConfig
	GraphQL  GraphQLConfig
	Store    StoreConfig
	Mongo    MongoConfig
	Badger   BadgerConfig
	Postgres PostgresConfig
	Logger   logger.Config
	Otel     OtelConfig
	Metrics  MetricsConfig
}

// Backends lists the accepted STORE_BACKEND values.
var Backends = []string{"mongo", "badger", "postgres"}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set win over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}
	return Parse(env.Options{})
}

// Parse reads the configuration from the environment (or opts.Environment
// when set) without touching .env files.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo backend")
		}
	case "badger":
		if !c.Badger.InMemory && c.Badger.Dir == "" {
			return errors.New("BADGER_DIR is required unless BADGER_IN_MEMORY is set")
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return errors.Errorf("unknown STORE_BACKEND %q (want one of %s)", c.Store.Backend, strings.Join(Backends, ", "))
	}
	if c.GraphQL.MaxConcurrency < 0 {
		return errors.New("GRAPHQL_MAX_CONCURRENCY must not be negative")
	}
	return nil
}
