package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/catalog"
	"github.com/hanpama/fieldguide/internal/config"
	"github.com/hanpama/fieldguide/internal/eventbus"
	"github.com/hanpama/fieldguide/internal/executor"
	"github.com/hanpama/fieldguide/internal/introspection"
	"github.com/hanpama/fieldguide/internal/logger"
	"github.com/hanpama/fieldguide/internal/metrics"
	"github.com/hanpama/fieldguide/internal/otel"
	"github.com/hanpama/fieldguide/internal/registry"
	"github.com/hanpama/fieldguide/internal/server"
	"github.com/hanpama/fieldguide/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		backend  string
		graphiql bool
		pretty   bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Server.Addr = addr
			}
			if flags.Changed("store") {
				cfg.Store.Backend = backend
			}
			if flags.Changed("graphiql") {
				cfg.Server.GraphiQL = graphiql
			}
			if flags.Changed("pretty") {
				cfg.Server.Pretty = pretty
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&addr, "addr", "", "HTTP listen address (overrides SERVER_ADDR)")
	flags.StringVar(&backend, "store", "", "Store backend: mongo, badger or postgres (overrides STORE_BACKEND)")
	flags.BoolVar(&graphiql, "graphiql", false, "Mount the GraphiQL IDE at /graphiql")
	flags.BoolVar(&pretty, "pretty", false, "Pretty-print JSON responses")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eventbus.Use(eventbus.New())
	defer logger.Subscribe(log)()

	shutdownTracing, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return errors.Wrap(err, "otel setup")
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("Store unavailable", zap.String("backend", cfg.Store.Backend), zap.Error(err))
		return err
	}
	defer func() { _ = st.Close(context.Background()) }()

	handler, err := newApp(cfg, log, st)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}
	errc := make(chan error, 1)
	go func() {
		log.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr), zap.String("store", cfg.Store.Backend))
		errc <- srv.ListenAndServe()
	}()

	sig, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sig.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newApp builds the schema once and mounts it. The returned handler serves
// every route; the store stays owned by the caller.
func newApp(cfg *config.Config, log *zap.Logger, st store.Store) (http.Handler, error) {
	es, err := catalog.Build(catalog.Open(st), log, registryOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	var (
		runtime executor.Runtime = es.Runtime()
		sch                      = es.Schema()
	)
	if cfg.GraphQL.Introspection {
		wrapped, err := introspection.Wrap(runtime, sch)
		if err != nil {
			return nil, err
		}
		runtime, sch = wrapped.Runtime, wrapped.Schema
	}

	sopts := []server.Option{
		server.WithTimeout(cfg.Server.Timeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithGraphiQL(cfg.Server.GraphiQL),
	}
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	h, err := server.New(runtime, sch, es.AST(), sopts...)
	if err != nil {
		return nil, err
	}

	rc := server.RouterConfig{
		GraphQL:  h,
		Health:   st,
		GraphiQL: cfg.Server.GraphiQL,
	}
	if cfg.Metrics.Enabled {
		m := metrics.New(cfg.Metrics.Namespace)
		m.Subscribe()
		rc.Metrics = m.Handler()
	}
	return server.NewRouter(rc), nil
}

func registryOptions(cfg *config.Config) []registry.Option {
	var opts []registry.Option
	if cfg.GraphQL.MaxConcurrency > 0 {
		opts = append(opts, registry.WithMaxConcurrency(cfg.GraphQL.MaxConcurrency))
	}
	if cfg.GraphQL.ShallowMerge {
		opts = append(opts, registry.WithShallowResolverMerge()) //nolint:staticcheck
	}
	return opts
}
