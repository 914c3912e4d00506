package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/fieldguide/internal/eventbus"
	events "github.com/hanpama/fieldguide/internal/events"
)

// Metrics holds the Prometheus collectors fed from eventbus events.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	ResolverCallsTotal *prometheus.CounterVec
	ResolverDuration   *prometheus.HistogramVec

	StoreOpsTotal   *prometheus.CounterVec
	StoreOpDuration *prometheus.HistogramVec
}

// New creates collectors on a fresh registry that also carries the Go and
// process collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "fieldguide"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of GraphQL HTTP requests",
		}, []string{"method", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "GraphQL HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		OperationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "graphql_operations_total",
			Help:      "Total number of executed GraphQL operations",
		}, []string{"type", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "graphql_operation_duration_seconds",
			Help:      "GraphQL operation execution latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),

		ResolverCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolver_calls_total",
			Help:      "Total number of field resolver calls",
		}, []string{"field", "outcome"}),
		ResolverDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolver_duration_seconds",
			Help:      "Field resolver latency",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"field"}),

		StoreOpsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of document store calls",
		}, []string{"backend", "collection", "op", "outcome"}),
		StoreOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Document store call latency",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"backend", "op"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Gatherer exposes the underlying registry.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// Subscribe feeds the collectors from the global eventbus.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			m.HTTPRequestsTotal.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) {
			m.OperationsTotal.WithLabelValues(e.OperationType, outcome(len(e.Errors) == 0)).Inc()
			m.OperationDuration.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.ResolverFinish) {
			field := e.ObjectType + "." + e.Field
			m.ResolverCallsTotal.WithLabelValues(field, outcome(e.Err == nil)).Inc()
			m.ResolverDuration.WithLabelValues(field).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.StoreFinish) {
			m.StoreOpsTotal.WithLabelValues(e.Backend, e.Collection, e.Op, outcome(e.Err == nil)).Inc()
			m.StoreOpDuration.WithLabelValues(e.Backend, e.Op).Observe(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
