package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/fieldguide/internal/eventbus"
	events "github.com/hanpama/fieldguide/internal/events"
)

func TestCountersFollowEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	m := New("")
	defer m.Subscribe()()

	ctx := context.Background()
	req := httptest.NewRequest("POST", "/graphql", nil)
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 200, Duration: 3 * time.Millisecond})
	eventbus.Publish(ctx, events.GraphQLFinish{OperationType: "mutation", Errors: []error{errors.New("x")}})
	eventbus.Publish(ctx, events.ResolverFinish{ObjectType: "Query", Field: "getAllAnimals"})
	eventbus.Publish(ctx, events.ResolverFinish{ObjectType: "Query", Field: "getAllAnimals"})
	eventbus.Publish(ctx, events.ResolverFinish{ObjectType: "Query", Field: "getAllAnimals", Err: errors.New("down")})
	eventbus.Publish(ctx, events.StoreFinish{Backend: "mongo", Collection: "animals", Op: "find"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OperationsTotal.WithLabelValues("mutation", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ResolverCallsTotal.WithLabelValues("Query.getAllAnimals", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResolverCallsTotal.WithLabelValues("Query.getAllAnimals", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreOpsTotal.WithLabelValues("mongo", "animals", "find", "ok")))
}

func TestHandlerExposesNamespace(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	m := New("zoo")
	defer m.Subscribe()()
	eventbus.Publish(context.Background(), events.ResolverFinish{ObjectType: "Mutation", Field: "addAnimal"})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, `zoo_resolver_calls_total{field="Mutation.addAnimal",outcome="ok"} 1`), body)
}
