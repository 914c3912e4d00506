package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eventbus "github.com/hanpama/fieldguide/internal/eventbus"
	events "github.com/hanpama/fieldguide/internal/events"
	"github.com/hanpama/fieldguide/internal/registry"
	reqid "github.com/hanpama/fieldguide/internal/reqid"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestHandler(t *testing.T, hello registry.ResolverFunc, opts ...Option) *Handler {
	t.Helper()
	es, err := registry.Build([]registry.Fragment{
		{Name: "query", TypeDef: `type Query { hello: String, echo(n: Int!): Int, half(x: Float!): Float, ident(id: ID!): ID }`, Resolvers: registry.ResolverMap{
			"Query": {
				"hello": hello,
				"echo": func(_ context.Context, p registry.ResolveParams) (any, error) {
					return p.Args["n"], nil
				},
				"half": func(_ context.Context, p registry.ResolveParams) (any, error) {
					return p.Args["x"].(float64) / 2, nil
				},
				"ident": func(_ context.Context, p registry.ResolveParams) (any, error) {
					return p.Args["id"], nil
				},
			},
		}},
		{Name: "mutation", TypeDef: `type Mutation { touch: Boolean }`, Resolvers: registry.ResolverMap{
			"Mutation": {"touch": func(context.Context, registry.ResolveParams) (any, error) { return true, nil }},
		}},
	}, registry.WithRootDocument(`schema { query: Query mutation: Mutation }`))
	require.NoError(t, err)
	h, err := New(es.Runtime(), es.Schema(), es.AST(), opts...)
	require.NoError(t, err)
	return h
}

func world(context.Context, registry.ResolveParams) (any, error) { return "world", nil }

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestPostSingle(t *testing.T) {
	h := newTestHandler(t, world)
	w := post(h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
}

func TestVariablesKeepIntegers(t *testing.T) {
	h := newTestHandler(t, world)
	w := post(h, `{"query":"query($n: Int!) { echo(n: $n) }","variables":{"n":2147483647}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"echo":2147483647}}`, w.Body.String())

	w = post(h, `{"query":"query($n: Int!) { echo(n: $n) }","variables":{"n":1.5}}`)
	assert.Contains(t, w.Body.String(), `"errors"`)
}

func TestVariablesFloatAndID(t *testing.T) {
	h := newTestHandler(t, world)
	w := post(h, `{"query":"query($x: Float!, $id: ID!) { half(x: $x) ident(id: $id) }","variables":{"x":2.5,"id":7}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"half":1.25,"ident":"7"}}`, w.Body.String())

	q := url.Values{
		"query":     {`query($x: Float!) { half(x: $x) }`},
		"variables": {`{"x":3}`},
	}
	req := httptest.NewRequest(http.MethodGet, "/graphql?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"half":1.5}}`, rec.Body.String())
}

func TestValidationErrorsSkipExecution(t *testing.T) {
	called := false
	h := newTestHandler(t, func(context.Context, registry.ResolveParams) (any, error) {
		called = true
		return "world", nil
	})
	w := post(h, `{"query":"{ hello nope }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, called)
	assert.NotContains(t, w.Body.String(), `"data"`)
	assert.Contains(t, w.Body.String(), `Cannot query field \"nope\" on type \"Query\"`)
	assert.Contains(t, w.Body.String(), `"locations":[{"line":1,"column":9}]`)
}

func TestSyntaxError(t *testing.T) {
	h := newTestHandler(t, world)
	w := post(h, `{"query":"{ hello "}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"errors"`)
	assert.NotContains(t, w.Body.String(), `"data"`)
}

func TestResolverErrorKeepsSiblings(t *testing.T) {
	h := newTestHandler(t, func(context.Context, registry.ResolveParams) (any, error) {
		return nil, errors.New("boom")
	})
	w := post(h, `{"query":"{ hello echo(n: 2) }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"data": {"hello": null, "echo": 2},
		"errors": [{"message": "boom", "locations": [{"line": 1, "column": 3}], "path": ["hello"]}]
	}`, w.Body.String())
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t, world)
	w := post(h, `[{"query":"{ hello }"},{"query":"{ echo(n: 1) }"}]`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"data":{"hello":"world"}},{"data":{"echo":1}}]`, w.Body.String())

	w = post(h, `[]`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGet(t *testing.T) {
	h := newTestHandler(t, world)

	req := httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape("{ hello }"), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape("mutation { touch }"), nil)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), "mutations are not allowed over GET")
}

func TestGraphiQLOnGet(t *testing.T) {
	h := newTestHandler(t, world, WithGraphiQL(true))
	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graphiql")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t, world)
	req := httptest.NewRequest(http.MethodPut, "/graphql", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, world, WithCORS("*"))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}

	pre := httptest.NewRequest(http.MethodOptions, "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("preflight missing CORS header")
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatalf("preflight missing allow headers")
	}
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, world, WithMaxBodyBytes(10))
	w := post(h, `{"query":"1234567890"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	var captured string
	h := newTestHandler(t, func(ctx context.Context, _ registry.ResolveParams) (any, error) {
		captured, _ = reqid.FromContext(ctx)
		return "world", nil
	})

	w := post(h, `{"query":"{ hello }"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, captured)
	assert.Equal(t, captured, w.Header().Get(reqid.Header))

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set(reqid.Header, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", captured)
	assert.Equal(t, "abc-123", w.Header().Get(reqid.Header))
}

func TestEventsDescribeTheRequest(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	var (
		start  events.GraphQLStart
		finish events.GraphQLFinish
		done   events.HTTPFinish
	)
	defer eventbus.Subscribe(func(_ context.Context, e events.GraphQLStart) { start = e })()
	defer eventbus.Subscribe(func(_ context.Context, e events.GraphQLFinish) { finish = e })()
	defer eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) { done = e })()

	h := newTestHandler(t, func(context.Context, registry.ResolveParams) (any, error) {
		return nil, errors.New("boom")
	})
	req := httptest.NewRequest(http.MethodPost, "/graphql",
		bytes.NewBufferString(`{"query":"query($n: Int!) { hello echo(n: $n) }","variables":{"n":3}}`))
	req.Header.Set(reqid.Header, "evt-1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "query", start.OperationType)
	assert.Equal(t, 1, start.Variables)
	assert.Equal(t, 1, finish.Variables)
	assert.Len(t, finish.Errors, 1)
	assert.True(t, finish.Partial)
	assert.Equal(t, "evt-1", done.RequestID)
	assert.Equal(t, http.StatusOK, done.Status)
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestRouter(t *testing.T) {
	h := newTestHandler(t, world)
	var pingErr error
	r := NewRouter(RouterConfig{
		GraphQL: h,
		Health:  pingFunc(func(context.Context) error { return pingErr }),
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("metrics")) }),
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "getAllAnimals")

	assert.Equal(t, http.StatusNotFound, get("/graphiql").Code)
	assert.Equal(t, "metrics", get("/metrics").Body.String())

	w = get("/healthz")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	pingErr = errors.New("store: connection refused")
	w = get("/healthz")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "connection refused"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{"query":"{ hello }"}`)))
	assert.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
}
