package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caarlos0/env/v6"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hanpama/fieldguide/internal/catalog"
	"github.com/hanpama/fieldguide/internal/config"
	"github.com/hanpama/fieldguide/internal/store"
)

func init() { gin.SetMode(gin.TestMode) }

func testConfig(t *testing.T, vars map[string]string) *config.Config {
	t.Helper()
	environ := map[string]string{"STORE_BACKEND": "badger", "BADGER_IN_MEMORY": "true"}
	for k, v := range vars {
		environ[k] = v
	}
	cfg, err := config.Parse(env.Options{Environment: environ})
	require.NoError(t, err)
	return cfg
}

func openTestStore(t *testing.T, cfg *config.Config) store.Store {
	t.Helper()
	st, err := openStore(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func graphql(t *testing.T, h http.Handler, query string) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":`+quote(query)+`}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return w.Body.String()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(strings.ReplaceAll(s, `\`, `\\`), `"`, `\"`) + `"`
}

func TestServeEndToEnd(t *testing.T) {
	cfg := testConfig(t, nil)
	st := openTestStore(t, cfg)

	n, err := seed(context.Background(), st.Collection(catalog.AnimalsCollection), strings.NewReader(`[
		{"name": "owl", "airborne": true},
		{"name": "cat", "airborne": false}
	]`))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	h, err := newApp(cfg, zap.NewNop(), st)
	require.NoError(t, err)

	assert.JSONEq(t, `{"data":{"getFlyingAnimals":[{"name":"owl"}]}}`,
		graphql(t, h, `{ getFlyingAnimals { name } }`))

	body := graphql(t, h, `mutation { addAnimal(name: "bat", airborne: true) { name airborne } }`)
	assert.JSONEq(t, `{"data":{"addAnimal":{"name":"bat","airborne":true}}}`, body)

	assert.JSONEq(t, `{"data":{"getAllAnimals":[{"name":"owl"},{"name":"cat"},{"name":"bat"}]}}`,
		graphql(t, h, `{ getAllAnimals { name } }`))

	assert.Contains(t, graphql(t, h, `{ __schema { queryType { name } } }`), `"queryType":{"name":"Query"}`)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIntrospectionCanBeDisabled(t *testing.T) {
	cfg := testConfig(t, map[string]string{"GRAPHQL_INTROSPECTION": "false"})
	h, err := newApp(cfg, zap.NewNop(), openTestStore(t, cfg))
	require.NoError(t, err)

	body := graphql(t, h, `{ __schema { queryType { name } } }`)
	assert.Contains(t, body, `"errors"`)
	assert.NotContains(t, body, `"queryType":{"name":"Query"}`)
}

func TestSeedRejectsBadInput(t *testing.T) {
	cfg := testConfig(t, nil)
	c := openTestStore(t, cfg).Collection("animals")

	_, err := seed(context.Background(), c, strings.NewReader(`{"name": "owl"}`))
	assert.ErrorContains(t, err, "decode seed documents")

	n, err := seed(context.Background(), c, strings.NewReader(`[{"name": "owl"}, null]`))
	assert.ErrorContains(t, err, "document 1 is null")
	assert.Equal(t, 1, n)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := testConfig(t, nil)
	cfg.Store.Backend = "redis"
	_, err := openStore(context.Background(), cfg, zap.NewNop())
	assert.ErrorIs(t, err, store.ErrUnknownBackend)
}

func TestPrintSchema(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"print-schema"})
	require.NoError(t, root.Execute())

	sdl := out.String()
	for _, want := range []string{"type Animal", "getAllLocations", "addAnimal", "type Inspection"} {
		assert.Contains(t, sdl, want)
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, version+"\n", out.String())
}
