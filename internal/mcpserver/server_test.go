package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
	"github.com/apollographql/graphql-mcp-bridge/internal/graphqlinvoker"
	"github.com/apollographql/graphql-mcp-bridge/internal/health"
	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
	"github.com/apollographql/graphql-mcp-bridge/internal/reconciler"

	"github.com/prometheus/client_golang/prometheus"
)

const searchTestSDL = `
type Query {
  user(id: ID!): User
}

type User {
  id: ID!
  name: String!
  orders: [Order!]!
}

type Order {
  id: ID!
  total: Float!
}
`

func newTestServer(t *testing.T, endpoint string, cfg Config) *Server {
	t.Helper()
	invoker := graphqlinvoker.New(endpoint, "test")
	sink := health.NewSink(prometheus.NewRegistry())
	return New(cfg, testr.New(t), invoker, sink)
}

func TestApplyCatalog_IndexesSchemaTypes(t *testing.T) {
	srv := newTestServer(t, "http://example.invalid", Config{SearchToolHint: "search"})

	schema, err := gqlschema.Parse("test.graphql", searchTestSDL)
	require.NoError(t, err)
	catalog := &reconciler.Catalog{Schema: schema, Tools: map[string]*operation.Operation{}}

	srv.ApplyCatalog(catalog)
	require.NotNil(t, srv.search)

	hits, err := srv.search.Search([]string{"order"}, 10)
	require.NoError(t, err)

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.TypeName
	}
	assert.Contains(t, names, "Order")
}

func TestBearerToken_DisabledWhenConfigured(t *testing.T) {
	srv := newTestServer(t, "http://example.invalid", Config{DisableAuthTokenPassthrough: true})
	incoming := http.Header{}
	incoming.Set("authorization", "Bearer secret")

	assert.Empty(t, bearerToken(srv, incoming))
}

func TestBearerToken_PassesThroughByDefault(t *testing.T) {
	srv := newTestServer(t, "http://example.invalid", Config{})
	incoming := http.Header{}
	incoming.Set("authorization", "Bearer secret")

	assert.Equal(t, "Bearer secret", bearerToken(srv, incoming))
}

func TestInvokeOperation_BuildsUpstreamRequest(t *testing.T) {
	var gotBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"user":{"id":"1"}}}`))
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL, Config{ForwardHeaders: []string{"x-trace-id"}})

	op := &operation.Operation{
		Name:       "GetUser",
		SourceText: "query GetUser($id: ID!) { user(id: $id) { id } }",
	}

	ctx := WithIncomingHeaders(context.Background(), http.Header{"X-Trace-Id": []string{"abc"}})
	result, _, err := srv.invokeOperation(ctx, op, map[string]any{"id": "1"}, nil)
	require.NoError(t, err)
	require.False(t, result.IsError)

	assert.Equal(t, "GetUser", gotBody["operationName"])
	assert.Equal(t, op.SourceText, gotBody["query"])
}

func TestInvokeOperation_FiltersUndeclaredVariables(t *testing.T) {
	var gotBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"user":{"id":"1"}}}`))
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL, Config{})

	op := &operation.Operation{
		Name:       "GetUser",
		SourceText: "query GetUser($id: ID!) { user(id: $id) { id } }",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"id": map[string]any{"type": "string"}},
		},
	}

	result, _, err := srv.invokeOperation(context.Background(), op, map[string]any{"id": "1", "extra": "bogus"}, nil)
	require.NoError(t, err)
	require.False(t, result.IsError)

	variables, _ := gotBody["variables"].(map[string]any)
	assert.Equal(t, "1", variables["id"])
	assert.NotContains(t, variables, "extra")
}

func TestInvokeOperation_UsesPersistedQueryWhenPresent(t *testing.T) {
	var gotBody map[string]any
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"ok":true}}`))
	}))
	defer upstream.Close()

	srv := newTestServer(t, upstream.URL, Config{})

	op := &operation.Operation{
		Name:             "Ping",
		PersistedQueryID: "deadbeef",
	}

	result, _, err := srv.invokeOperation(context.Background(), op, nil, nil)
	require.NoError(t, err)
	require.False(t, result.IsError)

	_, hasQuery := gotBody["query"]
	assert.False(t, hasQuery)
	extensions, _ := gotBody["extensions"].(map[string]any)
	persisted, _ := extensions["persistedQuery"].(map[string]any)
	assert.Equal(t, "deadbeef", persisted["sha256Hash"])
}
