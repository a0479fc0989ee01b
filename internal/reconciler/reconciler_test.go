package reconciler

import (
	"context"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

type countingNotifier struct{ count int }

func (n *countingNotifier) NotifyToolListChanged(ctx context.Context) { n.count++ }

const reconcilerTestSDL = `
type Query {
  user(id: ID!): User
}

type User {
  id: ID!
  name: String!
}
`

func mustSnapshot(t *testing.T, sdl string) *gqlschema.Snapshot {
	t.Helper()
	snap, err := gqlschema.Parse("test.graphql", sdl)
	require.NoError(t, err)
	return snap
}

func TestReconciler_InvalidOperationsDoNotCrashServer(t *testing.T) {
	notifier := &countingNotifier{}
	store := NewStore()
	r := New(store, notifier, testr.New(t), operation.MutationModeAll, nil)

	schema := mustSnapshot(t, reconcilerTestSDL)
	r.updateSchema(context.Background(), schema)

	raw := []operation.RawOperation{
		{SourcePath: "good.graphql", SourceText: "query GetUser($id: ID!) { user(id: $id) { id name } }"},
		{SourcePath: "bad.graphql", SourceText: "query { doesNotExist { id } }"},
	}
	r.updateOperations(context.Background(), raw)

	catalog := store.Get()
	assert.Len(t, catalog.Tools, 1)
	assert.Contains(t, catalog.Tools, "GetUser")
	assert.Equal(t, 2, notifier.count)
}

func TestReconciler_ChangingSchemaInvalidatesOutdatedOperations(t *testing.T) {
	notifier := &countingNotifier{}
	store := NewStore()
	r := New(store, notifier, testr.New(t), operation.MutationModeAll, nil)

	schema := mustSnapshot(t, reconcilerTestSDL)
	r.updateSchema(context.Background(), schema)

	raw := []operation.RawOperation{
		{SourcePath: "user.graphql", SourceText: "query GetUser($id: ID!) { user(id: $id) { id name } }"},
	}
	r.updateOperations(context.Background(), raw)
	assert.Len(t, store.Get().Tools, 1)

	narrowerSchema := mustSnapshot(t, `
type Query {
  user(id: ID!): User
}

type User {
  id: ID!
}
`)
	r.updateSchema(context.Background(), narrowerSchema)

	catalog := store.Get()
	assert.Empty(t, catalog.Tools, "operation selecting a field removed from the schema should be dropped, not crash the reconciler")
}
