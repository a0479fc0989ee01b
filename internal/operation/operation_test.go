package operation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
)

const testSDL = `
type Query {
  # Looks up a single user by id.
  user(id: ID!, status: UserStatus): User
  users(filter: UserFilter): [User!]!
}

type Mutation {
  createUser(input: CreateUserInput!): User!
}

type User {
  id: ID!
  name: String!
  status: UserStatus!
}

input UserFilter {
  namePrefix: String
}

input CreateUserInput {
  name: String!
  status: UserStatus = ACTIVE
}

enum UserStatus {
  "the user can log in"
  ACTIVE
  "the user is disabled"
  INACTIVE
}
`

func mustSchema(t *testing.T) *gqlschema.Snapshot {
	t.Helper()
	snap, err := gqlschema.Parse("test.graphql", testSDL)
	require.NoError(t, err)
	return snap
}

func TestFromDocument_SimpleQuery(t *testing.T) {
	schema := mustSchema(t)
	raw := RawOperation{
		SourcePath: "user.graphql",
		SourceText: "query GetUser($id: ID!, $status: UserStatus) { user(id: $id, status: $status) { id name } }",
	}

	op, err := FromDocument(raw, schema, nil, Options{Mode: MutationModeAll})
	require.NoError(t, err)
	assert.Equal(t, "GetUser", op.Name)
	assert.Equal(t, "query", string(op.OperationType))

	props := op.InputSchema["properties"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "string"}, props["id"])
	idField := props["status"].(map[string]any)
	assert.Equal(t, "string", idField["type"])
	assert.ElementsMatch(t, []any{"ACTIVE", "INACTIVE"}, idField["enum"])

	required := op.InputSchema["required"].([]string)
	assert.Equal(t, []string{"id"}, required)
}

func TestFromDocument_MissingName(t *testing.T) {
	schema := mustSchema(t)
	raw := RawOperation{SourceText: "query { users { id } }"}

	_, err := FromDocument(raw, schema, nil, Options{Mode: MutationModeAll})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing its required name")
}

func TestFromDocument_MutationGatedByMode(t *testing.T) {
	schema := mustSchema(t)
	raw := RawOperation{
		SourcePath: "create.graphql",
		SourceText: "mutation CreateUser($input: CreateUserInput!) { createUser(input: $input) { id } }",
	}

	_, err := FromDocument(raw, schema, nil, Options{Mode: MutationModeNone})
	require.Error(t, err)

	op, err := FromDocument(raw, schema, nil, Options{Mode: MutationModeAll})
	require.NoError(t, err)
	assert.Equal(t, "CreateUser", op.Name)

	props := op.InputSchema["properties"].(map[string]any)
	input := props["input"].(map[string]any)
	inputProps := input["properties"].(map[string]any)
	assert.Contains(t, inputProps, "name")
	assert.Contains(t, inputProps, "status")
	required := input["required"].([]string)
	assert.Equal(t, []string{"name"}, required)
}

func TestFromDocument_LeadingCommentBecomesDescription(t *testing.T) {
	schema := mustSchema(t)
	raw := RawOperation{
		SourcePath: "user.graphql",
		SourceText: "# Fetches the current signed in user profile.\nquery Me { user(id: \"me\") { id } }",
	}

	op, err := FromDocument(raw, schema, nil, Options{Mode: MutationModeAll})
	require.NoError(t, err)
	assert.Contains(t, op.Description, "Fetches the current signed in user profile.")
}

func TestFromDocument_ExplicitDescriptionOverridesSynthesis(t *testing.T) {
	schema := mustSchema(t)
	raw := RawOperation{
		SourcePath:          "user.graphql",
		SourceText:          "# ignored comment\nquery Me { user(id: \"me\") { id } }",
		ExplicitDescription: "Manifest-provided description.",
	}

	op, err := FromDocument(raw, schema, nil, Options{Mode: MutationModeAll})
	require.NoError(t, err)
	assert.Equal(t, "Manifest-provided description.", op.Description)
}

func TestFromDocument_SubscriptionRejected(t *testing.T) {
	sdl := testSDL + "\ntype Subscription { userChanged: User! }\n"
	schema, err := gqlschema.Parse("test.graphql", sdl)
	require.NoError(t, err)

	raw := RawOperation{
		SourcePath: "watch.graphql",
		SourceText: "subscription WatchUser { userChanged { id } }",
	}

	_, err = FromDocument(raw, schema, nil, Options{Mode: MutationModeAll})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subscription")
	assert.Contains(t, err.Error(), "not allowed")
}

func TestFromDocument_CustomScalar(t *testing.T) {
	sdl := testSDL + "\nscalar DateTime\ninput Range { from: DateTime }\n"
	snap, err := gqlschema.Parse("test.graphql", sdl)
	require.NoError(t, err)

	scalars := CustomScalarMap{
		"DateTime": {"type": "string", "format": "date-time"},
	}
	dateTimeType := &ast.Type{NamedType: "DateTime", NonNull: true}

	result := typeToSchema(dateTimeType, snap, scalars, map[string]bool{})
	assert.Equal(t, "string", result["type"])
	assert.Equal(t, "date-time", result["format"])
}
