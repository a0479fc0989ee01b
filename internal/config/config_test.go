package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`
endpoint: https://example.com/graphql
schema:
  file: schema.graphql
operations:
  files: ["operations"]
`))
	require.NoError(t, err)
	assert.Equal(t, operation.MutationModeNone, cfg.MutationModeValue())
	assert.Equal(t, 2, cfg.SearchLeafDepth)
	assert.Equal(t, 1, cfg.SearchIntermediateDepth)
}

func TestParse_RejectsSSETransport(t *testing.T) {
	_, err := Parse([]byte(`
endpoint: https://example.com/graphql
transport:
  sse:
    port: 8080
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sse")
}

func TestParse_MutationModeAll(t *testing.T) {
	cfg, err := Parse([]byte(`
endpoint: https://example.com/graphql
mutation_mode: all
`))
	require.NoError(t, err)
	assert.Equal(t, operation.MutationModeAll, cfg.MutationModeValue())
}

func TestParse_CustomScalars(t *testing.T) {
	cfg, err := Parse([]byte(`
endpoint: https://example.com/graphql
custom_scalars:
  DateTime:
    type: string
    format: date-time
`))
	require.NoError(t, err)
	scalars := cfg.CustomScalarMap()
	assert.Equal(t, "date-time", scalars["DateTime"]["format"])
}
