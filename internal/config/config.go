// Package config decodes the bridge server's configuration surface. It
// intentionally does not parse CLI flags or expand environment variables
// (spec.md §1 Non-goals) — callers hand this package already-resolved YAML
// bytes.
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

// Transport selects which MCP transport the server listens on. Only stdio
// and Streamable HTTP are supported; SSE is rejected at decode time, the
// same way original_source's Transport enum rejects it at parse time.
type Transport struct {
	Stdio          *StdioTransport          `yaml:"stdio,omitempty"`
	StreamableHTTP *StreamableHTTPTransport `yaml:"streamable_http,omitempty"`
	SSE            any                      `yaml:"sse,omitempty"`
}

type StdioTransport struct{}

type StreamableHTTPTransport struct {
	Address      string `yaml:"address"`
	Port         int    `yaml:"port"`
	StatefulMode bool   `yaml:"stateful_mode"`
}

// SchemaSource selects how the schema is obtained (C3).
type SchemaSource struct {
	File     string `yaml:"file,omitempty"`
	Registry *struct {
		GraphRef string `yaml:"graph_ref"`
	} `yaml:"registry,omitempty"`
}

// OperationSource selects how operations are obtained (C4).
type OperationSource struct {
	Files      []string `yaml:"files,omitempty"`
	Manifest   string   `yaml:"manifest,omitempty"`
	Collection *struct {
		CollectionID  string   `yaml:"collection_id"`
		DiscoveryURLs []string `yaml:"discovery_urls"`
	} `yaml:"collection,omitempty"`
	None bool `yaml:"none,omitempty"`
}

// Config mirrors spec.md §6's configuration surface plus the fields
// original_source's server.rs carries that the distilled spec left
// implicit (tool-name hints, explorer graph ref, index sizing knobs).
type Config struct {
	Endpoint   string          `yaml:"endpoint"`
	Schema     SchemaSource    `yaml:"schema"`
	Operations OperationSource `yaml:"operations"`
	Transport  Transport       `yaml:"transport"`

	MutationMode string `yaml:"mutation_mode"` // "none" | "explicit" | "all"

	ForwardHeaders              []string          `yaml:"forward_headers"`
	DisableAuthTokenPassthrough bool              `yaml:"disable_auth_token_passthrough"`
	StaticHeaders               map[string]string `yaml:"static_headers"`

	Introspection bool `yaml:"introspection"`

	ExecuteToolHint    string `yaml:"execute_tool_hint"`
	IntrospectToolHint string `yaml:"introspect_tool_hint"`
	SearchToolHint     string `yaml:"search_tool_hint"`
	ValidateToolHint   string `yaml:"validate_tool_hint"`
	ExplorerGraphRef   string `yaml:"explorer_graph_ref"`

	SearchLeafDepth         int   `yaml:"search_leaf_depth"`
	SearchIntermediateDepth int   `yaml:"search_intermediate_depth"`
	IndexMemoryBytes        int64 `yaml:"index_memory_bytes"`

	DisableTypeDescription   bool `yaml:"disable_type_description"`
	DisableSchemaDescription bool `yaml:"disable_schema_description"`
	EnableOutputSchema       bool `yaml:"enable_output_schema"`

	CustomScalars map[string]map[string]any `yaml:"custom_scalars"`

	OperationAllowList []string `yaml:"operation_allow_list"`
	OperationBlockList []string `yaml:"operation_block_list"`

	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
}

// Parse decodes YAML bytes into a Config, applying the defaults
// original_source uses (mutation_mode defaults to "none", search leaf depth
// defaults to 2 and intermediate depth to 1, matching the fixed depths
// spec.md §4.6 describes for the `search` tool) and rejecting an SSE
// transport outright.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{
		MutationMode:            "none",
		SearchLeafDepth:         2,
		SearchIntermediateDepth: 1,
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if cfg.Transport.SSE != nil {
		return nil, fmt.Errorf("sse transport is not supported, use stdio or streamable_http")
	}
	return cfg, nil
}

// MutationModeValue translates the string configuration value into the
// operation package's enum, defaulting to MutationModeNone on an unknown or
// empty value, matching original_source's conservative default.
func (c *Config) MutationModeValue() operation.MutationMode {
	switch c.MutationMode {
	case "explicit":
		return operation.MutationModeExplicit
	case "all":
		return operation.MutationModeAll
	default:
		return operation.MutationModeNone
	}
}

// CustomScalarMap converts the decoded YAML scalar map into the operation
// package's type.
func (c *Config) CustomScalarMap() operation.CustomScalarMap {
	out := make(operation.CustomScalarMap, len(c.CustomScalars))
	for k, v := range c.CustomScalars {
		out[k] = v
	}
	return out
}
