package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
	"github.com/apollographql/graphql-mcp-bridge/internal/graphqlinvoker"
	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
	"github.com/apollographql/graphql-mcp-bridge/internal/reconciler"
)

// registerExecuteTool exposes an `execute` tool that runs an arbitrary
// GraphQL document against the upstream endpoint, for clients that want to
// compose their own queries instead of calling a pre-registered operation
// tool. Mirrors original_source's execute.rs built-in. The document is
// subject to the same MutationPolicy and subscription rejection every
// materialized operation tool already enforces (§4.6) — execute is not a
// way around the policy.
func (s *Server) registerExecuteTool(mcpServer *mcp.Server, catalog *reconciler.Catalog) {
	name := s.cfg.ExecuteToolHint
	tool := &mcp.Tool{
		Name:        name,
		Description: "Executes an arbitrary GraphQL operation against the upstream API.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query":     map[string]any{"type": "string"},
				"variables": map[string]any{"type": "object"},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		query, _ := input["query"].(string)
		if query == "" {
			return nil, nil, fmt.Errorf("%s: query is required", name)
		}
		variables, _ := input["variables"].(map[string]any)

		if err := operation.ValidateExecutable(catalog.Schema, query, s.cfg.MutationMode); err != nil {
			s.health.RecordRejection(name, "invalid_query")
			return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}}}, nil, nil
		}

		outHeaders := IncomingHeaders(ctx)
		result, err := s.invoker.Invoke(ctx, graphqlinvoker.Invocation{Query: query, Variables: variables}, outHeaders)
		if err != nil {
			s.health.RecordRejection(name, "graphql_request_failed")
			return nil, nil, err
		}
		return &mcp.CallToolResult{
			IsError:           result.IsError,
			Content:           []mcp.Content{&mcp.TextContent{Text: result.Text}},
			StructuredContent: result.StructuredContent,
		}, nil, nil
	}

	mcp.AddTool(mcpServer, tool, handler)
}

// registerIntrospectTool exposes the schema's SDL, tree-shaken from a single
// requested type name down to the caller-supplied depth, matching spec.md
// §4.6's "introspect" input shape of {type_name, depth} rather than a
// static config-driven depth.
func (s *Server) registerIntrospectTool(mcpServer *mcp.Server, catalog *reconciler.Catalog) {
	name := s.cfg.IntrospectToolHint
	tool := &mcp.Tool{
		Name:        name,
		Description: "Returns the SDL of the requested GraphQL type and everything it references, up to the given depth.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"type_name": map[string]any{"type": "string"},
				"depth":     map[string]any{"type": "number"},
			},
			"required":             []string{"type_name"},
			"additionalProperties": false,
		},
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		typeName, _ := input["type_name"].(string)
		if typeName == "" {
			return nil, nil, fmt.Errorf("%s: type_name is required", name)
		}
		depth := 0
		if d, ok := input["depth"].(float64); ok && d > 0 {
			depth = int(d)
		}

		sdl := catalog.Schema.Shake([]string{typeName}, shakeOptionsForDepth(depth))
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: sdl}}}, nil, nil
	}

	mcp.AddTool(mcpServer, tool, handler)
}

// registerValidateTool exposes a `validate` tool that checks a GraphQL
// document against the current schema without executing it. Unlike execute,
// this tool never applies MutationPolicy: a deployment that disables
// mutations can still validate mutation text it will never run (§4.6).
func (s *Server) registerValidateTool(mcpServer *mcp.Server, catalog *reconciler.Catalog) {
	name := s.cfg.ValidateToolHint
	tool := &mcp.Tool{
		Name:        name,
		Description: "Validates a GraphQL document against the current schema without executing it.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		query, _ := input["query"].(string)
		if err := operation.Validate(catalog.Schema, query); err != nil {
			return &mcp.CallToolResult{IsError: true, Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}}}, nil, nil
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "valid"}}}, nil, nil
	}

	mcp.AddTool(mcpServer, tool, handler)
}

// registerSearchTool exposes a `search` tool over the schema's root-to-type
// paths: given a set of terms, find matching types and return each hit's
// path tree-shaken with the leaf type expanded and every intermediate
// waypoint kept shallow (§4.6, §4.10).
func (s *Server) registerSearchTool(mcpServer *mcp.Server, catalog *reconciler.Catalog) {
	name := s.cfg.SearchToolHint
	tool := &mcp.Tool{
		Name:        name,
		Description: "Searches the schema's types by term, returning the SDL path from the root operation type to each match.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"terms": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"limit": map[string]any{"type": "number"},
			},
			"required":             []string{"terms"},
			"additionalProperties": false,
		},
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		rawTerms, _ := input["terms"].([]any)
		terms := make([]string, 0, len(rawTerms))
		for _, t := range rawTerms {
			if s, ok := t.(string); ok {
				terms = append(terms, s)
			}
		}
		limit := 10
		if l, ok := input["limit"].(float64); ok && l > 0 {
			limit = int(l)
		}

		hits, err := s.search.Search(terms, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}

		results := make([]any, 0, len(hits))
		var sdlFragments []string
		for _, h := range hits {
			sdl := catalog.Schema.ShakePath(h.RootPath, s.shakeOptions())
			results = append(results, map[string]any{"type_name": h.TypeName, "root_path": h.RootPath, "score": h.Score})
			if sdl != "" {
				sdlFragments = append(sdlFragments, sdl)
			}
		}

		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: strings.Join(sdlFragments, "\n\n")}},
			StructuredContent: map[string]any{"results": results},
		}, nil, nil
	}

	mcp.AddTool(mcpServer, tool, handler)
}

// registerExplorerTool exposes an `explorer` tool that returns an Apollo
// Studio Explorer deep link pre-populated with a document, variables, and
// headers, matching spec.md §4.6's documented input field order
// [document, variables, headers]. Launching a browser against the returned
// URL is explicitly out of scope; only constructing the URL is.
func (s *Server) registerExplorerTool(mcpServer *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "explorer",
		Description: "Builds an Apollo Studio Explorer URL pre-populated with a document, variables, and headers.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"document":  map[string]any{"type": "string", "description": "The GraphQL document to pre-populate, as a JSON string."},
				"variables": map[string]any{"type": "string", "description": "The operation variables, as a JSON string."},
				"headers":   map[string]any{"type": "string", "description": "Request headers, as a JSON string."},
			},
			"required":             []string{"document", "variables", "headers"},
			"additionalProperties": false,
		},
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		document, _ := input["document"].(string)
		variables, _ := input["variables"].(string)
		headers, _ := input["headers"].(string)

		url, err := explorerURL(s.cfg.ExplorerGraphRef, document, variables, headers)
		if err != nil {
			return nil, nil, err
		}
		return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: url}}}, nil, nil
	}

	mcp.AddTool(mcpServer, tool, handler)
}

func (s *Server) shakeOptions() gqlschema.ShakeOptions {
	return gqlschema.ShakeOptions{
		LeafDepth:         s.cfg.SearchLeafDepth,
		IntermediateDepth: s.cfg.SearchIntermediateDepth,
	}
}

// shakeOptionsForDepth applies a single caller-supplied depth uniformly to
// both leaf and intermediate types, the introspect tool's simpler depth
// model (§4.6) as opposed to search's fixed leaf/intermediate split.
func shakeOptionsForDepth(depth int) gqlschema.ShakeOptions {
	return gqlschema.ShakeOptions{LeafDepth: depth, IntermediateDepth: depth}
}
