// Package mcpserver adapts the current tool Catalog into an
// github.com/modelcontextprotocol/go-sdk mcp.Server: one mcp.Tool per
// materialized GraphQL operation, plus the built-in execute/introspect/
// search/validate/explorer tools original_source exposes alongside the
// operation-backed ones. This is component C6.
package mcpserver

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
	"github.com/apollographql/graphql-mcp-bridge/internal/graphqlinvoker"
	"github.com/apollographql/graphql-mcp-bridge/internal/headers"
	"github.com/apollographql/graphql-mcp-bridge/internal/health"
	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
	"github.com/apollographql/graphql-mcp-bridge/internal/reconciler"
	"github.com/apollographql/graphql-mcp-bridge/internal/searchindex"
)

// Config selects which built-in tools are exposed, mirroring the
// *_tool_hint fields original_source's server.rs carries: a non-empty hint
// both enables the tool and overrides its advertised name.
type Config struct {
	ExecuteToolHint    string
	IntrospectToolHint string
	SearchToolHint     string
	ValidateToolHint   string
	ExplorerGraphRef   string

	// MutationMode gates the `execute` built-in the same way it gates
	// materialized operation tools: execute is not a bypass of MutationPolicy.
	MutationMode operation.MutationMode

	ForwardHeaders              []string
	DisableAuthTokenPassthrough bool
	StaticHeaders               http.Header
	HeaderTransform             headers.Transform

	SearchLeafDepth         int
	SearchIntermediateDepth int
}

// Server owns the live mcp.Server instance and rebuilds its tool
// registrations every time the reconciler installs a new Catalog.
type Server struct {
	cfg     Config
	log     logr.Logger
	invoker *graphqlinvoker.Invoker
	health  *health.Sink

	mcpServer *mcp.Server
	search    *searchindex.Index
}

// New constructs a Server. The returned *mcp.Server has no tools registered
// yet; call ApplyCatalog (directly, or via reconciler.Reconciler.OnCatalogChange)
// once a catalog is available.
func New(cfg Config, log logr.Logger, invoker *graphqlinvoker.Invoker, sink *health.Sink) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		invoker: invoker,
		health:  sink,
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "graphql-mcp-bridge",
			Version: "0.1.0",
		}, nil),
	}
}

// MCPServer returns the underlying SDK server for transport wiring.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// ApplyCatalog rebuilds the tool set from scratch: one operation-backed
// tool per catalog entry, plus the enabled built-ins, then rebuilds the
// search index over the types reachable from the catalog schema's root
// operation types. Matches the teacher's RefreshSchema,
// which recreates the whole mcp.Server rather than diffing tool lists.
func (s *Server) ApplyCatalog(catalog *reconciler.Catalog) {
	mcpServer := mcp.NewServer(&mcp.Implementation{
		Name:    "graphql-mcp-bridge",
		Version: "0.1.0",
	}, nil)

	for name, op := range catalog.Tools {
		s.registerOperationTool(mcpServer, op)
		s.log.V(1).Info("registered tool", "name", name, "estimated_tokens", op.CharLength()/4)
	}

	if s.cfg.ExecuteToolHint != "" && catalog.Schema != nil {
		s.registerExecuteTool(mcpServer, catalog)
	}
	if s.cfg.IntrospectToolHint != "" && catalog.Schema != nil {
		s.registerIntrospectTool(mcpServer, catalog)
	}
	if s.cfg.ValidateToolHint != "" && catalog.Schema != nil {
		s.registerValidateTool(mcpServer, catalog)
	}
	if s.cfg.ExplorerGraphRef != "" {
		s.registerExplorerTool(mcpServer)
	}

	if catalog.Schema != nil {
		docs := searchDocumentsFromSchema(catalog.Schema, s.cfg.MutationMode)
		if idx, err := searchindex.Build(docs); err != nil {
			s.log.Error(err, "failed to rebuild search index, search tool will see a stale index")
		} else {
			if s.search != nil {
				_ = s.search.Close()
			}
			s.search = idx
			if s.cfg.SearchToolHint != "" {
				s.registerSearchTool(mcpServer, catalog)
			}
		}
	}

	s.mcpServer = mcpServer
}

// searchDocumentsFromSchema indexes every type reachable from the schema's
// Query root (and Mutation root, when mutations are exposed at all) by its
// root-to-type path, per spec.md §4.10.
func searchDocumentsFromSchema(schema *gqlschema.Snapshot, mode operation.MutationMode) map[string]searchindex.Document {
	includeMutation := mode != operation.MutationModeNone
	paths := schema.RootPaths(includeMutation)

	docs := make(map[string]searchindex.Document, len(paths))
	for typeName, path := range paths {
		def := schema.Definition(typeName)
		if def == nil {
			continue
		}
		var fields []string
		for _, f := range def.Fields {
			fields = append(fields, f.Name)
		}
		docs[typeName] = searchindex.Document{
			TypeName:    typeName,
			Description: def.Description,
			Fields:      strings.Join(fields, " "),
			RootPath:    path,
		}
	}
	return docs
}

func (s *Server) registerOperationTool(mcpServer *mcp.Server, op *operation.Operation) {
	tool := &mcp.Tool{
		Name:         op.Name,
		Description:  op.Description,
		InputSchema:  op.InputSchema,
		OutputSchema: op.OutputSchema,
	}

	handler := func(ctx context.Context, req *mcp.CallToolRequest, input map[string]any) (*mcp.CallToolResult, any, error) {
		return s.invokeOperation(ctx, op, input, req)
	}

	mcp.AddTool(mcpServer, tool, handler)
}

func (s *Server) invokeOperation(ctx context.Context, op *operation.Operation, input map[string]any, req *mcp.CallToolRequest) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	incoming := IncomingHeaders(ctx)

	outHeaders := headers.BuildRequestHeaders(s.log, s.cfg.StaticHeaders, s.cfg.ForwardHeaders, incoming, bearerToken(s, incoming), s.cfg.HeaderTransform)

	inv := graphqlinvoker.Invocation{
		OperationName: op.Name,
		Variables:     filterVariables(op.InputSchema, input),
	}
	if op.PersistedQueryID != "" {
		inv.PersistedQueryID = op.PersistedQueryID
	} else {
		inv.Query = op.SourceText
	}

	result, err := s.invoker.Invoke(ctx, inv, outHeaders)
	duration := time.Since(start).Seconds()
	if err != nil {
		s.health.RecordRejection(op.Name, "graphql_request_failed")
		return nil, nil, fmt.Errorf("graphql request failed for %s: %w", op.Name, err)
	}

	if result.IsError {
		s.health.RecordRejection(op.Name, "graphql_error")
	} else {
		s.health.RecordSuccess(op.Name, duration)
	}

	return &mcp.CallToolResult{
		IsError:           result.IsError,
		Content:           []mcp.Content{&mcp.TextContent{Text: result.Text}},
		StructuredContent: result.StructuredContent,
	}, nil, nil
}

// filterVariables drops any key from input that the operation's input
// schema does not declare, matching spec.md §4.7: unknown keys are dropped
// silently rather than forwarded to the upstream GraphQL server, which
// would otherwise reject them as undeclared variables.
func filterVariables(inputSchema map[string]any, input map[string]any) map[string]any {
	properties, _ := inputSchema["properties"].(map[string]any)
	if properties == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(input))
	for k, v := range input {
		if _, declared := properties[k]; declared {
			out[k] = v
		}
	}
	return out
}

// bearerToken returns the incoming request's authorization header value
// unchanged, or "" when auth passthrough is disabled. It does not validate
// the token; validation belongs to the auth/OAuth middleware this bridge
// runs behind (an explicit Non-goal).
func bearerToken(s *Server, incoming http.Header) string {
	if s.cfg.DisableAuthTokenPassthrough {
		return ""
	}
	return incoming.Get("authorization")
}
