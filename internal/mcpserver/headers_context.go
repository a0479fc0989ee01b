package mcpserver

import (
	"context"
	"net/http"
)

type incomingHeadersKey struct{}

// WithIncomingHeaders stashes the inbound MCP request's HTTP headers (for
// the Streamable HTTP transport) or an equivalent empty set (for stdio) on
// the context, so a tool handler can feed them into the header pipeline
// (C8) without the mcp-go-sdk's CallToolRequest needing to carry them
// itself. Grounded on the teacher's own passthruHeadersKey context-value
// pattern (pkg/graphqlmcp/graphql_executor.go).
func WithIncomingHeaders(ctx context.Context, h http.Header) context.Context {
	return context.WithValue(ctx, incomingHeadersKey{}, h)
}

// IncomingHeaders retrieves the headers stashed by WithIncomingHeaders,
// returning an empty, non-nil Header if none were set (e.g. under stdio).
func IncomingHeaders(ctx context.Context) http.Header {
	if h, ok := ctx.Value(incomingHeadersKey{}).(http.Header); ok && h != nil {
		return h
	}
	return http.Header{}
}
