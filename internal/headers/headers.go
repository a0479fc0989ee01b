// Package headers implements the request-header pipeline between an
// incoming MCP request and the outbound GraphQL request it triggers: a
// fixed set of static headers, a configurable forward list, bearer-token
// passthrough, mcp-session-id passthrough, and a final caller-supplied
// transform with full access to the assembled set.
package headers

import (
	"net/http"
	"strings"

	"github.com/go-logr/logr"
)

// sensitiveHeaders are warned about, but still forwarded, when a caller
// explicitly asks for them by name — except proxy-authorization, which is
// also hop-by-hop and so is warned about and then dropped.
var sensitiveHeaders = map[string]bool{
	"authorization":       true,
	"cookie":              true,
	"proxy-authorization": true,
	"x-api-key":           true,
}

// hopByHop headers are never forwarded, per RFC 7230 §6.1, regardless of
// whether the caller configured them in the forward list.
var hopByHop = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailers":            true,
	"transfer-encoding":   true,
	"upgrade":             true,
	"content-length":      true,
}

// Transform mutates the fully assembled outgoing header set. It runs last,
// after static headers, forwarded headers, bearer-token passthrough, and
// mcp-session-id passthrough have all been applied, so it can inspect or
// override anything the pipeline produced.
type Transform func(h http.Header)

// BuildRequestHeaders assembles the header set for an outbound GraphQL
// request. bearerToken is the empty string when no validated token is
// present or passthrough is disabled by the caller.
func BuildRequestHeaders(
	log logr.Logger,
	static http.Header,
	forwardNames []string,
	incoming http.Header,
	bearerToken string,
	transform Transform,
) http.Header {
	out := static.Clone()
	if out == nil {
		out = http.Header{}
	}

	forwardHeaders(log, forwardNames, incoming, out)

	if bearerToken != "" {
		out.Set("authorization", bearerToken)
	}

	if sessionID := incoming.Get("mcp-session-id"); sessionID != "" {
		out.Set("mcp-session-id", sessionID)
	}

	if transform != nil {
		transform(out)
	}

	return out
}

func forwardHeaders(log logr.Logger, names []string, incoming http.Header, outgoing http.Header) {
	for _, name := range names {
		canonical := strings.ToLower(name)
		value := incoming.Get(canonical)
		if value == "" {
			continue
		}

		if sensitiveHeaders[canonical] {
			log.Info("forwarding sensitive header to upstream GraphQL API", "header", canonical)
		}

		if hopByHop[canonical] {
			continue
		}

		outgoing.Set(canonical, value)
	}
}
