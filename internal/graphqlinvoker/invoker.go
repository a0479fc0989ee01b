// Package graphqlinvoker translates an MCP tool call into an outbound
// GraphQL HTTP request, and the GraphQL response back into an MCP
// CallToolResult. This is component C7.
package graphqlinvoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request describes the body sent to the GraphQL endpoint. Exactly one of
// Query or PersistedQueryID (via Extensions) identifies the operation to run.
type Request struct {
	Query         string         `json:"query,omitempty"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

// Response is the raw GraphQL response envelope.
type Response struct {
	Data   json.RawMessage `json:"data,omitempty"`
	Errors []ResponseError `json:"errors,omitempty"`
}

// ResponseError is a single entry of a GraphQL response's "errors" array.
type ResponseError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// Result is the MCP-shaped outcome of invoking a GraphQL operation.
type Result struct {
	IsError           bool
	Text              string
	StructuredContent any
}

const clientLibraryName = "graphql-mcp-bridge"

// Invoker issues GraphQL requests against a fixed endpoint.
type Invoker struct {
	Endpoint string
	Client   *http.Client
	Version  string
}

// New builds an Invoker with the same HTTP client timeout the teacher's
// GraphQLClient used.
func New(endpoint, version string) *Invoker {
	return &Invoker{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 30 * time.Second},
		Version:  version,
	}
}

// PersistedQueryID and Query are mutually exclusive identifiers for the
// operation being invoked; Query carries the literal document text when the
// operation is not registered as a persisted query.
type Invocation struct {
	Query            string
	OperationName    string
	PersistedQueryID string
	Variables        map[string]any
}

// Invoke sends inv to the GraphQL endpoint through headers and translates
// the response into an MCP CallToolResult shape.
func (i *Invoker) Invoke(ctx context.Context, inv Invocation, headers http.Header) (*Result, error) {
	req := Request{
		OperationName: inv.OperationName,
		Variables:     inv.Variables,
		Extensions: map[string]any{
			"clientLibrary": map[string]any{
				"name":    clientLibraryName,
				"version": i.Version,
			},
		},
	}

	if inv.PersistedQueryID != "" {
		req.Extensions["persistedQuery"] = map[string]any{
			"version":    1,
			"sha256Hash": inv.PersistedQueryID,
		}
	} else {
		req.Query = inv.Query
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GraphQL request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, i.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL request: %w", err)
	}
	httpReq.Header = headers.Clone()
	if httpReq.Header == nil {
		httpReq.Header = http.Header{}
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := i.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GraphQL response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GraphQL request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var gqlResp Response
	if err := json.Unmarshal(respBody, &gqlResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal GraphQL response: %w", err)
	}

	return translate(gqlResp), nil
}

// translate mirrors the original server's is_error derivation: an error
// result only when errors are present AND data is absent or null.
func translate(resp Response) *Result {
	hasErrors := len(resp.Errors) > 0
	hasData := len(resp.Data) > 0 && string(resp.Data) != "null"

	isError := hasErrors && !hasData

	var structured any
	if hasData {
		_ = json.Unmarshal(resp.Data, &structured)
	} else if hasErrors {
		structured = map[string]any{"errors": resp.Errors}
	}

	text, _ := json.MarshalIndent(struct {
		Data   json.RawMessage `json:"data,omitempty"`
		Errors []ResponseError `json:"errors,omitempty"`
	}{resp.Data, resp.Errors}, "", "  ")

	return &Result{
		IsError:           isError,
		Text:              string(text),
		StructuredContent: structured,
	}
}
