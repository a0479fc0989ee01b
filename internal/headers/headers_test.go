package headers

import (
	"net/http"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestBuildRequestHeaders_IncludesStaticHeaders(t *testing.T) {
	static := http.Header{}
	static.Set("x-api-key", "static-key")
	static.Set("user-agent", "mcp-server")

	result := BuildRequestHeaders(logr.Discard(), static, nil, http.Header{}, "", nil)

	assert.Equal(t, "static-key", result.Get("x-api-key"))
	assert.Equal(t, "mcp-server", result.Get("user-agent"))
}

func TestBuildRequestHeaders_ForwardsConfiguredHeaders(t *testing.T) {
	incoming := http.Header{}
	incoming.Set("x-tenant-id", "tenant-123")
	incoming.Set("x-trace-id", "trace-456")
	incoming.Set("other-header", "ignored")

	result := BuildRequestHeaders(logr.Discard(), http.Header{}, []string{"x-tenant-id", "x-trace-id"}, incoming, "", nil)

	assert.Equal(t, "tenant-123", result.Get("x-tenant-id"))
	assert.Equal(t, "trace-456", result.Get("x-trace-id"))
	assert.Empty(t, result.Get("other-header"))
}

func TestBuildRequestHeaders_AddsBearerTokenWhenPresent(t *testing.T) {
	result := BuildRequestHeaders(logr.Discard(), http.Header{}, nil, http.Header{}, "Bearer test-token", nil)
	assert.Equal(t, "Bearer test-token", result.Get("authorization"))
}

func TestBuildRequestHeaders_SkipsBearerTokenWhenEmpty(t *testing.T) {
	result := BuildRequestHeaders(logr.Discard(), http.Header{}, nil, http.Header{}, "", nil)
	assert.Empty(t, result.Get("authorization"))
}

func TestBuildRequestHeaders_ForwardsSessionID(t *testing.T) {
	incoming := http.Header{}
	incoming.Set("mcp-session-id", "session-123")

	result := BuildRequestHeaders(logr.Discard(), http.Header{}, nil, incoming, "", nil)
	assert.Equal(t, "session-123", result.Get("mcp-session-id"))
}

func TestBuildRequestHeaders_CombinedScenario(t *testing.T) {
	static := http.Header{}
	static.Set("x-api-key", "static-key")

	incoming := http.Header{}
	incoming.Set("x-tenant-id", "tenant-123")
	incoming.Set("mcp-session-id", "session-456")
	incoming.Set("ignored-header", "should-not-appear")

	result := BuildRequestHeaders(logr.Discard(), static, []string{"x-tenant-id"}, incoming, "Bearer oauth-token", nil)

	assert.Equal(t, "static-key", result.Get("x-api-key"))
	assert.Equal(t, "tenant-123", result.Get("x-tenant-id"))
	assert.Equal(t, "session-456", result.Get("mcp-session-id"))
	assert.Equal(t, "Bearer oauth-token", result.Get("authorization"))
	assert.Empty(t, result.Get("ignored-header"))
}

func TestBuildRequestHeaders_TransformRunsLastAndCanOverride(t *testing.T) {
	static := http.Header{}
	static.Set("authorization", "original-auth")

	result := BuildRequestHeaders(logr.Discard(), static, nil, http.Header{}, "", func(h http.Header) {
		h.Set("authorization", "transformed-auth")
	})

	assert.Equal(t, "transformed-auth", result.Get("authorization"))
}

func TestBuildRequestHeaders_TransformSeesFullyAssembledHeaders(t *testing.T) {
	incoming := http.Header{}
	incoming.Set("x-forwarded", "forwarded-value")
	incoming.Set("mcp-session-id", "session-abc")

	static := http.Header{}
	static.Set("x-static", "static-value")

	var sawAllHeaders bool
	transform := func(h http.Header) {
		sawAllHeaders = h.Get("x-static") != "" && h.Get("x-forwarded") != "" && h.Get("mcp-session-id") != ""
		h.Set("x-transform-ran", "true")
	}

	result := BuildRequestHeaders(logr.Discard(), static, []string{"x-forwarded"}, incoming, "", transform)

	assert.True(t, sawAllHeaders)
	assert.Equal(t, "true", result.Get("x-transform-ran"))
}

func TestBuildRequestHeaders_TransformCanRemoveHeaders(t *testing.T) {
	static := http.Header{}
	static.Set("x-api-key", "static-key")
	static.Set("x-secret", "should-be-removed")

	result := BuildRequestHeaders(logr.Discard(), static, nil, http.Header{}, "", func(h http.Header) {
		h.Del("x-secret")
	})

	assert.Equal(t, "static-key", result.Get("x-api-key"))
	assert.Empty(t, result.Get("x-secret"))
}

func TestForwardHeaders_NoHeadersByDefault(t *testing.T) {
	incoming := http.Header{}
	incoming.Set("x-tenant-id", "tenant-123")
	outgoing := http.Header{}

	forwardHeaders(logr.Discard(), nil, incoming, outgoing)

	assert.Empty(t, outgoing)
}

func TestForwardHeaders_BlocksHopByHopHeaders(t *testing.T) {
	incoming := http.Header{}
	incoming.Set("connection", "keep-alive")
	incoming.Set("content-length", "1234")
	outgoing := http.Header{}

	forwardHeaders(logr.Discard(), []string{"connection", "content-length"}, incoming, outgoing)

	assert.Empty(t, outgoing.Get("connection"))
	assert.Empty(t, outgoing.Get("content-length"))
}

func TestForwardHeaders_CaseInsensitiveMatching(t *testing.T) {
	incoming := http.Header{}
	incoming.Set("x-tenant-id", "tenant-123")
	outgoing := http.Header{}

	forwardHeaders(logr.Discard(), []string{"X-Tenant-ID"}, incoming, outgoing)

	assert.Equal(t, "tenant-123", outgoing.Get("x-tenant-id"))
}

func TestForwardHeaders_ProxyAuthorizationWarnedButBlocked(t *testing.T) {
	incoming := http.Header{}
	incoming.Set("proxy-authorization", "Basic creds")
	outgoing := http.Header{}

	forwardHeaders(logr.Discard(), []string{"proxy-authorization"}, incoming, outgoing)

	assert.Empty(t, outgoing.Get("proxy-authorization"))
}
