package schemasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
)

// Static emits a single snapshot of an already-known SDL string and then
// closes the channel. It is used by tests; no configuration key selects it,
// since the schema config only offers a file or a registry.
func Static(sdl string) (<-chan Event, error) {
	snap, err := gqlschema.Parse("static", sdl)
	if err != nil {
		return nil, err
	}
	out := make(chan Event, 1)
	out <- Event{Snapshot: snap}
	close(out)
	return out, nil
}

// RegistryPoller polls an Apollo-style graph registry endpoint for SDL
// changes on a fixed interval, grounded on the teacher's GraphQLClient
// introspection request shape (pkg/graphqlmcp/graphql.go) generalized from
// a one-shot introspection call to a polling loop.
type RegistryPoller struct {
	Endpoint   string
	GraphRef   string
	APIKey     string
	HTTPClient *http.Client
	Interval   time.Duration
}

type registryPollRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

const registrySDLQuery = `query GraphSDL($ref: ID!) { variant(ref: $ref) { ... on GraphVariant { latestPublication { schema { document } } } } }`

// Poll starts polling and returns a channel of Events. The channel is
// closed when ctx is cancelled.
func (p *RegistryPoller) Poll(ctx context.Context, log logr.Logger) <-chan Event {
	if p.HTTPClient == nil {
		p.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if p.Interval == 0 {
		p.Interval = 30 * time.Second
	}

	out := make(chan Event, 1)

	go func() {
		defer close(out)
		var lastDigest string
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		fetch := func() {
			sdl, err := p.fetchSDL(ctx)
			if err != nil {
				out <- Event{Err: err}
				return
			}
			snap, err := gqlschema.Parse(p.GraphRef, sdl)
			if err != nil {
				out <- Event{Err: err}
				return
			}
			if snap.Digest() == lastDigest {
				return
			}
			lastDigest = snap.Digest()
			out <- Event{Snapshot: snap}
		}

		fetch()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fetch()
			}
		}
	}()

	return out
}

func (p *RegistryPoller) fetchSDL(ctx context.Context) (string, error) {
	body, err := json.Marshal(registryPollRequest{
		Query:     registrySDLQuery,
		Variables: map[string]any{"ref": p.GraphRef},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("content-type", "application/json")
	if p.APIKey != "" {
		req.Header.Set("x-api-key", p.APIKey)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("registry poll failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded struct {
		Data struct {
			Variant struct {
				LatestPublication struct {
					Schema struct {
						Document string `json:"document"`
					} `json:"schema"`
				} `json:"latestPublication"`
			} `json:"variant"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", err
	}
	return decoded.Data.Variant.LatestPublication.Schema.Document, nil
}
