package opsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-logr/logr"

	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

// CollectionPoller polls Apollo's operation collection API, trying each
// entry in DiscoveryURLs in turn until one responds — the fallback behavior
// original_source's operation_collection.rs applies across its platform-API
// discovery endpoints (SUPPLEMENTED FEATURES in SPEC_FULL.md) — rather than
// hardcoding a single endpoint.
type CollectionPoller struct {
	CollectionID  string
	DiscoveryURLs []string
	APIKey        string
	HTTPClient    *http.Client
	Interval      time.Duration
}

type collectionGraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables"`
}

// pollingQuery fetches just the collection's lastUpdatedAt so a poll that
// finds nothing new can skip the more expensive entries fetch.
const pollingQuery = `query OperationCollectionPollingQuery($collectionId: ID!) { operationCollection(id: $collectionId) { lastUpdatedAt } }`

// entriesQuery fetches the full operation bodies, only issued when
// pollingQuery reports a newer lastUpdatedAt than we have cached.
const entriesQuery = `query OperationCollectionEntriesQuery($collectionId: ID!) { operationCollection(id: $collectionId) { operations { id name body } } }`

type collectionOperation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Body string `json:"body"`
}

// Poll starts polling and returns a channel of Events, closed when ctx is
// cancelled.
func (p *CollectionPoller) Poll(ctx context.Context, log logr.Logger) <-chan Event {
	if p.HTTPClient == nil {
		p.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if p.Interval == 0 {
		p.Interval = 30 * time.Second
	}

	out := make(chan Event, 1)

	go func() {
		defer close(out)
		var lastUpdatedAt string
		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		poll := func() {
			current, err := p.fetchLastUpdatedAt(ctx)
			if err != nil {
				out <- Event{Err: err}
				return
			}
			if current == lastUpdatedAt && lastUpdatedAt != "" {
				return
			}
			entries, err := p.fetchEntries(ctx)
			if err != nil {
				out <- Event{Err: err}
				return
			}
			lastUpdatedAt = current

			raws := make([]operation.RawOperation, 0, len(entries))
			for _, e := range entries {
				raws = append(raws, operation.RawOperation{
					SourcePath: fmt.Sprintf("collection:%s/%s", p.CollectionID, e.ID),
					SourceText: e.Body,
				})
			}
			out <- Event{Operations: raws}
		}

		poll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				poll()
			}
		}
	}()

	return out
}

func (p *CollectionPoller) fetchLastUpdatedAt(ctx context.Context) (string, error) {
	var decoded struct {
		Data struct {
			OperationCollection struct {
				LastUpdatedAt string `json:"lastUpdatedAt"`
			} `json:"operationCollection"`
		} `json:"data"`
	}
	if err := p.doRequest(ctx, pollingQuery, &decoded); err != nil {
		return "", err
	}
	return decoded.Data.OperationCollection.LastUpdatedAt, nil
}

func (p *CollectionPoller) fetchEntries(ctx context.Context) ([]collectionOperation, error) {
	var decoded struct {
		Data struct {
			OperationCollection struct {
				Operations []collectionOperation `json:"operations"`
			} `json:"operationCollection"`
		} `json:"data"`
	}
	if err := p.doRequest(ctx, entriesQuery, &decoded); err != nil {
		return nil, err
	}
	return decoded.Data.OperationCollection.Operations, nil
}

// doRequest tries each discovery URL in turn, returning the first
// successful response.
func (p *CollectionPoller) doRequest(ctx context.Context, query string, out any) error {
	body, err := json.Marshal(collectionGraphQLRequest{
		Query:     query,
		Variables: map[string]any{"collectionId": p.CollectionID},
	})
	if err != nil {
		return err
	}

	var lastErr error
	for _, url := range p.DiscoveryURLs {
		reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		resp, err := p.tryURL(reqCtx, url, body, out)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		_ = resp
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no discovery URLs configured for operation collection %s", p.CollectionID)
	}
	return fmt.Errorf("operation collection poll failed across all discovery URLs: %w", lastErr)
}

func (p *CollectionPoller) tryURL(ctx context.Context, url string, body []byte, out any) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("apollographql-client-name", "graphql-mcp-bridge")
	if p.APIKey != "" {
		req.Header.Set("x-api-key", p.APIKey)
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp, fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resp, err
	}
	return resp, nil
}
