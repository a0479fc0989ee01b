package opsource

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

// manifestEntry is a single persisted-operation record as produced by
// Apollo's persisted query manifest format: a content hash the GraphQL
// endpoint already knows, paired with the literal body for tool-schema
// synthesis (the body is never sent over the wire once a hash is present,
// see internal/graphqlinvoker).
type manifestEntry struct {
	ID          string `json:"id"`
	Body        string `json:"body"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type manifestFile struct {
	Operations []manifestEntry `json:"operations"`
}

// LoadManifest reads a persisted-query manifest file once (manifests are
// treated as a deploy-time artifact, not hot-reloaded, matching
// original_source's treatment of the Manifest variant as a one-shot load
// rather than a watched stream).
func LoadManifest(path string) ([]operation.RawOperation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read operation manifest %s: %w", path, err)
	}

	var manifest manifestFile
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse operation manifest %s: %w", path, err)
	}

	raws := make([]operation.RawOperation, 0, len(manifest.Operations))
	for _, entry := range manifest.Operations {
		raws = append(raws, operation.RawOperation{
			SourcePath:          path,
			SourceText:          entry.Body,
			PersistedQueryID:    entry.ID,
			ExplicitDescription: entry.Description,
		})
	}
	return raws, nil
}
