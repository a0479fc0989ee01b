// Package searchindex implements the in-memory full-text index behind the
// `search` built-in tool (C10): given a set of search terms, rank the
// GraphQL types reachable from the schema's root operation types by
// relevance over their type name, description, and field names, so a
// caller can discover an operation's shape without already knowing its
// name.
package searchindex

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Document is what gets indexed per schema type. RootPath is stored but not
// indexed: it is never matched against, only returned on a hit so the
// `search` tool can tree-shake that exact route from the root type down to
// this one (§4.10).
type Document struct {
	TypeName    string
	Description string
	Fields      string
	RootPath    []string
}

// Hit is a single search result: the matched type, the root-to-type path
// that reaches it, and bleve's relevance score.
type Hit struct {
	TypeName string
	RootPath []string
	Score    float64
}

// Index wraps an in-memory bleve index. It is rebuilt wholesale on every
// catalog change rather than incrementally updated, since schemas in this
// bridge are small enough that a full rebuild is cheap and avoids having to
// diff old/new type sets.
type Index struct {
	bleveIndex bleve.Index
	docs       map[string]Document
}

// Build indexes every type document in docs into a fresh in-memory index,
// keyed by type name.
func Build(docs map[string]Document) (*Index, error) {
	m := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("TypeName", textFieldMapping())
	docMapping.AddFieldMappingsAt("Description", textFieldMapping())
	docMapping.AddFieldMappingsAt("Fields", textFieldMapping())

	docMapping.AddSubDocumentMapping("RootPath", mapping.NewDocumentDisabledMapping())
	m.DefaultMapping = docMapping

	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory search index: %w", err)
	}

	batch := idx.NewBatch()
	for name, doc := range docs {
		if err := batch.Index(name, doc); err != nil {
			return nil, fmt.Errorf("failed to index type %s: %w", name, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to commit search index batch: %w", err)
	}

	stored := make(map[string]Document, len(docs))
	for name, doc := range docs {
		stored[name] = doc
	}

	return &Index{bleveIndex: idx, docs: stored}, nil
}

func textFieldMapping() *mapping.FieldMapping {
	fm := bleve.NewTextFieldMapping()
	fm.Analyzer = "en"
	return fm
}

// Search OR-combines a match query per term across TypeName, Description,
// and Fields (§4.10: "queries OR-combine the three indexed fields") and
// returns up to limit hits ordered by descending relevance. RootPath is
// read back from the in-memory document store kept alongside the index,
// since it was indexed as disabled (stored, not searched).
func (idx *Index) Search(terms []string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}

	var disjuncts []query.Query
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		for _, field := range []string{"TypeName", "Description", "Fields"} {
			mq := bleve.NewMatchQuery(term)
			mq.SetField(field)
			disjuncts = append(disjuncts, mq)
		}
	}
	if len(disjuncts) == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(disjuncts...), limit, 0, false)
	result, err := idx.bleveIndex.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hits = append(hits, Hit{TypeName: h.ID, RootPath: idx.docs[h.ID].RootPath, Score: h.Score})
	}
	return hits, nil
}

// Close releases the underlying bleve index's resources.
func (idx *Index) Close() error {
	return idx.bleveIndex.Close()
}
