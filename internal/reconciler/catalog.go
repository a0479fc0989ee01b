// Package reconciler owns the single source of truth for "what tools does
// this server currently expose": the current schema and the current set of
// materialized operations. It is component C5. A single goroutine consumes
// schema-change and operation-change events and rebuilds the catalog;
// readers (the MCP handler) take a read lock only for the duration of a
// lookup.
package reconciler

import (
	"sync"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

// Catalog is the current, consistent snapshot of schema + tools. It is
// replaced wholesale on every rebuild rather than mutated field-by-field,
// so a reader that captured a *Catalog under a read lock never observes a
// half-updated state after releasing the lock.
type Catalog struct {
	Schema *gqlschema.Snapshot
	Tools  map[string]*operation.Operation
}

// Store holds the live Catalog behind a RWMutex. Writers (the reconcile
// loop) hold the write lock for the entire rebuild-and-notify cycle;
// readers only ever hold the read lock long enough to copy out a pointer.
type Store struct {
	mu      sync.RWMutex
	catalog *Catalog
}

func NewStore() *Store {
	return &Store{catalog: &Catalog{Tools: map[string]*operation.Operation{}}}
}

// Get returns the current catalog. The returned value must be treated as
// immutable by the caller.
func (s *Store) Get() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Swap installs a new catalog, returning the previous one.
func (s *Store) Swap(c *Catalog) *Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.catalog
	s.catalog = c
	return prev
}

// Lock exposes the write lock directly for callers (the reconcile loop)
// that need to hold it across a multi-step rebuild instead of a single
// Swap call, matching running.rs's update_schema/update_operations, which
// keep the write lock held from rebuild through the tool-list-changed
// notification.
func (s *Store) Lock()   { s.mu.Lock() }
func (s *Store) Unlock() { s.mu.Unlock() }

// SetLocked installs a new catalog. Callers must hold the write lock
// (via Lock) before calling this and release it (via Unlock) only after
// any subscriber notification that must observe the new catalog.
func (s *Store) SetLocked(c *Catalog) {
	s.catalog = c
}

// CurrentLocked returns the catalog without acquiring a lock. Callers must
// already hold either the read or write lock.
func (s *Store) CurrentLocked() *Catalog {
	return s.catalog
}
