// Package peers tracks connected MCP transports and broadcasts
// notifications/tools/list_changed to all of them whenever the reconciler
// installs a new catalog. This is component C9.
package peers

import (
	"context"
	"errors"
	"sync"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
)

// Peer is anything capable of notifying its connected client that the tool
// list changed. It is satisfied by an *mcp.ServerSession from the MCP SDK.
type Peer interface {
	NotifyToolListChanged(ctx context.Context) error
}

// ClosedError should be returned (or wrapped) by a Peer whose transport has
// gone away, or implemented by the Peer itself to report a known-closed
// transport, so the registry can drop it instead of logging a warning on
// every future broadcast.
type ClosedError interface {
	Closed() bool
}

// Registry is the set of currently connected peers, keyed by a generated
// session id. It is rebuilt wholesale under its write lock on every
// broadcast that finds dead peers, matching the "iterate, skip closed,
// drop on send error" loop in running.rs's notify_tool_list_changed.
type Registry struct {
	mu   sync.RWMutex
	log  logr.Logger
	byID map[string]Peer
}

func NewRegistry(log logr.Logger) *Registry {
	return &Registry{log: log, byID: map[string]Peer{}}
}

// Add registers a newly connected peer and returns its session id, used as
// the `mcp-session-id` value for that connection.
func (r *Registry) Add(p Peer) string {
	id := uuid.NewString()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id] = p
	return id
}

// Remove drops a peer, e.g. on transport close.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
}

// NotifyToolListChanged implements reconciler.Notifier: it fans the
// notification out to every connected peer, drops any peer that reports its
// transport closed (before sending, or through a ClosedError returned from
// the send), and logs-but-keeps any peer whose send fails with any other
// error.
func (r *Registry) NotifyToolListChanged(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, peer := range r.byID {
		if closed, ok := peer.(ClosedError); ok && closed.Closed() {
			delete(r.byID, id)
			continue
		}
		err := peer.NotifyToolListChanged(ctx)
		if err == nil {
			continue
		}
		var closed ClosedError
		if errors.As(err, &closed) && closed.Closed() {
			delete(r.byID, id)
			continue
		}
		r.log.Error(err, "tool-list-changed notification failed, keeping peer registered", "peer", id)
	}
}

// Len reports the number of currently registered peers, used by tests.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
