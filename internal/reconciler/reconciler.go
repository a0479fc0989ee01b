package reconciler

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

// Notifier is notified after every catalog rebuild, while the write lock is
// still held, mirroring running.rs's notify_tool_list_changed call inside
// update_schema/update_operations. Implemented by internal/peers.Registry.
type Notifier interface {
	NotifyToolListChanged(ctx context.Context)
}

// Event is the single multiplexed input to the reconcile loop, matching
// spec.md's unified Event channel (§5) and original_source's Event enum.
type Event struct {
	Schema       *gqlschema.Snapshot
	Operations   []operation.RawOperation
	SchemaErr    error
	OperationErr error
	Shutdown     bool
}

// Reconciler rebuilds the Catalog every time a schema or operation-set
// change arrives, skipping (and logging) individual operations that fail
// to validate against the current schema rather than aborting the rebuild.
type Reconciler struct {
	Store         *Store
	Notifier      Notifier
	Log           logr.Logger
	MutationMode  operation.MutationMode
	CustomScalars operation.CustomScalarMap

	// DisableTypeDescription, DisableSchemaDescription, and EnableOutputSchema
	// mirror the config keys of the same name and are forwarded verbatim into
	// every operation.Options built by buildTools.
	DisableTypeDescription   bool
	DisableSchemaDescription bool
	EnableOutputSchema       bool

	// Mask optionally restricts which operation names may become tools.
	// Nil means "allow everything."
	Mask *Mask

	// OnCatalogChange, if set, runs while the write lock is still held,
	// after the new catalog is installed but before Notifier is told about
	// it — giving a tool registrar (internal/mcpserver) and the search
	// index (internal/searchindex) a chance to rebuild themselves from the
	// new catalog before any peer is told the tool list changed.
	OnCatalogChange func(*Catalog)

	rawOperations []operation.RawOperation
}

func New(store *Store, notifier Notifier, log logr.Logger, mode operation.MutationMode, scalars operation.CustomScalarMap) *Reconciler {
	return &Reconciler{
		Store:         store,
		Notifier:      notifier,
		Log:           log,
		MutationMode:  mode,
		CustomScalars: scalars,
	}
}

// Run consumes events until ctx is cancelled or a Shutdown event arrives.
func (r *Reconciler) Run(ctx context.Context, events <-chan Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Shutdown {
				return
			}
			r.handle(ctx, ev)
		}
	}
}

func (r *Reconciler) handle(ctx context.Context, ev Event) {
	switch {
	case ev.SchemaErr != nil:
		r.Log.Error(ev.SchemaErr, "schema source reported an error, keeping previous schema")
		return
	case ev.OperationErr != nil:
		r.Log.Error(ev.OperationErr, "operation source reported an error, keeping previous operations")
		return
	case ev.Schema != nil:
		r.updateSchema(ctx, ev.Schema)
	case ev.Operations != nil:
		r.updateOperations(ctx, ev.Operations)
	}
}

// updateSchema installs a new schema and re-materializes every known raw
// operation against it, dropping (with a logged warning, not a crash) any
// operation that no longer validates — this is the "changing schema
// invalidates outdated operations" behavior.
func (r *Reconciler) updateSchema(ctx context.Context, schema *gqlschema.Snapshot) {
	r.Store.Lock()
	defer r.Store.Unlock()

	tools := r.buildTools(schema, r.rawOperations)
	catalog := &Catalog{Schema: schema, Tools: tools}
	r.Store.SetLocked(catalog)
	if r.OnCatalogChange != nil {
		r.OnCatalogChange(catalog)
	}
	r.Notifier.NotifyToolListChanged(ctx)
}

// updateOperations replaces the raw operation set and re-materializes it
// against the current schema. An empty or all-invalid batch still installs
// an (empty) tool catalog rather than leaving the previous one in place,
// matching running.rs's "invalid operations should not crash the server"
// test: the server stays up, it just has fewer tools.
func (r *Reconciler) updateOperations(ctx context.Context, raw []operation.RawOperation) {
	r.Store.Lock()
	defer r.Store.Unlock()

	r.rawOperations = raw
	schema := r.Store.CurrentLocked().Schema
	tools := r.buildTools(schema, raw)
	catalog := &Catalog{Schema: schema, Tools: tools}
	r.Store.SetLocked(catalog)
	if r.OnCatalogChange != nil {
		r.OnCatalogChange(catalog)
	}
	r.Notifier.NotifyToolListChanged(ctx)
}

func (r *Reconciler) buildTools(schema *gqlschema.Snapshot, raw []operation.RawOperation) map[string]*operation.Operation {
	tools := map[string]*operation.Operation{}
	if schema == nil {
		return tools
	}
	opts := operation.Options{
		Mode:                     r.MutationMode,
		DisableTypeDescription:   r.DisableTypeDescription,
		DisableSchemaDescription: r.DisableSchemaDescription,
		EnableOutputSchema:       r.EnableOutputSchema,
	}
	for _, rawOp := range raw {
		op, err := operation.FromDocument(rawOp, schema, r.CustomScalars, opts)
		if err != nil {
			r.Log.Error(err, "skipping operation that failed to build", "source", rawOp.SourcePath)
			continue
		}
		if !r.Mask.Allows(op.Name) {
			r.Log.V(1).Info("skipping operation excluded by mask", "name", op.Name)
			continue
		}
		tools[op.Name] = op
	}
	return tools
}
