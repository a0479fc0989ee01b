// Command graphql-mcp-server wires a decoded configuration into the bridge:
// a schema source and an operation source feeding a single reconciler,
// which rebuilds the MCP tool catalog and a peer broadcast registry every
// time either changes, served over stdio or Streamable HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apollographql/graphql-mcp-bridge/internal/config"
	"github.com/apollographql/graphql-mcp-bridge/internal/graphqlinvoker"
	"github.com/apollographql/graphql-mcp-bridge/internal/health"
	"github.com/apollographql/graphql-mcp-bridge/internal/mcpserver"
	"github.com/apollographql/graphql-mcp-bridge/internal/opsource"
	"github.com/apollographql/graphql-mcp-bridge/internal/peers"
	"github.com/apollographql/graphql-mcp-bridge/internal/reconciler"
	"github.com/apollographql/graphql-mcp-bridge/internal/schemasource"
)

const version = "0.1.0"

// defaultRegistryEndpoint is Apollo Studio's GraphQL API, used when a
// schema source selects the registry variant. Grounded on
// original_source/crates/apollo-mcp-server/src/platform_api.rs's default.
const defaultRegistryEndpoint = "https://graphql.api.apollographql.com/api/graphql"

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "graphql-mcp-server: -config is required")
		os.Exit(2)
	}

	data, err := os.ReadFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphql-mcp-server: failed to read config: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Parse(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphql-mcp-server: invalid config: %v\n", err)
		os.Exit(1)
	}

	log := configureLogging(cfg.LogLevel, cfg.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(err, "graphql-mcp-server exited with an error")
		os.Exit(1)
	}
}

// configureLogging mirrors the teacher's ConfigureLogging (pkg/graphqlmcp/logging.go),
// adapted to logr's current FromSlogHandler bridge rather than the
// deprecated go-logr/logr/slogr subpackage the teacher imported.
func configureLogging(level string, jsonOutput bool) logr.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: slogLevel}
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
	return logr.FromSlogHandler(handler)
}

func run(ctx context.Context, cfg *config.Config, log logr.Logger) error {
	schemaEvents, err := startSchemaSource(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start schema source: %w", err)
	}

	opEvents, err := startOperationSource(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start operation source: %w", err)
	}

	store := reconciler.NewStore()
	registry := peers.NewRegistry(log)

	reg := prometheus.NewRegistry()
	sink := health.NewSink(reg)

	invoker := graphqlinvoker.New(cfg.Endpoint, version)

	staticHeaders := http.Header{}
	for k, v := range cfg.StaticHeaders {
		staticHeaders.Set(k, v)
	}

	srv := mcpserver.New(mcpserver.Config{
		ExecuteToolHint:             cfg.ExecuteToolHint,
		IntrospectToolHint:          cfg.IntrospectToolHint,
		SearchToolHint:              cfg.SearchToolHint,
		ValidateToolHint:            cfg.ValidateToolHint,
		ExplorerGraphRef:            cfg.ExplorerGraphRef,
		MutationMode:                cfg.MutationModeValue(),
		ForwardHeaders:              cfg.ForwardHeaders,
		DisableAuthTokenPassthrough: cfg.DisableAuthTokenPassthrough,
		StaticHeaders:               staticHeaders,
		HeaderTransform:             nil,
		SearchLeafDepth:             cfg.SearchLeafDepth,
		SearchIntermediateDepth:     cfg.SearchIntermediateDepth,
	}, log, invoker, sink)

	rec := reconciler.New(store, registry, log, cfg.MutationModeValue(), cfg.CustomScalarMap())
	rec.Mask = reconciler.NewMask(cfg.OperationAllowList, cfg.OperationBlockList)
	rec.DisableTypeDescription = cfg.DisableTypeDescription
	rec.DisableSchemaDescription = cfg.DisableSchemaDescription
	rec.EnableOutputSchema = cfg.EnableOutputSchema
	rec.OnCatalogChange = srv.ApplyCatalog

	events := mergeEvents(ctx, schemaEvents, opEvents)
	go rec.Run(ctx, events)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	switch {
	case cfg.Transport.StreamableHTTP != nil:
		return runStreamableHTTP(ctx, cfg.Transport.StreamableHTTP, srv, mux, log)
	default:
		return runStdio(ctx, srv, log)
	}
}

// mergeEvents fans schema and operation source channels into the single
// reconciler.Event stream the reconciler consumes, mirroring
// original_source's unified server Event enum (schema/operations/errors are
// distinct variants of the same stream).
func mergeEvents(ctx context.Context, schemaEvents <-chan schemasource.Event, opEvents <-chan opsource.Event) <-chan reconciler.Event {
	out := make(chan reconciler.Event, 4)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-schemaEvents:
				if !ok {
					schemaEvents = nil
					if opEvents == nil {
						return
					}
					continue
				}
				out <- reconciler.Event{Schema: ev.Snapshot, SchemaErr: ev.Err}
			case ev, ok := <-opEvents:
				if !ok {
					opEvents = nil
					if schemaEvents == nil {
						return
					}
					continue
				}
				out <- reconciler.Event{Operations: ev.Operations, OperationErr: ev.Err}
			}
		}
	}()
	return out
}

func startSchemaSource(ctx context.Context, cfg *config.Config, log logr.Logger) (<-chan schemasource.Event, error) {
	switch {
	case cfg.Schema.File != "":
		return schemasource.WatchFile(ctx, log, cfg.Schema.File)
	case cfg.Schema.Registry != nil:
		poller := &schemasource.RegistryPoller{
			Endpoint: defaultRegistryEndpoint,
			GraphRef: cfg.Schema.Registry.GraphRef,
			Interval: 30 * time.Second,
		}
		return poller.Poll(ctx, log), nil
	default:
		return nil, fmt.Errorf("config.schema must set file or registry")
	}
}

func startOperationSource(ctx context.Context, cfg *config.Config, log logr.Logger) (<-chan opsource.Event, error) {
	switch {
	case len(cfg.Operations.Files) > 0:
		return opsource.WatchFiles(ctx, log, cfg.Operations.Files)
	case cfg.Operations.Manifest != "":
		raws, err := opsource.LoadManifest(cfg.Operations.Manifest)
		if err != nil {
			return nil, err
		}
		out := make(chan opsource.Event, 1)
		out <- opsource.Event{Operations: raws}
		close(out)
		return out, nil
	case cfg.Operations.Collection != nil:
		poller := &opsource.CollectionPoller{
			CollectionID:  cfg.Operations.Collection.CollectionID,
			DiscoveryURLs: cfg.Operations.Collection.DiscoveryURLs,
			Interval:      30 * time.Second,
		}
		return poller.Poll(ctx, log), nil
	default:
		return opsource.None(), nil
	}
}

func runStdio(ctx context.Context, srv *mcpserver.Server, log logr.Logger) error {
	log.Info("starting graphql-mcp-server over stdio")
	transport := mcp.NewStdioTransport()
	return srv.MCPServer().Run(ctx, transport)
}

// runStreamableHTTP serves the MCP server over the SDK's Streamable HTTP
// handler, the same construction the teacher's GetMux uses
// (pkg/graphqlmcp/http_server.go). t.StatefulMode selects between a
// per-session and a stateless server in original_source's transport
// config, but is not yet wired here: the SDK's per-handler options struct
// was not exercised anywhere in the example pack, so the option name
// would be a guess rather than a grounded one.
func runStreamableHTTP(ctx context.Context, t *config.StreamableHTTPTransport, srv *mcpserver.Server, mux *http.ServeMux, log logr.Logger) error {
	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return srv.MCPServer()
	}, nil)
	mux.Handle("/mcp", handler)

	addr := fmt.Sprintf("%s:%d", t.Address, t.Port)
	httpSrv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting graphql-mcp-server over streamable HTTP", "address", addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
