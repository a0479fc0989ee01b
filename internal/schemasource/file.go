// Package schemasource implements the schema-source variants named in
// spec.md §4.3 (C3): a watched local file, a registry-backed poll, and a
// static in-memory SDL string. Each variant emits gqlschema.Snapshot values
// onto a channel as the underlying schema changes.
package schemasource

import (
	"context"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/apollographql/graphql-mcp-bridge/internal/gqlschema"
)

// Event carries either a freshly parsed snapshot or an error, mirroring
// original_source's SchemaEvent enum (UpdateSchema / NoMoreSchema on a
// terminal error).
type Event struct {
	Snapshot *gqlschema.Snapshot
	Err      error
}

// WatchFile parses path once immediately, then re-parses on every
// filesystem write or create and re-emits only when the file's contents
// changed (by digest) and still parse, using fsnotify the way a file-based config
// reloader in this corpus would (no pack repo imports fsnotify directly;
// this is the ecosystem-standard choice, see DESIGN.md).
func WatchFile(ctx context.Context, log logr.Logger, path string) (<-chan Event, error) {
	out := make(chan Event, 1)
	var lastDigest string

	readAndParse := func() (*gqlschema.Snapshot, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return gqlschema.Parse(path, string(data))
	}

	initial, err := readAndParse()
	if err != nil {
		return nil, err
	}
	lastDigest = initial.Digest()
	out <- Event{Snapshot: initial}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		defer watcher.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					log.Error(err, "failed to re-read schema file", "path", path)
					continue
				}
				snap, err := gqlschema.Parse(path, string(data))
				if err != nil {
					log.Error(err, "schema file failed to parse, keeping previous schema", "path", path)
					continue
				}
				if snap.Digest() == lastDigest {
					continue
				}
				lastDigest = snap.Digest()
				out <- Event{Snapshot: snap}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error(err, "schema file watcher error", "path", path)
			}
		}
	}()

	return out, nil
}
