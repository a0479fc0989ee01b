// Package opsource implements the operation-source variants of spec.md
// §4.4 (C4): a set of watched local files, a persisted-query manifest, a
// polled operation collection, and a "none" source for introspection-only
// deployments. Every variant emits a full batch of operation.RawOperation
// on each change rather than an incremental diff, matching
// original_source's stream_file_changes.
package opsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsnotify/fsnotify"
	"github.com/go-logr/logr"

	"github.com/apollographql/graphql-mcp-bridge/internal/operation"
)

// Event carries a freshly loaded batch of raw operations, or an error that
// leaves the previous batch in place.
type Event struct {
	Operations []operation.RawOperation
	Err        error
}

// WatchFiles resolves paths (each either a single file or a directory) once
// to build the initial watch set, emits one batch immediately, and
// re-emits the full batch (re-resolving and re-reading every path)
// whenever anything in a watched directory changes. A directory entry is
// scanned non-recursively for .graphql files; empty files are skipped; the
// same canonical file reachable through two different configured paths is
// only loaded once. New files appearing in a watched directory after
// startup are picked up on the next change event, since each event
// triggers a full re-resolve rather than a per-path diff.
func WatchFiles(ctx context.Context, log logr.Logger, paths []string) (<-chan Event, error) {
	files, err := resolveGraphQLFiles(paths)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, 1)

	load := func() ([]operation.RawOperation, error) {
		resolved, err := resolveGraphQLFiles(paths)
		if err != nil {
			return nil, err
		}
		raws := make([]operation.RawOperation, 0, len(resolved))
		for _, p := range resolved {
			data, err := os.ReadFile(p)
			if err != nil {
				return nil, fmt.Errorf("failed to read operation file %s: %w", p, err)
			}
			if len(data) == 0 {
				continue
			}
			raws = append(raws, operation.RawOperation{SourcePath: p, SourceText: string(data)})
		}
		return raws, nil
	}

	initial, err := load()
	if err != nil {
		return nil, err
	}
	out <- Event{Operations: initial}

	dirs := watchDirs(paths, files)
	if len(dirs) == 0 {
		close(out)
		return out, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, err
		}
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
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				batch, err := load()
				if err != nil {
					log.Error(err, "failed to reload operation files, keeping previous batch")
					continue
				}
				out <- Event{Operations: batch}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error(err, "operation file watcher error")
			}
		}
	}()

	return out, nil
}

// resolveGraphQLFiles expands paths (files or directories, per spec.md
// §4.4) into the deduplicated set of .graphql files they name: a file entry
// is taken as-is, a directory entry is scanned non-recursively for
// .graphql files. Two entries that canonicalize to the same file (e.g. a
// direct path and a directory that also contains it) contribute it once
// (§8 Deduplication).
func resolveGraphQLFiles(paths []string) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	add := func(p string) error {
		canon, err := canonicalize(p)
		if err != nil {
			return fmt.Errorf("failed to resolve operation file path %s: %w", p, err)
		}
		if seen[canon] {
			return nil
		}
		seen[canon] = true
		files = append(files, p)
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to stat operation path %s: %w", p, err)
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read operation directory %s: %w", p, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".graphql" {
				continue
			}
			if err := add(filepath.Join(p, entry.Name())); err != nil {
				return nil, err
			}
		}
	}

	sort.Strings(files)
	return files, nil
}

// canonicalize resolves p to an absolute, symlink-resolved path so that two
// different configured entries naming the same file on disk dedup cleanly.
func canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

// watchDirs returns the set of directories to watch: every configured
// directory entry itself, plus the parent directory of every configured
// file entry and of every file resolveGraphQLFiles found inside a
// directory entry, so that a new .graphql file added to a watched
// directory is picked up on the next change event.
func watchDirs(paths, files []string) map[string]bool {
	dirs := map[string]bool{}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			dirs[p] = true
		}
	}
	for _, f := range files {
		dirs[filepath.Dir(f)] = true
	}
	return dirs
}

// None emits a single empty batch then closes, for introspection-only
// deployments that expose no file-backed tools.
func None() <-chan Event {
	out := make(chan Event, 1)
	out <- Event{Operations: nil}
	close(out)
	return out
}
