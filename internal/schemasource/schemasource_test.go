package schemasource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_EmitsOnceThenCloses(t *testing.T) {
	ch, err := Static("type Query { x: String }")
	require.NoError(t, err)

	ev, ok := <-ch
	require.True(t, ok)
	require.NoError(t, ev.Err)
	assert.NotNil(t, ev.Snapshot)

	_, ok = <-ch
	assert.False(t, ok)
}

func TestWatchFile_EmitsInitialSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte("type Query { x: String }"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := WatchFile(ctx, testr.New(t), path)
	require.NoError(t, err)

	select {
	case ev := <-ch:
		require.NoError(t, ev.Err)
		require.NotNil(t, ev.Snapshot)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for initial schema event")
	}
}

func TestWatchFile_ReEmitsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte("type Query { x: String }"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := WatchFile(ctx, testr.New(t), path)
	require.NoError(t, err)
	<-ch // initial

	require.NoError(t, os.WriteFile(path, []byte("type Query { x: String y: Int }"), 0o644))

	select {
	case ev := <-ch:
		require.NoError(t, ev.Err)
		assert.NotNil(t, ev.Snapshot.Definition("Query"))
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for re-emitted schema event")
	}
}

func TestRegistryPoller_FetchesSDL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		w.Write([]byte(`{"data":{"variant":{"latestPublication":{"schema":{"document":"type Query { x: String }"}}}}}`))
	}))
	defer server.Close()

	poller := &RegistryPoller{Endpoint: server.URL, GraphRef: "my-graph@current", Interval: 50 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := poller.Poll(ctx, testr.New(t))
	select {
	case ev := <-ch:
		require.NoError(t, ev.Err)
		require.NotNil(t, ev.Snapshot)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for registry poll result")
	}
}
