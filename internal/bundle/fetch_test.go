package bundle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_DownloadsAndReuses(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "/bundles/core.db", r.URL.Path)
		_, _ = w.Write([]byte("bundle-bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := NewHTTPFetcher(server.URL+"/bundles/", dir)
	ctx := context.Background()

	path, err := fetcher.Fetch(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "core.db"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("bundle-bytes"), data)

	// A second fetch reuses the file on disk.
	_, err = fetcher.Fetch(ctx, "core")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestHTTPFetcher_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.URL, t.TempDir())

	_, err := fetcher.Fetch(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestHTTPFetcher_NoPartialFileOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := NewHTTPFetcher(server.URL, dir)

	_, err := fetcher.Fetch(context.Background(), "core")
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "core.db"))
	assert.True(t, os.IsNotExist(statErr))
}
