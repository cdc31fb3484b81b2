package bundle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFetchTimeout bounds a single bundle transfer. Bundles are tens to
// hundreds of megabytes, so this is generous but finite.
const DefaultFetchTimeout = 5 * time.Minute

// Fetcher retrieves a bundle blob by name and returns the path of a local
// file containing it. The whole blob must be on disk before it can be
// opened; there is no streaming contract.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// HTTPFetcher downloads bundles from a well-known static location,
// {baseURL}/{name}.db, into a local directory. Already-downloaded files are
// reused.
type HTTPFetcher struct {
	baseURL string
	dir     string
	client  *http.Client
}

// NewHTTPFetcher creates a fetcher that stores downloads under dir.
func NewHTTPFetcher(baseURL, dir string) *HTTPFetcher {
	return &HTTPFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		dir:     dir,
		client:  &http.Client{Timeout: DefaultFetchTimeout},
	}
}

// Fetch downloads the named bundle unless a prior download already exists.
func (f *HTTPFetcher) Fetch(ctx context.Context, name string) (string, error) {
	dest := filepath.Join(f.dir, name+".db")
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create bundle directory: %w", err)
	}

	url := fmt.Sprintf("%s/%s.db", f.baseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	// Download to a temporary file first so a partial transfer never
	// masquerades as a complete bundle.
	tmp, err := os.CreateTemp(f.dir, name+".*.partial")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, name string) (string, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, name string) (string, error) {
	return f(ctx, name)
}
