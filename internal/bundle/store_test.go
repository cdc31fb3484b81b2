package bundle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fooddex/fooddex/internal/sqlitedb"
	"github.com/fooddex/fooddex/pkg/types"
)

const testBundleSchema = `
	CREATE TABLE food (fdc_id INTEGER PRIMARY KEY, description TEXT, data_type TEXT);
	CREATE TABLE branded_food (fdc_id INTEGER, brand_name TEXT, upc TEXT, ingredients TEXT);
	CREATE TABLE nutrient (id INTEGER PRIMARY KEY, name TEXT, unit_name TEXT);
	CREATE TABLE food_nutrient (fdc_id INTEGER, nutrient_id INTEGER, amount REAL);
	CREATE TABLE food_portion (id INTEGER PRIMARY KEY, fdc_id INTEGER, portion_description TEXT, gram_weight REAL);
`

// createTestBundle fabricates a valid bundle file and returns its path.
// Extra statements seed rows on top of the fixed schema.
func createTestBundle(t *testing.T, dir, name string, seed ...string) string {
	t.Helper()

	path := filepath.Join(dir, name+".db")
	db, err := sqlitedb.Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, db.Close()) }()

	_, err = db.Exec(testBundleSchema)
	require.NoError(t, err)
	for _, stmt := range seed {
		_, err = db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

// fixtureFetcher serves pre-built bundle files and counts fetches per name.
type fixtureFetcher struct {
	mu      sync.Mutex
	paths   map[string]string
	fetches map[string]*int32
	delay   time.Duration
}

func newFixtureFetcher() *fixtureFetcher {
	return &fixtureFetcher{
		paths:   make(map[string]string),
		fetches: make(map[string]*int32),
	}
}

func (f *fixtureFetcher) add(name, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths[name] = path
	f.fetches[name] = new(int32)
}

func (f *fixtureFetcher) count(name string) int32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return atomic.LoadInt32(f.fetches[name])
}

func (f *fixtureFetcher) Fetch(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	path, ok := f.paths[name]
	counter := f.fetches[name]
	f.mu.Unlock()

	if !ok {
		return "", fmt.Errorf("no such bundle: %s", name)
	}
	atomic.AddInt32(counter, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return path, nil
}

func setupTestStore(t *testing.T) (*Store, *fixtureFetcher) {
	t.Helper()

	dir := t.TempDir()
	fetcher := newFixtureFetcher()
	fetcher.add("core", createTestBundle(t, dir, "core",
		`INSERT INTO food VALUES (100, 'Chicken Breast, Raw', 'foundation_food')`,
		`INSERT INTO food VALUES (101, 'Chicken Thigh, Raw', 'foundation_food')`,
		`INSERT INTO food VALUES (102, 'Chia Seeds', 'foundation_food')`,
		`INSERT INTO nutrient VALUES (1003, 'Protein', 'G')`,
		`INSERT INTO nutrient VALUES (1008, 'Energy', 'KCAL')`,
		`INSERT INTO food_nutrient VALUES (100, 1008, 120.0)`,
		`INSERT INTO food_nutrient VALUES (100, 1003, 22.5)`,
		`INSERT INTO food_portion VALUES (1, 100, 'breast', 174.0)`,
		`INSERT INTO food_portion VALUES (2, 100, NULL, NULL)`,
		`INSERT INTO food_portion VALUES (3, 100, 'bad', 0)`,
		`INSERT INTO food_portion VALUES (4, 100, 'worse', -5.0)`,
	))
	fetcher.add("branded", createTestBundle(t, dir, "branded",
		`INSERT INTO food VALUES (200, 'Chicken Noodle Soup', 'branded_food')`,
		`INSERT INTO branded_food VALUES (200, 'SoupCo', '0123456789012', 'chicken, noodles, water')`,
	))

	return New(fetcher), fetcher
}

func TestEnsureLoaded_Dedup(t *testing.T) {
	store, fetcher := setupTestStore(t)
	defer store.Close()
	fetcher.delay = 20 * time.Millisecond

	ctx := context.Background()
	const callers = 16

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.EnsureLoaded(ctx, []string{"core"})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		assert.NoError(t, errs[i])
	}
	assert.Equal(t, int32(1), fetcher.count("core"), "concurrent callers must share one fetch")
	assert.Equal(t, []string{"core"}, store.Loaded())
}

func TestEnsureLoaded_AlreadyLoadedIsNoop(t *testing.T) {
	store, fetcher := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.EnsureLoaded(ctx, []string{"core"}))
	require.NoError(t, store.EnsureLoaded(ctx, []string{"core"}))
	assert.Equal(t, int32(1), fetcher.count("core"))
}

func TestEnsureLoaded_MultipleBundles(t *testing.T) {
	store, _ := setupTestStore(t)
	defer store.Close()

	require.NoError(t, store.EnsureLoaded(context.Background(), []string{"core", "branded"}))
	assert.True(t, store.HasLoaded())
	assert.Len(t, store.Loaded(), 2)
}

func TestEnsureLoaded_FailureIsRetryable(t *testing.T) {
	dir := t.TempDir()
	path := createTestBundle(t, dir, "core", `INSERT INTO food VALUES (1, 'Apple', 'foundation_food')`)

	var calls int32
	fetcher := FetcherFunc(func(ctx context.Context, name string) (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", fmt.Errorf("connection refused")
		}
		return path, nil
	})
	store := New(fetcher)
	defer store.Close()

	ctx := context.Background()
	err := store.EnsureLoaded(ctx, []string{"core"})
	require.Error(t, err)
	le, ok := types.AsLoadError(err)
	require.True(t, ok)
	assert.Equal(t, types.LoadUnavailable, le.Reason)
	assert.Equal(t, "core", le.Bundle)
	assert.False(t, store.HasLoaded(), "a failed load must not leave a handle behind")

	// A failed handle is retryable, not wedged
	require.NoError(t, store.EnsureLoaded(ctx, []string{"core"}))
	assert.True(t, store.HasLoaded())
}

func TestEnsureLoaded_TimeoutClassified(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, name string) (string, error) {
		return "", fmt.Errorf("fetch: %w", context.DeadlineExceeded)
	})
	store := New(fetcher)
	defer store.Close()

	err := store.EnsureLoaded(context.Background(), []string{"core"})
	le, ok := types.AsLoadError(err)
	require.True(t, ok)
	assert.Equal(t, types.LoadTimeout, le.Reason)
}

func TestEnsureLoaded_GarbageBlobIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "core.db")
	require.NoError(t, os.WriteFile(garbage, []byte("this is not a database"), 0644))

	store := New(FetcherFunc(func(ctx context.Context, name string) (string, error) {
		return garbage, nil
	}))
	defer store.Close()

	err := store.EnsureLoaded(context.Background(), []string{"core"})
	le, ok := types.AsLoadError(err)
	require.True(t, ok)
	assert.Equal(t, types.LoadCorrupt, le.Reason)
}

func TestEnsureLoaded_MissingTablesIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "core.db")
	db, err := sqlitedb.Open(path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE unrelated (id INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	store := New(FetcherFunc(func(ctx context.Context, name string) (string, error) {
		return path, nil
	}))
	defer store.Close()

	loadErr := store.EnsureLoaded(context.Background(), []string{"core"})
	le, ok := types.AsLoadError(loadErr)
	require.True(t, ok)
	assert.Equal(t, types.LoadCorrupt, le.Reason)
	assert.Contains(t, le.Err.Error(), "missing required table")
}
