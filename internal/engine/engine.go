package engine

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fooddex/fooddex/internal/bundle"
	"github.com/fooddex/fooddex/internal/foodcache"
	"github.com/fooddex/fooddex/internal/search"
	"github.com/fooddex/fooddex/pkg/types"
)

// DefaultEssentials is the minimal bundle set auto-loaded on first use so
// basic search works without explicit user action.
var DefaultEssentials = []string{"core"}

// Config configures an Engine.
type Config struct {
	// BundleBaseURL is the static location bundles download from.
	BundleBaseURL string
	// BundleDir is the local directory downloaded bundles live in.
	BundleDir string
	// CachePath is the cache database file; ":memory:" for ephemeral.
	CachePath string
	// Essentials overrides DefaultEssentials when non-empty.
	Essentials []string
	// Fetcher overrides the HTTP fetcher; tests inject local fixtures here.
	Fetcher bundle.Fetcher
	// Logger defaults to a no-op logger.
	Logger zerolog.Logger
}

// Engine is the offline food-database search-and-cache engine. It owns the
// bundle registry, the local cache, and the search orchestrator, and is the
// only surface external collaborators consume.
//
// Engines are self-contained: multiple independent instances can coexist in
// one process (there is no package-level state), which is also what makes
// them testable side by side.
type Engine struct {
	bundles    *bundle.Store
	cache      *foodcache.Store
	search     *search.Orchestrator
	essentials []string
	logger     zerolog.Logger
}

// New constructs an engine from config. The cache opening is best-effort in
// spirit but a hard error here: an engine that cannot even open its cache
// file is misconfigured, which the caller should learn immediately.
func New(cfg Config) (*Engine, error) {
	fetcher := cfg.Fetcher
	if fetcher == nil {
		fetcher = bundle.NewHTTPFetcher(cfg.BundleBaseURL, cfg.BundleDir)
	}

	essentials := cfg.Essentials
	if len(essentials) == 0 {
		essentials = DefaultEssentials
	}

	cache, err := foodcache.Open(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open food cache: %w", err)
	}

	bundles := bundle.New(fetcher, bundle.WithLogger(cfg.Logger))

	return &Engine{
		bundles:    bundles,
		cache:      cache,
		search:     search.NewOrchestrator(cache, bundles, essentials, cfg.Logger),
		essentials: essentials,
		logger:     cfg.Logger,
	}, nil
}

// SearchOptions tunes one SearchFoods call.
type SearchOptions struct {
	Limit        int
	ExcludeCache bool
}

// SearchFoods returns the ranked result list for a free-text query.
func (e *Engine) SearchFoods(ctx context.Context, query string, opts SearchOptions) (*search.Response, error) {
	return e.search.Search(ctx, search.Request{
		Query:        query,
		Limit:        opts.Limit,
		IncludeCache: !opts.ExcludeCache,
	})
}

// PreloadEssentials loads the essential bundle set up front, so the first
// search does not pay the load latency. Unlike search, load failures here
// propagate: the caller asked explicitly and can offer a retry.
func (e *Engine) PreloadEssentials(ctx context.Context) error {
	return e.bundles.EnsureLoaded(ctx, e.essentials)
}

// LoadedBundles returns the names of currently loaded bundles.
func (e *Engine) LoadedBundles() []string {
	return e.bundles.Loaded()
}

// ClearViewed deletes every viewed-only cache record, reclaiming space
// while preserving logged history.
func (e *Engine) ClearViewed(ctx context.Context) (int, error) {
	return e.cache.DeleteByReason(ctx, types.ReasonViewed)
}

// ClearExpired sweeps expired cache records.
func (e *Engine) ClearExpired(ctx context.Context) (int, error) {
	return e.cache.DeleteExpired(ctx)
}

// CacheStats reports cache contents.
func (e *Engine) CacheStats(ctx context.Context) (*foodcache.Stats, error) {
	return e.cache.Stats(ctx)
}

// Close releases the bundle handles and the cache database.
func (e *Engine) Close() error {
	bundleErr := e.bundles.Close()
	cacheErr := e.cache.Close()
	if bundleErr != nil {
		return bundleErr
	}
	return cacheErr
}
