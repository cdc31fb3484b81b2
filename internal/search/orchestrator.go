package search

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/fooddex/fooddex/pkg/types"
)

const (
	// DefaultLimit applies when the caller does not specify one
	DefaultLimit = 25
	// MaxLimit caps the result list length
	MaxLimit = 100
	// overfetchFactor is how many substring candidates are gathered per
	// final result slot, so the fuzzy rerank has enough material.
	overfetchFactor = 10
)

// CacheSearcher is the slice of the local cache store the orchestrator
// consumes.
type CacheSearcher interface {
	SearchByText(ctx context.Context, query string, limit int) ([]types.FoodSummary, error)
}

// BundleSearcher is the slice of the bundle store the orchestrator consumes.
type BundleSearcher interface {
	HasLoaded() bool
	EnsureLoaded(ctx context.Context, names []string) error
	SearchSummaries(ctx context.Context, query string, limitHint int) ([]types.FoodSummary, error)
}

// Request describes one search.
type Request struct {
	Query string
	Limit int
	// IncludeCache clears to skip the local cache tier entirely.
	IncludeCache bool
}

// Response is a ranked, length-bounded result list.
type Response struct {
	Results []types.FoodSummary `json:"results"`
	// HasMore reports whether further results might exist online. In the
	// offline-only contract it is always false: there is no live search
	// behind this engine.
	HasMore bool `json:"hasMore"`
}

// Orchestrator produces the final ranked result list for a free-text query
// by merging cache and bundle candidates and fuzzy-reranking them.
type Orchestrator struct {
	cache      CacheSearcher
	bundles    BundleSearcher
	essentials []string
	logger     zerolog.Logger
}

// NewOrchestrator wires the two candidate sources together. essentials is
// the bundle set auto-loaded on the first search of the process lifetime.
func NewOrchestrator(cache CacheSearcher, bundles BundleSearcher, essentials []string, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cache:      cache,
		bundles:    bundles,
		essentials: essentials,
		logger:     logger,
	}
}

// Search runs the two-stage search: cheap substring superset from both
// tiers, then an expensive fuzzy rerank over the bounded candidate set.
// Fuzzy-matching the full corpus per keystroke is not tractable, so the
// prefilter trades recall for throughput; a query whose literal substring
// appears nowhere can miss true fuzzy matches.
//
// Source failures degrade the result set instead of propagating: a failed
// search shows no results, it does not crash the caller.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	o.validateRequest(&req)
	if req.Query == "" {
		return &Response{Results: make([]types.FoodSummary, 0)}, nil
	}

	// First use pays the essential-bundle load once per process lifetime.
	if !o.bundles.HasLoaded() {
		if err := o.bundles.EnsureLoaded(ctx, o.essentials); err != nil {
			o.logger.Warn().Err(err).Msg("essential bundle load failed, searching degraded")
		}
	}

	var cached []types.FoodSummary
	if req.IncludeCache {
		var err error
		cached, err = o.cache.SearchByText(ctx, req.Query, req.Limit)
		if err != nil {
			o.logger.Warn().Err(err).Msg("cache search failed, continuing without cache tier")
			cached = nil
		}
	}

	offline, err := o.bundles.SearchSummaries(ctx, req.Query, req.Limit*overfetchFactor)
	if err != nil {
		o.logger.Warn().Err(err).Msg("bundle search failed, continuing with cache tier only")
		offline = nil
	}

	merged := mergeCandidates(cached, offline)
	ranked := rankSummaries(req.Query, merged)
	if len(ranked) > req.Limit {
		ranked = ranked[:req.Limit]
	}

	return &Response{Results: ranked, HasMore: false}, nil
}

// validateRequest applies limit defaults and bounds.
func (o *Orchestrator) validateRequest(req *Request) {
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
}

// mergeCandidates concatenates cache results ahead of bundle results,
// de-duplicating by id. Cache entries win on collision: they are presumed
// fresher and already fully hydrated.
func mergeCandidates(cached, offline []types.FoodSummary) []types.FoodSummary {
	merged := make([]types.FoodSummary, 0, len(cached)+len(offline))
	seen := make(map[types.FoodID]struct{}, len(cached)+len(offline))

	for _, summary := range cached {
		if _, ok := seen[summary.ID]; ok {
			continue
		}
		seen[summary.ID] = struct{}{}
		merged = append(merged, summary)
	}
	for _, summary := range offline {
		if _, ok := seen[summary.ID]; ok {
			continue
		}
		seen[summary.ID] = struct{}{}
		merged = append(merged, summary)
	}
	return merged
}
