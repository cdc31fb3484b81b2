package engine

import (
	"context"
	"time"

	"github.com/fooddex/fooddex/pkg/types"
)

// GetFoodDetails resolves one food id to full nutrient and portion detail,
// cache-first. A nil reason resolves without touching retention; otherwise
// a successful bundle resolution is written back into the cache with that
// reason. Returns nil with no error when the food exists nowhere: "not
// found" is a normal outcome, distinct from the I/O failures reported as
// *types.ResolveError.
func (e *Engine) GetFoodDetails(ctx context.Context, id types.FoodID, reason types.CacheReason) (*types.FoodDetails, error) {
	// Cache hit ends the lookup; no bundle access occurs. Cache failure is
	// never fatal, the bundle store remains the source of truth.
	rec, err := e.cache.Get(ctx, id)
	if err != nil {
		e.logger.Warn().Int64("id", int64(id)).Err(err).Msg("cache read failed, falling through to bundles")
	}
	if rec != nil {
		// The hit may still change retention: a previously viewed food the
		// user now logs must upgrade to permanent. The sticky upsert keeps
		// this safe in the other direction.
		if reason != "" && reason != rec.Reason {
			record := types.NewCachedFood(&rec.FoodDetails, reason, time.Now())
			if err := e.cache.Put(ctx, record); err != nil {
				e.logger.Warn().Int64("id", int64(id)).Err(err).Msg("cache write failed")
			}
		}
		return &rec.FoodDetails, nil
	}

	if !e.bundles.HasLoaded() {
		if err := e.bundles.EnsureLoaded(ctx, e.essentials); err != nil {
			return nil, &types.ResolveError{ID: id, Err: err}
		}
	}

	details, err := e.bundles.FetchDetails(ctx, id)
	if err != nil {
		return nil, &types.ResolveError{ID: id, Err: err}
	}
	if details == nil {
		return nil, nil
	}

	if reason != "" {
		record := types.NewCachedFood(details, reason, time.Now())
		if err := e.cache.Put(ctx, record); err != nil {
			// The details are already in hand; a failed cache write must
			// not take them away from the caller.
			e.logger.Warn().Int64("id", int64(id)).Err(err).Msg("cache write failed")
		}
	}

	return details, nil
}

// LookupByBarcode resolves a scanned code to full food details, caching the
// hit as viewed. A miss is a normal nil result so callers can route it to
// their create-custom-food flow.
func (e *Engine) LookupByBarcode(ctx context.Context, code string) (*types.FoodDetails, error) {
	if !e.bundles.HasLoaded() {
		if err := e.bundles.EnsureLoaded(ctx, e.essentials); err != nil {
			return nil, &types.ResolveError{Err: err}
		}
	}

	id, found, err := e.bundles.ResolveBarcode(ctx, code)
	if err != nil {
		return nil, &types.ResolveError{Err: err}
	}
	if !found {
		return nil, nil
	}

	return e.GetFoodDetails(ctx, id, types.ReasonViewed)
}
