package types

import "time"

// CacheReason records why a food record was retained in the local cache.
type CacheReason string

const (
	// ReasonViewed marks a time-limited entry: the user opened the food's
	// detail view but did not commit it anywhere.
	ReasonViewed CacheReason = "viewed"
	// ReasonLogged marks a permanent entry: the user committed the food to
	// their diary, so it must stay resolvable offline forever.
	ReasonLogged CacheReason = "logged"
)

// ViewedTTL is how long a viewed-only cache entry stays alive.
const ViewedTTL = 30 * 24 * time.Hour

// CachedFood is a persisted food record plus retention metadata.
// ExpiresAt is nil for logged entries (they never expire) and
// CachedAt + ViewedTTL for viewed entries, both in Unix milliseconds.
type CachedFood struct {
	FoodDetails
	CachedAt  int64       `json:"cachedAt"`
	Reason    CacheReason `json:"cachedReason"`
	ExpiresAt *int64      `json:"expiresAt,omitempty"`
}

// NewCachedFood builds a cache record from resolved details, applying the
// retention rule for the given reason.
func NewCachedFood(details *FoodDetails, reason CacheReason, now time.Time) *CachedFood {
	rec := &CachedFood{
		FoodDetails: *details,
		CachedAt:    now.UnixMilli(),
		Reason:      reason,
	}
	if reason == ReasonViewed {
		expires := now.Add(ViewedTTL).UnixMilli()
		rec.ExpiresAt = &expires
	}
	return rec
}

// Expired reports whether the record's expiry has passed.
// Logged records never expire.
func (c *CachedFood) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return now.UnixMilli() >= *c.ExpiresAt
}
