package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCachedFood_ViewedGetsExpiry(t *testing.T) {
	now := time.Now()
	details := &FoodDetails{FoodSummary: FoodSummary{ID: 1, Description: "Apple, raw"}}

	rec := NewCachedFood(details, ReasonViewed, now)
	require.NotNil(t, rec.ExpiresAt)
	assert.Equal(t, now.Add(ViewedTTL).UnixMilli(), *rec.ExpiresAt)
	assert.Equal(t, now.UnixMilli(), rec.CachedAt)
}

func TestNewCachedFood_LoggedNeverExpires(t *testing.T) {
	now := time.Now()
	rec := NewCachedFood(&FoodDetails{}, ReasonLogged, now)
	assert.Nil(t, rec.ExpiresAt)
	assert.False(t, rec.Expired(now.Add(100*365*24*time.Hour)))
}

func TestExpired_Boundary(t *testing.T) {
	now := time.Now()
	rec := NewCachedFood(&FoodDetails{}, ReasonViewed, now)

	expiry := time.UnixMilli(*rec.ExpiresAt)
	assert.False(t, rec.Expired(expiry.Add(-time.Millisecond)))
	assert.True(t, rec.Expired(expiry), "expiry is inclusive")
	assert.True(t, rec.Expired(expiry.Add(time.Millisecond)))
}
