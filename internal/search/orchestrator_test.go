package search

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fooddex/fooddex/pkg/types"
)

type fakeCache struct {
	results []types.FoodSummary
	err     error
	calls   int
}

func (f *fakeCache) SearchByText(ctx context.Context, query string, limit int) ([]types.FoodSummary, error) {
	f.calls++
	return f.results, f.err
}

type fakeBundles struct {
	loaded      bool
	ensured     [][]string
	ensureErr   error
	results     []types.FoodSummary
	searchErr   error
	gotLimit    int
	searchCalls int
}

func (f *fakeBundles) HasLoaded() bool { return f.loaded }

func (f *fakeBundles) EnsureLoaded(ctx context.Context, names []string) error {
	f.ensured = append(f.ensured, names)
	if f.ensureErr == nil {
		f.loaded = true
	}
	return f.ensureErr
}

func (f *fakeBundles) SearchSummaries(ctx context.Context, query string, limitHint int) ([]types.FoodSummary, error) {
	f.searchCalls++
	f.gotLimit = limitHint
	return f.results, f.searchErr
}

func newTestOrchestrator(cache *fakeCache, bundles *fakeBundles) *Orchestrator {
	return NewOrchestrator(cache, bundles, []string{"core"}, zerolog.Nop())
}

func TestSearch_MergesAndRanks(t *testing.T) {
	cache := &fakeCache{results: []types.FoodSummary{summary(7, "Chicken Breast, Raw")}}
	bundles := &fakeBundles{loaded: true, results: []types.FoodSummary{
		summary(8, "Chicken"),
		summary(9, "Chia Seeds"),
	}}

	resp, err := newTestOrchestrator(cache, bundles).Search(context.Background(), Request{
		Query:        "chicken",
		IncludeCache: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, types.FoodID(8), resp.Results[0].ID)
	assert.Equal(t, types.FoodID(7), resp.Results[1].ID)
	assert.False(t, resp.HasMore)
}

func TestSearch_CacheWinsOnCollision(t *testing.T) {
	cache := &fakeCache{results: []types.FoodSummary{summary(7, "Chicken Breast, Raw")}}
	bundles := &fakeBundles{loaded: true, results: []types.FoodSummary{summary(7, "Chicken Breast")}}

	resp, err := newTestOrchestrator(cache, bundles).Search(context.Background(), Request{
		Query:        "chicken",
		IncludeCache: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Chicken Breast, Raw", resp.Results[0].Description, "the cache copy survives the merge")
}

func TestSearch_AutoLoadsEssentialsOnce(t *testing.T) {
	cache := &fakeCache{}
	bundles := &fakeBundles{}
	orch := newTestOrchestrator(cache, bundles)
	ctx := context.Background()

	_, err := orch.Search(ctx, Request{Query: "apple", IncludeCache: true})
	require.NoError(t, err)
	_, err = orch.Search(ctx, Request{Query: "apple", IncludeCache: true})
	require.NoError(t, err)

	require.Len(t, bundles.ensured, 1)
	assert.Equal(t, []string{"core"}, bundles.ensured[0])
}

func TestSearch_DegradesWhenEssentialLoadFails(t *testing.T) {
	cache := &fakeCache{results: []types.FoodSummary{summary(1, "Apple, raw")}}
	bundles := &fakeBundles{ensureErr: types.NewLoadError("core", types.LoadUnavailable, errors.New("offline"))}

	resp, err := newTestOrchestrator(cache, bundles).Search(context.Background(), Request{
		Query:        "apple",
		IncludeCache: true,
	})
	require.NoError(t, err, "a failed bundle load degrades results, it does not fail the search")
	require.Len(t, resp.Results, 1)
	assert.Equal(t, types.FoodID(1), resp.Results[0].ID)
}

func TestSearch_DegradesWhenCacheFails(t *testing.T) {
	cache := &fakeCache{err: &types.StoreError{Op: "search", Reason: types.StoreUnavailable, Err: errors.New("locked")}}
	bundles := &fakeBundles{loaded: true, results: []types.FoodSummary{summary(1, "Apple, raw")}}

	resp, err := newTestOrchestrator(cache, bundles).Search(context.Background(), Request{
		Query:        "apple",
		IncludeCache: true,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
}

func TestSearch_ExcludesCacheOnRequest(t *testing.T) {
	cache := &fakeCache{results: []types.FoodSummary{summary(1, "Apple, raw")}}
	bundles := &fakeBundles{loaded: true}

	resp, err := newTestOrchestrator(cache, bundles).Search(context.Background(), Request{
		Query:        "apple",
		IncludeCache: false,
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Zero(t, cache.calls)
}

func TestSearch_LimitDefaultsAndOverfetch(t *testing.T) {
	cache := &fakeCache{}
	bundles := &fakeBundles{loaded: true}

	_, err := newTestOrchestrator(cache, bundles).Search(context.Background(), Request{Query: "apple"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit*overfetchFactor, bundles.gotLimit)

	_, err = newTestOrchestrator(cache, bundles).Search(context.Background(), Request{Query: "apple", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit*overfetchFactor, bundles.gotLimit)
}

func TestSearch_TruncatesToLimit(t *testing.T) {
	var offline []types.FoodSummary
	for i := 0; i < 10; i++ {
		offline = append(offline, summary(types.FoodID(i+1), "Apple, raw"))
	}
	bundles := &fakeBundles{loaded: true, results: offline}

	resp, err := newTestOrchestrator(&fakeCache{}, bundles).Search(context.Background(), Request{
		Query: "apple",
		Limit: 3,
	})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
}

func TestSearch_EmptyQuery(t *testing.T) {
	bundles := &fakeBundles{}

	resp, err := newTestOrchestrator(&fakeCache{}, bundles).Search(context.Background(), Request{Query: ""})
	require.NoError(t, err)
	assert.NotNil(t, resp.Results)
	assert.Empty(t, resp.Results)
	assert.Zero(t, bundles.searchCalls, "an empty query touches no source")
}
