// Package engine is the public facade of the offline food-database engine.
//
// An Engine bundles the three layers together: the bundle store (lazily
// loaded, read-only database bundles), the food cache (durable records of
// foods the user viewed or logged), and the search orchestrator. External
// collaborators, the UI layer above all, consume only this surface:
//
//	eng, err := engine.New(engine.Config{
//	    BundleBaseURL: "https://bundles.example.com",
//	    BundleDir:     "/var/lib/fooddex/bundles",
//	    CachePath:     "/var/lib/fooddex/cache.db",
//	})
//
//	resp, _ := eng.SearchFoods(ctx, "chicken", engine.SearchOptions{Limit: 25})
//	details, _ := eng.GetFoodDetails(ctx, resp.Results[0].ID, types.ReasonLogged)
//
// All operations block and take a context; callers wanting asynchrony run
// them on their own goroutines.
package engine
