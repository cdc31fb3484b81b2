// Package bundle manages downloadable food-database bundles.
//
// A bundle is an embedded relational datastore covering a subset of the
// food corpus (for example "core" or "proteins"). All bundles share one
// fixed schema, so the store can query the union of everything loaded
// transparently:
//
//   - food(fdc_id, description, data_type)
//   - branded_food(fdc_id, brand_name, upc, ingredients)
//   - nutrient(id, name, unit_name)
//   - food_nutrient(fdc_id, nutrient_id, amount)  -- amount is per 100 g
//   - food_portion(id, fdc_id, portion_description, gram_weight)
//
// # Loading
//
// Bundles are fetched whole from a static location and opened read-only.
// The central contract is load de-duplication: no matter how many callers
// concurrently request the same bundle name, exactly one fetch happens and
// every caller observes the same outcome. This is built on
// golang.org/x/sync/singleflight rather than a loading flag, which would
// admit a race where two callers both observe "not loading yet" and both
// start a fetch.
//
//	store := bundle.New(bundle.NewHTTPFetcher(baseURL, dir))
//	if err := store.EnsureLoaded(ctx, []string{"core", "proteins"}); err != nil {
//	    // classified as unavailable / corrupt / timeout, retryable
//	}
//
// A failed load leaves no handle behind; the next EnsureLoaded retries.
// Handles never transition backward: once loaded, a bundle stays loaded
// for the life of the store.
//
// # Queries
//
// SearchSummaries is the cheap substring pre-filter feeding the fuzzy
// ranking stage; FetchDetails hydrates one food with nutrients and
// portions; ResolveBarcode maps a scanned UPC to a food id. All queries
// decode rows with strict typing and report shape mismatches as corrupt
// loads instead of leaking zero values into the domain model.
package bundle
