// Package types provides shared domain types for the fooddex engine.
//
// This package defines the food data model used across all components:
// summaries produced by search, fully-hydrated details produced by the
// resolvers, and cache records with retention metadata.
//
// # Core Types
//
// FoodSummary is the lightweight search-result view of a food:
//
//	summary := types.FoodSummary{
//	    ID:          100,
//	    Description: "Chicken Breast, Raw",
//	    DataType:    types.DataTypeFoundational,
//	}
//
// FoodDetails adds ingredients, nutrients, and portions. Nutrient amounts
// are always per 100 grams; Portion gram weights are always positive.
//
// CachedFood is a FoodDetails plus retention metadata. Entries cached with
// ReasonViewed expire after ViewedTTL; entries cached with ReasonLogged
// never expire, and a logged entry is never downgraded back to viewed.
//
// # Errors
//
// The error taxonomy mirrors the engine's recovery policy:
//
//   - LoadError: bundle fetch/open failures, recoverable by retry
//   - StoreError: local-cache failures, always recovered by falling
//     through to the bundle store
//   - ResolveError: a load failure hit while resolving details with no
//     cache hit available
//
// A food that simply does not exist is reported as a nil result, never as
// an error.
package types
