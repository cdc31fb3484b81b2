// Package search turns a free-text query into the ranked result list shown
// to the user.
//
// Search is two-stage. A cheap case-insensitive substring scan over the
// local cache and every loaded bundle produces an over-fetched candidate
// superset; a fuzzy similarity rerank with weighted fields (description,
// then brand, then data type) orders it and applies a hard cutoff. The
// candidate sources are merged with cache priority, de-duplicated by food
// id, and truncated to the caller's limit.
//
// Source failures never propagate out of Search: the cache tier is pure
// optimization and the bundle tier degrades to whatever is loaded.
package search
