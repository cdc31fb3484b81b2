// Package foodcache persists food records the user has actually touched,
// so search and detail lookups keep working with no bundles loaded.
//
// Every record carries a retention reason. Viewed records expire after
// thirty days; logged records never expire, and once a food is logged it
// can never be downgraded back to viewed by a later view. Expired rows are
// deleted lazily whenever a read encounters them, and DeleteExpired offers
// an explicit sweep.
//
// The store is an optimization, never a source of truth: callers swallow
// its errors and fall through to the bundle store.
package foodcache
