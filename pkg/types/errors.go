package types

import (
	"errors"
	"fmt"
)

// LoadFailure classifies a bundle load failure. Every reason is recoverable
// by retrying the load.
type LoadFailure string

const (
	LoadUnavailable LoadFailure = "bundle_unavailable"
	LoadCorrupt     LoadFailure = "corrupt"
	LoadTimeout     LoadFailure = "timeout"
)

// LoadError is a failed bundle fetch or open.
type LoadError struct {
	Bundle string
	Reason LoadFailure
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load bundle %q: %s: %v", e.Bundle, e.Reason, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError wraps err as a classified bundle load failure.
func NewLoadError(bundle string, reason LoadFailure, err error) *LoadError {
	return &LoadError{Bundle: bundle, Reason: reason, Err: err}
}

// AsLoadError unwraps err to a *LoadError if one is in the chain.
func AsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// StoreFailure classifies a persistent-cache failure. The cache is an
// optimization, never a source of truth: callers recover from every store
// failure by falling through to the bundle store.
type StoreFailure string

const (
	StoreUnavailable   StoreFailure = "unavailable"
	StoreQuotaExceeded StoreFailure = "quota_exceeded"
	StoreCorrupt       StoreFailure = "corrupt"
)

// StoreError is a failed local-cache operation.
type StoreError struct {
	Op     string
	Reason StoreFailure
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("food cache %s: %s: %v", e.Op, e.Reason, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ResolveError is a bundle-layer failure encountered while resolving food
// details with no cache hit to fall back on. "Not found" is never a
// ResolveError; it is a normal nil result.
type ResolveError struct {
	ID  FoodID
	Err error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve food %d: %v", e.ID, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
