package bundle

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/fooddex/fooddex/internal/sqlitedb"
	"github.com/fooddex/fooddex/pkg/types"
)

// handle is one loaded bundle. Handles are created fully initialized and
// never mutated afterwards; the store replaces them wholesale on reload.
type handle struct {
	name     string
	path     string
	db       *sql.DB
	loadedAt time.Time
}

// Store owns the process-wide registry of loaded bundles and exposes
// read-only queries over the union of everything currently loaded.
//
// Concurrent EnsureLoaded calls for the same bundle name share a single
// underlying fetch+open via singleflight; a failed load leaves no handle
// behind, so a later call retries from scratch.
type Store struct {
	fetcher Fetcher
	logger  zerolog.Logger

	mu      sync.Mutex
	handles map[string]*handle
	order   []string // load order, drives union query precedence

	flight singleflight.Group
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a bundle store that loads bundles through fetcher.
func New(fetcher Fetcher, opts ...Option) *Store {
	s := &Store{
		fetcher: fetcher,
		logger:  zerolog.Nop(),
		handles: make(map[string]*handle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureLoaded loads every named bundle that is not already loaded.
// Distinct names load concurrently; duplicate requests for the same name
// (from this call or any other goroutine) share one fetch.
func (s *Store) EnsureLoaded(ctx context.Context, names []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return s.ensureOne(gctx, name)
		})
	}
	return g.Wait()
}

// ensureOne loads a single bundle, deduplicating concurrent requests.
func (s *Store) ensureOne(ctx context.Context, name string) error {
	s.mu.Lock()
	_, loaded := s.handles[name]
	s.mu.Unlock()
	if loaded {
		return nil
	}

	_, err, shared := s.flight.Do(name, func() (interface{}, error) {
		// Re-check: another caller may have completed the load between the
		// fast path above and entering the flight group.
		s.mu.Lock()
		_, loaded := s.handles[name]
		s.mu.Unlock()
		if loaded {
			return nil, nil
		}

		// The load continues even if the requesting caller goes away:
		// once the fetch cost is being paid, the result should land in
		// the shared registry for future callers. The fetcher applies
		// its own transfer timeout.
		h, err := s.load(context.WithoutCancel(ctx), name)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.handles[name] = h
		s.order = append(s.order, name)
		s.mu.Unlock()

		s.logger.Info().Str("bundle", name).Msg("bundle loaded")
		return nil, nil
	})
	if err != nil {
		s.logger.Warn().Str("bundle", name).Bool("shared", shared).Err(err).Msg("bundle load failed")
	}
	return err
}

// load fetches and opens one bundle, classifying failures.
func (s *Store) load(ctx context.Context, name string) (*handle, error) {
	path, err := s.fetcher.Fetch(ctx, name)
	if err != nil {
		return nil, types.NewLoadError(name, classifyFetchFailure(err), err)
	}

	db, err := sqlitedb.OpenReadOnly(path)
	if err != nil {
		return nil, types.NewLoadError(name, types.LoadCorrupt, err)
	}

	if err := validateSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, types.NewLoadError(name, types.LoadCorrupt, err)
	}

	return &handle{
		name:     name,
		path:     path,
		db:       db,
		loadedAt: time.Now(),
	}, nil
}

// classifyFetchFailure maps a fetch error onto the load-error taxonomy.
func classifyFetchFailure(err error) types.LoadFailure {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.LoadTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.LoadTimeout
	}
	return types.LoadUnavailable
}

// requiredTables is the fixed relational schema every bundle must carry.
var requiredTables = []string{"food", "branded_food", "nutrient", "food_nutrient", "food_portion"}

// validateSchema fails fast when a downloaded blob is not a bundle with the
// expected schema, so shape mismatches surface as a corrupt load instead of
// propagating bad rows into the domain model.
func validateSchema(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, table := range requiredTables {
		if !present[table] {
			return errors.New("missing required table " + table)
		}
	}
	return nil
}

// snapshot returns the loaded handles in load order.
func (s *Store) snapshot() []*handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	handles := make([]*handle, 0, len(s.order))
	for _, name := range s.order {
		handles = append(handles, s.handles[name])
	}
	return handles
}

// Loaded returns the names of all currently loaded bundles, in load order.
func (s *Store) Loaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// HasLoaded reports whether at least one bundle is loaded.
func (s *Store) HasLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles) > 0
}

// Close releases every loaded bundle. The store is unusable afterwards.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, h := range s.handles {
		if err := h.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.handles = make(map[string]*handle)
	s.order = nil
	return firstErr
}
