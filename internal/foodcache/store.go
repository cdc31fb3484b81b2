package foodcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fooddex/fooddex/internal/sqlitedb"
	"github.com/fooddex/fooddex/pkg/types"
)

// hotTierSize bounds the in-memory tier in front of the persistent table.
const hotTierSize = 256

// Stats summarizes the cache contents.
type Stats struct {
	TotalCount     int   `json:"totalCount"`
	LoggedCount    int   `json:"loggedCount"`
	ViewedCount    int   `json:"viewedCount"`
	EstimatedBytes int64 `json:"estimatedBytes"`
}

// Store is the durable, reason-scoped cache of fully-hydrated food records.
// It is two-tiered: a bounded LRU of recently touched records in memory and
// a SQLite table underneath that survives process restarts.
//
// Records are replaced wholesale on write and treated as immutable by
// readers. Every operation may fail with a *types.StoreError; callers must
// treat cache failure as non-fatal and fall through to the bundle store.
type Store struct {
	db  *sql.DB
	hot *lru.Cache[types.FoodID, *types.CachedFood]
	now func() time.Time
}

// Open opens (creating if necessary) the cache database at path and applies
// pending migrations. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sqlitedb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply cache migrations: %w", err)
	}

	hot, err := lru.New[types.FoodID, *types.CachedFood](hotTierSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, hot: hot, now: time.Now}, nil
}

// Close closes the cache database.
func (s *Store) Close() error {
	s.hot.Purge()
	return s.db.Close()
}

const putQuery = `
	INSERT INTO cached_foods (
		fdc_id, description, data_type, brand_name, upc, ingredients,
		nutrients, portions, cached_at, cached_reason, expires_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(fdc_id) DO UPDATE SET
		description = excluded.description,
		data_type = excluded.data_type,
		brand_name = excluded.brand_name,
		upc = excluded.upc,
		ingredients = excluded.ingredients,
		nutrients = excluded.nutrients,
		portions = excluded.portions,
		cached_at = CASE
			WHEN cached_foods.cached_reason = 'logged'
			  AND excluded.cached_reason != 'logged' THEN cached_foods.cached_at
			ELSE excluded.cached_at
		END,
		cached_reason = CASE
			WHEN cached_foods.cached_reason = 'logged' THEN 'logged'
			ELSE excluded.cached_reason
		END,
		expires_at = CASE
			WHEN cached_foods.cached_reason = 'logged'
			  OR excluded.cached_reason = 'logged' THEN NULL
			ELSE excluded.expires_at
		END
`

// Put upserts a record by id, replacing any prior record wholesale.
//
// Retention is upgrade-only: a row whose stored reason is logged keeps that
// reason, its nil expiry, and its cache time no matter what reason the
// incoming record carries. The CASE expressions make the whole rule one atomic statement,
// where a read-then-write upsert would race and a naive upsert would
// silently downgrade logged history.
func (s *Store) Put(ctx context.Context, rec *types.CachedFood) error {
	nutrients, err := json.Marshal(rec.Nutrients)
	if err != nil {
		return storeError("put", err)
	}
	portions, err := json.Marshal(rec.Portions)
	if err != nil {
		return storeError("put", err)
	}

	var expiresAt interface{}
	if rec.ExpiresAt != nil {
		expiresAt = *rec.ExpiresAt
	}

	_, err = s.db.ExecContext(ctx, putQuery,
		int64(rec.ID), rec.Description, string(rec.DataType),
		nullable(rec.BrandName), nullable(rec.UPC), nullable(rec.Ingredients),
		string(nutrients), string(portions),
		rec.CachedAt, string(rec.Reason), expiresAt,
	)
	if err != nil {
		return storeError("put", err)
	}

	// The stored reason may differ from the incoming one (sticky logged),
	// so drop any hot copy and let the next Get reload the truth.
	s.hot.Remove(rec.ID)
	return nil
}

const getQuery = `
	SELECT fdc_id, description, data_type, brand_name, upc, ingredients,
	       nutrients, portions, cached_at, cached_reason, expires_at
	FROM cached_foods
	WHERE fdc_id = ?
`

// Get returns the cached record for id, or nil when absent. An expired
// record is deleted as a side effect and reported as a miss.
func (s *Store) Get(ctx context.Context, id types.FoodID) (*types.CachedFood, error) {
	now := s.now()

	if rec, ok := s.hot.Get(id); ok {
		if !rec.Expired(now) {
			return rec, nil
		}
		s.hot.Remove(id)
		if err := s.deleteRow(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	rec, err := s.getRow(ctx, id)
	if err != nil || rec == nil {
		return nil, err
	}
	if rec.Expired(now) {
		if err := s.deleteRow(ctx, id); err != nil {
			return nil, err
		}
		return nil, nil
	}

	s.hot.Add(id, rec)
	return rec, nil
}

// getRow reads one record from the persistent tier.
func (s *Store) getRow(ctx context.Context, id types.FoodID) (*types.CachedFood, error) {
	row := s.db.QueryRowContext(ctx, getQuery, int64(id))
	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get", err)
	}
	return rec, nil
}

func (s *Store) deleteRow(ctx context.Context, id types.FoodID) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM cached_foods WHERE fdc_id = ?", int64(id)); err != nil {
		return storeError("delete", err)
	}
	return nil
}

const searchQuery = `
	SELECT fdc_id, description, data_type, brand_name, upc, ingredients,
	       nutrients, portions, cached_at, cached_reason, expires_at
	FROM cached_foods
	WHERE lower(description) LIKE ? ESCAPE '\'
	   OR lower(COALESCE(brand_name, '')) LIKE ? ESCAPE '\'
	ORDER BY cached_at DESC
`

// SearchByText scans non-expired records for a case-insensitive substring
// match against description or brand name. Expired rows encountered during
// the scan are deleted as a side effect.
func (s *Store) SearchByText(ctx context.Context, query string, limit int) ([]types.FoodSummary, error) {
	summaries := make([]types.FoodSummary, 0, limit)
	if strings.TrimSpace(query) == "" || limit <= 0 {
		return summaries, nil
	}

	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := s.db.QueryContext(ctx, searchQuery, pattern, pattern)
	if err != nil {
		return nil, storeError("search", err)
	}
	defer func() { _ = rows.Close() }()

	now := s.now()
	var expired []types.FoodID
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, storeError("search", err)
		}
		if rec.Expired(now) {
			expired = append(expired, rec.ID)
			continue
		}
		if len(summaries) < limit {
			summaries = append(summaries, rec.FoodSummary)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("search", err)
	}

	for _, id := range expired {
		s.hot.Remove(id)
		if err := s.deleteRow(ctx, id); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

// ListByReason returns records retained for the given reason, most recently
// cached first. A limit <= 0 returns everything.
func (s *Store) ListByReason(ctx context.Context, reason types.CacheReason, limit int) ([]*types.CachedFood, error) {
	query := `
		SELECT fdc_id, description, data_type, brand_name, upc, ingredients,
		       nutrients, portions, cached_at, cached_reason, expires_at
		FROM cached_foods
		WHERE cached_reason = ?
		ORDER BY cached_at DESC
	`
	args := []interface{}{string(reason)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("list", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*types.CachedFood, 0)
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, storeError("list", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("list", err)
	}
	return records, nil
}

// DeleteByReason bulk-deletes every record retained for the given reason
// and returns the count. Used to reclaim space while preserving logged
// history.
func (s *Store) DeleteByReason(ctx context.Context, reason types.CacheReason) (int, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM cached_foods WHERE cached_reason = ?", string(reason))
	if err != nil {
		return 0, storeError("delete_by_reason", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, storeError("delete_by_reason", err)
	}
	s.hot.Purge()
	return int(deleted), nil
}

// DeleteExpired sweeps every record whose expiry has passed and returns the
// count. Get and SearchByText already delete expired rows lazily; this is
// the explicit sweep.
func (s *Store) DeleteExpired(ctx context.Context) (int, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM cached_foods WHERE expires_at IS NOT NULL AND expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, storeError("delete_expired", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, storeError("delete_expired", err)
	}
	s.hot.Purge()
	return int(deleted), nil
}

// Stats reports cache contents and an estimated on-disk size.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(cached_reason = 'logged'), 0),
		       COALESCE(SUM(cached_reason = 'viewed'), 0)
		FROM cached_foods
	`).Scan(&stats.TotalCount, &stats.LoggedCount, &stats.ViewedCount)
	if err != nil {
		return nil, storeError("stats", err)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		stats.EstimatedBytes = pageCount * pageSize
	}

	return stats, nil
}

// scanRecord decodes one cached_foods row through any Scan-shaped function.
func scanRecord(scan func(dest ...interface{}) error) (*types.CachedFood, error) {
	var rec types.CachedFood
	var dataType, reason, nutrients, portions string
	var brandName, upc, ingredients sql.NullString
	var expiresAt sql.NullInt64

	err := scan(
		&rec.ID, &rec.Description, &dataType, &brandName, &upc, &ingredients,
		&nutrients, &portions, &rec.CachedAt, &reason, &expiresAt,
	)
	if err != nil {
		return nil, err
	}

	rec.DataType = types.DataType(dataType)
	rec.BrandName = brandName.String
	rec.UPC = upc.String
	rec.Ingredients = ingredients.String
	rec.Reason = types.CacheReason(reason)
	if expiresAt.Valid {
		v := expiresAt.Int64
		rec.ExpiresAt = &v
	}

	if err := json.Unmarshal([]byte(nutrients), &rec.Nutrients); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(portions), &rec.Portions); err != nil {
		return nil, err
	}
	if rec.Nutrients == nil {
		rec.Nutrients = make([]types.Nutrient, 0)
	}
	if rec.Portions == nil {
		rec.Portions = make([]types.Portion, 0)
	}
	return &rec, nil
}

// storeError wraps a low-level failure as a classified StoreError.
func storeError(op string, err error) error {
	return &types.StoreError{Op: op, Reason: classifyStoreFailure(err), Err: err}
}

// classifyStoreFailure maps driver errors onto the store-error taxonomy.
// Both SQLite drivers surface these conditions in the error text.
func classifyStoreFailure(err error) types.StoreFailure {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "disk is full"), strings.Contains(msg, "database or disk is full"):
		return types.StoreQuotaExceeded
	case strings.Contains(msg, "malformed"), strings.Contains(msg, "not a database"):
		return types.StoreCorrupt
	default:
		return types.StoreUnavailable
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
