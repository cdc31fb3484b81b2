package bundle

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fooddex/fooddex/pkg/types"
)

// SearchSummaries runs a case-insensitive substring match against food
// descriptions and brand names across all loaded bundles, in load order,
// stopping once limitHint candidates are accumulated.
//
// These are candidates for the ranking stage, not final results; callers
// over-fetch because substring matching alone is a poor relevance signal.
// With no bundles loaded (or no matches) the result is empty, not an error.
func (s *Store) SearchSummaries(ctx context.Context, query string, limitHint int) ([]types.FoodSummary, error) {
	summaries := make([]types.FoodSummary, 0, limitHint)
	if strings.TrimSpace(query) == "" || limitHint <= 0 {
		return summaries, nil
	}

	for _, h := range s.snapshot() {
		remaining := limitHint - len(summaries)
		if remaining <= 0 {
			break
		}

		batch, err := searchBundle(ctx, h, query, remaining)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, batch...)
	}
	return summaries, nil
}

const searchQuery = `
	SELECT f.fdc_id, f.description, f.data_type, b.brand_name, b.upc
	FROM food f
	LEFT JOIN branded_food b ON b.fdc_id = f.fdc_id
	WHERE lower(f.description) LIKE ? ESCAPE '\'
	   OR lower(COALESCE(b.brand_name, '')) LIKE ? ESCAPE '\'
	LIMIT ?
`

// searchBundle scans one bundle for substring matches.
func searchBundle(ctx context.Context, h *handle, query string, limit int) ([]types.FoodSummary, error) {
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := h.db.QueryContext(ctx, searchQuery, pattern, pattern, limit)
	if err != nil {
		return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]types.FoodSummary, 0, limit)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
	}
	return summaries, nil
}

// scanSummary decodes one food row with strict typing; a shape mismatch is
// a scan error, never a zero-valued summary.
func scanSummary(rows *sql.Rows) (types.FoodSummary, error) {
	var summary types.FoodSummary
	var dataType string
	var brandName, upc sql.NullString

	if err := rows.Scan(&summary.ID, &summary.Description, &dataType, &brandName, &upc); err != nil {
		return types.FoodSummary{}, err
	}
	summary.DataType = types.DataType(dataType)
	summary.BrandName = brandName.String
	summary.UPC = upc.String
	return summary, nil
}

const detailsQuery = `
	SELECT f.fdc_id, f.description, f.data_type, b.brand_name, b.upc, b.ingredients
	FROM food f
	LEFT JOIN branded_food b ON b.fdc_id = f.fdc_id
	WHERE f.fdc_id = ?
`

const nutrientsQuery = `
	SELECT n.id, n.name, n.unit_name, fn.amount
	FROM food_nutrient fn
	JOIN nutrient n ON n.id = fn.nutrient_id
	WHERE fn.fdc_id = ?
	ORDER BY n.id
`

// Portions with NULL, zero, or negative gram weights are unusable for
// serving math and are filtered here, at the boundary.
const portionsQuery = `
	SELECT id, portion_description, gram_weight
	FROM food_portion
	WHERE fdc_id = ? AND gram_weight IS NOT NULL AND gram_weight > 0
	ORDER BY id
`

// FetchDetails queries loaded bundles in turn for the full food record.
// It returns nil with no error when the id is not present in any loaded
// bundle; the caller may need to load additional bundles and retry.
func (s *Store) FetchDetails(ctx context.Context, id types.FoodID) (*types.FoodDetails, error) {
	for _, h := range s.snapshot() {
		details, err := fetchBundleDetails(ctx, h, id)
		if err != nil {
			return nil, err
		}
		if details != nil {
			return details, nil
		}
	}
	return nil, nil
}

// fetchBundleDetails hydrates a food record from a single bundle.
func fetchBundleDetails(ctx context.Context, h *handle, id types.FoodID) (*types.FoodDetails, error) {
	var details types.FoodDetails
	var dataType string
	var brandName, upc, ingredients sql.NullString

	err := h.db.QueryRowContext(ctx, detailsQuery, int64(id)).Scan(
		&details.ID, &details.Description, &dataType, &brandName, &upc, &ingredients,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
	}
	details.DataType = types.DataType(dataType)
	details.BrandName = brandName.String
	details.UPC = upc.String
	details.Ingredients = ingredients.String

	if details.Nutrients, err = fetchNutrients(ctx, h, id); err != nil {
		return nil, err
	}
	if details.Portions, err = fetchPortions(ctx, h, id); err != nil {
		return nil, err
	}
	return &details, nil
}

// fetchNutrients returns the food's per-100g nutrient amounts. The slice is
// empty for sparse source data, never nil.
func fetchNutrients(ctx context.Context, h *handle, id types.FoodID) ([]types.Nutrient, error) {
	rows, err := h.db.QueryContext(ctx, nutrientsQuery, int64(id))
	if err != nil {
		return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	nutrients := make([]types.Nutrient, 0)
	for rows.Next() {
		var n types.Nutrient
		if err := rows.Scan(&n.NutrientID, &n.Name, &n.UnitName, &n.Amount); err != nil {
			return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
		}
		nutrients = append(nutrients, n)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
	}
	return nutrients, nil
}

// fetchPortions returns the food's usable portions, empty when none have a
// positive gram weight.
func fetchPortions(ctx context.Context, h *handle, id types.FoodID) ([]types.Portion, error) {
	rows, err := h.db.QueryContext(ctx, portionsQuery, int64(id))
	if err != nil {
		return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	portions := make([]types.Portion, 0)
	for rows.Next() {
		var p types.Portion
		var description sql.NullString
		if err := rows.Scan(&p.PortionID, &description, &p.GramWeight); err != nil {
			return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
		}
		p.Description = description.String
		portions = append(portions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewLoadError(h.name, types.LoadCorrupt, err)
	}
	return portions, nil
}

const barcodeQuery = `SELECT fdc_id FROM branded_food WHERE upc = ? LIMIT 1`

// ResolveBarcode looks up a branded food by its scanned barcode across all
// loaded bundles. A miss is reported as found=false, not an error.
func (s *Store) ResolveBarcode(ctx context.Context, code string) (types.FoodID, bool, error) {
	for _, h := range s.snapshot() {
		var id int64
		err := h.db.QueryRowContext(ctx, barcodeQuery, code).Scan(&id)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return 0, false, types.NewLoadError(h.name, types.LoadCorrupt, err)
		}
		return types.FoodID(id), true, nil
	}
	return 0, false, nil
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
