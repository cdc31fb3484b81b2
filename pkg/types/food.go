package types

// FoodID is the stable integer identity of a food record, assigned by the
// source database (the FDC id). It is the dedup key everywhere in the engine.
type FoodID int64

// DataType classifies the provenance of a food record
type DataType string

const (
	DataTypeFoundational DataType = "foundation_food"
	DataTypeBranded      DataType = "branded_food"
	DataTypeSurvey       DataType = "survey_fndds_food"
	DataTypeSRLegacy     DataType = "sr_legacy_food"
)

// FoodSummary is the search-result view of a food record.
// BrandName and UPC are empty for non-branded foods.
type FoodSummary struct {
	ID          FoodID   `json:"id"`
	Description string   `json:"description"`
	DataType    DataType `json:"dataType"`
	BrandName   string   `json:"brandName,omitempty"`
	UPC         string   `json:"upc,omitempty"`
}

// Nutrient is a single nutrient amount for a food.
// Amount is always expressed per 100 grams of the food; scaling to a
// serving is the caller's responsibility.
type Nutrient struct {
	NutrientID int64   `json:"nutrientId"`
	Name       string  `json:"name"`
	UnitName   string  `json:"unitName"`
	Amount     float64 `json:"amount"`
}

// Portion is a household measure for a food. GramWeight is always > 0;
// rows with NULL, zero, or negative weights are filtered out at the
// bundle boundary and never reach this type.
type Portion struct {
	PortionID   int64   `json:"portionId"`
	Description string  `json:"description,omitempty"`
	GramWeight  float64 `json:"gramWeight"`
}

// DefaultPortion is the synthetic 100 g portion callers fall back to when a
// food has no usable portions of its own.
func DefaultPortion() Portion {
	return Portion{Description: "100 g", GramWeight: 100}
}

// FoodDetails is the fully-hydrated view of a food: summary fields plus
// ingredients, nutrients, and portions. Nutrients and Portions may be empty
// (sparse source data) but are never nil.
type FoodDetails struct {
	FoodSummary
	Ingredients string     `json:"ingredients,omitempty"`
	Nutrients   []Nutrient `json:"nutrients"`
	Portions    []Portion  `json:"portions"`
}
