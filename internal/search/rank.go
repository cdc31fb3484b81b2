package search

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/fooddex/fooddex/pkg/types"
)

// Field weights for relevance scoring. The description is what the user is
// typing against; brand and data type only break ties.
const (
	weightDescription = 1.0
	weightBrand       = 0.6
	weightDataType    = 0.3
)

// maxEditDistance is the hard similarity cutoff: a candidate whose best
// field needs more edits than this is dropped entirely, not ranked low.
const maxEditDistance = 30

// scoredSummary pairs a candidate with its best weighted field score.
type scoredSummary struct {
	summary types.FoodSummary
	score   float64
}

// rankSummaries reranks substring-prefiltered candidates with a fuzzy
// similarity score against the query and drops everything below the
// cutoff. Candidates the query does not fuzzy-match at all never survive,
// even though the substring prefilter produced them.
func rankSummaries(query string, candidates []types.FoodSummary) []types.FoodSummary {
	scored := make([]scoredSummary, 0, len(candidates))
	for _, candidate := range candidates {
		score, ok := scoreSummary(query, candidate)
		if !ok {
			continue
		}
		scored = append(scored, scoredSummary{summary: candidate, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	ranked := make([]types.FoodSummary, len(scored))
	for i, s := range scored {
		ranked[i] = s.summary
	}
	return ranked
}

// scoreSummary computes the best weighted field score for a candidate,
// reporting ok=false when no field passes the cutoff.
func scoreSummary(query string, candidate types.FoodSummary) (float64, bool) {
	best := 0.0
	matched := false

	for _, field := range []struct {
		text   string
		weight float64
	}{
		{candidate.Description, weightDescription},
		{candidate.BrandName, weightBrand},
		{string(candidate.DataType), weightDataType},
	} {
		if field.text == "" {
			continue
		}
		distance := fuzzy.RankMatchNormalizedFold(query, field.text)
		if distance < 0 || distance > maxEditDistance {
			continue
		}
		matched = true
		if score := field.weight / float64(1+distance); score > best {
			best = score
		}
	}

	return best, matched
}
