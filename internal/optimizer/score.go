package optimizer

import "github.com/kosarica/deal-planner/internal/types"

// scoreEpsilon absorbs float noise when comparing weighted scores for ties.
const scoreEpsilon = 1e-9

// Score is the breakdown of one candidate's weighted score.
type Score struct {
	Savings       float64 `json:"savings"`
	Distance      float64 `json:"distance"`
	Quality       float64 `json:"quality"`
	Consolidation float64 `json:"consolidation"`
	Total         float64 `json:"total"`
}

// SavingsScore is the discount fraction, in [0,1).
func SavingsScore(item types.DiscountItem) float64 {
	if item.OriginalPrice <= 0 {
		return 0
	}
	return float64(item.OriginalPrice-item.DiscountPrice) / float64(item.OriginalPrice)
}

// DistanceScore is 1/(1+km), in (0,1].
func DistanceScore(item types.DiscountItem) float64 {
	return 1 / (1 + item.TravelDistanceKm)
}

// QualityScore rates organic products above conventional ones.
func (o *Optimizer) QualityScore(item types.DiscountItem) float64 {
	if item.IsOrganic {
		return o.cfg.OrganicScore
	}
	return o.cfg.ConventionalScore
}

// ScoreCandidate combines the criteria with normalized weights and adds the
// consolidation bonus for the purchases already selected at the item's
// store.
func (o *Optimizer) ScoreCandidate(item types.DiscountItem, w Weights, selectedAtStore int) Score {
	s := Score{
		Savings:       SavingsScore(item),
		Distance:      DistanceScore(item),
		Quality:       o.QualityScore(item),
		Consolidation: o.cfg.ConsolidationBonus * float64(selectedAtStore),
	}
	s.Total = w.Savings*s.Savings + w.Time*s.Distance + w.Quality*s.Quality + s.Consolidation
	return s
}

// better reports whether candidate a beats b: higher score, then lower
// discount price, then store name, then product name.
func better(a types.DiscountItem, aScore float64, b types.DiscountItem, bScore float64) bool {
	if diff := aScore - bScore; diff > scoreEpsilon || diff < -scoreEpsilon {
		return diff > 0
	}
	if a.DiscountPrice != b.DiscountPrice {
		return a.DiscountPrice < b.DiscountPrice
	}
	if a.StoreName != b.StoreName {
		return a.StoreName < b.StoreName
	}
	return a.ProductName < b.ProductName
}
