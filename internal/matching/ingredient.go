// Package matching maps free-text ingredient names to discounted products
// by fuzzy, accent-insensitive name similarity.
package matching

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kosarica/deal-planner/internal/types"
)

// Match is one ingredient matched to one offer.
type Match struct {
	Ingredient string             `json:"ingredient"`
	Item       types.DiscountItem `json:"item"`
	Score      float64            `json:"score"`
}

// IngredientResult holds the ranked matches for one ingredient of a meal.
type IngredientResult struct {
	Ingredient string  `json:"ingredient"`
	Matches    []Match `json:"matches"`
}

// Unmapped reports whether no product cleared the threshold.
func (r IngredientResult) Unmapped() bool { return len(r.Matches) == 0 }

// MealCoverage summarizes how many of a meal's ingredients found a match.
type MealCoverage struct {
	MealName           string   `json:"mealName"`
	TotalIngredients   int      `json:"totalIngredients"`
	MatchedIngredients int      `json:"matchedIngredients"`
	CoveragePercent    float64  `json:"coveragePercent"`
	Unmapped           []string `json:"unmapped"`
}

// NewCoverage builds a coverage summary from the unmapped ingredient names.
// The percent is rounded to two decimals.
func NewCoverage(mealName string, total int, unmapped []string) MealCoverage {
	matched := total - len(unmapped)
	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(matched)/float64(total)*100*100) / 100
	}
	if unmapped == nil {
		unmapped = []string{}
	}
	return MealCoverage{
		MealName:           mealName,
		TotalIngredients:   total,
		MatchedIngredients: matched,
		CoveragePercent:    pct,
		Unmapped:           unmapped,
	}
}

// MealMatches is the matcher output for one meal, ingredients in declared
// order.
type MealMatches struct {
	MealName    string             `json:"mealName"`
	Ingredients []IngredientResult `json:"ingredients"`
	Coverage    MealCoverage       `json:"coverage"`
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithLogger sets the logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger.With().Str("component", "ingredient_matcher").Logger()
		}
	}
}

// Matcher scores products against ingredient names. It is stateless after
// construction and safe for concurrent use.
type Matcher struct {
	cfg    Config
	groups map[string][]string
	logger zerolog.Logger
}

// NewMatcher validates cfg and indexes the alias table.
func NewMatcher(cfg Config, opts ...Option) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{
		cfg:    cfg,
		groups: buildAliasGroups(cfg.Aliases),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Config returns the active configuration.
func (m *Matcher) Config() Config { return m.cfg }

// Terms returns the normalized names an ingredient is matched under: the
// ingredient itself followed by its alias group.
func (m *Matcher) Terms(ingredient string) []string {
	key := Normalize(ingredient)
	terms := []string{key}
	for _, alias := range m.groups[key] {
		if alias != key {
			terms = append(terms, alias)
		}
	}
	return terms
}

// Score returns the best similarity between any term of the ingredient and
// the product name.
func (m *Matcher) Score(ingredient, productName string) float64 {
	return m.score(m.Terms(ingredient), Normalize(productName))
}

func (m *Matcher) score(terms []string, product string) float64 {
	best := 0.0
	for _, term := range terms {
		if s := Similarity(term, product); s > best {
			best = s
			if best == 1 {
				break
			}
		}
	}
	return best
}

// Match ranks the items whose score reaches the threshold: score descending,
// then cheaper, then closer, then store and product name so the order is
// total. At most MaxMatches are returned.
func (m *Matcher) Match(ingredient string, items []types.DiscountItem) []Match {
	terms := m.Terms(ingredient)
	matches := make([]Match, 0, m.cfg.MaxMatches)
	for _, item := range items {
		score := m.score(terms, Normalize(item.ProductName))
		if score >= m.cfg.Threshold {
			matches = append(matches, Match{Ingredient: ingredient, Item: item, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Item.DiscountPrice != b.Item.DiscountPrice {
			return a.Item.DiscountPrice < b.Item.DiscountPrice
		}
		if a.Item.TravelDistanceKm != b.Item.TravelDistanceKm {
			return a.Item.TravelDistanceKm < b.Item.TravelDistanceKm
		}
		if a.Item.StoreName != b.Item.StoreName {
			return a.Item.StoreName < b.Item.StoreName
		}
		return a.Item.ProductName < b.Item.ProductName
	})
	if len(matches) > m.cfg.MaxMatches {
		matches = matches[:m.cfg.MaxMatches]
	}

	recordMatch(len(items), len(matches))
	return matches
}

// MatchMeal matches every ingredient of a meal and computes its coverage.
func (m *Matcher) MatchMeal(meal types.MealRequirement, items []types.DiscountItem) MealMatches {
	out := MealMatches{
		MealName:    meal.MealName,
		Ingredients: make([]IngredientResult, 0, len(meal.Ingredients)),
	}
	var unmapped []string
	for _, ingredient := range meal.Ingredients {
		ingredient = strings.TrimSpace(ingredient)
		result := IngredientResult{Ingredient: ingredient, Matches: m.Match(ingredient, items)}
		if result.Unmapped() {
			unmapped = append(unmapped, ingredient)
		}
		out.Ingredients = append(out.Ingredients, result)
	}
	out.Coverage = NewCoverage(meal.MealName, len(meal.Ingredients), unmapped)

	m.logger.Debug().
		Str("meal", meal.MealName).
		Int("ingredients", out.Coverage.TotalIngredients).
		Int("matched", out.Coverage.MatchedIngredients).
		Msg("Matched meal ingredients")
	return out
}

// MatchMeals matches meals in the declared order.
func (m *Matcher) MatchMeals(meals []types.MealRequirement, items []types.DiscountItem) []MealMatches {
	out := make([]MealMatches, 0, len(meals))
	for _, meal := range meals {
		out = append(out, m.MatchMeal(meal, items))
	}
	return out
}

// buildAliasGroups indexes every normalized member of each alias group to
// the sorted group, so lookups work from any member.
func buildAliasGroups(aliases map[string][]string) map[string][]string {
	groups := make(map[string][]string)
	for canonical, synonyms := range aliases {
		set := map[string]struct{}{}
		for _, term := range append([]string{canonical}, synonyms...) {
			if n := Normalize(term); n != "" {
				set[n] = struct{}{}
			}
		}
		members := make([]string, 0, len(set))
		for term := range set {
			members = append(members, term)
		}
		sort.Strings(members)

		for _, term := range members {
			groups[term] = mergeSorted(groups[term], members)
		}
	}
	return groups
}

func mergeSorted(existing, add []string) []string {
	if len(existing) == 0 {
		return add
	}
	set := make(map[string]struct{}, len(existing)+len(add))
	for _, t := range existing {
		set[t] = struct{}{}
	}
	for _, t := range add {
		set[t] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
