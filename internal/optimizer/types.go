package optimizer

import (
	"errors"
	"time"

	"github.com/kosarica/deal-planner/internal/matching"
	"github.com/kosarica/deal-planner/internal/types"
)

// Weights are the relative importance of savings, travel time and quality.
type Weights struct {
	Savings float64 `mapstructure:"savings" json:"savings"`
	Time    float64 `mapstructure:"time" json:"time"`
	Quality float64 `mapstructure:"quality" json:"quality"`
}

func (w Weights) sum() float64 { return w.Savings + w.Time + w.Quality }

func (w Weights) validate() error {
	for _, v := range []float64{w.Savings, w.Time, w.Quality} {
		if v < 0 || !finite(v) {
			return errors.New("weights must be non-negative numbers")
		}
	}
	if w.sum() == 0 {
		return errors.New("at least one weight must be positive")
	}
	return nil
}

// Normalized scales the weights to sum to 1.
func (w Weights) Normalized() Weights {
	total := w.sum()
	if total == 0 {
		return w
	}
	return Weights{Savings: w.Savings / total, Time: w.Time / total, Quality: w.Quality / total}
}

// Preferences selects the optimization criteria. Weights, when set, replace
// the booleans.
type Preferences struct {
	MaximizeSavings bool     `json:"maximizeSavings" yaml:"maximize_savings"`
	MinimizeStores  bool     `json:"minimizeStores" yaml:"minimize_stores"`
	PreferOrganic   bool     `json:"preferOrganic" yaml:"prefer_organic"`
	Weights         *Weights `json:"weights,omitempty" yaml:"weights,omitempty"`
}

// Validate requires at least one active criterion.
func (p Preferences) Validate() error {
	if p.Weights != nil {
		if err := p.Weights.validate(); err != nil {
			return types.ValidationError{Field: "preferences.weights", Reason: err.Error()}
		}
		return nil
	}
	if !p.MaximizeSavings && !p.MinimizeStores && !p.PreferOrganic {
		return types.ValidationError{Field: "preferences", Reason: "at least one criterion must be active"}
	}
	return nil
}

// EffectiveWeights maps the preferences to normalized weights. Booleans pick
// up the matching default weight or zero.
func (p Preferences) EffectiveWeights(defaults Weights) Weights {
	if p.Weights != nil {
		return p.Weights.Normalized()
	}
	var w Weights
	if p.MaximizeSavings {
		w.Savings = defaults.Savings
	}
	if p.MinimizeStores {
		w.Time = defaults.Time
	}
	if p.PreferOrganic {
		w.Quality = defaults.Quality
	}
	return w.Normalized()
}

// Need is one ingredient of one meal with its ranked candidates.
type Need struct {
	MealName   string           `json:"mealName"`
	Ingredient string           `json:"ingredient"`
	PlannedDay *time.Time       `json:"plannedDay,omitempty"`
	Candidates []matching.Match `json:"candidates"`
}

// NeedsFromMatches flattens matcher output into needs, meals and
// ingredients in declared order.
func NeedsFromMatches(meals []types.MealRequirement, matches []matching.MealMatches) []Need {
	var needs []Need
	for i, meal := range matches {
		var planned *time.Time
		if i < len(meals) {
			planned = meals[i].PlannedDay
		}
		for _, ing := range meal.Ingredients {
			needs = append(needs, Need{
				MealName:   meal.MealName,
				Ingredient: ing.Ingredient,
				PlannedDay: planned,
				Candidates: ing.Matches,
			})
		}
	}
	return needs
}

// Purchase is one selected product at one store on one day. Money is in
// minor units.
type Purchase struct {
	ProductName     string    `json:"productName"`
	StoreName       string    `json:"storeName"`
	PurchaseDay     time.Time `json:"purchaseDay"`
	Price           int64     `json:"price"`
	OriginalPrice   int64     `json:"originalPrice"`
	Savings         int64     `json:"savings"`
	MealAssociation string    `json:"mealAssociation"`
	Ingredient      string    `json:"ingredient"`
	IsOrganic       bool      `json:"isOrganic"`
	ExpirationDate  time.Time `json:"expirationDate"`
	DistanceKm      float64   `json:"distanceKm"`
	Score           float64   `json:"score"`
}

// StoreSummary describes one store the plan visits.
type StoreSummary struct {
	Name       string         `json:"name"`
	Address    string         `json:"address"`
	Location   types.Location `json:"location"`
	DistanceKm float64        `json:"distanceKm"`
	ItemCount  int            `json:"itemCount"`
	Subtotal   int64          `json:"subtotal"`
	Savings    int64          `json:"savings"`
}

// Unmapped reasons.
const (
	ReasonNoMatch    = "no_match"
	ReasonAllExpired = "all_expired"
)

// UnmappedNeed is an ingredient left out of the plan.
type UnmappedNeed struct {
	MealName   string `json:"mealName"`
	Ingredient string `json:"ingredient"`
	Reason     string `json:"reason"`
}

// StoreCoverage lists which needs a store had a usable candidate for.
// Needs are indexes into the request.
type StoreCoverage struct {
	StoreName  string  `json:"storeName"`
	DistanceKm float64 `json:"distanceKm"`
	Needs      []int   `json:"needs"`
}

// Plan is the optimizer result. Purchases are grouped by store in the order
// of Stores, and keep selection order within a store.
type Plan struct {
	Purchases []Purchase      `json:"purchases"`
	Stores    []StoreSummary  `json:"stores"`
	Unmapped  []UnmappedNeed  `json:"unmapped"`
	Weights   Weights         `json:"weights"`
	Coverage  []StoreCoverage `json:"-"`
	// Purchased holds the need index of every purchase, in Purchases order.
	Purchased []int `json:"-"`
}
