package types

import (
	"fmt"
	"strings"
	"time"
)

// MealRequirement is one meal the shopper plans to cook.
type MealRequirement struct {
	MealName    string     `json:"mealName" yaml:"meal_name"`
	Ingredients []string   `json:"ingredients" yaml:"ingredients"`
	PlannedDay  *time.Time `json:"plannedDay,omitempty" yaml:"planned_day,omitempty"`
}

// ValidateMeals requires at least one meal, each named and with at least one
// non-blank ingredient.
func ValidateMeals(meals []MealRequirement) error {
	if len(meals) == 0 {
		return ValidationError{Field: "meals", Reason: "at least one meal is required"}
	}
	for i, meal := range meals {
		if strings.TrimSpace(meal.MealName) == "" {
			return ValidationError{Field: fmt.Sprintf("meals[%d].mealName", i), Reason: "cannot be empty"}
		}
		if len(meal.Ingredients) == 0 {
			return ValidationError{Field: fmt.Sprintf("meals[%d].ingredients", i), Reason: "at least one ingredient is required"}
		}
		for j, ingredient := range meal.Ingredients {
			if strings.TrimSpace(ingredient) == "" {
				return ValidationError{Field: fmt.Sprintf("meals[%d].ingredients[%d]", i, j), Reason: "cannot be empty"}
			}
		}
	}
	return nil
}

// ShoppingWindow is the inclusive date range for completing all purchases.
type ShoppingWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// NewShoppingWindow truncates both bounds to days and validates them.
func NewShoppingWindow(start, end time.Time) (ShoppingWindow, error) {
	w := ShoppingWindow{Start: Day(start), End: Day(end)}
	if err := w.Validate(); err != nil {
		return ShoppingWindow{}, err
	}
	return w, nil
}

// Validate rejects an inverted or unset window.
func (w ShoppingWindow) Validate() error {
	if w.Start.IsZero() {
		return ValidationError{Field: "window.start", Reason: "is required"}
	}
	if w.End.IsZero() {
		return ValidationError{Field: "window.end", Reason: "is required"}
	}
	if Day(w.End).Before(Day(w.Start)) {
		return ValidationError{Field: "window.end", Reason: "must not be before window.start"}
	}
	return nil
}

// Contains reports whether day falls inside the window, inclusive.
func (w ShoppingWindow) Contains(day time.Time) bool {
	d := Day(day)
	return !d.Before(Day(w.Start)) && !d.After(Day(w.End))
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
