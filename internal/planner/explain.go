package planner

import (
	"fmt"
	"math"
	"strings"

	"github.com/kosarica/deal-planner/internal/optimizer"
	"github.com/kosarica/deal-planner/internal/types"
)

const dayLayout = "2006-01-02"

// explain writes the one-paragraph summary shown with a recommendation.
func explain(rec *ShoppingRecommendation, req Request, needs int) string {
	if rec.OffersConsidered == 0 {
		return fmt.Sprintf(
			"No discounted offers were found within %.1f km of %s valid from %s. All %d ingredients need regular-price purchases; try a wider radius or a later shopping window.",
			req.RadiusKm, req.Location, types.Day(req.Window.Start).Format(dayLayout), needs)
	}
	if len(rec.Purchases) == 0 {
		return fmt.Sprintf(
			"None of the %d nearby discounted offers match your ingredients. All %d ingredients need regular-price purchases.",
			rec.OffersConsidered, needs)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Buy %d of %d ingredients on discount at %s, saving %s.",
		len(rec.Purchases), needs, plural(len(rec.Stores), "store", "stores"), types.FormatCents(rec.TotalSavings))

	s := rec.Summary
	switch {
	case s.BaselineStore == "":
	case s.TimeSavingsMinutes < 0:
		fmt.Fprintf(&b, " Visiting %s takes about %.0f minutes longer than shopping only at %s.",
			plural(len(rec.Stores), "store", "stores"), math.Abs(s.TimeSavingsMinutes), s.BaselineStore)
	case s.TimeSavingsMinutes > 0:
		fmt.Fprintf(&b, " The route saves about %.0f minutes compared with shopping only at %s.",
			s.TimeSavingsMinutes, s.BaselineStore)
	}
	if missing := needs - len(rec.Purchases); missing > 0 {
		fmt.Fprintf(&b, " %s at regular price.", plural(missing, "ingredient has to be bought", "ingredients have to be bought"))
	}
	return b.String()
}

// notes lists one actionable line per unmapped ingredient, plus a warning
// for stale data.
func notes(rec *ShoppingRecommendation, req Request) []string {
	out := []string{}
	if rec.Stale {
		out = append(out, "Discount data could not be refreshed; offers shown may have changed.")
	}
	for _, u := range rec.Unmapped {
		reason := "no discounted match"
		if u.Reason == optimizer.ReasonAllExpired {
			reason = "all discounted matches expire before " + types.Day(req.Window.Start).Format(dayLayout)
		}
		out = append(out, fmt.Sprintf("%s: regular-price purchase required for %s (%s).", u.MealName, u.Ingredient, reason))
	}
	return out
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
