package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kosarica/deal-planner/internal/optimizer"
	"github.com/kosarica/deal-planner/internal/parsers"
	"github.com/kosarica/deal-planner/internal/planner"
	"github.com/kosarica/deal-planner/internal/types"
)

// MealRequest is one meal in an optimize request. PlannedDay is a date
// such as "2026-10-16".
type MealRequest struct {
	MealName    string   `json:"mealName"`
	Ingredients []string `json:"ingredients"`
	PlannedDay  string   `json:"plannedDay,omitempty"`
}

// WindowRequest holds the shopping window dates.
type WindowRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// OptimizeRequest is the body of POST /api/v1/optimize.
type OptimizeRequest struct {
	Location    types.Location        `json:"location"`
	RadiusKm    float64               `json:"radiusKm,omitempty"`
	Meals       []MealRequest         `json:"meals"`
	Preferences optimizer.Preferences `json:"preferences"`
	Window      WindowRequest         `json:"window"`
}

// toPlanner converts dates and meals. An empty window end means the same
// day as the start.
func (r OptimizeRequest) toPlanner() (planner.Request, error) {
	start, ok := parsers.ParseDate(r.Window.Start)
	if !ok {
		return planner.Request{}, types.ValidationError{Field: "window.start", Reason: fmt.Sprintf("invalid date %q", r.Window.Start)}
	}
	end := start
	if r.Window.End != "" {
		if end, ok = parsers.ParseDate(r.Window.End); !ok {
			return planner.Request{}, types.ValidationError{Field: "window.end", Reason: fmt.Sprintf("invalid date %q", r.Window.End)}
		}
	}

	meals := make([]types.MealRequirement, 0, len(r.Meals))
	for i, m := range r.Meals {
		meal := types.MealRequirement{MealName: m.MealName, Ingredients: m.Ingredients}
		if m.PlannedDay != "" {
			day, ok := parsers.ParseDate(m.PlannedDay)
			if !ok {
				return planner.Request{}, types.ValidationError{
					Field:  fmt.Sprintf("meals[%d].plannedDay", i),
					Reason: fmt.Sprintf("invalid date %q", m.PlannedDay),
				}
			}
			meal.PlannedDay = &day
		}
		meals = append(meals, meal)
	}

	return planner.Request{
		Location:    r.Location,
		RadiusKm:    r.RadiusKm,
		Meals:       meals,
		Preferences: r.Preferences,
		Window:      types.ShoppingWindow{Start: start, End: end},
	}, nil
}

// Optimize handles POST /api/v1/optimize.
func (h *Handlers) Optimize(c *gin.Context) {
	var body OptimizeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	req, err := body.toPlanner()
	if err != nil {
		h.abort(c, err)
		return
	}

	rec, err := h.planner.OptimizeRequest(c.Request.Context(), req)
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// DiscountsResponse is the body of GET /api/v1/discounts.
type DiscountsResponse struct {
	Items    []types.DiscountItem `json:"items"`
	Total    int                  `json:"total"`
	RadiusKm float64              `json:"radiusKm"`
	Start    string               `json:"start"`
	CacheHit bool                 `json:"cacheHit"`
	Stale    bool                 `json:"stale"`
}

// ListDiscounts handles GET /api/v1/discounts?lat=&lon=&radius=&start=.
// radius defaults to the planner radius and start to today.
func (h *Handlers) ListDiscounts(c *gin.Context) {
	var q struct {
		Lat    *float64 `form:"lat" binding:"required"`
		Lon    *float64 `form:"lon" binding:"required"`
		Radius float64  `form:"radius"`
		Start  string   `form:"start"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: "invalid query: " + err.Error()})
		return
	}

	loc, err := types.NewLocation(*q.Lat, *q.Lon)
	if err != nil {
		h.abort(c, err)
		return
	}
	radius := q.Radius
	if radius == 0 {
		radius = h.planner.DefaultRadiusKm()
	}
	start := types.Day(time.Now())
	if q.Start != "" {
		day, ok := parsers.ParseDate(q.Start)
		if !ok {
			h.abort(c, types.ValidationError{Field: "start", Reason: fmt.Sprintf("invalid date %q", q.Start)})
			return
		}
		start = day
	}

	res, err := h.discounts.Find(c.Request.Context(), loc, radius, types.ShoppingWindow{Start: start, End: start})
	if err != nil {
		h.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, DiscountsResponse{
		Items:    res.Items,
		Total:    len(res.Items),
		RadiusKm: radius,
		Start:    start.Format("2006-01-02"),
		CacheHit: res.CacheHit,
		Stale:    res.Stale,
	})
}
