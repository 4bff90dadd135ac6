package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocation(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"Copenhagen", 55.6761, 12.5683, false},
		{"North pole", 90, 0, false},
		{"Antimeridian", 0, -180, false},
		{"Latitude too high", 90.01, 0, true},
		{"Longitude too low", 0, -180.5, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := NewLocation(tt.lat, tt.lon)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.lat, loc.Latitude)
			assert.Equal(t, tt.lon, loc.Longitude)
		})
	}
}

func validItem() DiscountItem {
	return DiscountItem{
		ProductName:    "Økologisk Mælk 1L",
		StoreName:      "Netto Nørrebro",
		StoreLocation:  Location{Latitude: 55.69, Longitude: 12.55},
		OriginalPrice:  1500,
		DiscountPrice:  1200,
		ExpirationDate: time.Date(2026, 10, 20, 15, 30, 0, 0, time.UTC),
		IsOrganic:      true,
	}
}

func TestNewDiscountItemDerivesPercentAndDay(t *testing.T) {
	item, err := NewDiscountItem(validItem())
	require.NoError(t, err)

	assert.Equal(t, 20.0, item.DiscountPercent)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), item.ExpirationDate)
	assert.Equal(t, int64(300), item.Savings())
}

func TestNewDiscountItemRejectsInvalid(t *testing.T) {
	long := make([]rune, MaxProductNameLength+1)
	for i := range long {
		long[i] = 'a'
	}

	tests := []struct {
		name   string
		mutate func(*DiscountItem)
		field  string
	}{
		{"empty product", func(d *DiscountItem) { d.ProductName = "  " }, "productName"},
		{"long product", func(d *DiscountItem) { d.ProductName = string(long) }, "productName"},
		{"empty store", func(d *DiscountItem) { d.StoreName = "" }, "storeName"},
		{"zero original", func(d *DiscountItem) { d.OriginalPrice = 0 }, "originalPrice"},
		{"zero discount", func(d *DiscountItem) { d.DiscountPrice = 0 }, "discountPrice"},
		{"discount equals original", func(d *DiscountItem) { d.DiscountPrice = d.OriginalPrice }, "discountPrice"},
		{"percent over 100", func(d *DiscountItem) { d.DiscountPercent = 120 }, "discountPercent"},
		{"no expiration", func(d *DiscountItem) { d.ExpirationDate = time.Time{} }, "expirationDate"},
		{"bad location", func(d *DiscountItem) { d.StoreLocation.Latitude = 100 }, "location.latitude"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validItem()
			tt.mutate(&raw)
			_, err := NewDiscountItem(raw)
			require.Error(t, err)

			var verr ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestDedupeKey(t *testing.T) {
	a := validItem()
	b := validItem()
	b.StoreAddress = "somewhere else"
	assert.Equal(t, a.DedupeKey(), b.DedupeKey())

	b.DiscountPrice = 1100
	assert.NotEqual(t, a.DedupeKey(), b.DedupeKey())
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"12.99", 1299, false},
		{"12,99", 1299, false},
		{"1.299,00", 129900, false},
		{"1,234.56", 123456, false},
		{"1 299,00 kr", 129900, false},
		{"DKK 24.95", 2495, false},
		{"€3,5", 350, false},
		{"7", 700, false},
		{"0.500", 0, true},
		{"", 0, true},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCents(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseDecimalCents(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		wantErr  bool
	}{
		{"12.95", 1295, false},
		{"12.950", 1295, false},
		{"12.5", 1250, false},
		{"9", 900, false},
		{".5", 50, false},
		{"-1.25", -125, false},
		{"12.995", 0, true},
		{"1,5", 0, true},
		{"1e3", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalCents(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "12.99", FormatCents(1299))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-3.40", FormatCents(-340))
}

func TestShoppingWindow(t *testing.T) {
	start := time.Date(2026, 10, 14, 18, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

	w, err := NewShoppingWindow(start, end)
	require.NoError(t, err)
	assert.True(t, w.Contains(time.Date(2026, 10, 14, 1, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(end))
	assert.False(t, w.Contains(time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)))

	_, err = NewShoppingWindow(end, start)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestUpstreamErrorClassification(t *testing.T) {
	base := &UpstreamError{Source: "http", Op: "fetch", StatusCode: 503, Attempts: 3, Transient: true, Err: errors.New("unavailable")}
	wrapped := fmt.Errorf("fetch discounts: %w", base)

	assert.True(t, IsTransient(wrapped))
	assert.True(t, IsUpstream(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.Contains(t, base.Error(), "after 3 attempts")
	assert.Contains(t, base.Error(), "HTTP 503")

	assert.False(t, IsTransient(errors.New("plain")))
}

func TestValidateMeals(t *testing.T) {
	tests := []struct {
		name  string
		meals []MealRequirement
		field string
	}{
		{"no meals", nil, "meals"},
		{"unnamed", []MealRequirement{{Ingredients: []string{"milk"}}}, "meals[0].mealName"},
		{"no ingredients", []MealRequirement{{MealName: "Oats"}}, "meals[0].ingredients"},
		{"blank ingredient", []MealRequirement{
			{MealName: "Oats", Ingredients: []string{"oats"}},
			{MealName: "Tea", Ingredients: []string{"tea", " "}},
		}, "meals[1].ingredients[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMeals(tt.meals)
			var ve ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}

	assert.NoError(t, ValidateMeals([]MealRequirement{{MealName: "Oats", Ingredients: []string{"oats", "milk"}}}))
}
