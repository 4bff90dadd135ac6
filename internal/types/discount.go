package types

import (
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxProductNameLength = 200
	MaxStoreNameLength   = 100
)

// DiscountItem is one product offer at one store. Prices are minor units.
// Values are built with NewDiscountItem and treated as immutable; WithTravel
// returns an annotated copy.
type DiscountItem struct {
	ProductName       string    `json:"productName"`
	StoreName         string    `json:"storeName"`
	StoreLocation     Location  `json:"storeLocation"`
	StoreAddress      string    `json:"storeAddress"`
	OriginalPrice     int64     `json:"originalPrice"`
	DiscountPrice     int64     `json:"discountPrice"`
	DiscountPercent   float64   `json:"discountPercent"`
	ExpirationDate    time.Time `json:"expirationDate"`
	IsOrganic         bool      `json:"isOrganic"`
	TravelDistanceKm  float64   `json:"travelDistanceKm"`
	TravelTimeMinutes float64   `json:"travelTimeMinutes"`
}

// NewDiscountItem normalizes and validates raw offer data from an upstream
// source. A zero DiscountPercent is derived from the two prices.
func NewDiscountItem(raw DiscountItem) (DiscountItem, error) {
	item := raw
	item.ProductName = strings.TrimSpace(item.ProductName)
	item.StoreName = strings.TrimSpace(item.StoreName)
	item.StoreAddress = strings.TrimSpace(item.StoreAddress)
	if !item.ExpirationDate.IsZero() {
		item.ExpirationDate = Day(item.ExpirationDate)
	}
	if item.DiscountPercent == 0 && item.OriginalPrice > 0 && item.DiscountPrice < item.OriginalPrice {
		pct := float64(item.OriginalPrice-item.DiscountPrice) * 100 / float64(item.OriginalPrice)
		item.DiscountPercent = math.Round(pct*100) / 100
	}
	if err := item.Validate(); err != nil {
		return DiscountItem{}, err
	}
	return item, nil
}

// Validate checks the invariants every accepted offer must satisfy.
func (d DiscountItem) Validate() error {
	switch n := utf8.RuneCountInString(d.ProductName); {
	case n == 0:
		return ValidationError{Field: "productName", Reason: "cannot be empty"}
	case n > MaxProductNameLength:
		return ValidationError{Field: "productName", Reason: "exceeds " + strconv.Itoa(MaxProductNameLength) + " characters"}
	}
	switch n := utf8.RuneCountInString(d.StoreName); {
	case n == 0:
		return ValidationError{Field: "storeName", Reason: "cannot be empty"}
	case n > MaxStoreNameLength:
		return ValidationError{Field: "storeName", Reason: "exceeds " + strconv.Itoa(MaxStoreNameLength) + " characters"}
	}
	if err := d.StoreLocation.Validate(); err != nil {
		return err
	}
	if d.OriginalPrice <= 0 {
		return ValidationError{Field: "originalPrice", Reason: "must be positive"}
	}
	if d.DiscountPrice <= 0 {
		return ValidationError{Field: "discountPrice", Reason: "must be positive"}
	}
	if d.DiscountPrice >= d.OriginalPrice {
		return ValidationError{Field: "discountPrice", Reason: "must be less than originalPrice"}
	}
	if d.DiscountPercent < 0 || d.DiscountPercent > 100 {
		return ValidationError{Field: "discountPercent", Reason: "must be between 0 and 100"}
	}
	if d.ExpirationDate.IsZero() {
		return ValidationError{Field: "expirationDate", Reason: "is required"}
	}
	if d.TravelDistanceKm < 0 {
		return ValidationError{Field: "travelDistanceKm", Reason: "must be non-negative"}
	}
	if d.TravelTimeMinutes < 0 {
		return ValidationError{Field: "travelTimeMinutes", Reason: "must be non-negative"}
	}
	return nil
}

// Savings returns the absolute discount in minor units.
func (d DiscountItem) Savings() int64 {
	return d.OriginalPrice - d.DiscountPrice
}

// WithTravel returns a copy annotated with travel distance and time.
func (d DiscountItem) WithTravel(distanceKm, minutes float64) DiscountItem {
	d.TravelDistanceKm = distanceKm
	d.TravelTimeMinutes = minutes
	return d
}

// DedupeKey identifies duplicate offers: same product, store and price.
func (d DiscountItem) DedupeKey() string {
	return d.ProductName + "\x00" + d.StoreName + "\x00" + strconv.FormatInt(d.DiscountPrice, 10)
}

// ExpiresBefore reports whether the offer expires before the given day.
func (d DiscountItem) ExpiresBefore(day time.Time) bool {
	return d.ExpirationDate.Before(Day(day))
}
