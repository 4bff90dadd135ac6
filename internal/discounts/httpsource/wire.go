package httpsource

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/kosarica/deal-planner/internal/types"
)

// storeOffers is one element of the API response.
type storeOffers struct {
	Store      wireStore       `json:"store"`
	Clearances []wireClearance `json:"clearances"`
}

type wireStore struct {
	Name    string      `json:"name"`
	Brand   string      `json:"brand"`
	Address wireAddress `json:"address"`
	// Coordinates are [longitude, latitude], GeoJSON order.
	Coordinates []float64 `json:"coordinates"`
}

type wireAddress struct {
	Street string `json:"street"`
	Zip    string `json:"zip"`
	City   string `json:"city"`
}

func (a wireAddress) String() string {
	parts := make([]string, 0, 2)
	if a.Street != "" {
		parts = append(parts, a.Street)
	}
	if city := strings.TrimSpace(a.Zip + " " + a.City); city != "" {
		parts = append(parts, city)
	}
	return strings.Join(parts, ", ")
}

type wireClearance struct {
	Offer   wireOffer   `json:"offer"`
	Product wireProduct `json:"product"`
}

type wireOffer struct {
	OriginalPrice   json.Number `json:"originalPrice"`
	NewPrice        json.Number `json:"newPrice"`
	PercentDiscount json.Number `json:"percentDiscount"`
	EndTime         time.Time   `json:"endTime"`
}

type wireProduct struct {
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	Organic     bool     `json:"organic"`
}

// convert maps the wire payload to validated offers. Prices are parsed from
// their decimal text so no float rounding enters the amounts.
func convert(payload []storeOffers) ([]types.DiscountItem, int) {
	var items []types.DiscountItem
	skipped := 0

	for _, so := range payload {
		if len(so.Store.Coordinates) != 2 {
			skipped += len(so.Clearances)
			continue
		}
		storeName := so.Store.Name
		if storeName == "" {
			storeName = so.Store.Brand
		}
		loc := types.Location{Latitude: so.Store.Coordinates[1], Longitude: so.Store.Coordinates[0]}

		for _, c := range so.Clearances {
			original, err := types.ParseDecimalCents(c.Offer.OriginalPrice.String())
			if err != nil {
				skipped++
				continue
			}
			discounted, err := types.ParseDecimalCents(c.Offer.NewPrice.String())
			if err != nil {
				skipped++
				continue
			}
			percent, _ := c.Offer.PercentDiscount.Float64()

			item, err := types.NewDiscountItem(types.DiscountItem{
				ProductName:     c.Product.Description,
				StoreName:       storeName,
				StoreLocation:   loc,
				StoreAddress:    so.Store.Address.String(),
				OriginalPrice:   original,
				DiscountPrice:   discounted,
				DiscountPercent: percent,
				ExpirationDate:  c.Offer.EndTime.UTC(),
				IsOrganic:       c.Product.Organic || hasOrganicCategory(c.Product.Categories),
			})
			if err != nil {
				skipped++
				continue
			}
			items = append(items, item)
		}
	}
	return items, skipped
}

func hasOrganicCategory(categories []string) bool {
	for _, c := range categories {
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "organic", "økologi", "okologi", "eko", "bio":
			return true
		}
	}
	return false
}
