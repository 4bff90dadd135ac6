package discounts

import (
	"math"
	"sort"

	"github.com/kosarica/deal-planner/internal/types"
)

const earthRadiusKm = 6371.0

// HaversineKm calculates the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// SortByDistance orders items closest first, keeping the incoming order for
// equal distances.
func SortByDistance(items []types.DiscountItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].TravelDistanceKm < items[j].TravelDistanceKm
	})
}
