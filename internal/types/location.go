package types

import (
	"fmt"
	"math"
)

// Location is an immutable pair of geographic coordinates.
// Use NewLocation to construct one; the zero value is (0, 0) and valid.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewLocation validates the coordinate ranges and returns a Location.
func NewLocation(lat, lon float64) (Location, error) {
	loc := Location{Latitude: lat, Longitude: lon}
	if err := loc.Validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}

// Validate reports a ValidationError when a coordinate is out of range.
func (l Location) Validate() error {
	if math.IsNaN(l.Latitude) || l.Latitude < -90 || l.Latitude > 90 {
		return ValidationError{Field: "location.latitude", Reason: "must be between -90 and 90"}
	}
	if math.IsNaN(l.Longitude) || l.Longitude < -180 || l.Longitude > 180 {
		return ValidationError{Field: "location.longitude", Reason: "must be between -180 and 180"}
	}
	return nil
}

func (l Location) String() string {
	return fmt.Sprintf("%.4f,%.4f", l.Latitude, l.Longitude)
}
