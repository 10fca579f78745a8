package domain

import (
	"fmt"
	"strings"
	"time"
)

// VenueCategory is the place type used for nearby search.
type VenueCategory string

const (
	CategoryCafe       VenueCategory = "cafe"
	CategoryRestaurant VenueCategory = "restaurant"
	CategoryPark       VenueCategory = "park"
)

// DefaultCategory is selected when a session starts.
const DefaultCategory = CategoryCafe

// Categories lists the supported categories in button order.
var Categories = []VenueCategory{CategoryCafe, CategoryRestaurant, CategoryPark}

// ParseCategory accepts a category value ("cafe") or a filter button label
// ("Coffee", "Restaurants", "Parks"). Unknown labels fall through to park, the
// same way the filter buttons behave.
func ParseCategory(s string) VenueCategory {
	t := strings.ToLower(strings.TrimSpace(s))
	switch {
	case t == string(CategoryCafe) || strings.Contains(t, "coffee"):
		return CategoryCafe
	case strings.Contains(t, "restaurant"):
		return CategoryRestaurant
	default:
		return CategoryPark
	}
}

// ValidateCategory rejects anything that is not one of the three categories.
func ValidateCategory(s string) (VenueCategory, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
}

// VenueResult is a single nearby place returned by the places provider.
type VenueResult struct {
	Name           string     `json:"name"`
	Address        string     `json:"address"`
	Rating         *float64   `json:"rating,omitempty"`
	PlaceID        string     `json:"place_id"`
	Location       Coordinate `json:"location"`
	DistanceMeters float64    `json:"distance_meters"`
}

// TravelOrigin identifies which person a travel time belongs to.
type TravelOrigin string

const (
	OriginA TravelOrigin = "a"
	OriginB TravelOrigin = "b"
)

// TravelTime is a driving time estimate to the midpoint.
type TravelTime struct {
	Origin    TravelOrigin `json:"origin"`
	Text      string       `json:"text,omitempty"`
	Available bool         `json:"available"`
}

// WeatherState tags a WeatherSnapshot explicitly instead of relying on
// missing fields.
type WeatherState string

const (
	WeatherLoading WeatherState = "loading"
	WeatherError   WeatherState = "error"
	WeatherReady   WeatherState = "ready"
)

// WeatherSnapshot is the current weather at a coordinate.
type WeatherSnapshot struct {
	State      WeatherState `json:"state"`
	TempF      int          `json:"temp_f"`
	Condition  string       `json:"condition,omitempty"`
	Humidity   *int         `json:"humidity,omitempty"`
	FeelsLikeF *int         `json:"feels_like_f,omitempty"`
	FetchedAt  time.Time    `json:"fetched_at,omitempty"`
}

// SearchRecord is a completed search, stored in history and published as an event.
type SearchRecord struct {
	ID          string        `json:"id"`
	SessionID   string        `json:"session_id,omitempty"`
	A           Coordinate    `json:"a"`
	B           Coordinate    `json:"b"`
	Midpoint    Coordinate    `json:"midpoint"`
	Category    VenueCategory `json:"category"`
	RadiusMiles float64       `json:"radius_miles"`
	VenueCount  int           `json:"venue_count"`
	CreatedAt   time.Time     `json:"created_at"`
}
