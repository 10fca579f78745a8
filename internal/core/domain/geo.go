package domain

import "fmt"

// Coordinate is a WGS 84 point. The zero value is a valid coordinate (0,0).
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String renders the coordinate the way provider query strings expect it.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng)
}

// Valid reports whether the coordinate is within WGS 84 ranges.
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// PlaceSelection is what the address autocomplete handed over for one person.
// Location is set when the suggestion carried geometry. A PlaceID without a
// Location can only be looked up explicitly through the geocoder.
type PlaceSelection struct {
	Query    string      `json:"query,omitempty"`
	PlaceID  string      `json:"place_id,omitempty"`
	Location *Coordinate `json:"location,omitempty"`
}

// Selected reports whether the selection came from the suggestion list with
// geometry attached.
func (s PlaceSelection) Selected() bool {
	return s.Location != nil
}

// Identified reports whether the selection can be located at all, either by
// its attached geometry or by a place ID lookup.
func (s PlaceSelection) Identified() bool {
	return s.Location != nil || s.PlaceID != ""
}
