package domain

// Region names one independently updated part of the UI.
type Region string

const (
	RegionAlert    Region = "alert"
	RegionStatus   Region = "status"
	RegionMarkers  Region = "markers"
	RegionVenues   Region = "venues"
	RegionETA      Region = "eta"
	RegionLabel    Region = "label"
	RegionWeather  Region = "weather"
	RegionRadius   Region = "radius"
	RegionCategory Region = "category"
	RegionFocus    Region = "focus"
)

// ViewUpdate is one render instruction pushed to the UI surface.
type ViewUpdate struct {
	Region   Region `json:"region"`
	SearchID uint64 `json:"search_id,omitempty"`
	Payload  any    `json:"payload"`
}
