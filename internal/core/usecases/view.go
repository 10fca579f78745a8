package usecases

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// Texts rendered by the UI regions.
const (
	ValidationMessage = "Please select both locations from the dropdown suggestions"
	NoPlacesMessage   = "No places found."
	etaUnavailable    = "—"
	ratingMissing     = "—"
	tempUnknown       = "--°F"
	weatherLoading    = "⏳ Loading…"
	weatherFailed     = "⚠️ Weather unavailable"
)

// SessionStatus is the orchestration state reported in the status region.
type SessionStatus string

const (
	StatusIdle      SessionStatus = "idle"
	StatusSearching SessionStatus = "searching"
	StatusReady     SessionStatus = "ready"
)

// AlertView is a blocking message for the user.
type AlertView struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// StatusView reports the session state.
type StatusView struct {
	Status   SessionStatus      `json:"status"`
	Midpoint *domain.Coordinate `json:"midpoint,omitempty"`
}

// MarkersView is the full marker set plus the box the map should fit.
type MarkersView struct {
	Markers domain.MarkerSet `json:"markers"`
	Bounds  *domain.Bounds   `json:"bounds,omitempty"`
}

// VenueCard is one entry of the venue sidebar.
type VenueCard struct {
	PlaceID        string            `json:"place_id"`
	Name           string            `json:"name"`
	Address        string            `json:"address"`
	Rating         string            `json:"rating"`
	DistanceMeters float64           `json:"distance_meters"`
	Position       domain.Coordinate `json:"position"`
}

// VenueListView replaces the whole venue list. Empty is set with an empty
// state message instead of cards.
type VenueListView struct {
	Category    domain.VenueCategory `json:"category"`
	RadiusMiles float64              `json:"radius_miles"`
	Cards       []VenueCard          `json:"cards"`
	Empty       string               `json:"empty,omitempty"`
}

// InfoWindow is the popup shown for a focused venue.
type InfoWindow struct {
	Title   string `json:"title"`
	Address string `json:"address"`
	Rating  string `json:"rating"`
	MapsURL string `json:"maps_url"`
}

// FocusView pans and zooms the map to a venue and opens its info window.
type FocusView struct {
	PlaceID  string            `json:"place_id"`
	Position domain.Coordinate `json:"position"`
	Zoom     int               `json:"zoom"`
	Info     InfoWindow        `json:"info"`
}

// ETAView is the driving time line of one route card.
type ETAView struct {
	Origin domain.TravelOrigin `json:"origin"`
	Text   string              `json:"text"`
}

// LabelView is the address shown above the weather widget.
type LabelView struct {
	Text string `json:"text"`
}

// WeatherView is the rendered weather widget.
type WeatherView struct {
	State     domain.WeatherState `json:"state"`
	Temp      string              `json:"temp"`
	Condition string              `json:"condition"`
	Extra     string              `json:"extra,omitempty"`
}

// RadiusView is the slider label.
type RadiusView struct {
	Miles float64 `json:"miles"`
	Label string  `json:"label"`
}

// CategoryView marks the active filter button.
type CategoryView struct {
	Category domain.VenueCategory `json:"category"`
}

func formatRating(r *float64) string {
	if r == nil {
		return ratingMissing
	}
	return strconv.FormatFloat(*r, 'f', -1, 64)
}

// VenueCardView renders a sidebar card.
func VenueCardView(v domain.VenueResult) VenueCard {
	return VenueCard{
		PlaceID:        v.PlaceID,
		Name:           v.Name,
		Address:        v.Address,
		Rating:         "⭐ " + formatRating(v.Rating),
		DistanceMeters: v.DistanceMeters,
		Position:       v.Location,
	}
}

// VenueList renders a full venue list. An empty list carries the empty state.
func VenueList(category domain.VenueCategory, radiusMiles float64, venues []domain.VenueResult) VenueListView {
	view := VenueListView{Category: category, RadiusMiles: radiusMiles, Cards: []VenueCard{}}
	if len(venues) == 0 {
		view.Empty = NoPlacesMessage
		return view
	}
	for _, v := range venues {
		view.Cards = append(view.Cards, VenueCardView(v))
	}
	return view
}

// MapsPlaceURL links a place ID to Google Maps.
func MapsPlaceURL(placeID string) string {
	return "https://www.google.com/maps/place/?q=place_id:" + placeID
}

// InfoWindowView renders the popup of a venue marker.
func InfoWindowView(v domain.VenueResult) InfoWindow {
	return InfoWindow{
		Title:   v.Name,
		Address: v.Address,
		Rating:  "⭐ " + formatRating(v.Rating),
		MapsURL: MapsPlaceURL(v.PlaceID),
	}
}

// ETAText renders a travel time line.
func ETAText(tt domain.TravelTime) ETAView {
	text := etaUnavailable
	if tt.Available && tt.Text != "" {
		text = tt.Text
	}
	return ETAView{Origin: tt.Origin, Text: "⏱️ Estimated: " + text}
}

// WeatherWidget renders a weather snapshot.
func WeatherWidget(s domain.WeatherSnapshot) WeatherView {
	switch s.State {
	case domain.WeatherLoading:
		return WeatherView{State: s.State, Temp: tempUnknown, Condition: weatherLoading}
	case domain.WeatherError:
		return WeatherView{State: s.State, Temp: tempUnknown, Condition: weatherFailed}
	}

	view := WeatherView{
		State:     domain.WeatherReady,
		Temp:      fmt.Sprintf("%d°F", s.TempF),
		Condition: ConditionEmoji(s.Condition) + " " + s.Condition,
	}
	if s.Humidity != nil && *s.Humidity != 0 && s.FeelsLikeF != nil && *s.FeelsLikeF != 0 {
		view.Extra = fmt.Sprintf("Feels like %d°F · %d%% humidity", *s.FeelsLikeF, *s.Humidity)
	}
	return view
}

// ConditionEmoji picks an icon for a free-text weather condition. The first
// matching rule wins.
func ConditionEmoji(condition string) string {
	c := strings.ToLower(condition)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(c, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("sun", "clear"):
		return "☀️"
	case has("partly"):
		return "⛅"
	case has("cloud", "over"):
		return "☁️"
	case has("rain", "shower"):
		return "🌧️"
	case has("thunder", "storm"):
		return "⛈️"
	case has("snow", "sleet"):
		return "❄️"
	case has("fog", "mist"):
		return "🌫️"
	case has("wind"):
		return "💨"
	default:
		return "🌡️"
	}
}

// RadiusLabel renders the slider label, e.g. "5 miles".
func RadiusLabel(miles float64) RadiusView {
	return RadiusView{
		Miles: miles,
		Label: strconv.FormatFloat(miles, 'f', -1, 64) + " miles",
	}
}
