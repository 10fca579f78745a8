package usecases

import (
	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/pkg/geospatial"
)

// Radius slider bounds, in miles.
const (
	MinRadiusMiles     = 1.0
	MaxRadiusMiles     = 50.0
	DefaultRadiusMiles = 5.0
)

// SelectionState is the per-session search input: the active category, the
// current midpoint and the search radius. It is owned by a single session
// goroutine and is not safe for concurrent use.
type SelectionState struct {
	category    domain.VenueCategory
	midpoint    *domain.Coordinate
	radiusMiles float64
}

// NewSelectionState starts with no midpoint.
func NewSelectionState(category domain.VenueCategory, radiusMiles float64) *SelectionState {
	if category == "" {
		category = domain.DefaultCategory
	}
	s := &SelectionState{category: category}
	if radiusMiles <= 0 {
		radiusMiles = DefaultRadiusMiles
	}
	s.SetRadius(radiusMiles)
	return s
}

func (s *SelectionState) Category() domain.VenueCategory { return s.category }

// SetCategory only records the category; it does not trigger a search.
func (s *SelectionState) SetCategory(c domain.VenueCategory) {
	s.category = c
}

// Midpoint returns the current midpoint, if a search has run.
func (s *SelectionState) Midpoint() (domain.Coordinate, bool) {
	if s.midpoint == nil {
		return domain.Coordinate{}, false
	}
	return *s.midpoint, true
}

// SetMidpoint overwrites the midpoint unconditionally.
func (s *SelectionState) SetMidpoint(c domain.Coordinate) {
	s.midpoint = &c
}

func (s *SelectionState) RadiusMiles() float64 { return s.radiusMiles }

// RadiusMeters is the radius handed to the places provider.
func (s *SelectionState) RadiusMeters() float64 {
	return geospatial.MilesToMeters(s.radiusMiles)
}

// SetRadius stores miles clamped to the slider range and returns the stored value.
func (s *SelectionState) SetRadius(miles float64) float64 {
	switch {
	case miles < MinRadiusMiles:
		miles = MinRadiusMiles
	case miles > MaxRadiusMiles:
		miles = MaxRadiusMiles
	}
	s.radiusMiles = miles
	return miles
}
