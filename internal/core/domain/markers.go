package domain

// MarkerKind distinguishes endpoint, midpoint and venue markers.
type MarkerKind string

const (
	MarkerEndpoint MarkerKind = "endpoint"
	MarkerMidpoint MarkerKind = "midpoint"
	MarkerVenue    MarkerKind = "venue"
)

const (
	iconGreenDot = "http://maps.google.com/mapfiles/ms/icons/green-dot.png"
	iconBlueDot  = "http://maps.google.com/mapfiles/ms/icons/blue-dot.png"
)

// Marker is one pin on the map.
type Marker struct {
	Kind     MarkerKind `json:"kind"`
	Title    string     `json:"title"`
	Position Coordinate `json:"position"`
	Icon     string     `json:"icon,omitempty"`
	PlaceID  string     `json:"place_id,omitempty"`
}

// MarkerSet holds everything currently pinned on the map of one session.
// Venue markers are always replaced as a whole, never appended to.
type MarkerSet struct {
	A        *Marker  `json:"a,omitempty"`
	B        *Marker  `json:"b,omitempty"`
	Midpoint *Marker  `json:"midpoint,omitempty"`
	Venues   []Marker `json:"venues"`
}

// SetEndpoints replaces the two endpoint markers and the midpoint marker.
func (m *MarkerSet) SetEndpoints(a, b, mid Coordinate) {
	m.A = &Marker{Kind: MarkerEndpoint, Title: "Your Location", Position: a, Icon: iconGreenDot}
	m.B = &Marker{Kind: MarkerEndpoint, Title: "Person B", Position: b, Icon: iconGreenDot}
	m.Midpoint = &Marker{Kind: MarkerMidpoint, Title: "Midpoint", Position: mid, Icon: iconBlueDot}
}

// ClearVenues drops every venue marker.
func (m *MarkerSet) ClearVenues() {
	m.Venues = nil
}

// SetVenues replaces the venue markers with one marker per venue.
func (m *MarkerSet) SetVenues(venues []VenueResult) {
	m.ClearVenues()
	if len(venues) == 0 {
		return
	}
	m.Venues = make([]Marker, 0, len(venues))
	for _, v := range venues {
		m.Venues = append(m.Venues, Marker{
			Kind:     MarkerVenue,
			Title:    v.Name,
			Position: v.Location,
			PlaceID:  v.PlaceID,
		})
	}
}

// Venue returns the venue marker for placeID.
func (m *MarkerSet) Venue(placeID string) (Marker, bool) {
	for _, v := range m.Venues {
		if v.PlaceID == placeID {
			return v, true
		}
	}
	return Marker{}, false
}

// Len counts all markers currently shown.
func (m *MarkerSet) Len() int {
	n := len(m.Venues)
	for _, p := range []*Marker{m.A, m.B, m.Midpoint} {
		if p != nil {
			n++
		}
	}
	return n
}

// Clone returns a deep copy safe to hand out of the session goroutine.
func (m *MarkerSet) Clone() MarkerSet {
	out := MarkerSet{}
	if m.A != nil {
		a := *m.A
		out.A = &a
	}
	if m.B != nil {
		b := *m.B
		out.B = &b
	}
	if m.Midpoint != nil {
		mid := *m.Midpoint
		out.Midpoint = &mid
	}
	if m.Venues != nil {
		out.Venues = append([]Marker(nil), m.Venues...)
	}
	return out
}
