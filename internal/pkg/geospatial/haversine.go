package geospatial

import (
	"math"

	"github.com/samirrijal/halfway/internal/core/domain"
)

const earthRadiusKm = 6371.0

// metersPerMile is the conversion used for provider search radii.
const metersPerMile = 1609.34

// Midpoint returns the componentwise average of a and b.
func Midpoint(a, b domain.Coordinate) domain.Coordinate {
	return domain.Coordinate{
		Lat: (a.Lat + b.Lat) / 2,
		Lng: (a.Lng + b.Lng) / 2,
	}
}

// MilesToMeters converts a radius in miles to meters.
func MilesToMeters(miles float64) float64 {
	return miles * metersPerMile
}

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Distance is Haversine over two coordinates.
func Distance(a, b domain.Coordinate) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// FitBounds returns the smallest box containing every point. With no points
// it returns the zero box.
func FitBounds(points ...domain.Coordinate) domain.Bounds {
	if len(points) == 0 {
		return domain.Bounds{}
	}
	b := domain.Bounds{
		MinLat: points[0].Lat, MaxLat: points[0].Lat,
		MinLng: points[0].Lng, MaxLng: points[0].Lng,
	}
	for _, p := range points[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
