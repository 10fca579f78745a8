package ports

import (
	"context"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// Geocoder resolves place IDs to coordinates and coordinates to addresses.
type Geocoder interface {
	GeocodePlace(ctx context.Context, placeID string) (domain.Coordinate, error)
	ReverseGeocode(ctx context.Context, c domain.Coordinate) (string, error)
}

// PlaceSearcher finds venues of a category around a center point.
type PlaceSearcher interface {
	SearchNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, category domain.VenueCategory) ([]domain.VenueResult, error)
}

// TravelTimeEstimator estimates driving time between two points. It returns
// ok=false when the provider has no route.
type TravelTimeEstimator interface {
	DrivingTime(ctx context.Context, origin, destination domain.Coordinate) (text string, ok bool, err error)
}

// WeatherProvider looks up current conditions for a point.
type WeatherProvider interface {
	CurrentConditions(ctx context.Context, c domain.Coordinate) (domain.WeatherSnapshot, error)
}

// ProviderGateway is the capability boundary the search orchestration depends on.
type ProviderGateway interface {
	GeocodeAddress(ctx context.Context, sel domain.PlaceSelection) (domain.Coordinate, error)
	ResolvePlace(ctx context.Context, placeID string) (domain.Coordinate, error)
	ReverseGeocode(ctx context.Context, c domain.Coordinate) (string, error)
	SearchNearbyVenues(ctx context.Context, center domain.Coordinate, radiusMeters float64, category domain.VenueCategory) ([]domain.VenueResult, error)
	EstimateTravelTime(ctx context.Context, origin, destination domain.Coordinate) (domain.TravelTime, error)
	FetchCurrentWeather(ctx context.Context, c domain.Coordinate) domain.WeatherSnapshot
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSearch(ctx context.Context, rec *domain.SearchRecord) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// SearchRecorder stores completed searches.
type SearchRecorder interface {
	Record(ctx context.Context, rec domain.SearchRecord) error
}

// ViewSink receives render instructions for one UI surface.
type ViewSink interface {
	Render(ctx context.Context, update domain.ViewUpdate) error
}
