package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/pkg/geospatial"
	"github.com/samirrijal/halfway/internal/pkg/logging"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
	"github.com/samirrijal/halfway/internal/pkg/telemetry"
)

var _ ports.ProviderGateway = (*Gateway)(nil)

// Provider outcome labels.
const (
	outcomeOK    = "ok"
	outcomeEmpty = "empty"
	outcomeError = "error"
)

const defaultCallTimeout = 15 * time.Second

// GatewayConfig tunes the provider gateway. TTLs are in seconds; zero
// disables caching for that capability.
type GatewayConfig struct {
	MaxResults int
	RPS        float64
	Burst      int
	PlacesTTL  int
	GeocodeTTL int
	RouteTTL   int
	WeatherTTL int

	// CallTimeout bounds one provider call shared by concurrent callers.
	CallTimeout time.Duration
}

// Providers bundles the four provider capabilities behind the gateway.
type Providers struct {
	Geocoder ports.Geocoder
	Places   ports.PlaceSearcher
	Routes   ports.TravelTimeEstimator
	Weather  ports.WeatherProvider
}

// Gateway is the single boundary between search orchestration and the
// external providers. It never retries a failed call.
type Gateway struct {
	providers Providers
	cache     ports.CacheService
	limiter   *rate.Limiter
	group     singleflight.Group
	clock     clockwork.Clock
	tracer    trace.Tracer
	cfg       GatewayConfig
}

// NewGateway creates a Gateway. cache may be nil.
func NewGateway(p Providers, cache ports.CacheService, cfg GatewayConfig, clock clockwork.Clock) *Gateway {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaultCallTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	g := &Gateway{
		providers: p,
		cache:     cache,
		clock:     clock,
		tracer:    otel.Tracer("halfway/gateway"),
		cfg:       cfg,
	}
	if cfg.RPS > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return g
}

// GeocodeAddress returns the geometry attached to a selection without any
// network call. A selection without geometry fails with ErrResolution.
func (g *Gateway) GeocodeAddress(_ context.Context, sel domain.PlaceSelection) (domain.Coordinate, error) {
	if sel.Location == nil {
		return domain.Coordinate{}, fmt.Errorf("%w: no geometry attached to %q", domain.ErrResolution, sel.Query)
	}
	return *sel.Location, nil
}

// ResolvePlace looks up the coordinate of a place ID through the geocoder.
func (g *Gateway) ResolvePlace(ctx context.Context, placeID string) (domain.Coordinate, error) {
	if placeID == "" {
		return domain.Coordinate{}, fmt.Errorf("%w: empty place id", domain.ErrResolution)
	}
	key := "geocode:place:" + placeID
	return cached(ctx, g, "geocode", telemetry.SpanGeocode, key, g.cfg.GeocodeTTL,
		func(ctx context.Context) (domain.Coordinate, error) {
			c, err := g.providers.Geocoder.GeocodePlace(ctx, placeID)
			if err != nil {
				return domain.Coordinate{}, fmt.Errorf("geocode place %s: %w", placeID, err)
			}
			return c, nil
		})
}

// ReverseGeocode returns the formatted address nearest to c.
func (g *Gateway) ReverseGeocode(ctx context.Context, c domain.Coordinate) (string, error) {
	key := "geocode:reverse:" + c.String()
	return cached(ctx, g, "reverse_geocode", telemetry.SpanReverseGeocode, key, g.cfg.GeocodeTTL,
		func(ctx context.Context) (string, error) {
			label, err := g.providers.Geocoder.ReverseGeocode(ctx, c)
			if err != nil {
				return "", fmt.Errorf("reverse geocode %s: %w", c, err)
			}
			return label, nil
		})
}

// SearchNearbyVenues returns at most MaxResults venues in provider order,
// each with its distance from center.
func (g *Gateway) SearchNearbyVenues(ctx context.Context, center domain.Coordinate, radiusMeters float64, category domain.VenueCategory) ([]domain.VenueResult, error) {
	key := fmt.Sprintf("places:%s:%s:%.0f", category, center, radiusMeters)
	return cached(ctx, g, "places", telemetry.SpanNearbySearch, key, g.cfg.PlacesTTL,
		func(ctx context.Context) ([]domain.VenueResult, error) {
			venues, err := g.providers.Places.SearchNearby(ctx, center, radiusMeters, category)
			if err != nil {
				return nil, fmt.Errorf("nearby %s search: %w", category, err)
			}
			if len(venues) == 0 {
				return nil, domain.ErrNoResults
			}
			if len(venues) > g.cfg.MaxResults {
				venues = venues[:g.cfg.MaxResults]
			}
			for i := range venues {
				venues[i].DistanceMeters = geospatial.Distance(center, venues[i].Location)
			}
			return venues, nil
		})
}

// EstimateTravelTime returns the driving time from origin to destination.
// A missing route is Available=false, not an error.
func (g *Gateway) EstimateTravelTime(ctx context.Context, origin, destination domain.Coordinate) (domain.TravelTime, error) {
	key := fmt.Sprintf("route:%s:%s", origin, destination)
	return cached(ctx, g, "travel_time", telemetry.SpanTravelTime, key, g.cfg.RouteTTL,
		func(ctx context.Context) (domain.TravelTime, error) {
			text, ok, err := g.providers.Routes.DrivingTime(ctx, origin, destination)
			if err != nil {
				return domain.TravelTime{}, fmt.Errorf("driving time: %w", err)
			}
			return domain.TravelTime{Text: text, Available: ok}, nil
		})
}

// FetchCurrentWeather never fails: errors come back as a snapshot in the
// error state.
func (g *Gateway) FetchCurrentWeather(ctx context.Context, c domain.Coordinate) domain.WeatherSnapshot {
	key := "weather:" + c.String()
	snap, err := cached(ctx, g, "weather", telemetry.SpanWeather, key, g.cfg.WeatherTTL,
		func(ctx context.Context) (domain.WeatherSnapshot, error) {
			s, err := g.providers.Weather.CurrentConditions(ctx, c)
			if err != nil {
				return domain.WeatherSnapshot{}, err
			}
			s.State = domain.WeatherReady
			s.FetchedAt = g.clock.Now().UTC()
			return s, nil
		})
	if err != nil {
		logging.FromContext(ctx).Warn("weather lookup failed", "at", c.String(), "error", err)
		return domain.WeatherSnapshot{State: domain.WeatherError, FetchedAt: g.clock.Now().UTC()}
	}
	return snap
}

// cached runs fetch behind the cache, singleflight, rate limiter, metrics and
// a trace span. Failures are never cached.
func cached[T any](ctx context.Context, g *Gateway, capability, spanName, key string, ttl int, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	if g.cache != nil && ttl > 0 {
		if data, err := g.cache.Get(ctx, key); err == nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				metrics.CacheHits.WithLabelValues(capability).Inc()
				return v, nil
			}
			// Entry written by an incompatible build.
			_ = g.cache.Delete(ctx, key)
		}
		metrics.CacheMisses.WithLabelValues(capability).Inc()
	}

	// The shared call outlives any single caller: it runs detached from the
	// caller that started it, bounded by CallTimeout, and each caller stops
	// waiting on its own context.
	ch := g.group.DoChan(key, func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.CallTimeout)
		defer cancel()

		if g.limiter != nil {
			if err := g.limiter.Wait(ctx); err != nil {
				return zero, fmt.Errorf("%s rate limit: %w", capability, err)
			}
		}

		ctx, span := g.tracer.Start(ctx, spanName, trace.WithAttributes(
			attribute.String("provider.capability", capability),
		))
		defer span.End()

		start := g.clock.Now()
		res, err := fetch(ctx)
		metrics.ProviderDuration.WithLabelValues(capability).Observe(g.clock.Since(start).Seconds())

		switch {
		case err == nil:
			metrics.ProviderRequests.WithLabelValues(capability, outcomeOK).Inc()
		case errors.Is(err, domain.ErrNoResults), errors.Is(err, domain.ErrNotFound):
			metrics.ProviderRequests.WithLabelValues(capability, outcomeEmpty).Inc()
			return zero, err
		default:
			metrics.ProviderRequests.WithLabelValues(capability, outcomeError).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return zero, err
		}

		if g.cache != nil && ttl > 0 {
			if data, err := json.Marshal(res); err == nil {
				_ = g.cache.Set(ctx, key, data, ttl)
			}
		}
		return res, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return zero, r.Err
		}
		return r.Val.(T), nil
	case <-ctx.Done():
		return zero, fmt.Errorf("%s: %w", capability, ctx.Err())
	}
}
