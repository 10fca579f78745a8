package usecases

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/pkg/geospatial"
	"github.com/samirrijal/halfway/internal/pkg/logging"
)

// SearchRequest is a one-shot search between two selections.
type SearchRequest struct {
	A           domain.PlaceSelection `json:"a"`
	B           domain.PlaceSelection `json:"b"`
	Category    domain.VenueCategory  `json:"category"`
	RadiusMiles float64               `json:"radius_miles"`
}

// MidpointResult holds the resolved endpoints and their midpoint.
type MidpointResult struct {
	A        domain.Coordinate `json:"a"`
	B        domain.Coordinate `json:"b"`
	Midpoint domain.Coordinate `json:"midpoint"`
	Bounds   domain.Bounds     `json:"bounds"`
}

// SearchResult carries every region of a search. A failed region has its
// error text set and the rest of the result is still usable.
type SearchResult struct {
	MidpointResult
	Category     domain.VenueCategory   `json:"category"`
	RadiusMiles  float64                `json:"radius_miles"`
	Venues       []domain.VenueResult   `json:"venues"`
	VenuesError  string                 `json:"venues_error,omitempty"`
	TravelTimes  []domain.TravelTime    `json:"travel_times"`
	Label        string                 `json:"label,omitempty"`
	LabelError   string                 `json:"label_error,omitempty"`
	Weather      domain.WeatherSnapshot `json:"weather"`
	SearchRecord string                 `json:"search_id,omitempty"`
}

// SearchService runs stateless searches for the REST and GraphQL APIs.
type SearchService struct {
	gateway  ports.ProviderGateway
	recorder ports.SearchRecorder
	clock    clockwork.Clock
	defaults SearchRequest
}

// NewSearchService creates a SearchService. recorder may be nil.
func NewSearchService(gw ports.ProviderGateway, recorder ports.SearchRecorder, clock clockwork.Clock, defaultCategory domain.VenueCategory, defaultRadiusMiles float64) *SearchService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SearchService{
		gateway:  gw,
		recorder: recorder,
		clock:    clock,
		defaults: SearchRequest{Category: defaultCategory, RadiusMiles: defaultRadiusMiles},
	}
}

// Midpoint validates and resolves both selections and returns their midpoint.
// Unlike a session, the one-shot API also accepts a bare place ID and looks
// it up through the geocoder.
func (s *SearchService) Midpoint(ctx context.Context, a, b domain.PlaceSelection) (*MidpointResult, error) {
	if !a.Identified() || !b.Identified() {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, ValidationMessage)
	}

	var ca, cb domain.Coordinate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ca, err = s.locate(gctx, a)
		return err
	})
	g.Go(func() (err error) {
		cb, err = s.locate(gctx, b)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if !ca.Valid() || !cb.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", domain.ErrValidation)
	}

	mid := geospatial.Midpoint(ca, cb)
	return &MidpointResult{A: ca, B: cb, Midpoint: mid, Bounds: geospatial.FitBounds(ca, cb, mid)}, nil
}

func (s *SearchService) locate(ctx context.Context, sel domain.PlaceSelection) (domain.Coordinate, error) {
	if sel.Selected() {
		return s.gateway.GeocodeAddress(ctx, sel)
	}
	return s.gateway.ResolvePlace(ctx, sel.PlaceID)
}

// Venues searches around center. radiusMiles is clamped to the slider range.
func (s *SearchService) Venues(ctx context.Context, center domain.Coordinate, category domain.VenueCategory, radiusMiles float64) ([]domain.VenueResult, error) {
	sel := NewSelectionState(s.category(category), s.radius(radiusMiles))
	return s.gateway.SearchNearbyVenues(ctx, center, sel.RadiusMeters(), sel.Category())
}

// TravelTime estimates the driving time from origin to destination.
func (s *SearchService) TravelTime(ctx context.Context, origin, destination domain.Coordinate) (domain.TravelTime, error) {
	return s.gateway.EstimateTravelTime(ctx, origin, destination)
}

// Label reverse-geocodes c.
func (s *SearchService) Label(ctx context.Context, c domain.Coordinate) (string, error) {
	return s.gateway.ReverseGeocode(ctx, c)
}

// Weather returns the current conditions at c.
func (s *SearchService) Weather(ctx context.Context, c domain.Coordinate) domain.WeatherSnapshot {
	return s.gateway.FetchCurrentWeather(ctx, c)
}

// Search resolves the midpoint, then fetches every region concurrently.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	mp, err := s.Midpoint(ctx, req.A, req.B)
	if err != nil {
		return nil, err
	}

	sel := NewSelectionState(s.category(req.Category), s.radius(req.RadiusMiles))
	sel.SetMidpoint(mp.Midpoint)

	res := &SearchResult{
		MidpointResult: *mp,
		Category:       sel.Category(),
		RadiusMiles:    sel.RadiusMiles(),
		Venues:         []domain.VenueResult{},
		TravelTimes: []domain.TravelTime{
			{Origin: domain.OriginA},
			{Origin: domain.OriginB},
		},
	}

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		defer wg.Done()
		venues, err := s.gateway.SearchNearbyVenues(ctx, mp.Midpoint, sel.RadiusMeters(), sel.Category())
		switch {
		case err == nil:
			res.Venues = venues
		case errors.Is(err, domain.ErrNoResults):
			res.VenuesError = NoPlacesMessage
		default:
			res.VenuesError = err.Error()
		}
	}()
	for i, from := range []domain.Coordinate{mp.A, mp.B} {
		go func() {
			defer wg.Done()
			tt, err := s.gateway.EstimateTravelTime(ctx, from, mp.Midpoint)
			if err != nil {
				logging.FromContext(ctx).Warn("travel time failed", "origin", res.TravelTimes[i].Origin, "error", err)
				return
			}
			tt.Origin = res.TravelTimes[i].Origin
			res.TravelTimes[i] = tt
		}()
	}
	go func() {
		defer wg.Done()
		label, err := s.gateway.ReverseGeocode(ctx, mp.Midpoint)
		if err != nil {
			res.LabelError = err.Error()
			return
		}
		res.Label = label
	}()
	go func() {
		defer wg.Done()
		res.Weather = s.gateway.FetchCurrentWeather(ctx, mp.Midpoint)
	}()
	wg.Wait()

	if s.recorder != nil && (res.VenuesError == "" || res.VenuesError == NoPlacesMessage) {
		rec := domain.SearchRecord{
			ID:          uuid.NewString(),
			A:           mp.A,
			B:           mp.B,
			Midpoint:    mp.Midpoint,
			Category:    res.Category,
			RadiusMiles: res.RadiusMiles,
			VenueCount:  len(res.Venues),
			CreatedAt:   s.clock.Now().UTC(),
		}
		if err := s.recorder.Record(ctx, rec); err != nil {
			logging.FromContext(ctx).Warn("record search failed", "error", err)
		} else {
			res.SearchRecord = rec.ID
		}
	}

	return res, nil
}

// Settings applies the defaults and the slider range to a category and radius.
func (s *SearchService) Settings(c domain.VenueCategory, miles float64) (domain.VenueCategory, float64) {
	sel := NewSelectionState(s.category(c), s.radius(miles))
	return sel.Category(), sel.RadiusMiles()
}

func (s *SearchService) category(c domain.VenueCategory) domain.VenueCategory {
	if c == "" {
		return s.defaults.Category
	}
	return c
}

func (s *SearchService) radius(miles float64) float64 {
	if miles <= 0 {
		return s.defaults.RadiusMiles
	}
	return miles
}
