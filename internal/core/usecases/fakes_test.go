package usecases_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/samirrijal/halfway/internal/core/domain"
)

// --- Fake ProviderGateway ---

type fakeGateway struct {
	geocodeFn func(ctx context.Context, sel domain.PlaceSelection) (domain.Coordinate, error)
	resolveFn func(ctx context.Context, placeID string) (domain.Coordinate, error)
	reverseFn func(ctx context.Context, c domain.Coordinate) (string, error)
	venuesFn  func(ctx context.Context, center domain.Coordinate, radius float64, cat domain.VenueCategory) ([]domain.VenueResult, error)
	etaFn     func(ctx context.Context, origin, dest domain.Coordinate) (domain.TravelTime, error)
	weatherFn func(ctx context.Context, c domain.Coordinate) domain.WeatherSnapshot

	geocodeCalls atomic.Int32
	resolveCalls atomic.Int32
	reverseCalls atomic.Int32
	venueCalls   atomic.Int32
	etaCalls     atomic.Int32
	weatherCalls atomic.Int32
}

func (f *fakeGateway) totalCalls() int32 {
	return f.geocodeCalls.Load() + f.resolveCalls.Load() + f.reverseCalls.Load() +
		f.venueCalls.Load() + f.etaCalls.Load() + f.weatherCalls.Load()
}

func (f *fakeGateway) GeocodeAddress(ctx context.Context, sel domain.PlaceSelection) (domain.Coordinate, error) {
	f.geocodeCalls.Add(1)
	if f.geocodeFn != nil {
		return f.geocodeFn(ctx, sel)
	}
	if sel.Location != nil {
		return *sel.Location, nil
	}
	return domain.Coordinate{}, domain.ErrResolution
}

func (f *fakeGateway) ResolvePlace(ctx context.Context, placeID string) (domain.Coordinate, error) {
	f.resolveCalls.Add(1)
	if f.resolveFn != nil {
		return f.resolveFn(ctx, placeID)
	}
	return domain.Coordinate{}, domain.ErrNotFound
}

func (f *fakeGateway) ReverseGeocode(ctx context.Context, c domain.Coordinate) (string, error) {
	f.reverseCalls.Add(1)
	if f.reverseFn != nil {
		return f.reverseFn(ctx, c)
	}
	return "100 Main St, Ames, IA", nil
}

func (f *fakeGateway) SearchNearbyVenues(ctx context.Context, center domain.Coordinate, radius float64, cat domain.VenueCategory) ([]domain.VenueResult, error) {
	f.venueCalls.Add(1)
	if f.venuesFn != nil {
		return f.venuesFn(ctx, center, radius, cat)
	}
	return venuesFor(cat, center), nil
}

func (f *fakeGateway) EstimateTravelTime(ctx context.Context, origin, dest domain.Coordinate) (domain.TravelTime, error) {
	f.etaCalls.Add(1)
	if f.etaFn != nil {
		return f.etaFn(ctx, origin, dest)
	}
	return domain.TravelTime{Text: "35 mins", Available: true}, nil
}

func (f *fakeGateway) FetchCurrentWeather(ctx context.Context, c domain.Coordinate) domain.WeatherSnapshot {
	f.weatherCalls.Add(1)
	if f.weatherFn != nil {
		return f.weatherFn(ctx, c)
	}
	return domain.WeatherSnapshot{State: domain.WeatherReady, TempF: 70, Condition: "Sunny"}
}

func venuesFor(cat domain.VenueCategory, center domain.Coordinate) []domain.VenueResult {
	rating := 4.2
	return []domain.VenueResult{
		{Name: string(cat) + " one", Address: "1 First Ave", Rating: &rating, PlaceID: string(cat) + "-1", Location: center},
		{Name: string(cat) + " two", Address: "2 First Ave", PlaceID: string(cat) + "-2", Location: domain.Coordinate{Lat: center.Lat + 0.01, Lng: center.Lng}},
	}
}

// --- Recording ViewSink ---

type recordingSink struct {
	mu      sync.Mutex
	updates []domain.ViewUpdate
}

func (r *recordingSink) Render(_ context.Context, u domain.ViewUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
	return nil
}

func (r *recordingSink) byRegion(region domain.Region) []domain.ViewUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ViewUpdate
	for _, u := range r.updates {
		if u.Region == region {
			out = append(out, u)
		}
	}
	return out
}

func (r *recordingSink) last(region domain.Region) (domain.ViewUpdate, bool) {
	all := r.byRegion(region)
	if len(all) == 0 {
		return domain.ViewUpdate{}, false
	}
	return all[len(all)-1], true
}

// --- Fake recorder / repository / publisher ---

type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.SearchRecord
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, rec domain.SearchRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return f.err
}

func (f *fakeRecorder) all() []domain.SearchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.SearchRecord(nil), f.records...)
}

type mockSearchRepo struct {
	insertFn     func(ctx context.Context, rec *domain.SearchRecord) error
	listRecentFn func(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error)
	countFn      func(ctx context.Context) (int, error)
}

func (m *mockSearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec)
	}
	return nil
}

func (m *mockSearchRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockSearchRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

type mockPublisher struct {
	published []domain.SearchRecord
	err       error
}

func (m *mockPublisher) PublishSearch(_ context.Context, rec *domain.SearchRecord) error {
	m.published = append(m.published, *rec)
	return m.err
}

// --- In-memory cache ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}, ttls: map[string]int{}}
}

var errCacheMiss = errors.New("cache miss")

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, ttl int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func ptr[T any](v T) *T { return &v }
