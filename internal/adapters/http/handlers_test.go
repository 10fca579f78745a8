package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jonboulle/clockwork"

	handler "github.com/samirrijal/halfway/internal/adapters/http"
	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/usecases"
	"github.com/samirrijal/halfway/internal/pkg/geospatial"
)

// ---- Mocks ----

type mockGateway struct {
	geocodeFn func(ctx context.Context, sel domain.PlaceSelection) (domain.Coordinate, error)
	resolveFn func(ctx context.Context, placeID string) (domain.Coordinate, error)
	reverseFn func(ctx context.Context, c domain.Coordinate) (string, error)
	venuesFn  func(ctx context.Context, center domain.Coordinate, radius float64, cat domain.VenueCategory) ([]domain.VenueResult, error)
	etaFn     func(ctx context.Context, origin, dest domain.Coordinate) (domain.TravelTime, error)
	weatherFn func(ctx context.Context, c domain.Coordinate) domain.WeatherSnapshot
}

func (m *mockGateway) GeocodeAddress(ctx context.Context, sel domain.PlaceSelection) (domain.Coordinate, error) {
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, sel)
	}
	if sel.Location != nil {
		return *sel.Location, nil
	}
	return domain.Coordinate{}, domain.ErrResolution
}

func (m *mockGateway) ResolvePlace(ctx context.Context, placeID string) (domain.Coordinate, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, placeID)
	}
	return domain.Coordinate{}, domain.ErrNotFound
}

func (m *mockGateway) ReverseGeocode(ctx context.Context, c domain.Coordinate) (string, error) {
	if m.reverseFn != nil {
		return m.reverseFn(ctx, c)
	}
	return "Main St, Ames, IA", nil
}

func (m *mockGateway) SearchNearbyVenues(ctx context.Context, center domain.Coordinate, radius float64, cat domain.VenueCategory) ([]domain.VenueResult, error) {
	if m.venuesFn != nil {
		return m.venuesFn(ctx, center, radius, cat)
	}
	return nil, domain.ErrNoResults
}

func (m *mockGateway) EstimateTravelTime(ctx context.Context, origin, dest domain.Coordinate) (domain.TravelTime, error) {
	if m.etaFn != nil {
		return m.etaFn(ctx, origin, dest)
	}
	return domain.TravelTime{Text: "25 mins", Available: true}, nil
}

func (m *mockGateway) FetchCurrentWeather(ctx context.Context, c domain.Coordinate) domain.WeatherSnapshot {
	if m.weatherFn != nil {
		return m.weatherFn(ctx, c)
	}
	return domain.WeatherSnapshot{State: domain.WeatherReady, TempF: 72, Condition: "Sunny"}
}

type mockSearchRepo struct {
	insertFn func(ctx context.Context, rec *domain.SearchRecord) error
	listFn   func(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error)
	countFn  func(ctx context.Context) (int, error)
}

func (m *mockSearchRepo) Insert(ctx context.Context, rec *domain.SearchRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec)
	}
	return nil
}

func (m *mockSearchRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.SearchRecord, error) {
	if m.listFn != nil {
		return m.listFn(ctx, offset, limit)
	}
	return nil, nil
}

func (m *mockSearchRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// ---- Test helpers ----

var (
	ames   = domain.Coordinate{Lat: 42.0308, Lng: -93.6319}
	desMoi = domain.Coordinate{Lat: 41.5868, Lng: -93.6250}
)

func setupApp(deps *handler.Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)
	return app
}

func makeDeps(gw *mockGateway, repo *mockSearchRepo) *handler.Dependencies {
	if gw == nil {
		gw = &mockGateway{}
	}
	if repo == nil {
		repo = &mockSearchRepo{}
	}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	history := usecases.NewHistoryService(repo, nil)
	return &handler.Dependencies{
		Search:   usecases.NewSearchService(gw, history, clock, domain.CategoryCafe, 5),
		History:  history,
		Gateway:  gw,
		Recorder: history,
		SessionDefaults: usecases.SessionConfig{
			DefaultCategory:    domain.CategoryCafe,
			DefaultRadiusMiles: 5,
			FocusZoom:          14,
		},
		Clock: clock,
	}
}

func readBody(t *testing.T, body io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return b
}

type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeError(t *testing.T, body io.Reader) apiError {
	t.Helper()
	var e apiError
	if err := json.NewDecoder(body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

func midpointURL(a, b domain.Coordinate) string {
	return fmt.Sprintf("/v1/midpoint?a_lat=%f&a_lng=%f&b_lat=%f&b_lng=%f", a.Lat, a.Lng, b.Lat, b.Lng)
}

func sampleVenues(n int) []domain.VenueResult {
	out := make([]domain.VenueResult, n)
	for i := range out {
		out[i] = domain.VenueResult{
			Name:     fmt.Sprintf("Venue %d", i),
			Address:  fmt.Sprintf("%d Main St", i),
			PlaceID:  fmt.Sprintf("p%d", i),
			Location: domain.Coordinate{Lat: 41.8, Lng: -93.6},
		}
	}
	return out
}

// ---- Midpoint ----

func TestMidpoint_Success(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, err := app.Test(httptest.NewRequest("GET", midpointURL(ames, desMoi), nil), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var res usecases.MidpointResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	want := geospatial.Midpoint(ames, desMoi)
	if diff := res.Midpoint.Lat - want.Lat; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("midpoint lat: want %f, got %f", want.Lat, res.Midpoint.Lat)
	}
	if res.Bounds.MaxLat < ames.Lat || res.Bounds.MinLat > desMoi.Lat {
		t.Errorf("bounds %+v do not contain both endpoints", res.Bounds)
	}
}

func TestMidpoint_FreeTextIsNotASelection(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	req := httptest.NewRequest("GET", "/v1/midpoint?a=Ames&b_place_id=abc", nil)
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	e := decodeError(t, resp.Body)
	if e.Code != "bad_request" {
		t.Errorf("expected bad_request, got %s", e.Code)
	}
	if !strings.Contains(e.Message, usecases.ValidationMessage) {
		t.Errorf("expected validation message, got %q", e.Message)
	}
}

func TestMidpoint_PlaceIDLookup(t *testing.T) {
	gw := &mockGateway{
		resolveFn: func(_ context.Context, id string) (domain.Coordinate, error) {
			if id != "abc" {
				return domain.Coordinate{}, domain.ErrNotFound
			}
			return desMoi, nil
		},
	}
	app := setupApp(makeDeps(gw, nil))

	url := fmt.Sprintf("/v1/midpoint?a_lat=%f&a_lng=%f&b_place_id=abc", ames.Lat, ames.Lng)
	resp, _ := app.Test(httptest.NewRequest("GET", url, nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}
	var res usecases.MidpointResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.B != desMoi {
		t.Errorf("expected b resolved to %v, got %v", desMoi, res.B)
	}
}

func TestMidpoint_BadCoordinate(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	for _, url := range []string{
		"/v1/midpoint?a_lat=abc&a_lng=1&b_lat=1&b_lng=1",
		"/v1/midpoint?a_lat=95&a_lng=1&b_lat=1&b_lng=1",
		"/v1/midpoint?a_lat=1&b_lat=1&b_lng=1",
	} {
		resp, _ := app.Test(httptest.NewRequest("GET", url, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", url, resp.StatusCode)
		}
	}
}

func TestMidpoint_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"resolution", fmt.Errorf("place abc: %w", domain.ErrResolution), 400, "bad_request"},
		{"not found", fmt.Errorf("geocode: %w", domain.ErrNotFound), 404, "not_found"},
		{"provider", &domain.ProviderError{Provider: "geocode", Status: "OVER_QUERY_LIMIT"}, 502, "provider_error"},
		{"transient", fmt.Errorf("geocode: %w", domain.ErrTransientFetch), 502, "provider_error"},
		{"unexpected", fmt.Errorf("boom"), 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mockGateway{
				resolveFn: func(context.Context, string) (domain.Coordinate, error) {
					return domain.Coordinate{}, tt.err
				},
			}
			app := setupApp(makeDeps(gw, nil))

			resp, _ := app.Test(httptest.NewRequest("GET", "/v1/midpoint?a_place_id=x&b_place_id=y", nil), -1)
			if resp.StatusCode != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if e := decodeError(t, resp.Body); e.Code != tt.code {
				t.Errorf("expected %s, got %s", tt.code, e.Code)
			}
		})
	}
}

// ---- Venues ----

func TestVenues_Success(t *testing.T) {
	var gotRadius float64
	var gotCategory domain.VenueCategory
	gw := &mockGateway{
		venuesFn: func(_ context.Context, _ domain.Coordinate, radius float64, cat domain.VenueCategory) ([]domain.VenueResult, error) {
			gotRadius, gotCategory = radius, cat
			return sampleVenues(3), nil
		},
	}
	app := setupApp(makeDeps(gw, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/venues?lat=41.8&lng=-93.6&category=park&radius=500", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var res handler.VenuesResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if gotCategory != domain.CategoryPark {
		t.Errorf("expected park, got %s", gotCategory)
	}
	if res.RadiusMiles != 50 {
		t.Errorf("expected radius clamped to 50, got %v", res.RadiusMiles)
	}
	if d := gotRadius - 50*1609.34; d > 0.01 || d < -0.01 {
		t.Errorf("expected %v meters, got %v", 50*1609.34, gotRadius)
	}
	if len(res.Venues) != 3 || len(res.View.Cards) != 3 {
		t.Fatalf("expected 3 venues and cards, got %d/%d", len(res.Venues), len(res.View.Cards))
	}
	if res.View.Cards[0].Rating != "⭐ —" {
		t.Errorf("unrated venue rendered as %q", res.View.Cards[0].Rating)
	}
}

func TestVenues_DefaultsAndEmptyState(t *testing.T) {
	var gotCategory domain.VenueCategory
	gw := &mockGateway{
		venuesFn: func(_ context.Context, _ domain.Coordinate, _ float64, cat domain.VenueCategory) ([]domain.VenueResult, error) {
			gotCategory = cat
			return nil, domain.ErrNoResults
		},
	}
	app := setupApp(makeDeps(gw, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/venues?lat=41.8&lng=-93.6", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res handler.VenuesResponse
	json.NewDecoder(resp.Body).Decode(&res)
	if gotCategory != domain.CategoryCafe {
		t.Errorf("expected default cafe, got %s", gotCategory)
	}
	if res.RadiusMiles != 5 {
		t.Errorf("expected default radius 5, got %v", res.RadiusMiles)
	}
	if res.View.Empty != usecases.NoPlacesMessage {
		t.Errorf("expected empty state, got %q", res.View.Empty)
	}
	if res.Venues == nil || len(res.Venues) != 0 {
		t.Errorf("expected an empty venue list, got %v", res.Venues)
	}
}

func TestVenues_BadInput(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	for _, url := range []string{
		"/v1/venues",
		"/v1/venues?lat=41.8&lng=-93.6&category=bar",
		"/v1/venues?lat=41.8&lng=-200",
	} {
		resp, _ := app.Test(httptest.NewRequest("GET", url, nil), -1)
		if resp.StatusCode != 400 {
			t.Errorf("%s: expected 400, got %d", url, resp.StatusCode)
		}
	}
}

func TestVenues_ProviderFailure(t *testing.T) {
	gw := &mockGateway{
		venuesFn: func(context.Context, domain.Coordinate, float64, domain.VenueCategory) ([]domain.VenueResult, error) {
			return nil, &domain.ProviderError{Provider: "places", Status: "REQUEST_DENIED"}
		},
	}
	app := setupApp(makeDeps(gw, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/venues?lat=41.8&lng=-93.6", nil), -1)
	if resp.StatusCode != 502 {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("error responses must not be cached, got %q", cc)
	}
}

// ---- ETA, label, weather ----

func TestETA_Success(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/eta?from_lat=42&from_lng=-93.6&to_lat=41.8&to_lng=-93.6", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var res handler.ETAResponse
	json.NewDecoder(resp.Body).Decode(&res)
	if !res.Available || res.Text != "25 mins" {
		t.Errorf("unexpected travel time %+v", res.TravelTime)
	}
	if res.Display != "⏱️ Estimated: 25 mins" {
		t.Errorf("unexpected display %q", res.Display)
	}
}

func TestETA_NoRoute(t *testing.T) {
	gw := &mockGateway{
		etaFn: func(context.Context, domain.Coordinate, domain.Coordinate) (domain.TravelTime, error) {
			return domain.TravelTime{Available: false}, nil
		},
	}
	app := setupApp(makeDeps(gw, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/eta?from_lat=42&from_lng=-93.6&to_lat=41.8&to_lng=-93.6", nil), -1)
	var res handler.ETAResponse
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Display != "⏱️ Estimated: —" {
		t.Errorf("unexpected display %q", res.Display)
	}
}

func TestLabel_Success(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/label?lat=41.8&lng=-93.6", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res usecases.LabelView
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Text != "Main St, Ames, IA" {
		t.Errorf("unexpected label %q", res.Text)
	}
}

func TestWeather_Ready(t *testing.T) {
	humidity, feels := 40, 70
	gw := &mockGateway{
		weatherFn: func(context.Context, domain.Coordinate) domain.WeatherSnapshot {
			return domain.WeatherSnapshot{State: domain.WeatherReady, TempF: 72, Condition: "Partly cloudy", Humidity: &humidity, FeelsLikeF: &feels}
		},
	}
	app := setupApp(makeDeps(gw, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/weather?lat=41.8&lng=-93.6", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res handler.WeatherResponse
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Widget.Temp != "72°F" || res.Widget.Condition != "⛅ Partly cloudy" {
		t.Errorf("unexpected widget %+v", res.Widget)
	}
	if res.Widget.Extra != "Feels like 70°F · 40% humidity" {
		t.Errorf("unexpected extra line %q", res.Widget.Extra)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "public, max-age=120" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestWeather_FailureIsRendered(t *testing.T) {
	gw := &mockGateway{
		weatherFn: func(context.Context, domain.Coordinate) domain.WeatherSnapshot {
			return domain.WeatherSnapshot{State: domain.WeatherError}
		},
	}
	app := setupApp(makeDeps(gw, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/weather?lat=41.8&lng=-93.6", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res handler.WeatherResponse
	json.NewDecoder(resp.Body).Decode(&res)
	if res.Widget.Temp != "--°F" || res.Widget.Condition != "⚠️ Weather unavailable" {
		t.Errorf("unexpected widget %+v", res.Widget)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
		t.Errorf("failed weather must not be cached, got %q", cc)
	}
}

// ---- One-shot search ----

func postJSON(path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSearch_AllRegions(t *testing.T) {
	var inserted *domain.SearchRecord
	repo := &mockSearchRepo{
		insertFn: func(_ context.Context, rec *domain.SearchRecord) error {
			inserted = rec
			return nil
		},
	}
	gw := &mockGateway{
		venuesFn: func(context.Context, domain.Coordinate, float64, domain.VenueCategory) ([]domain.VenueResult, error) {
			return sampleVenues(2), nil
		},
	}
	app := setupApp(makeDeps(gw, repo))

	req := postJSON("/v1/search", usecases.SearchRequest{
		A:           domain.PlaceSelection{Location: &ames},
		B:           domain.PlaceSelection{Location: &desMoi},
		Category:    domain.CategoryRestaurant,
		RadiusMiles: 7,
	})
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, readBody(t, resp.Body))
	}

	var res usecases.SearchResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if len(res.Venues) != 2 || res.Category != domain.CategoryRestaurant || res.RadiusMiles != 7 {
		t.Errorf("unexpected venues region: %d %s %v", len(res.Venues), res.Category, res.RadiusMiles)
	}
	if len(res.TravelTimes) != 2 || res.TravelTimes[0].Origin != domain.OriginA || res.TravelTimes[1].Origin != domain.OriginB {
		t.Errorf("unexpected travel times %+v", res.TravelTimes)
	}
	if res.Label == "" || res.Weather.State != domain.WeatherReady {
		t.Errorf("label/weather missing: %q %s", res.Label, res.Weather.State)
	}
	if inserted == nil || res.SearchRecord != inserted.ID || inserted.VenueCount != 2 {
		t.Errorf("search not recorded: %+v", inserted)
	}
}

func TestSearch_RegionFailuresAreIsolated(t *testing.T) {
	gw := &mockGateway{
		reverseFn: func(context.Context, domain.Coordinate) (string, error) {
			return "", &domain.ProviderError{Provider: "geocode", Code: 500}
		},
		venuesFn: func(context.Context, domain.Coordinate, float64, domain.VenueCategory) ([]domain.VenueResult, error) {
			return sampleVenues(1), nil
		},
	}
	app := setupApp(makeDeps(gw, nil))

	req := postJSON("/v1/search", usecases.SearchRequest{
		A: domain.PlaceSelection{Location: &ames},
		B: domain.PlaceSelection{Location: &desMoi},
	})
	resp, _ := app.Test(req, -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var res usecases.SearchResult
	json.NewDecoder(resp.Body).Decode(&res)
	if res.LabelError == "" {
		t.Error("expected label error")
	}
	if len(res.Venues) != 1 {
		t.Errorf("venues should survive a label failure, got %d", len(res.Venues))
	}
}

func TestSearch_BadRequests(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	bad := domain.Coordinate{Lat: 100, Lng: 0}
	tests := []struct {
		name string
		req  *http.Request
	}{
		{"invalid json", func() *http.Request {
			r := httptest.NewRequest("POST", "/v1/search", strings.NewReader("{"))
			r.Header.Set("Content-Type", "application/json")
			return r
		}()},
		{"unselected", postJSON("/v1/search", usecases.SearchRequest{A: domain.PlaceSelection{Query: "Ames"}})},
		{"unknown category", postJSON("/v1/search", usecases.SearchRequest{
			A: domain.PlaceSelection{Location: &ames}, B: domain.PlaceSelection{Location: &desMoi}, Category: "bar",
		})},
		{"out of range", postJSON("/v1/search", usecases.SearchRequest{
			A: domain.PlaceSelection{Location: &bad}, B: domain.PlaceSelection{Location: &desMoi},
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := app.Test(tt.req, -1)
			if resp.StatusCode != 400 {
				t.Fatalf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

// ---- History ----

func TestRecentSearches_Pagination(t *testing.T) {
	var gotOffset, gotLimit int
	repo := &mockSearchRepo{
		listFn: func(_ context.Context, offset, limit int) ([]domain.SearchRecord, error) {
			gotOffset, gotLimit = offset, limit
			return []domain.SearchRecord{{ID: "r1", Category: domain.CategoryPark}, {ID: "r2"}}, nil
		},
		countFn: func(context.Context) (int, error) { return 7, nil },
	}
	app := setupApp(makeDeps(nil, repo))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/searches/recent?offset=2&limit=2", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.SearchRecord `json:"data"`
		Pagination handler.Pagination    `json:"pagination"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if gotOffset != 2 || gotLimit != 2 {
		t.Errorf("expected offset 2 limit 2, got %d %d", gotOffset, gotLimit)
	}
	if result.Pagination.Total != 7 || len(result.Data) != 2 {
		t.Errorf("unexpected page %+v with %d records", result.Pagination, len(result.Data))
	}

	link := resp.Header.Get("Link")
	for _, rel := range []string{`rel="first"`, `rel="prev"`, `rel="next"`, `rel="last"`} {
		if !strings.Contains(link, rel) {
			t.Errorf("Link header missing %s: %s", rel, link)
		}
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "private, no-cache" {
		t.Errorf("unexpected Cache-Control %q", cc)
	}
}

func TestRecentSearches_LimitFallsBackToDefault(t *testing.T) {
	var gotLimit int
	repo := &mockSearchRepo{
		listFn: func(_ context.Context, _, limit int) ([]domain.SearchRecord, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	app := setupApp(makeDeps(nil, repo))

	app.Test(httptest.NewRequest("GET", "/v1/searches/recent?limit=5000", nil), -1)
	if gotLimit != 20 {
		t.Errorf("expected default limit 20, got %d", gotLimit)
	}
}

func TestRecentSearches_StoreFailure(t *testing.T) {
	repo := &mockSearchRepo{
		listFn: func(context.Context, int, int) ([]domain.SearchRecord, error) {
			return nil, fmt.Errorf("connection refused")
		},
	}
	app := setupApp(makeDeps(nil, repo))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/searches/recent", nil), -1)
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}

// ---- System ----

func TestHealth(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["status"] != "healthy" {
		t.Errorf("unexpected status %q", body["status"])
	}
}

func TestReady_NothingConfigured(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/ready", nil), -1)
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "ready" {
		t.Errorf("unexpected status %q", body.Status)
	}
	for _, name := range []string{"database", "nats", "cache"} {
		if body.Checks[name] != "not configured" {
			t.Errorf("%s: expected not configured, got %q", name, body.Checks[name])
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/health", nil), -1)
	if v := resp.Header.Get("X-API-Version"); v != "1.0.0" {
		t.Errorf("expected X-API-Version 1.0.0, got %q", v)
	}
	if v := resp.Header.Get("X-Content-Type-Options"); v != "nosniff" {
		t.Errorf("expected nosniff, got %q", v)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Error("expected a request ID")
	}
}

func TestETag_NotModified(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/v1/label?lat=41.8&lng=-93.6", nil), -1)
	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("expected an ETag")
	}

	req := httptest.NewRequest("GET", "/v1/label?lat=41.8&lng=-93.6", nil)
	req.Header.Set("If-None-Match", `W/"other", `+etag)
	resp, _ = app.Test(req, -1)
	if resp.StatusCode != 304 {
		t.Fatalf("expected 304, got %d", resp.StatusCode)
	}
}

func TestWebSocket_RequiresUpgrade(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	resp, _ := app.Test(httptest.NewRequest("GET", "/ws", nil), -1)
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

// ---- GraphQL ----

func graphQL(t *testing.T, app *fiber.App, query string) map[string]any {
	t.Helper()
	resp, err := app.Test(postJSON("/graphql", map[string]string{"query": query}), -1)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestGraphQL_Midpoint(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	out := graphQL(t, app, fmt.Sprintf(
		`{ midpoint(a: {lat: %f, lng: %f}, b: {lat: %f, lng: %f}) { midpoint { lat lng } } }`,
		ames.Lat, ames.Lng, desMoi.Lat, desMoi.Lng))
	if out["errors"] != nil {
		t.Fatalf("unexpected errors: %v", out["errors"])
	}
	mid := out["data"].(map[string]any)["midpoint"].(map[string]any)["midpoint"].(map[string]any)
	want := geospatial.Midpoint(ames, desMoi)
	if d := mid["lat"].(float64) - want.Lat; d > 1e-6 || d < -1e-6 {
		t.Errorf("midpoint lat: want %f, got %v", want.Lat, mid["lat"])
	}
}

func TestGraphQL_VenuesAndWeather(t *testing.T) {
	gw := &mockGateway{
		venuesFn: func(context.Context, domain.Coordinate, float64, domain.VenueCategory) ([]domain.VenueResult, error) {
			return sampleVenues(2), nil
		},
	}
	app := setupApp(makeDeps(gw, nil))

	out := graphQL(t, app, `{ venues(lat: 41.8, lng: -93.6, category: "park") { name place_id } weather(lat: 41.8, lng: -93.6) { state temp_f condition } }`)
	if out["errors"] != nil {
		t.Fatalf("unexpected errors: %v", out["errors"])
	}
	data := out["data"].(map[string]any)
	if venues := data["venues"].([]any); len(venues) != 2 {
		t.Errorf("expected 2 venues, got %d", len(venues))
	}
	weather := data["weather"].(map[string]any)
	if weather["state"] != "ready" || weather["temp_f"].(float64) != 72 {
		t.Errorf("unexpected weather %v", weather)
	}
}

func TestGraphQL_UnknownCategory(t *testing.T) {
	app := setupApp(makeDeps(nil, nil))

	out := graphQL(t, app, `{ venues(lat: 41.8, lng: -93.6, category: "bar") { name } }`)
	if out["errors"] == nil {
		t.Fatal("expected an error for an unknown category")
	}
}

func TestGraphQL_RecentSearches(t *testing.T) {
	repo := &mockSearchRepo{
		listFn: func(context.Context, int, int) ([]domain.SearchRecord, error) {
			return []domain.SearchRecord{{ID: "r1", Category: domain.CategoryCafe, VenueCount: 3}}, nil
		},
	}
	app := setupApp(makeDeps(nil, repo))

	out := graphQL(t, app, `{ recentSearches(limit: 5) { id category venue_count } }`)
	if out["errors"] != nil {
		t.Fatalf("unexpected errors: %v", out["errors"])
	}
	records := out["data"].(map[string]any)["recentSearches"].([]any)
	if len(records) != 1 || records[0].(map[string]any)["category"] != "cafe" {
		t.Errorf("unexpected records %v", records)
	}
}
