package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
	"github.com/samirrijal/halfway/internal/pkg/geospatial"
	"github.com/samirrijal/halfway/internal/pkg/logging"
	"github.com/samirrijal/halfway/internal/pkg/metrics"
)

// ErrSessionClosed is returned by commands sent after the session stopped.
var ErrSessionClosed = errors.New("session closed")

// regions that must settle before a search is Ready.
var searchRegions = []domain.Region{
	domain.RegionVenues, "eta_a", "eta_b", domain.RegionLabel, domain.RegionWeather,
}

// SessionConfig holds per-session defaults.
type SessionConfig struct {
	ID                 string
	DefaultCategory    domain.VenueCategory
	DefaultRadiusMiles float64
	FocusZoom          int
}

// Snapshot is a copy of a session's state at one point in its event order.
type Snapshot struct {
	ID          string
	Status      SessionStatus
	SearchID    uint64
	Category    domain.VenueCategory
	RadiusMiles float64
	Midpoint    *domain.Coordinate
	Markers     domain.MarkerSet
	Venues      []domain.VenueResult
	Label       string
	Weather     domain.WeatherSnapshot
}

// Session orchestrates searches for one connected UI. All state is owned by
// the goroutine running Run; commands and provider results reach it through
// the inbox and are applied one at a time.
type Session struct {
	id       string
	gateway  ports.ProviderGateway
	sink     ports.ViewSink
	recorder ports.SearchRecorder
	clock    clockwork.Clock
	cfg      SessionConfig

	inbox chan any
	done  chan struct{}

	// Owned by Run.
	logger    *slog.Logger
	selection *SelectionState
	markers   domain.MarkerSet
	status    SessionStatus
	searchID  uint64
	venueSeq  uint64
	pending   map[domain.Region]bool
	endpoints [2]domain.Coordinate
	venues    []domain.VenueResult
	label     string
	weather   domain.WeatherSnapshot
}

// NewSession creates a session. recorder may be nil.
func NewSession(gw ports.ProviderGateway, sink ports.ViewSink, recorder ports.SearchRecorder, clock clockwork.Clock, cfg SessionConfig) *Session {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.FocusZoom <= 0 {
		cfg.FocusZoom = 14
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Session{
		id:        cfg.ID,
		gateway:   gw,
		sink:      sink,
		recorder:  recorder,
		clock:     clock,
		cfg:       cfg,
		inbox:     make(chan any, 16),
		done:      make(chan struct{}),
		selection: NewSelectionState(cfg.DefaultCategory, cfg.DefaultRadiusMiles),
		status:    StatusIdle,
		pending:   make(map[domain.Region]bool),
	}
}

func (s *Session) ID() string { return s.id }

// Commands.

type searchCmd struct{ a, b domain.PlaceSelection }
type categoryCmd struct{ category domain.VenueCategory }
type radiusCmd struct{ miles float64 }
type focusCmd struct{ placeID string }
type snapshotReq struct{ reply chan Snapshot }

// Provider results. Each one carries the search and midpoint it was issued for.

type resultTag struct {
	searchID uint64
	midpoint domain.Coordinate
}

type venuesMsg struct {
	resultTag
	seq         uint64
	category    domain.VenueCategory
	radiusMiles float64
	venues      []domain.VenueResult
	err         error
}

type etaMsg struct {
	resultTag
	travel domain.TravelTime
	err    error
}

type labelMsg struct {
	resultTag
	text string
	err  error
}

type weatherMsg struct {
	resultTag
	snap domain.WeatherSnapshot
}

// Search starts a search between two selections.
func (s *Session) Search(ctx context.Context, a, b domain.PlaceSelection) error {
	return s.send(ctx, searchCmd{a: a, b: b})
}

// SetCategory switches the venue category and refreshes venues when a
// midpoint exists.
func (s *Session) SetCategory(ctx context.Context, c domain.VenueCategory) error {
	return s.send(ctx, categoryCmd{category: c})
}

// SetRadius moves the radius slider and refreshes venues when a midpoint exists.
func (s *Session) SetRadius(ctx context.Context, miles float64) error {
	return s.send(ctx, radiusCmd{miles: miles})
}

// FocusVenue pans to a venue of the current list and opens its info window.
func (s *Session) FocusVenue(ctx context.Context, placeID string) error {
	return s.send(ctx, focusCmd{placeID: placeID})
}

// Snapshot returns the state after every previously sent command was applied.
func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	req := snapshotReq{reply: make(chan Snapshot, 1)}
	if err := s.send(ctx, req); err != nil {
		return Snapshot{}, err
	}
	select {
	case snap := <-req.reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, ErrSessionClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) send(ctx context.Context, msg any) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post delivers a provider result; it gives up once the session is gone.
func (s *Session) post(msg any) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

// Run processes commands and results until ctx is cancelled. Cancelling ctx
// also aborts in-flight provider requests.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	s.logger = logging.FromContext(ctx).With("session_id", s.id)
	ctx = logging.WithLogger(ctx, s.logger)

	s.render(ctx, domain.RegionStatus, StatusView{Status: s.status})
	s.render(ctx, domain.RegionCategory, CategoryView{Category: s.selection.Category()})
	s.render(ctx, domain.RegionRadius, RadiusLabel(s.selection.RadiusMiles()))

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("session stopped", "reason", ctx.Err())
			return
		case msg := <-s.inbox:
			s.handle(ctx, msg)
		}
	}
}

func (s *Session) handle(ctx context.Context, msg any) {
	switch m := msg.(type) {
	case searchCmd:
		s.handleSearch(ctx, m)
	case categoryCmd:
		s.selection.SetCategory(m.category)
		s.render(ctx, domain.RegionCategory, CategoryView{Category: m.category})
		s.refreshVenues(ctx)
	case radiusCmd:
		miles := s.selection.SetRadius(m.miles)
		s.render(ctx, domain.RegionRadius, RadiusLabel(miles))
		s.refreshVenues(ctx)
	case focusCmd:
		s.handleFocus(ctx, m.placeID)
	case snapshotReq:
		m.reply <- s.snapshot()
	case venuesMsg:
		s.applyVenues(ctx, m)
	case etaMsg:
		s.applyETA(ctx, m)
	case labelMsg:
		s.applyLabel(ctx, m)
	case weatherMsg:
		s.applyWeather(ctx, m)
	default:
		s.logger.Error("unknown session message", "type", fmt.Sprintf("%T", msg))
	}
}

// handleSearch starts a search only when both selections carry valid
// geometry; anything else is rejected before any provider is called.
func (s *Session) handleSearch(ctx context.Context, m searchCmd) {
	if !m.a.Selected() || !m.b.Selected() ||
		!m.a.Location.Valid() || !m.b.Location.Valid() {
		metrics.SearchesRejected.WithLabelValues("validation").Inc()
		s.render(ctx, domain.RegionAlert, AlertView{Kind: "validation", Message: ValidationMessage})
		return
	}
	s.beginSearch(ctx, *m.a.Location, *m.b.Location)
}

// beginSearch enters Searching for two endpoints and fans out every
// provider request concurrently.
func (s *Session) beginSearch(ctx context.Context, a, b domain.Coordinate) {
	mid := geospatial.Midpoint(a, b)

	s.searchID++
	s.selection.SetMidpoint(mid)
	s.endpoints = [2]domain.Coordinate{a, b}
	s.venues = nil
	s.weather = domain.WeatherSnapshot{State: domain.WeatherLoading}
	for _, r := range searchRegions {
		s.pending[r] = true
	}
	metrics.SearchesStarted.Inc()

	s.markers.SetEndpoints(a, b, mid)
	s.markers.ClearVenues()
	bounds := geospatial.FitBounds(a, b, mid)
	s.render(ctx, domain.RegionMarkers, MarkersView{Markers: s.markers.Clone(), Bounds: &bounds})
	s.setStatus(ctx, StatusSearching)
	s.render(ctx, domain.RegionWeather, WeatherWidget(s.weather))

	s.logger.Info("search started",
		"search_id", s.searchID,
		"midpoint", mid.String(),
		"category", s.selection.Category(),
	)

	tag := resultTag{searchID: s.searchID, midpoint: mid}

	s.issueVenueSearch(ctx, tag)
	for _, leg := range []struct {
		origin domain.TravelOrigin
		from   domain.Coordinate
	}{{domain.OriginA, a}, {domain.OriginB, b}} {
		go func() {
			tt, err := s.gateway.EstimateTravelTime(ctx, leg.from, mid)
			tt.Origin = leg.origin
			s.post(etaMsg{resultTag: tag, travel: tt, err: err})
		}()
	}
	go func() {
		text, err := s.gateway.ReverseGeocode(ctx, mid)
		s.post(labelMsg{resultTag: tag, text: text, err: err})
	}()
	go func() {
		s.post(weatherMsg{resultTag: tag, snap: s.gateway.FetchCurrentWeather(ctx, mid)})
	}()
}

func (s *Session) issueVenueSearch(ctx context.Context, tag resultTag) {
	s.venueSeq++
	seq := s.venueSeq
	category := s.selection.Category()
	radiusMiles := s.selection.RadiusMiles()
	radius := s.selection.RadiusMeters()

	go func() {
		venues, err := s.gateway.SearchNearbyVenues(ctx, tag.midpoint, radius, category)
		s.post(venuesMsg{
			resultTag:   tag,
			seq:         seq,
			category:    category,
			radiusMiles: radiusMiles,
			venues:      venues,
			err:         err,
		})
	}()
}

// refreshVenues re-issues only the venue search for the current midpoint.
func (s *Session) refreshVenues(ctx context.Context) {
	mid, ok := s.selection.Midpoint()
	if !ok {
		return
	}
	s.markers.ClearVenues()
	s.venues = nil
	s.render(ctx, domain.RegionMarkers, MarkersView{Markers: s.markers.Clone()})

	s.pending[domain.RegionVenues] = true
	s.setStatus(ctx, StatusSearching)
	s.issueVenueSearch(ctx, resultTag{searchID: s.searchID, midpoint: mid})
}

// stale reports whether a result belongs to a superseded search.
func (s *Session) stale(tag resultTag, region string) bool {
	mid, ok := s.selection.Midpoint()
	if ok && tag.searchID == s.searchID && tag.midpoint == mid {
		return false
	}
	metrics.StaleResultsDropped.WithLabelValues(region).Inc()
	s.logger.Debug("dropping stale result", "region", region, "search_id", tag.searchID)
	return true
}

func (s *Session) applyVenues(ctx context.Context, m venuesMsg) {
	if s.stale(m.resultTag, string(domain.RegionVenues)) {
		return
	}
	if m.seq != s.venueSeq {
		metrics.StaleResultsDropped.WithLabelValues(string(domain.RegionVenues)).Inc()
		return
	}

	venues := m.venues
	if m.err != nil {
		if !errors.Is(m.err, domain.ErrNoResults) {
			s.logger.Warn("venue search failed", "error", m.err)
		}
		venues = nil
	}

	s.venues = venues
	s.markers.SetVenues(venues)
	s.render(ctx, domain.RegionMarkers, MarkersView{Markers: s.markers.Clone()})
	s.render(ctx, domain.RegionVenues, VenueList(m.category, m.radiusMiles, venues))
	s.settle(ctx, domain.RegionVenues)

	if m.err == nil || errors.Is(m.err, domain.ErrNoResults) {
		s.record(ctx, m)
	}
}

func (s *Session) applyETA(ctx context.Context, m etaMsg) {
	region := domain.Region("eta_" + string(m.travel.Origin))
	if s.stale(m.resultTag, string(region)) {
		return
	}
	tt := m.travel
	if m.err != nil {
		s.logger.Warn("travel time failed", "origin", tt.Origin, "error", m.err)
		tt = domain.TravelTime{Origin: tt.Origin}
	}
	s.render(ctx, domain.RegionETA, ETAText(tt))
	s.settle(ctx, region)
}

func (s *Session) applyLabel(ctx context.Context, m labelMsg) {
	if s.stale(m.resultTag, string(domain.RegionLabel)) {
		return
	}
	if m.err != nil {
		// The previous label stays.
		s.logger.Debug("reverse geocode failed", "error", m.err)
	} else {
		s.label = m.text
		s.render(ctx, domain.RegionLabel, LabelView{Text: m.text})
	}
	s.settle(ctx, domain.RegionLabel)
}

func (s *Session) applyWeather(ctx context.Context, m weatherMsg) {
	if s.stale(m.resultTag, string(domain.RegionWeather)) {
		return
	}
	s.weather = m.snap
	s.render(ctx, domain.RegionWeather, WeatherWidget(m.snap))
	s.settle(ctx, domain.RegionWeather)
}

func (s *Session) settle(ctx context.Context, region domain.Region) {
	delete(s.pending, region)
	if len(s.pending) == 0 && s.status == StatusSearching {
		s.setStatus(ctx, StatusReady)
	}
}

func (s *Session) handleFocus(ctx context.Context, placeID string) {
	for _, v := range s.venues {
		if v.PlaceID != placeID {
			continue
		}
		s.render(ctx, domain.RegionFocus, FocusView{
			PlaceID:  v.PlaceID,
			Position: v.Location,
			Zoom:     s.cfg.FocusZoom,
			Info:     InfoWindowView(v),
		})
		return
	}
	s.logger.Debug("focus on unknown venue", "place_id", placeID)
}

func (s *Session) setStatus(ctx context.Context, st SessionStatus) {
	if st == "" {
		st = StatusIdle
	}
	s.status = st
	view := StatusView{Status: st}
	if mid, ok := s.selection.Midpoint(); ok {
		view.Midpoint = &mid
	}
	s.render(ctx, domain.RegionStatus, view)
}

func (s *Session) render(ctx context.Context, region domain.Region, payload any) {
	err := s.sink.Render(ctx, domain.ViewUpdate{Region: region, SearchID: s.searchID, Payload: payload})
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("render failed", "region", region, "error", err)
	}
}

// record stores a rendered venue list in search history. It runs detached
// from the session so a closing connection does not lose the record.
func (s *Session) record(ctx context.Context, m venuesMsg) {
	if s.recorder == nil {
		return
	}
	rec := domain.SearchRecord{
		ID:          uuid.NewString(),
		SessionID:   s.id,
		A:           s.endpoints[0],
		B:           s.endpoints[1],
		Midpoint:    m.midpoint,
		Category:    m.category,
		RadiusMiles: m.radiusMiles,
		VenueCount:  len(m.venues),
		CreatedAt:   s.clock.Now().UTC(),
	}
	logger := s.logger
	go func() {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.recorder.Record(rctx, rec); err != nil {
			logger.Warn("record search failed", "search_id", rec.ID, "error", err)
		}
	}()
}

func (s *Session) snapshot() Snapshot {
	snap := Snapshot{
		ID:          s.id,
		Status:      s.status,
		SearchID:    s.searchID,
		Category:    s.selection.Category(),
		RadiusMiles: s.selection.RadiusMiles(),
		Markers:     s.markers.Clone(),
		Venues:      append([]domain.VenueResult(nil), s.venues...),
		Label:       s.label,
		Weather:     s.weather,
	}
	if mid, ok := s.selection.Midpoint(); ok {
		snap.Midpoint = &mid
	}
	return snap
}
