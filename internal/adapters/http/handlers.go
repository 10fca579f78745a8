package http

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/usecases"
)

// VenuesResponse is a venue search around a point together with its
// rendered sidebar.
type VenuesResponse struct {
	Category    domain.VenueCategory   `json:"category"`
	RadiusMiles float64                `json:"radius_miles"`
	Venues      []domain.VenueResult   `json:"venues"`
	View        usecases.VenueListView `json:"view"`
}

// ETAResponse is one driving time and its rendered line.
type ETAResponse struct {
	domain.TravelTime
	Display string `json:"display"`
}

// WeatherResponse is the current conditions and the rendered widget.
type WeatherResponse struct {
	domain.WeatherSnapshot
	Widget usecases.WeatherView `json:"widget"`
}

// parseFloatParam reads a required float query param.
func parseFloatParam(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

// parseCoordinate reads a required coordinate from two query params.
func parseCoordinate(c *fiber.Ctx, latKey, lngKey string) (domain.Coordinate, error) {
	lat, err := parseFloatParam(c, latKey)
	if err != nil {
		return domain.Coordinate{}, err
	}
	lng, err := parseFloatParam(c, lngKey)
	if err != nil {
		return domain.Coordinate{}, err
	}
	coord := domain.Coordinate{Lat: lat, Lng: lng}
	if !coord.Valid() {
		return domain.Coordinate{}, fmt.Errorf("%s/%s out of range", latKey, lngKey)
	}
	return coord, nil
}

// selectionFromQuery builds the selection of endpoint prefix ("a" or "b")
// from <prefix>, <prefix>_place_id, <prefix>_lat and <prefix>_lng. A
// selection without a place ID or coordinates is left unselected and fails
// validation in the use case.
func selectionFromQuery(c *fiber.Ctx, prefix string) (domain.PlaceSelection, error) {
	sel := domain.PlaceSelection{
		Query:   c.Query(prefix),
		PlaceID: c.Query(prefix + "_place_id"),
	}
	if c.Query(prefix+"_lat") == "" && c.Query(prefix+"_lng") == "" {
		return sel, nil
	}
	coord, err := parseCoordinate(c, prefix+"_lat", prefix+"_lng")
	if err != nil {
		return sel, err
	}
	sel.Location = &coord
	return sel, nil
}

// parseCategory validates an optional category param. Empty means the default.
func parseCategory(c *fiber.Ctx) (domain.VenueCategory, error) {
	raw := c.Query("category")
	if raw == "" {
		return "", nil
	}
	return domain.ValidateCategory(raw)
}

// MidpointHandler resolves both selections and returns their midpoint.
func MidpointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		a, err := selectionFromQuery(c, "a")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		b, err := selectionFromQuery(c, "b")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		res, err := deps.Search.Midpoint(c.UserContext(), a, b)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	}
}

// VenuesHandler searches venues of a category around lat/lng within radius miles.
// An empty result is a 200 with the empty state rendered.
func VenuesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, err := parseCoordinate(c, "lat", "lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		category, err := parseCategory(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		category, radius := deps.Search.Settings(category, c.QueryFloat("radius", 0))

		venues, err := deps.Search.Venues(c.UserContext(), center, category, radius)
		if err != nil && !errors.Is(err, domain.ErrNoResults) {
			return writeError(c, err)
		}
		if venues == nil {
			venues = []domain.VenueResult{}
		}

		return c.JSON(VenuesResponse{
			Category:    category,
			RadiusMiles: radius,
			Venues:      venues,
			View:        usecases.VenueList(category, radius, venues),
		})
	}
}

// ETAHandler estimates the driving time from one point to another.
func ETAHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := parseCoordinate(c, "from_lat", "from_lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		to, err := parseCoordinate(c, "to_lat", "to_lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		tt, err := deps.Search.TravelTime(c.UserContext(), from, to)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(ETAResponse{TravelTime: tt, Display: usecases.ETAText(tt).Text})
	}
}

// LabelHandler reverse-geocodes lat/lng into an address.
func LabelHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		at, err := parseCoordinate(c, "lat", "lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		label, err := deps.Search.Label(c.UserContext(), at)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(usecases.LabelView{Text: label})
	}
}

// WeatherHandler returns the current conditions at lat/lng. A failed lookup
// is still a 200 carrying the error state, like the widget shows it.
func WeatherHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		at, err := parseCoordinate(c, "lat", "lng")
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		snap := deps.Search.Weather(c.UserContext(), at)
		if snap.State == domain.WeatherError {
			c.Set(fiber.HeaderCacheControl, "no-store")
		}
		return c.JSON(WeatherResponse{WeatherSnapshot: snap, Widget: usecases.WeatherWidget(snap)})
	}
}

// SearchHandler runs a one-shot search and returns every region at once.
// A region that failed carries its error; the others are still filled.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req usecases.SearchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Category != "" {
			category, err := domain.ValidateCategory(string(req.Category))
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			req.Category = category
		}
		for _, sel := range []domain.PlaceSelection{req.A, req.B} {
			if sel.Location != nil && !sel.Location.Valid() {
				return errBadRequest(c, "location out of range")
			}
		}

		res, err := deps.Search.Search(c.UserContext(), req)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(res)
	}
}

// RecentSearchesHandler lists search history, newest first.
func RecentSearchesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := parsePage(c)

		records, total, err := deps.History.Recent(c.UserContext(), offset, limit)
		if err != nil {
			return writeError(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: records, Pagination: pg})
	}
}
