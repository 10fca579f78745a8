package google

import (
	"context"
	"net/url"

	"github.com/samirrijal/halfway/internal/core/domain"
)

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		FormattedAddress string   `json:"formatted_address"`
		PlaceID          string   `json:"place_id"`
		Geometry         geometry `json:"geometry"`
	} `json:"results"`
}

// GeocodePlace resolves a place ID picked from autocomplete to its location.
func (c *Client) GeocodePlace(ctx context.Context, placeID string) (domain.Coordinate, error) {
	var resp geocodeResponse
	if err := c.getMaps(ctx, "geocode", "geocode", url.Values{"place_id": {placeID}}, &resp); err != nil {
		return domain.Coordinate{}, err
	}
	if err := statusError("geocode", resp.Status, domain.ErrNotFound); err != nil {
		return domain.Coordinate{}, err
	}
	if len(resp.Results) == 0 {
		return domain.Coordinate{}, domain.ErrNotFound
	}
	return resp.Results[0].Geometry.Location.coordinate(), nil
}

// ReverseGeocode returns the formatted address of the first result.
func (c *Client) ReverseGeocode(ctx context.Context, coord domain.Coordinate) (string, error) {
	var resp geocodeResponse
	if err := c.getMaps(ctx, "geocode", "geocode", url.Values{"latlng": {coord.String()}}, &resp); err != nil {
		return "", err
	}
	if err := statusError("geocode", resp.Status, domain.ErrNotFound); err != nil {
		return "", err
	}
	if len(resp.Results) == 0 || resp.Results[0].FormattedAddress == "" {
		return "", domain.ErrNotFound
	}
	return resp.Results[0].FormattedAddress, nil
}
