package google

import (
	"context"
	"fmt"
	"net/url"

	"github.com/samirrijal/halfway/internal/core/domain"
)

type nearbySearchResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Results      []placeResult `json:"results"`
}

type placeResult struct {
	Name     string   `json:"name"`
	Vicinity string   `json:"vicinity"`
	Rating   *float64 `json:"rating,omitempty"`
	PlaceID  string   `json:"place_id"`
	Geometry geometry `json:"geometry"`
}

// SearchNearby runs a Places Nearby Search. Results keep the provider's order.
func (c *Client) SearchNearby(ctx context.Context, center domain.Coordinate, radiusMeters float64, category domain.VenueCategory) ([]domain.VenueResult, error) {
	params := url.Values{
		"location": {center.String()},
		"radius":   {fmt.Sprintf("%.0f", radiusMeters)},
		"type":     {string(category)},
	}

	var resp nearbySearchResponse
	if err := c.getMaps(ctx, "places", "place/nearbysearch", params, &resp); err != nil {
		return nil, err
	}
	if err := statusError("places", resp.Status, domain.ErrNoResults); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, domain.ErrNoResults
	}

	venues := make([]domain.VenueResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		venues = append(venues, domain.VenueResult{
			Name:     r.Name,
			Address:  r.Vicinity,
			Rating:   r.Rating,
			PlaceID:  r.PlaceID,
			Location: r.Geometry.Location.coordinate(),
		})
	}
	return venues, nil
}
