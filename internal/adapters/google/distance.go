package google

import (
	"context"
	"net/url"

	"github.com/samirrijal/halfway/internal/core/domain"
)

type distanceMatrixResponse struct {
	Status string `json:"status"`
	Rows   []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Text  string `json:"text"`
				Value int    `json:"value"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// DrivingTime asks the Distance Matrix for a single origin/destination pair.
// An element without a route yields ok=false and no error.
func (c *Client) DrivingTime(ctx context.Context, origin, destination domain.Coordinate) (string, bool, error) {
	params := url.Values{
		"origins":      {origin.String()},
		"destinations": {destination.String()},
		"mode":         {"driving"},
	}

	var resp distanceMatrixResponse
	if err := c.getMaps(ctx, "distance", "distancematrix", params, &resp); err != nil {
		return "", false, err
	}
	if resp.Status != statusOK {
		return "", false, &domain.ProviderError{Provider: "distance", Status: resp.Status}
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return "", false, nil
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != statusOK || el.Duration.Text == "" {
		return "", false, nil
	}
	return el.Duration.Text, true, nil
}
