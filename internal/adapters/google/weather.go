package google

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/samirrijal/halfway/internal/core/domain"
)

type currentConditionsResponse struct {
	Temperature *struct {
		Degrees float64 `json:"degrees"`
	} `json:"temperature"`
	WeatherCondition struct {
		Description struct {
			Text string `json:"text"`
		} `json:"description"`
	} `json:"weatherCondition"`
	RelativeHumidity     *int `json:"relativeHumidity"`
	FeelsLikeTemperature *struct {
		Degrees float64 `json:"degrees"`
	} `json:"feelsLikeTemperature"`
}

// CurrentConditions looks up current weather in imperial units. Non-2xx
// responses come back as *domain.ProviderError; transport and decoding
// failures are also tagged with domain.ErrTransientFetch.
func (c *Client) CurrentConditions(ctx context.Context, coord domain.Coordinate) (domain.WeatherSnapshot, error) {
	params := url.Values{
		"key":                {c.weatherKey},
		"location.latitude":  {strconv.FormatFloat(coord.Lat, 'f', 6, 64)},
		"location.longitude": {strconv.FormatFloat(coord.Lng, 'f', 6, 64)},
		"unitsSystem":        {"IMPERIAL"},
	}
	fullURL := fmt.Sprintf("%s/currentConditions:lookup?%s", c.weatherBaseURL, params.Encode())

	var resp currentConditionsResponse
	if err := c.getJSON(ctx, "weather", fullURL, &resp); err != nil {
		var pe *domain.ProviderError
		if errors.As(err, &pe) && pe.Code != 0 {
			return domain.WeatherSnapshot{State: domain.WeatherError}, err
		}
		return domain.WeatherSnapshot{State: domain.WeatherError}, fmt.Errorf("%w: %w", domain.ErrTransientFetch, err)
	}
	if resp.Temperature == nil {
		return domain.WeatherSnapshot{State: domain.WeatherError}, fmt.Errorf("%w: response has no temperature", domain.ErrTransientFetch)
	}

	snap := domain.WeatherSnapshot{
		State:     domain.WeatherReady,
		TempF:     int(math.Round(resp.Temperature.Degrees)),
		Condition: resp.WeatherCondition.Description.Text,
		Humidity:  resp.RelativeHumidity,
	}
	if snap.Condition == "" {
		snap.Condition = "Unknown"
	}
	if resp.FeelsLikeTemperature != nil {
		f := int(math.Round(resp.FeelsLikeTemperature.Degrees))
		snap.FeelsLikeF = &f
	}
	return snap, nil
}
