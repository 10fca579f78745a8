// Package google implements the provider ports on top of the Google Maps web
// services (Places, Distance Matrix, Geocoding) and the Google Weather API.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/samirrijal/halfway/internal/core/domain"
	"github.com/samirrijal/halfway/internal/core/ports"
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

var (
	_ ports.Geocoder            = (*Client)(nil)
	_ ports.PlaceSearcher       = (*Client)(nil)
	_ ports.TravelTimeEstimator = (*Client)(nil)
	_ ports.WeatherProvider     = (*Client)(nil)
)

// Client talks to the Google APIs. One client serves all four capabilities.
type Client struct {
	mapsKey        string
	weatherKey     string
	httpClient     *http.Client
	mapsBaseURL    string
	weatherBaseURL string
	logger         *slog.Logger
}

// Options configures a Client.
type Options struct {
	MapsAPIKey     string
	WeatherAPIKey  string
	Timeout        time.Duration
	MapsBaseURL    string
	WeatherBaseURL string
}

// NewClient creates a Google API client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.MapsBaseURL == "" {
		opts.MapsBaseURL = "https://maps.googleapis.com/maps/api"
	}
	if opts.WeatherBaseURL == "" {
		opts.WeatherBaseURL = "https://weather.googleapis.com/v1"
	}
	if opts.WeatherAPIKey == "" {
		opts.WeatherAPIKey = opts.MapsAPIKey
	}
	return &Client{
		mapsKey:    opts.MapsAPIKey,
		weatherKey: opts.WeatherAPIKey,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		mapsBaseURL:    opts.MapsBaseURL,
		weatherBaseURL: opts.WeatherBaseURL,
		logger:         logger,
	}
}

// getMaps calls a Maps web service endpoint such as "place/nearbysearch" and
// decodes the JSON body into out. Status sentinels are left to the caller.
func (c *Client) getMaps(ctx context.Context, provider, endpoint string, params url.Values, out any) error {
	params.Set("key", c.mapsKey)
	fullURL := fmt.Sprintf("%s/%s/json?%s", c.mapsBaseURL, endpoint, params.Encode())
	return c.getJSON(ctx, provider, fullURL, out)
}

func (c *Client) getJSON(ctx context.Context, provider, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.ProviderError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("provider returned non-2xx",
			"provider", provider,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return &domain.ProviderError{Provider: provider, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &domain.ProviderError{Provider: provider, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// statusError converts a non-OK Maps status into an error. empty is returned
// for ZERO_RESULTS.
func statusError(provider, status string, empty error) error {
	switch status {
	case statusOK:
		return nil
	case statusZeroResults:
		return empty
	default:
		return &domain.ProviderError{Provider: provider, Status: status}
	}
}

// Maps web service response types.

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l latLng) coordinate() domain.Coordinate {
	return domain.Coordinate{Lat: l.Lat, Lng: l.Lng}
}

type geometry struct {
	Location latLng `json:"location"`
}
