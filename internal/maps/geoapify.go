package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"net/url"
	"time"

	"rideshare/internal/domain"
)

const defaultBaseURL = "https://api.geoapify.com"

// Fallback itinerary returned when the routing upstream is unreachable.
// Ride creation keeps working on conservative numbers instead of failing.
var (
	fallbackDistance = domain.ValueText{Value: 5000, Text: "5.0 km"}
	fallbackDuration = domain.ValueText{Value: 900, Text: "15 mins"}
)

// GeoapifyClient talks to the Geoapify geocoding and routing APIs.
type GeoapifyClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewGeoapifyClient creates a new GeoapifyClient. baseURL may be empty to
// use the public endpoint.
func NewGeoapifyClient(apiKey, baseURL string) *GeoapifyClient {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &GeoapifyClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		apiKey:     apiKey,
		baseURL:    baseURL,
	}
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			Formatted   string  `json:"formatted"`
			AddressLine string  `json:"address_line1"`
			Lat         float64 `json:"lat"`
			Lon         float64 `json:"lon"`
			Distance    float64 `json:"distance"`
			Time        float64 `json:"time"`
		} `json:"properties"`
	} `json:"features"`
}

// Geocode resolves a free-form address to coordinates.
func (c *GeoapifyClient) Geocode(ctx context.Context, address string) (*domain.GeoPoint, error) {
	if address == "" {
		return nil, fmt.Errorf("geoapify: empty address")
	}

	var fc featureCollection
	err := c.get(ctx, "/v1/geocode/search", url.Values{"text": {address}}, &fc)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("geoapify: no results for %q", address)
	}

	p := fc.Features[0].Properties
	return &domain.GeoPoint{
		Title:     p.AddressLine,
		Address:   p.Formatted,
		Latitude:  p.Lat,
		Longitude: p.Lon,
	}, nil
}

// ReverseGeocode resolves coordinates back to an address.
func (c *GeoapifyClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*domain.GeoPoint, error) {
	var fc featureCollection
	err := c.get(ctx, "/v1/geocode/reverse", url.Values{
		"lat": {fmt.Sprintf("%f", lat)},
		"lon": {fmt.Sprintf("%f", lng)},
	}, &fc)
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, fmt.Errorf("geoapify: no address at %f,%f", lat, lng)
	}

	p := fc.Features[0].Properties
	return &domain.GeoPoint{
		Title:     p.AddressLine,
		Address:   p.Formatted,
		Latitude:  p.Lat,
		Longitude: p.Lon,
	}, nil
}

// SearchPlaces returns autocomplete suggestions for a partial query.
func (c *GeoapifyClient) SearchPlaces(ctx context.Context, query string) ([]domain.GeoPoint, error) {
	if query == "" {
		return nil, fmt.Errorf("geoapify: empty query")
	}

	var fc featureCollection
	err := c.get(ctx, "/v1/geocode/autocomplete", url.Values{"text": {query}}, &fc)
	if err != nil {
		return nil, err
	}

	places := make([]domain.GeoPoint, 0, len(fc.Features))
	for _, f := range fc.Features {
		places = append(places, domain.GeoPoint{
			Title:     f.Properties.AddressLine,
			Address:   f.Properties.Formatted,
			Latitude:  f.Properties.Lat,
			Longitude: f.Properties.Lon,
		})
	}
	return places, nil
}

// Route computes driving distance and duration between two points.
func (c *GeoapifyClient) Route(ctx context.Context, origin, destination domain.GeoPoint) (distance, duration domain.ValueText, err error) {
	waypoints := fmt.Sprintf("%f,%f|%f,%f",
		origin.Latitude, origin.Longitude,
		destination.Latitude, destination.Longitude)

	var fc featureCollection
	err = c.get(ctx, "/v1/routing", url.Values{
		"waypoints": {waypoints},
		"mode":      {"drive"},
	}, &fc)
	if err != nil {
		return domain.ValueText{}, domain.ValueText{}, err
	}
	if len(fc.Features) == 0 {
		return domain.ValueText{}, domain.ValueText{}, fmt.Errorf("geoapify: no route found")
	}

	p := fc.Features[0].Properties
	distance = domain.ValueText{
		Value: p.Distance,
		Text:  fmt.Sprintf("%.1f km", p.Distance/1000),
	}
	duration = domain.ValueText{
		Value: p.Time,
		Text:  fmt.Sprintf("%d mins", int(math.Round(p.Time/60))),
	}
	return distance, duration, nil
}

// DistanceTime is the fail-soft routing entry point used by ride pricing.
// Upstream failures degrade to fixed fallback values rather than error.
func (c *GeoapifyClient) DistanceTime(ctx context.Context, origin, destination domain.GeoPoint) (domain.ValueText, domain.ValueText) {
	distance, duration, err := c.Route(ctx, origin, destination)
	if err != nil {
		log.Printf("[MAPS] routing fallback engaged: %v", err)
		return fallbackDistance, fallbackDuration
	}
	return distance, duration
}

func (c *GeoapifyClient) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("apiKey", c.apiKey)
	params.Set("format", "geojson")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("geoapify: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("geoapify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geoapify: upstream returned %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("geoapify: decoding response: %w", err)
	}
	return nil
}
