// Package maps provides a client for the Google Geocoding and Places APIs.
//
// Every lookup owns its safe-default contract: when the provider reports no
// results, the zero value (empty Location, empty string) is returned with a
// nil error. Errors signal transport or protocol problems only, and callers
// are expected to degrade to the same zero values.
package maps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/triptomat/trip-analyzer/internal/model"
)

const (
	defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultPlacesURL  = "https://places.googleapis.com/v1"
)

// Client defines the Google Maps operations used by the pipeline.
type Client interface {
	Geocode(ctx context.Context, query string) (model.Location, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	PlacePhoto(ctx context.Context, lat, lng float64, name string) (string, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithGeocodeURL sets a custom geocoding endpoint (for testing).
func WithGeocodeURL(u string) Option {
	return func(c *httpClient) {
		c.geocodeURL = u
	}
}

// WithPlacesURL sets a custom Places API base URL (for testing).
func WithPlacesURL(u string) Option {
	return func(c *httpClient) {
		c.placesURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.client = hc
	}
}

// WithReverseLanguage sets the language for reverse geocoding results.
func WithReverseLanguage(lang string) Option {
	return func(c *httpClient) {
		c.reverseLanguage = lang
	}
}

// WithPhotoRadius sets the proximity bias radius for place photo search.
func WithPhotoRadius(radius float64) Option {
	return func(c *httpClient) {
		c.photoRadius = radius
	}
}

// WithRateLimit sets the max requests per second across all lookups.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

type httpClient struct {
	apiKey          string
	geocodeURL      string
	placesURL       string
	reverseLanguage string
	photoRadius     float64
	client          *http.Client
	limiter         *rate.Limiter
}

// NewClient creates a Google Maps client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:      apiKey,
		geocodeURL:  defaultGeocodeURL,
		placesURL:   defaultPlacesURL,
		photoRadius: 500.0,
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(10), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// geocodeResponse is the JSON response from the Google Geocoding API.
type geocodeResponse struct {
	Results []geocodeResult `json:"results"`
	Status  string          `json:"status"`
}

type geocodeResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Geocode resolves a free-text query to an address and coordinates. A
// non-OK provider status yields the zero Location with a nil error.
func (c *httpClient) Geocode(ctx context.Context, query string) (model.Location, error) {
	params := url.Values{
		"address": {query},
		"key":     {c.apiKey},
	}

	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL+"?"+params.Encode(), &resp); err != nil {
		return model.Location{}, eris.Wrap(err, "maps: geocode")
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		zap.L().Debug("maps: geocode no match",
			zap.String("query", query),
			zap.String("status", resp.Status),
		)
		return model.Location{}, nil
	}

	result := resp.Results[0]
	return model.Location{
		Address: result.FormattedAddress,
		Coordinates: model.Coordinates{
			Lat: result.Geometry.Location.Lat,
			Lng: result.Geometry.Location.Lng,
		},
	}, nil
}

// ReverseGeocode resolves coordinates to a formatted address, or "" when
// the provider has no result.
func (c *httpClient) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	params := url.Values{
		"latlng": {fmt.Sprintf("%f,%f", lat, lng)},
		"key":    {c.apiKey},
	}
	if c.reverseLanguage != "" {
		params.Set("language", c.reverseLanguage)
	}

	var resp geocodeResponse
	if err := c.getJSON(ctx, c.geocodeURL+"?"+params.Encode(), &resp); err != nil {
		return "", eris.Wrap(err, "maps: reverse geocode")
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		return "", nil
	}
	return resp.Results[0].FormattedAddress, nil
}

// placesSearchRequest is the Places API text search body.
type placesSearchRequest struct {
	TextQuery    string `json:"textQuery"`
	LocationBias struct {
		Circle struct {
			Center struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"center"`
			Radius float64 `json:"radius"`
		} `json:"circle"`
	} `json:"locationBias"`
}

// placesSearchResponse is the subset of the Places response we read.
type placesSearchResponse struct {
	Places []struct {
		Photos []struct {
			Name string `json:"name"`
		} `json:"photos"`
	} `json:"places"`
}

// PlacePhoto finds a photo URL for a named place near the coordinates using
// a text query with a circular proximity bias. Returns "" when no place or
// photo matches.
func (c *httpClient) PlacePhoto(ctx context.Context, lat, lng float64, name string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "maps: rate limit")
	}

	var reqBody placesSearchRequest
	reqBody.TextQuery = name
	reqBody.LocationBias.Circle.Center.Latitude = lat
	reqBody.LocationBias.Circle.Center.Longitude = lng
	reqBody.LocationBias.Circle.Radius = c.photoRadius

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "maps: marshal places request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.placesURL+"/places:searchText", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "maps: create places request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", "places.photos,places.id")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "maps: places request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("maps: places returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "maps: read places response")
	}

	var searchResp placesSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return "", eris.Wrap(err, "maps: parse places response")
	}

	if len(searchResp.Places) == 0 || len(searchResp.Places[0].Photos) == 0 {
		return "", nil
	}

	photoName := searchResp.Places[0].Photos[0].Name
	return fmt.Sprintf("%s/%s/media?maxHeightPx=800&maxWidthPx=800&key=%s", c.placesURL, photoName, c.apiKey), nil
}

// getJSON performs a rate-limited GET and decodes the JSON response.
func (c *httpClient) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read body")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "parse response")
	}
	return nil
}
