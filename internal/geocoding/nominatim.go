package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"golang.org/x/time/rate"
)

const (
	nominatimURL       = "https://nominatim.openstreetmap.org/search"
	nominatimUserAgent = "fencewatch/1.0 (https://github.com/UnknownOlympus/fencewatch)"
	// nominatimRateLimit is the public instance's fair use limit in requests per second.
	nominatimRateLimit = 1
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
type NominatimProvider struct {
	client    HTTPClient    // HTTP client for making requests
	baseURL   string        // Base URL for the Nominatim search endpoint
	userAgent string        // User agent required by the usage policy
	region    string        // Country code filter, empty for none
	limiter   *rate.Limiter // Rate limiter
	log       *slog.Logger  // Logger for logging operations
}

// HTTPClient defines the interface for making HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// nominatimResponse represents one search result from Nominatim API.
type nominatimResponse struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// NewNominatimProvider creates a provider for the public Nominatim API.
// A non-positive rateLimit uses the public instance's fair use limit.
func NewNominatimProvider(rateLimit int, region string, log *slog.Logger) *NominatimProvider {
	const timeout = 10 * time.Second
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout}, nominatimURL, rateLimit, log).
		WithRegion(region)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client and base URL.
func NewNominatimProviderWithClient(client HTTPClient, baseURL string, rateLimit int, log *slog.Logger) *NominatimProvider {
	if rateLimit <= 0 {
		rateLimit = nominatimRateLimit
	}
	return &NominatimProvider{
		client:    client,
		baseURL:   baseURL,
		userAgent: nominatimUserAgent,
		limiter:   rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log:       log,
	}
}

// WithRegion restricts results to one country code and returns np.
func (np *NominatimProvider) WithRegion(region string) *NominatimProvider {
	np.region = region
	return np
}

// Geocode converts a place query to coordinates. Requests wait for the rate limiter.
func (np *NominatimProvider) Geocode(ctx context.Context, query string) (*models.Coordinate, error) {
	np.log.DebugContext(ctx, "Geocoding using Nominatim", "query", query)

	if err := np.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}
	params := reqURL.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")
	if np.region != "" {
		params.Set("countrycodes", np.region)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoResults
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrInvalidCoordinates, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrInvalidCoordinates, results[0].Lon)
	}

	coord := models.Coordinate{Latitude: lat, Longitude: lon}
	if !coord.Valid() {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, lat, lon)
	}

	return &coord, nil
}
