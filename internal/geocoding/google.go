package geocoding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider geocodes queries with the Google Maps Geocoding API.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	region string          // region biases results, empty for none
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// NewGoogleProvider creates a GoogleProvider over an existing Maps client.
func NewGoogleProvider(client GoogleAPIClient, region string, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, region: region, log: log}
}

// Geocode returns the location of the first result for query.
func (gp *GoogleProvider) Geocode(ctx context.Context, query string) (*models.Coordinate, error) {
	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "query", query, "region", gp.region)

	req := maps.GeocodingRequest{Address: query, Region: gp.region}
	results, err := gp.client.Geocode(ctx, &req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode query: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNoResults
	}
	location := results[0].Geometry.Location

	coord := models.Coordinate{Latitude: location.Lat, Longitude: location.Lng}
	if !coord.Valid() {
		return nil, fmt.Errorf("%w: (%v, %v)", ErrInvalidCoordinates, location.Lat, location.Lng)
	}

	return &coord, nil
}
