package geocoding_test

import (
	"log/slog"
	"testing"

	"github.com/UnknownOlympus/fencewatch/internal/geocoding"
	"github.com/UnknownOlympus/fencewatch/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func TestGeocode(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, "", slog.Default())
	ctx := t.Context()

	t.Run("api returns error", func(t *testing.T) {
		query := "some invalid place"
		req := &maps.GeocodingRequest{Address: query}

		mockClient.On("Geocode", ctx, req).Return(nil, assert.AnError).Once()

		_, err := provider.Geocode(ctx, query)

		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to geocode query")
	})

	t.Run("api returns empty response", func(t *testing.T) {
		query := "some invalid place"
		req := &maps.GeocodingRequest{Address: query}

		mockClient.On("Geocode", ctx, req).Return(nil, nil).Once()

		coords, err := provider.Geocode(ctx, query)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrNoResults)
	})

	t.Run("api returns coordinates out of range", func(t *testing.T) {
		query := "nowhere"
		req := &maps.GeocodingRequest{Address: query}
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 95, Lng: 0}}},
		}

		mockClient.On("Geocode", ctx, req).Return(response, nil).Once()

		coords, err := provider.Geocode(ctx, query)

		require.Nil(t, coords)
		require.ErrorIs(t, err, geocoding.ErrInvalidCoordinates)
	})

	t.Run("successful geocoding", func(t *testing.T) {
		query := "CN Tower, Toronto"
		req := &maps.GeocodingRequest{Address: query}
		response := []maps.GeocodingResult{
			{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 43.642558, Lng: -79.387046}}},
		}

		mockClient.On("Geocode", ctx, req).Return(response, nil).Once()

		coords, err := provider.Geocode(ctx, query)

		require.NoError(t, err)
		require.NotNil(t, coords)
		assert.InEpsilon(t, 43.642558, coords.Latitude, 1e-9)
		assert.InEpsilon(t, -79.387046, coords.Longitude, 1e-9)
	})
}

func TestGeocode_Region(t *testing.T) {
	mockClient := mocks.NewGoogleAPIClient(t)
	provider := geocoding.NewGoogleProvider(mockClient, "ca", slog.Default())
	ctx := t.Context()

	req := &maps.GeocodingRequest{Address: "Union Station", Region: "ca"}
	response := []maps.GeocodingResult{
		{Geometry: maps.AddressGeometry{Location: maps.LatLng{Lat: 43.645, Lng: -79.3806}}},
	}
	mockClient.On("Geocode", ctx, req).Return(response, nil).Once()

	coords, err := provider.Geocode(ctx, "Union Station")

	require.NoError(t, err)
	assert.InEpsilon(t, 43.645, coords.Latitude, 1e-9)
}
