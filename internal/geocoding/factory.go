package geocoding

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"googlemaps.github.io/maps"
)

// ProviderType represents the type of geocoding provider.
type ProviderType string

const (
	// ProviderTypeGoogle represents Google Maps geocoding provider.
	ProviderTypeGoogle ProviderType = "google"
	// ProviderTypeNominatim represents OpenStreetMap Nominatim geocoding provider.
	ProviderTypeNominatim ProviderType = "nominatim"
	// ProviderTypeNone disables geocoding.
	ProviderTypeNone ProviderType = "none"
)

// ProviderConfig holds configuration for creating a geocoding provider.
type ProviderConfig struct {
	Type      ProviderType // Type of provider to create
	APIKey    string       // API key (used by Google provider)
	RateLimit int          // Requests per second; zero keeps the provider default
	Region    string       // Region biases results toward a country (ccTLD, e.g. "ca")
	Logger    *slog.Logger // Logger for the provider
}

// NewProvider creates a geocoding provider based on the provided configuration.
// The region is normalized to lower case before it reaches the provider.
//
// Supported provider types:
// - "google": Google Maps Geocoding API (requires API key)
// - "nominatim": OpenStreetMap Nominatim API (free, no API key required)
// - "none": no provider; a nil Provider is returned
//
// Returns an error if the provider type is unsupported or if provider creation fails.
func NewProvider(config ProviderConfig) (Provider, error) {
	region := strings.ToLower(strings.TrimSpace(config.Region))

	switch config.Type {
	case ProviderTypeGoogle:
		if config.APIKey == "" {
			return nil, errors.New("API key is required for Google provider")
		}
		opts := []maps.ClientOption{maps.WithAPIKey(config.APIKey)}
		if config.RateLimit > 0 {
			opts = append(opts, maps.WithRateLimit(config.RateLimit))
		}
		client, err := maps.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create Google Maps client: %w", err)
		}
		return NewGoogleProvider(client, region, config.Logger), nil
	case ProviderTypeNominatim:
		return NewNominatimProvider(config.RateLimit, region, config.Logger), nil
	case ProviderTypeNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.Type)
	}
}
