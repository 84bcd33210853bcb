// Package geocoding resolves place queries to coordinates so a drawing client can
// center its map before a fence is drawn.
package geocoding

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// Errors shared by all providers.
var (
	// ErrNoResults is returned when the provider finds nothing for the query.
	ErrNoResults = errors.New("geocoding returned no results")
	// ErrInvalidCoordinates is returned when the provider answers with unusable coordinates.
	ErrInvalidCoordinates = errors.New("geocoding returned invalid coordinates")
)

// Provider is an interface that defines a method for geocoding a place query.
// The Geocode method takes a context and a free-form query as input,
// and returns the coordinates of the best match and an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, query string) (*models.Coordinate, error)
}
