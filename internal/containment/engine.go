// Package containment answers whether a point lies inside a fence polygon.
//
// Coordinates are treated as planar (equirectangular) with longitude as x and
// latitude as y. This is not geodesic: the error grows with polygon size and
// latitude, which is acceptable for hand-drawn fences.
package containment

import (
	"errors"
	"fmt"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// ErrDegenerateFence is returned for paths with fewer than three distinct vertices.
var ErrDegenerateFence = errors.New("degenerate fence")

// minVertices is the smallest number of distinct vertices enclosing an area.
const minVertices = 3

// Engine is implemented by anything that can test a point against a path.
// A point on the boundary (edge or vertex) is inside.
type Engine interface {
	Contains(point models.Coordinate, path models.Path) (bool, error)
	Name() string
}

// EngineType represents the type of containment engine.
type EngineType string

const (
	// EngineTypePlanar is the self-contained ray casting engine.
	EngineTypePlanar EngineType = "planar"
	// EngineTypeOrb delegates to github.com/paulmach/orb.
	EngineTypeOrb EngineType = "orb"
)

// NewEngine creates a containment engine by type. An empty type selects the planar engine.
func NewEngine(engineType EngineType) (Engine, error) {
	switch engineType {
	case EngineTypePlanar, "":
		return PlanarEngine{}, nil
	case EngineTypeOrb:
		return OrbEngine{}, nil
	default:
		return nil, fmt.Errorf("unsupported engine type: %s", engineType)
	}
}

// Validate checks that a path can be used as a fence.
func Validate(path models.Path) error {
	if distinct := path.Distinct(); distinct < minVertices {
		return fmt.Errorf("%w: %d distinct vertices, need at least %d", ErrDegenerateFence, distinct, minVertices)
	}
	return nil
}
