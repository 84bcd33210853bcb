package containment

import (
	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// OrbEngine adapts the orb planar ring test. Boundary points are settled with the
// same edge tolerance as PlanarEngine before orb is asked, since orb only detects
// a point on an edge when the arithmetic is exact.
type OrbEngine struct{}

// Name returns the engine type.
func (OrbEngine) Name() string { return string(EngineTypeOrb) }

// Contains reports whether point lies inside path or on its boundary.
func (OrbEngine) Contains(point models.Coordinate, path models.Path) (bool, error) {
	if err := Validate(path); err != nil {
		return false, err
	}
	if onBoundary(point, path) {
		return true, nil
	}

	ring := make(orb.Ring, 0, len(path))
	for _, c := range path {
		ring = append(ring, orb.Point{c.Longitude, c.Latitude})
	}

	return planar.RingContains(ring, orb.Point{point.Longitude, point.Latitude}), nil
}
