package containment

import (
	"math"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// collinearEpsilon bounds the cross product for a point to count as lying on an edge.
const collinearEpsilon = 1e-12

// PlanarEngine is an even-odd ray casting test with a bounding box prefilter.
type PlanarEngine struct{}

// Name returns the engine type.
func (PlanarEngine) Name() string { return string(EngineTypePlanar) }

// Contains reports whether point lies inside path or on its boundary.
func (PlanarEngine) Contains(point models.Coordinate, path models.Path) (bool, error) {
	if err := Validate(path); err != nil {
		return false, err
	}

	if !inBounds(point, path) {
		return false, nil
	}

	x, y := point.Longitude, point.Latitude
	inside := false
	for i, j := 0, len(path)-1; i < len(path); j, i = i, i+1 {
		a, b := path[j], path[i]
		if onSegment(point, a, b) {
			return true, nil
		}

		if (a.Latitude > y) != (b.Latitude > y) {
			cross := a.Longitude + (y-a.Latitude)*(b.Longitude-a.Longitude)/(b.Latitude-a.Latitude)
			if x < cross {
				inside = !inside
			}
		}
	}

	return inside, nil
}

func inBounds(point models.Coordinate, path models.Path) bool {
	minLat, maxLat := path[0].Latitude, path[0].Latitude
	minLng, maxLng := path[0].Longitude, path[0].Longitude
	for _, c := range path[1:] {
		minLat = math.Min(minLat, c.Latitude)
		maxLat = math.Max(maxLat, c.Latitude)
		minLng = math.Min(minLng, c.Longitude)
		maxLng = math.Max(maxLng, c.Longitude)
	}

	return point.Latitude >= minLat && point.Latitude <= maxLat &&
		point.Longitude >= minLng && point.Longitude <= maxLng
}

// onBoundary reports whether point lies on any edge of path, within collinearEpsilon.
func onBoundary(point models.Coordinate, path models.Path) bool {
	for i, j := 0, len(path)-1; i < len(path); j, i = i, i+1 {
		if onSegment(point, path[j], path[i]) {
			return true
		}
	}
	return false
}

// onSegment reports whether p lies on the closed segment a-b.
func onSegment(p, a, b models.Coordinate) bool {
	cross := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude) - (b.Latitude-a.Latitude)*(p.Longitude-a.Longitude)
	if math.Abs(cross) > collinearEpsilon {
		return false
	}

	return p.Longitude >= math.Min(a.Longitude, b.Longitude) && p.Longitude <= math.Max(a.Longitude, b.Longitude) &&
		p.Latitude >= math.Min(a.Latitude, b.Latitude) && p.Latitude <= math.Max(a.Latitude, b.Latitude)
}
