package models

// Coordinate represents a geographical point defined by its latitude and longitude.
type Coordinate struct {
	Latitude  float64 `json:"lat"` // Latitude in degrees, [-90, 90].
	Longitude float64 `json:"lng"` // Longitude in degrees, [-180, 180].
}

// Valid reports whether both components are within their geographic ranges.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Path is an ordered vertex loop. The last vertex is implicitly connected to the first.
type Path []Coordinate

// Distinct returns the number of distinct vertices in the path.
func (p Path) Distinct() int {
	seen := make(map[Coordinate]struct{}, len(p))
	for _, c := range p {
		seen[c] = struct{}{}
	}

	return len(seen)
}
