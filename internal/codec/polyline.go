package codec

import (
	"fmt"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"googlemaps.github.io/maps"
)

// latLng adapts a Google Maps SDK point to NativePoint.
type latLng maps.LatLng

func (l latLng) Latitude() any  { return l.Lat }
func (l latLng) Longitude() any { return l.Lng }

// LatLngPath wraps Google Maps SDK points as a NativePath.
func LatLngPath(points []maps.LatLng) NativePath {
	path := make(NativePath, 0, len(points))
	for _, p := range points {
		path = append(path, latLng(p))
	}
	return path
}

// DecodePolyline decodes a Google encoded polyline into coordinates.
func DecodePolyline(encoded string) ([]models.Coordinate, error) {
	path, err := ReadPolyline(encoded)
	if err != nil {
		return nil, err
	}

	return Decode(path)
}

// ReadPolyline decodes a Google encoded polyline into a NativePath.
func ReadPolyline(encoded string) (NativePath, error) {
	points, err := maps.DecodePolyline(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid polyline: %w", ErrMalformedPoint, err)
	}

	return LatLngPath(points), nil
}

// EncodePolyline encodes coordinates as a Google encoded polyline.
// The encoding keeps five decimal places.
func EncodePolyline(coords []models.Coordinate) string {
	points := make([]maps.LatLng, 0, len(coords))
	for _, c := range coords {
		points = append(points, maps.LatLng{Lat: c.Latitude, Lng: c.Longitude})
	}
	return maps.Encode(points)
}
