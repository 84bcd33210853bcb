// Package codec converts fence paths between native point representations,
// the canonical JSON document and Google encoded polylines.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/spf13/cast"
)

// ErrMalformedPoint is returned when a point has no readable numeric latitude or longitude.
var ErrMalformedPoint = errors.New("malformed point")

// NativePoint is any point representation that exposes latitude and longitude values.
// The values may be of any numeric-like type; they are coerced on decode.
type NativePoint interface {
	Latitude() any
	Longitude() any
}

// NativePath is an ordered sequence of native points.
type NativePath []NativePoint

// point is the canonical serialized form of a vertex. Field order fixes key order.
type point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// record is a vertex as read back from JSON, before coercion.
type record struct {
	Lat any `json:"lat"`
	Lng any `json:"lng"`
}

func (r record) Latitude() any  { return r.Lat }
func (r record) Longitude() any { return r.Lng }

// Decode maps each native point to a Coordinate, preserving order.
// It fails on the first point whose latitude or longitude cannot be read as a finite
// number inside the geographic range.
func Decode(path NativePath) ([]models.Coordinate, error) {
	coords := make([]models.Coordinate, 0, len(path))
	for idx, pt := range path {
		if pt == nil {
			return nil, fmt.Errorf("%w: point %d is nil", ErrMalformedPoint, idx)
		}

		lat, err := coerce(pt.Latitude())
		if err != nil {
			return nil, fmt.Errorf("%w: point %d latitude: %w", ErrMalformedPoint, idx, err)
		}
		lng, err := coerce(pt.Longitude())
		if err != nil {
			return nil, fmt.Errorf("%w: point %d longitude: %w", ErrMalformedPoint, idx, err)
		}

		coord := models.Coordinate{Latitude: lat, Longitude: lng}
		if !coord.Valid() {
			return nil, fmt.Errorf("%w: point %d out of range (%v, %v)", ErrMalformedPoint, idx, lat, lng)
		}
		coords = append(coords, coord)
	}

	return coords, nil
}

// Encode serializes coordinates as a JSON array of {"lat","lng"} objects indented with
// two spaces. Identical input always yields identical bytes.
func Encode(coords []models.Coordinate) ([]byte, error) {
	points := make([]point, 0, len(coords))
	for _, c := range coords {
		points = append(points, point{Lat: c.Latitude, Lng: c.Longitude})
	}

	data, err := json.MarshalIndent(points, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode coordinates: %w", err)
	}

	return data, nil
}

// Parse reads a document produced by Encode back into coordinates.
func Parse(data []byte) ([]models.Coordinate, error) {
	path, err := ReadDocument(data)
	if err != nil {
		return nil, err
	}

	return Decode(path)
}

// ReadDocument reads a coordinates document without coercing its values, so the
// points can be handed to a drawing consumer that decodes them itself.
func ReadDocument(data []byte) (NativePath, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var records []record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode coordinates document: %w", err)
	}
	if records == nil {
		return nil, errors.New("failed to decode coordinates document: expected an array")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to decode coordinates document: unexpected data after array")
	}

	path := make(NativePath, 0, len(records))
	for _, r := range records {
		path = append(path, r)
	}

	return path, nil
}

func coerce(value any) (float64, error) {
	var (
		out float64
		err error
	)

	switch v := value.(type) {
	case nil:
		return 0, errors.New("missing value")
	case bool:
		return 0, fmt.Errorf("non-numeric value %v", v)
	case json.Number:
		out, err = v.Float64()
	default:
		out, err = cast.ToFloat64E(v)
	}
	if err != nil {
		return 0, err
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("non-finite value %v", out)
	}

	return out, nil
}
