package models

import "time"

// PositionSample is one fix reported by a location platform.
type PositionSample struct {
	Coordinate            Coordinate `json:"coordinate"`
	CapturedAtEpochMillis int64      `json:"captured_at"`
	AccuracyMeters        *float64   `json:"accuracy,omitempty"`
}

// CapturedAt returns the capture timestamp as a time.Time.
func (s PositionSample) CapturedAt() time.Time {
	return time.UnixMilli(s.CapturedAtEpochMillis)
}
