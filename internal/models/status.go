package models

import "time"

// ContainmentStatus is the result of testing the latest position against the active fence.
type ContainmentStatus string

const (
	// StatusUnknown means there is no active fence or no position yet.
	StatusUnknown ContainmentStatus = "UNKNOWN"
	// StatusInside means the latest position is inside the active fence (boundary included).
	StatusInside ContainmentStatus = "INSIDE"
	// StatusOutside means the latest position is outside the active fence.
	StatusOutside ContainmentStatus = "OUTSIDE"
)

// StatusFromContains maps a containment answer to a status.
func StatusFromContains(inside bool) ContainmentStatus {
	if inside {
		return StatusInside
	}
	return StatusOutside
}

// Update is emitted by the controller after every processed event.
type Update struct {
	Status                ContainmentStatus `json:"status"`
	FenceID               string            `json:"fence_id,omitempty"`
	Position              *Coordinate       `json:"position,omitempty"`
	CapturedAtEpochMillis int64             `json:"captured_at,omitempty"`
	Error                 string            `json:"error,omitempty"`
	At                    time.Time         `json:"at"`

	// Err is the failure this update reports, if any. Error mirrors it for encoding.
	Err error `json:"-"`
}
