package models

import "time"

// Event is a recorded status transition.
type Event struct {
	ID         int64             `json:"id"`
	Status     ContainmentStatus `json:"status"`
	FenceID    string            `json:"fence_id,omitempty"`
	Position   *Coordinate       `json:"position,omitempty"`
	Error      string            `json:"error,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
