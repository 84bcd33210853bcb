package notify

import (
	"context"
	"sync"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// TransitionFilter forwards an update only when the status or the active fence
// differs from the last forwarded one. The first update is always forwarded.
type TransitionFilter struct {
	next Sink

	mu      sync.Mutex
	seen    bool
	status  models.ContainmentStatus
	fenceID string
}

// Transitions wraps next in a TransitionFilter.
func Transitions(next Sink) *TransitionFilter {
	return &TransitionFilter{next: next}
}

// Publish forwards update to the wrapped sink if it is a transition.
// A failed forward is retried on the next update.
func (f *TransitionFilter) Publish(ctx context.Context, update models.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen && f.status == update.Status && f.fenceID == update.FenceID {
		return nil
	}

	if err := f.next.Publish(ctx, update); err != nil {
		return err
	}

	f.seen = true
	f.status = update.Status
	f.fenceID = update.FenceID

	return nil
}
