// Package store holds the single active fence.
package store

import (
	"sync/atomic"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// GeofenceStore holds zero or one active fence.
type GeofenceStore struct {
	current atomic.Pointer[models.Fence]
}

// New returns an empty store.
func New() *GeofenceStore {
	return &GeofenceStore{}
}

// Replace makes fence the active fence and returns the fence it displaced.
// A nil fence clears the store. The caller owns the returned fence and is
// responsible for releasing its overlay.
func (s *GeofenceStore) Replace(fence *models.Fence) *models.Fence {
	return s.current.Swap(fence)
}

// Current returns the active fence, or nil.
func (s *GeofenceStore) Current() *models.Fence {
	return s.current.Load()
}
