package models

import "time"

// Overlay is the rendering collaborator's handle for a drawn fence.
// Release unregisters the overlay from the rendering surface.
type Overlay interface {
	Release()
}

// Fence is a closed polygon plus the overlay it was drawn with.
// Fences are handled by pointer; two fences are the same fence only if the pointers are equal.
type Fence struct {
	ID        string    // ID identifies the drawing the fence came from.
	Path      Path      // Path holds the vertices in drawing order.
	Overlay   Overlay   // Overlay may be nil when the fence has no native rendering.
	CreatedAt time.Time // CreatedAt is when the drawing completed.
}

// ReleaseOverlay releases the fence's overlay, if any.
func (f *Fence) ReleaseOverlay() {
	if f == nil || f.Overlay == nil {
		return
	}
	f.Overlay.Release()
}
