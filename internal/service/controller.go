// Package service implements the geofence controller: it owns the latest position
// and the fence lifecycle and emits a containment update after every event.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/codec"
	"github.com/UnknownOlympus/fencewatch/internal/containment"
	"github.com/UnknownOlympus/fencewatch/internal/location"
	"github.com/UnknownOlympus/fencewatch/internal/metrics"
	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/UnknownOlympus/fencewatch/internal/notify"
	"github.com/UnknownOlympus/fencewatch/internal/store"
	"github.com/google/uuid"
)

// ErrNoActiveFence is returned when an operation needs a fence and none is active.
var ErrNoActiveFence = errors.New("no active fence")

// State is the controller's fence state.
type State string

const (
	// StateNoFence means no fence is active.
	StateNoFence State = "NO_FENCE"
	// StateFenceActive means exactly one fence is active.
	StateFenceActive State = "FENCE_ACTIVE"
)

// Drawing is a completed drawing operation.
type Drawing struct {
	ID      string           // ID identifies the drawing. A UUID is generated when empty.
	Path    codec.NativePath // Path holds the drawn vertices in order.
	Overlay models.Overlay   // Overlay is the rendered shape; the controller owns it once the drawing is accepted.
}

// Replacement describes the outcome of an accepted drawing.
type Replacement struct {
	Fence     *models.Fence            // Fence is the newly active fence.
	Displaced *models.Fence            // Displaced is the previously active fence, already released.
	Status    models.ContainmentStatus // Status is the status recomputed against the new fence.
}

// Controller processes fence edits and position events one at a time.
type Controller struct {
	log     *slog.Logger
	store   *store.GeofenceStore
	engine  containment.Engine
	sink    notify.Sink
	metrics *metrics.Metrics
	now     func() time.Time

	mu     sync.Mutex
	latest *models.PositionSample
	status models.ContainmentStatus
}

var _ location.Handler = (*Controller)(nil)

// NewController creates a controller with no fence and no position. sink may be nil.
func NewController(
	log *slog.Logger,
	store *store.GeofenceStore,
	engine containment.Engine,
	sink notify.Sink,
	metrics *metrics.Metrics,
) *Controller {
	ctrl := &Controller{
		log:     log,
		store:   store,
		engine:  engine,
		sink:    sink,
		metrics: metrics,
		now:     time.Now,
		status:  models.StatusUnknown,
	}
	ctrl.setStatusGauge(models.StatusUnknown)

	return ctrl
}

// OnFenceDrawn makes the drawing the active fence. A malformed or degenerate drawing
// is rejected and the active fence, if any, stays in place; the drawing's overlay then
// remains the caller's to release. On success the displaced fence's overlay is released,
// unless the drawing carries the displaced fence's ID, and containment is recomputed
// against the latest position.
func (c *Controller) OnFenceDrawn(ctx context.Context, drawing Drawing) (Replacement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coords, err := codec.Decode(drawing.Path)
	if err != nil {
		c.metrics.FenceReplacements.WithLabelValues("malformed").Inc()
		return c.rejectLocked(ctx, fmt.Errorf("failed to decode fence: %w", err))
	}

	path := models.Path(coords)
	if err = containment.Validate(path); err != nil {
		c.metrics.FenceReplacements.WithLabelValues("degenerate").Inc()
		return c.rejectLocked(ctx, err)
	}

	id := drawing.ID
	if id == "" {
		id = uuid.NewString()
	}
	fence := &models.Fence{
		ID:        id,
		Path:      path,
		Overlay:   drawing.Overlay,
		CreatedAt: c.now(),
	}

	displaced := c.store.Replace(fence)
	switch {
	case displaced != nil && displaced.ID == fence.ID:
		// Same drawing resubmitted: its shape is still on the map under the new fence.
		c.metrics.FenceReplacements.WithLabelValues("redrawn").Inc()
		c.log.InfoContext(ctx, "Fence redrawn", "fence", fence.ID, "vertices", len(path))
	case displaced != nil:
		displaced.ReleaseOverlay()
		c.metrics.FenceReplacements.WithLabelValues("replaced").Inc()
		c.log.InfoContext(ctx, "Fence replaced", "fence", fence.ID, "displaced", displaced.ID, "vertices", len(path))
	default:
		c.metrics.FenceReplacements.WithLabelValues("created").Inc()
		c.log.InfoContext(ctx, "Fence created", "fence", fence.ID, "vertices", len(path))
	}
	c.metrics.FenceVertices.Set(float64(len(path)))

	status := c.recomputeLocked(ctx)
	c.emitLocked(ctx, nil)

	return Replacement{Fence: fence, Displaced: displaced, Status: status}, nil
}

// OnFenceCleared removes the active fence and releases its overlay.
// The status becomes UNKNOWN.
func (c *Controller) OnFenceCleared(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearLocked(ctx)
	c.emitLocked(ctx, nil)
}

// OnPositionSample records sample as the latest position and recomputes containment.
// Samples are taken in arrival order; an older capture time still supersedes.
func (c *Controller) OnPositionSample(ctx context.Context, sample models.PositionSample) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.metrics.PositionSamples.WithLabelValues("accepted").Inc()
	c.latest = &sample
	c.recomputeLocked(ctx)
	c.emitLocked(ctx, nil)
}

// OnPositionError reports a transient position failure. The last status is kept.
func (c *Controller) OnPositionError(ctx context.Context, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := "error"
	switch {
	case errors.Is(err, location.ErrPositionTimeout):
		result = "timeout"
	case errors.Is(err, location.ErrPositionUnavailable):
		result = "unavailable"
	}
	c.metrics.PositionSamples.WithLabelValues(result).Inc()
	c.log.WarnContext(ctx, "Position update failed", "error", err, "status", c.status)

	c.emitLocked(ctx, err)
}

// Shutdown releases the active fence. It is safe to call more than once.
func (c *Controller) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store.Current() == nil {
		return
	}
	c.clearLocked(ctx)
	c.emitLocked(ctx, nil)
	c.log.InfoContext(ctx, "Controller shut down")
}

// Status returns the last computed containment status.
func (c *Controller) Status() models.ContainmentStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.status
}

// State reports whether a fence is active.
func (c *Controller) State() State {
	if c.store.Current() == nil {
		return StateNoFence
	}
	return StateFenceActive
}

// ActiveFence returns the active fence, or nil.
func (c *Controller) ActiveFence() *models.Fence {
	return c.store.Current()
}

// LatestPosition returns the latest position sample, or nil before the first one.
func (c *Controller) LatestPosition() *models.PositionSample {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest == nil {
		return nil
	}
	sample := *c.latest
	return &sample
}

// ExportFence returns the canonical JSON document of the active fence's vertices.
func (c *Controller) ExportFence() ([]byte, error) {
	fence := c.store.Current()
	if fence == nil {
		return nil, ErrNoActiveFence
	}

	return codec.Encode(fence.Path)
}

func (c *Controller) rejectLocked(ctx context.Context, err error) (Replacement, error) {
	c.log.WarnContext(ctx, "Fence edit rejected", "error", err)
	c.emitLocked(ctx, err)

	return Replacement{Status: c.status}, err
}

func (c *Controller) clearLocked(ctx context.Context) {
	displaced := c.store.Replace(nil)
	if displaced != nil {
		displaced.ReleaseOverlay()
		c.metrics.FenceReplacements.WithLabelValues("cleared").Inc()
		c.log.InfoContext(ctx, "Fence cleared", "fence", displaced.ID)
	}
	c.metrics.FenceVertices.Set(0)
	c.setStatusLocked(models.StatusUnknown)
}

// recomputeLocked evaluates the latest position against the active fence from scratch.
func (c *Controller) recomputeLocked(ctx context.Context) models.ContainmentStatus {
	fence := c.store.Current()
	if fence == nil || c.latest == nil {
		c.setStatusLocked(models.StatusUnknown)
		return c.status
	}

	start := time.Now()
	inside, err := c.engine.Contains(c.latest.Coordinate, fence.Path)
	c.metrics.ContainmentSeconds.WithLabelValues(c.engine.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		c.log.ErrorContext(ctx, "Containment evaluation failed", "fence", fence.ID, "error", err)
		c.setStatusLocked(models.StatusUnknown)
		return c.status
	}

	status := models.StatusFromContains(inside)
	if status != c.status {
		c.log.DebugContext(ctx, "Containment status changed", "fence", fence.ID, "from", c.status, "to", status)
	}
	c.setStatusLocked(status)

	return status
}

func (c *Controller) setStatusLocked(status models.ContainmentStatus) {
	c.status = status
	c.setStatusGauge(status)
}

func (c *Controller) setStatusGauge(status models.ContainmentStatus) {
	for _, s := range []models.ContainmentStatus{models.StatusUnknown, models.StatusInside, models.StatusOutside} {
		value := 0.0
		if s == status {
			value = 1
		}
		c.metrics.Status.WithLabelValues(string(s)).Set(value)
	}
}

func (c *Controller) emitLocked(ctx context.Context, cause error) {
	if c.sink == nil {
		return
	}

	update := models.Update{
		Status: c.status,
		At:     c.now(),
		Err:    cause,
	}
	if cause != nil {
		update.Error = cause.Error()
	}
	if fence := c.store.Current(); fence != nil {
		update.FenceID = fence.ID
	}
	if c.latest != nil {
		position := c.latest.Coordinate
		update.Position = &position
		update.CapturedAtEpochMillis = c.latest.CapturedAtEpochMillis
	}

	if err := c.sink.Publish(ctx, update); err != nil {
		c.log.ErrorContext(ctx, "Failed to publish status update", "status", update.Status, "error", err)
	}
}
