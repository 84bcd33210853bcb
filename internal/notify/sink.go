// Package notify delivers containment updates to the outside world.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/fencewatch/internal/metrics"
	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// Sink receives every update the controller emits.
type Sink interface {
	Publish(ctx context.Context, update models.Update) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, update models.Update) error

// Publish calls f(ctx, update).
func (f SinkFunc) Publish(ctx context.Context, update models.Update) error {
	return f(ctx, update)
}

// Named labels a sink for logs and metrics.
type Named struct {
	Name string
	Sink Sink
}

// Fanout publishes each update to every sink in order. A failing sink does not
// prevent delivery to the others.
type Fanout struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	sinks   []Named
}

// NewFanout creates a fanout over sinks.
func NewFanout(log *slog.Logger, metrics *metrics.Metrics, sinks ...Named) *Fanout {
	return &Fanout{log: log, metrics: metrics, sinks: sinks}
}

// Publish delivers update to all sinks and returns the joined failures.
func (f *Fanout) Publish(ctx context.Context, update models.Update) error {
	var errs []error
	for _, named := range f.sinks {
		if err := named.Sink.Publish(ctx, update); err != nil {
			f.metrics.SinkErrors.WithLabelValues(named.Name).Inc()
			f.log.DebugContext(ctx, "Sink rejected update", "sink", named.Name, "error", err)
			errs = append(errs, fmt.Errorf("sink %s: %w", named.Name, err))
		}
	}

	return errors.Join(errs...)
}

// Len returns the number of sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}
