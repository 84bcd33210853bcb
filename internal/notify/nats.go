package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// Publisher is the subset of *nats.Conn used for fire-and-forget messages.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// StatusPublisher publishes every update as JSON on a NATS subject.
type StatusPublisher struct {
	conn    Publisher
	subject string
}

// NewStatusPublisher creates a StatusPublisher.
func NewStatusPublisher(conn Publisher, subject string) *StatusPublisher {
	return &StatusPublisher{conn: conn, subject: subject}
}

// Publish encodes update and publishes it.
func (p *StatusPublisher) Publish(_ context.Context, update models.Update) error {
	data, err := encodeUpdate(update)
	if err != nil {
		return err
	}
	if err = p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish status to %s: %w", p.subject, err)
	}

	return nil
}

// OverlayReleaser hands out overlays whose release is announced on NATS, so the
// drawing client can remove the shape from its map.
type OverlayReleaser struct {
	log     *slog.Logger
	conn    Publisher
	subject string
}

// NewOverlayReleaser creates a releaser publishing on "<subject>.<drawing id>".
func NewOverlayReleaser(log *slog.Logger, conn Publisher, subject string) *OverlayReleaser {
	return &OverlayReleaser{log: log, conn: conn, subject: subject}
}

// Overlay returns the overlay handle for a drawing.
func (r *OverlayReleaser) Overlay(drawingID string) models.Overlay {
	return &remoteOverlay{releaser: r, drawingID: drawingID}
}

type remoteOverlay struct {
	releaser  *OverlayReleaser
	drawingID string
	once      sync.Once
}

// Release publishes the release message once.
func (o *remoteOverlay) Release() {
	o.once.Do(func() {
		subject := o.releaser.subject + "." + o.drawingID
		if err := o.releaser.conn.Publish(subject, nil); err != nil {
			o.releaser.log.Error("Failed to release overlay", "drawing", o.drawingID, "error", err)
			return
		}
		o.releaser.log.Debug("Overlay released", "drawing", o.drawingID)
	})
}

func encodeUpdate(update models.Update) ([]byte, error) {
	if update.Err != nil && update.Error == "" {
		update.Error = update.Err.Error()
	}
	data, err := json.Marshal(update)
	if err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}

	return data, nil
}
