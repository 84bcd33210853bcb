package repository

import (
	"context"
	"fmt"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// EnsureSchema creates the geofence_events table if it does not exist yet.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS geofence_events (
			id          BIGSERIAL PRIMARY KEY,
			status      TEXT NOT NULL,
			fence_id    TEXT,
			latitude    DOUBLE PRECISION,
			longitude   DOUBLE PRECISION,
			error       TEXT,
			occurred_at TIMESTAMPTZ NOT NULL
		);
	`

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create geofence_events table: %w", err)
	}

	return nil
}

// InsertEvent records an update as a status transition.
// Empty fence IDs and error messages are stored as NULL, as is a missing position.
func (r *Repository) InsertEvent(ctx context.Context, update models.Update) error {
	query := `
		INSERT INTO geofence_events (status, fence_id, latitude, longitude, error, occurred_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6);
	`

	var lat, lng *float64
	if update.Position != nil {
		lat, lng = &update.Position.Latitude, &update.Position.Longitude
	}

	_, err := r.db.Exec(ctx, query, string(update.Status), update.FenceID, lat, lng, update.Error, update.At)
	if err != nil {
		return fmt.Errorf("failed to insert geofence event: %w", err)
	}

	r.log.DebugContext(ctx, "Status transition recorded", "status", update.Status, "fence", update.FenceID)

	return nil
}

// FetchRecentEvents returns up to limit events, newest first.
func (r *Repository) FetchRecentEvents(ctx context.Context, limit int) ([]models.Event, error) {
	var events []models.Event
	query := `
		SELECT id, status, COALESCE(fence_id, ''), latitude, longitude, COALESCE(error, ''), occurred_at
		FROM geofence_events
		ORDER BY occurred_at DESC, id DESC
		LIMIT $1;
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query geofence events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			event    models.Event
			status   string
			lat, lng *float64
		)
		if errScan := rows.Scan(
			&event.ID, &status, &event.FenceID, &lat, &lng, &event.Error, &event.OccurredAt,
		); errScan != nil {
			return nil, fmt.Errorf("failed to scan geofence event: %w", errScan)
		}
		event.Status = models.ContainmentStatus(status)
		if lat != nil && lng != nil {
			event.Position = &models.Coordinate{Latitude: *lat, Longitude: *lng}
		}
		events = append(events, event)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read row: %w", err)
	}

	return events, nil
}
