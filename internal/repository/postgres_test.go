package repository_test

import (
	"errors"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/UnknownOlympus/fencewatch/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertEventQuery = `
	INSERT INTO geofence_events (status, fence_id, latitude, longitude, error, occurred_at)
	VALUES ($1, NULLIF($2, ''), $3, $4, NULLIF($5, ''), $6);
`

const fetchEventsQuery = `
	SELECT id, status, COALESCE(fence_id, ''), latitude, longitude, COALESCE(error, ''), occurred_at
	FROM geofence_events
	ORDER BY occurred_at DESC, id DESC
	LIMIT $1;
`

func ptr(v float64) *float64 {
	return &v
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()

	t.Run("error - create table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS geofence_events")).
			WillReturnError(assert.AnError)

		err = repo.EnsureSchema(ctx)

		require.ErrorIs(t, err, assert.AnError)
		require.ErrorContains(t, err, "failed to create geofence_events table")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - create table", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS geofence_events")).
			WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

		require.NoError(t, repo.EnsureSchema(ctx))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInsertEvent(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	at := time.Date(2024, 5, 6, 13, 50, 56, 0, time.UTC)

	t.Run("error - insert event", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		update := models.Update{Status: models.StatusUnknown, At: at}

		mock.ExpectExec(regexp.QuoteMeta(insertEventQuery)).
			WithArgs("UNKNOWN", "", (*float64)(nil), (*float64)(nil), "", at).
			WillReturnError(assert.AnError)

		err = repo.InsertEvent(ctx, update)

		require.Error(t, err)
		require.ErrorContains(t, err, "failed to insert geofence event")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - insert event with position", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)
		update := models.Update{
			Status:   models.StatusInside,
			FenceID:  "fence-1",
			Position: &models.Coordinate{Latitude: 43.642558, Longitude: -79.387046},
			Error:    "",
			At:       at,
			Err:      errors.New("ignored"),
		}

		mock.ExpectExec(regexp.QuoteMeta(insertEventQuery)).
			WithArgs("INSIDE", "fence-1", ptr(43.642558), ptr(-79.387046), "", at).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.InsertEvent(ctx, update)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestFetchRecentEvents(t *testing.T) {
	t.Parallel()
	logger := slog.Default()
	ctx := t.Context()
	limit := 10
	columns := []string{"id", "status", "fence_id", "latitude", "longitude", "error", "occurred_at"}
	at := time.Date(2024, 5, 6, 13, 50, 56, 0, time.UTC)

	t.Run("error - query events", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchEventsQuery)).
			WithArgs(limit).
			WillReturnError(assert.AnError)

		events, err := repo.FetchRecentEvents(ctx, limit)

		require.Nil(t, events)
		require.ErrorContains(t, err, "failed to query geofence events")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - scan event", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchEventsQuery)).
			WithArgs(limit).
			WillReturnRows(
				pgxmock.NewRows(columns).AddRow("invalid_id", "INSIDE", "", ptr(1), ptr(1), "", at),
			)

		events, err := repo.FetchRecentEvents(ctx, limit)

		require.Nil(t, events)
		require.ErrorContains(t, err, "failed to scan geofence event")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("error - rows error", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchEventsQuery)).
			WithArgs(limit).
			WillReturnRows(
				pgxmock.NewRows(columns).AddRow(int64(1), "INSIDE", "a", ptr(1), ptr(1), "", at).
					RowError(1, assert.AnError),
			)

		events, err := repo.FetchRecentEvents(ctx, limit)

		require.Nil(t, events)
		require.ErrorContains(t, err, "failed to read row")
		require.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success - fetch events", func(t *testing.T) {
		t.Parallel()
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := repository.NewRepository(mock, logger)

		mock.ExpectQuery(regexp.QuoteMeta(fetchEventsQuery)).
			WithArgs(limit).
			WillReturnRows(
				pgxmock.NewRows(columns).
					AddRow(int64(2), "OUTSIDE", "fence-1", ptr(2.5), ptr(3.5), "", at).
					AddRow(int64(1), "UNKNOWN", "", nil, nil, "position unavailable", at.Add(-time.Minute)),
			)

		events, err := repo.FetchRecentEvents(ctx, limit)

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, models.Event{
			ID:         2,
			Status:     models.StatusOutside,
			FenceID:    "fence-1",
			Position:   &models.Coordinate{Latitude: 2.5, Longitude: 3.5},
			OccurredAt: at,
		}, events[0])
		assert.Equal(t, models.StatusUnknown, events[1].Status)
		assert.Nil(t, events[1].Position)
		assert.Equal(t, "position unavailable", events[1].Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
