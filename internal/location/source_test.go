package location_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/location"
	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlatform records watches and lets tests fire callbacks.
type fakePlatform struct {
	mu       sync.Mutex
	next     location.WatchID
	watches  map[location.WatchID]location.Callback
	cleared  []location.WatchID
	watchErr error
	lastOpts location.Options
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{watches: make(map[location.WatchID]location.Callback)}
}

func (f *fakePlatform) Watch(cb location.Callback, opts location.Options) (location.WatchID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watchErr != nil {
		return 0, f.watchErr
	}
	f.next++
	f.watches[f.next] = cb
	f.lastOpts = opts
	return f.next, nil
}

func (f *fakePlatform) ClearWatch(id location.WatchID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.cleared = append(f.cleared, id)
}

// fire invokes the callback of a watch even if it has been cleared, like a late platform event.
func (f *fakePlatform) fire(id location.WatchID, sample models.PositionSample, err error) {
	f.mu.Lock()
	cb := f.watches[id]
	f.mu.Unlock()

	cb(sample, err)
}

func (f *fakePlatform) clearedIDs() []location.WatchID {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]location.WatchID(nil), f.cleared...)
}

// recordingHandler collects deliveries. block, when set, stalls each delivery until closed.
type recordingHandler struct {
	mu      sync.Mutex
	samples []models.PositionSample
	errs    []error
	entered chan struct{}
	block   chan struct{}
}

func (h *recordingHandler) OnPositionSample(_ context.Context, sample models.PositionSample) {
	if h.entered != nil {
		h.entered <- struct{}{}
	}
	if h.block != nil {
		<-h.block
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, sample)
}

func (h *recordingHandler) OnPositionError(_ context.Context, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) sampleCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.samples)
}

func sampleAt(lat, lng float64, ts int64) models.PositionSample {
	return models.PositionSample{
		Coordinate:            models.Coordinate{Latitude: lat, Longitude: lng},
		CapturedAtEpochMillis: ts,
	}
}

var watchOptions = location.Options{
	HighAccuracy:   true,
	MaxSampleAge:   30 * time.Second,
	AcquireTimeout: 27 * time.Second,
}

func TestSource_Start(t *testing.T) {
	logger := slog.Default()

	t.Run("no platform", func(t *testing.T) {
		src := location.NewSource(logger, nil, &recordingHandler{})

		sub, err := src.Start(t.Context(), watchOptions)

		require.ErrorIs(t, err, location.ErrUnsupportedPlatform)
		assert.Nil(t, sub)
		assert.Equal(t, location.StateStopped, src.State())
	})

	t.Run("platform refuses", func(t *testing.T) {
		platform := newFakePlatform()
		platform.watchErr = location.ErrUnsupportedPlatform
		src := location.NewSource(logger, platform, &recordingHandler{})

		sub, err := src.Start(t.Context(), watchOptions)

		require.ErrorIs(t, err, location.ErrUnsupportedPlatform)
		require.ErrorContains(t, err, "failed to start location watch")
		assert.Nil(t, sub)
		assert.Equal(t, location.StateStopped, src.State())
	})

	t.Run("delivers samples and failures in platform order", func(t *testing.T) {
		platform := newFakePlatform()
		handler := &recordingHandler{}
		src := location.NewSource(logger, platform, handler)

		sub, err := src.Start(t.Context(), watchOptions)
		require.NoError(t, err)
		assert.Equal(t, location.StateWatching, src.State())
		assert.Equal(t, watchOptions, platform.lastOpts)
		assert.Equal(t, watchOptions, sub.Options)

		platform.fire(sub.ID, sampleAt(1, 1, 2000), nil)
		platform.fire(sub.ID, models.PositionSample{}, location.ErrPositionTimeout)
		platform.fire(sub.ID, sampleAt(2, 2, 1000), nil) // earlier timestamp is accepted as-is

		require.Len(t, handler.samples, 2)
		assert.Equal(t, int64(2000), handler.samples[0].CapturedAtEpochMillis)
		assert.Equal(t, int64(1000), handler.samples[1].CapturedAtEpochMillis)
		require.Len(t, handler.errs, 1)
		require.ErrorIs(t, handler.errs[0], location.ErrPositionTimeout)
		assert.Equal(t, location.StateWatching, src.State(), "failures do not stop watching")
	})

	t.Run("second start clears the first watch", func(t *testing.T) {
		platform := newFakePlatform()
		handler := &recordingHandler{}
		src := location.NewSource(logger, platform, handler)

		first, err := src.Start(t.Context(), watchOptions)
		require.NoError(t, err)
		second, err := src.Start(t.Context(), watchOptions)
		require.NoError(t, err)

		assert.Equal(t, []location.WatchID{first.ID}, platform.clearedIDs())

		platform.fire(first.ID, sampleAt(1, 1, 1), nil)
		platform.fire(second.ID, sampleAt(2, 2, 2), nil)

		require.Len(t, handler.samples, 1)
		assert.Equal(t, int64(2), handler.samples[0].CapturedAtEpochMillis)

		first.Stop()
		assert.Equal(t, location.StateWatching, src.State(), "stale handle must not stop the newer watch")
	})
}

func TestSource_Stop(t *testing.T) {
	logger := slog.Default()

	t.Run("stop is idempotent", func(t *testing.T) {
		platform := newFakePlatform()
		src := location.NewSource(logger, platform, &recordingHandler{})
		sub, err := src.Start(t.Context(), watchOptions)
		require.NoError(t, err)

		src.Stop()
		src.Stop()
		sub.Stop()

		assert.Equal(t, []location.WatchID{sub.ID}, platform.clearedIDs())
		assert.Equal(t, location.StateStopped, src.State())
	})

	t.Run("stop before start is a no-op", func(t *testing.T) {
		platform := newFakePlatform()
		src := location.NewSource(logger, platform, &recordingHandler{})

		src.Stop()

		assert.Empty(t, platform.clearedIDs())
	})

	t.Run("nothing is delivered after stop", func(t *testing.T) {
		platform := newFakePlatform()
		handler := &recordingHandler{}
		src := location.NewSource(logger, platform, handler)
		sub, err := src.Start(t.Context(), watchOptions)
		require.NoError(t, err)

		sub.Stop()
		platform.fire(sub.ID, sampleAt(1, 1, 1), nil)
		platform.fire(sub.ID, models.PositionSample{}, errors.New("late failure"))

		assert.Empty(t, handler.samples)
		assert.Empty(t, handler.errs)
	})

	t.Run("stop waits for the delivery in flight", func(t *testing.T) {
		platform := newFakePlatform()
		handler := &recordingHandler{entered: make(chan struct{}), block: make(chan struct{})}
		src := location.NewSource(logger, platform, handler)
		sub, err := src.Start(t.Context(), watchOptions)
		require.NoError(t, err)

		go platform.fire(sub.ID, sampleAt(1, 1, 1), nil)
		<-handler.entered

		stopped := make(chan struct{})
		go func() {
			src.Stop()
			close(stopped)
		}()

		select {
		case <-stopped:
			t.Fatal("Stop returned while a delivery was in flight")
		case <-time.After(50 * time.Millisecond):
		}

		close(handler.block)
		<-stopped
		assert.Equal(t, 1, handler.sampleCount())
	})

	t.Run("context cancellation stops the watch", func(t *testing.T) {
		platform := newFakePlatform()
		src := location.NewSource(logger, platform, &recordingHandler{})
		ctx, cancel := context.WithCancel(t.Context())

		sub, err := src.Start(ctx, watchOptions)
		require.NoError(t, err)
		cancel()

		require.Eventually(t, func() bool {
			return src.State() == location.StateStopped
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, []location.WatchID{sub.ID}, platform.clearedIDs())
	})
}
