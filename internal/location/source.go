package location

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/UnknownOlympus/fencewatch/internal/models"
)

// State is the lifecycle state of a Source.
type State string

const (
	// StateStopped means no platform watch is held.
	StateStopped State = "STOPPED"
	// StateWatching means exactly one platform watch is held.
	StateWatching State = "WATCHING"
)

// Handler consumes what a Source emits.
type Handler interface {
	OnPositionSample(ctx context.Context, sample models.PositionSample)
	OnPositionError(ctx context.Context, err error)
}

// Source owns at most one platform watch at a time and forwards its callbacks to a Handler.
//
// Deliveries and Stop share one mutex, so a delivery in flight completes before Stop
// returns and nothing is delivered afterwards. The handler must not call Start or
// Stop from inside a delivery.
type Source struct {
	log      *slog.Logger
	platform Platform
	handler  Handler

	mu        sync.Mutex
	state     State
	gen       uint64
	watchID   WatchID
	stopAfter func() bool
}

// Subscription is the handle returned by Start.
type Subscription struct {
	ID      WatchID // ID is the platform watch identifier.
	Options Options // Options are the options the watch was started with.

	src *Source
	gen uint64
}

// Stop cancels this subscription. It is a no-op if the subscription has already
// been stopped or superseded by a later Start.
func (sub *Subscription) Stop() {
	sub.src.stop(sub.gen)
}

// NewSource creates a stopped source. A nil platform means the host has no location capability.
func NewSource(log *slog.Logger, platform Platform, handler Handler) *Source {
	return &Source{
		log:      log,
		platform: platform,
		handler:  handler,
		state:    StateStopped,
	}
}

// Start begins continuous watching. If the source is already watching, the previous
// watch is cleared first so that only the newest subscription stays active.
// Cancelling ctx stops the subscription.
func (s *Source) Start(ctx context.Context, opts Options) (*Subscription, error) {
	if s.platform == nil {
		return nil, ErrUnsupportedPlatform
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateWatching {
		s.log.WarnContext(ctx, "Location watch already active, replacing it", "watch", s.watchID)
		s.clearLocked()
	}

	s.gen++
	gen := s.gen
	deliverCtx := context.WithoutCancel(ctx)

	id, err := s.platform.Watch(func(sample models.PositionSample, err error) {
		s.deliver(deliverCtx, gen, sample, err)
	}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start location watch: %w", err)
	}

	s.state = StateWatching
	s.watchID = id
	s.stopAfter = context.AfterFunc(ctx, func() { s.stop(gen) })

	s.log.InfoContext(ctx, "Location watch started",
		"watch", id,
		"high_accuracy", opts.HighAccuracy,
		"max_sample_age", opts.MaxSampleAge,
		"acquire_timeout", opts.AcquireTimeout,
	)

	return &Subscription{ID: id, Options: opts, src: s, gen: gen}, nil
}

// Stop cancels the active watch, if any. It is safe to call repeatedly.
func (s *Source) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateWatching {
		s.clearLocked()
	}
}

// State returns the current lifecycle state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Source) stop(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateWatching && s.gen == gen {
		s.clearLocked()
	}
}

// clearLocked releases the platform watch. s.mu must be held.
func (s *Source) clearLocked() {
	s.platform.ClearWatch(s.watchID)
	s.state = StateStopped
	if s.stopAfter != nil {
		s.stopAfter()
		s.stopAfter = nil
	}
	s.log.Info("Location watch stopped", "watch", s.watchID)
}

func (s *Source) deliver(ctx context.Context, gen uint64, sample models.PositionSample, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateWatching || s.gen != gen {
		return
	}

	if err != nil {
		s.handler.OnPositionError(ctx, err)
		return
	}
	s.handler.OnPositionSample(ctx, sample)
}
