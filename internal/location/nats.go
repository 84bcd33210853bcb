package location

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/nats-io/nats.go"
)

// optionsSuffix is appended to the position subject for watch option announcements.
const optionsSuffix = ".options"

// NATSPlatform implements Platform over a NATS subject carrying device position messages.
type NATSPlatform struct {
	conn    *nats.Conn   // NATS connection shared with the rest of the service
	subject string       // Subject carrying position messages
	log     *slog.Logger // Logger for logging operations
	now     func() time.Time

	mu      sync.Mutex
	nextID  WatchID
	watches map[WatchID]*natsWatch
}

// positionMessage is the wire format of a device fix.
type positionMessage struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp int64    `json:"timestamp"` // epoch milliseconds
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// optionsMessage announces the requested acquisition settings to devices.
type optionsMessage struct {
	HighAccuracy     bool  `json:"high_accuracy"`
	MaxSampleAgeMs   int64 `json:"max_sample_age_ms"`
	AcquireTimeoutMs int64 `json:"acquire_timeout_ms"`
}

type natsWatch struct {
	sub *nats.Subscription

	mu      sync.Mutex
	timer   *time.Timer
	stopped bool
}

// NewNATSPlatform creates a platform reading positions from subject.
func NewNATSPlatform(conn *nats.Conn, subject string, log *slog.Logger) *NATSPlatform {
	return &NATSPlatform{
		conn:    conn,
		subject: subject,
		log:     log,
		now:     time.Now,
		watches: make(map[WatchID]*natsWatch),
	}
}

// Watch subscribes to the position subject. Invalid or stale messages are reported as
// ErrPositionUnavailable; silence longer than opts.AcquireTimeout is reported as
// ErrPositionTimeout, once per timeout period.
func (p *NATSPlatform) Watch(cb Callback, opts Options) (WatchID, error) {
	if p.conn == nil || p.conn.IsClosed() {
		return 0, ErrUnsupportedPlatform
	}

	watch := &natsWatch{}
	if opts.AcquireTimeout > 0 {
		watch.timer = time.AfterFunc(opts.AcquireTimeout, func() {
			if !watch.rearm(opts.AcquireTimeout) {
				return
			}
			cb(models.PositionSample{}, fmt.Errorf("%w: no fix within %s", ErrPositionTimeout, opts.AcquireTimeout))
		})
	}

	sub, err := p.conn.Subscribe(p.subject, func(msg *nats.Msg) {
		sample, err := parsePositionMessage(msg.Data, opts.MaxSampleAge, p.now())
		if err != nil {
			p.log.Debug("Rejected position message", "subject", msg.Subject, "error", err)
			cb(models.PositionSample{}, err)
			return
		}
		if !watch.rearm(opts.AcquireTimeout) {
			return
		}
		cb(sample, nil)
	})
	if err != nil {
		watch.stop()
		return 0, fmt.Errorf("failed to subscribe to %s: %w", p.subject, err)
	}
	watch.sub = sub

	p.announce(opts)

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.watches[id] = watch
	p.mu.Unlock()

	return id, nil
}

// ClearWatch unsubscribes the watch and stops its timer. Unknown IDs are ignored.
func (p *NATSPlatform) ClearWatch(id WatchID) {
	p.mu.Lock()
	watch, ok := p.watches[id]
	delete(p.watches, id)
	p.mu.Unlock()

	if !ok {
		return
	}

	watch.stop()
	if err := watch.sub.Unsubscribe(); err != nil {
		p.log.Warn("Failed to unsubscribe position watch", "watch", id, "error", err)
	}
}

func (p *NATSPlatform) announce(opts Options) {
	data, err := json.Marshal(optionsMessage{
		HighAccuracy:     opts.HighAccuracy,
		MaxSampleAgeMs:   opts.MaxSampleAge.Milliseconds(),
		AcquireTimeoutMs: opts.AcquireTimeout.Milliseconds(),
	})
	if err != nil {
		p.log.Warn("Failed to encode watch options", "error", err)
		return
	}
	if err = p.conn.Publish(p.subject+optionsSuffix, data); err != nil {
		p.log.Warn("Failed to announce watch options", "subject", p.subject+optionsSuffix, "error", err)
	}
}

// rearm restarts the acquire timer. It returns false once the watch has been stopped.
func (w *natsWatch) rearm(timeout time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return false
	}
	if w.timer != nil {
		w.timer.Reset(timeout)
	}
	return true
}

func (w *natsWatch) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
}

func parsePositionMessage(data []byte, maxAge time.Duration, now time.Time) (models.PositionSample, error) {
	var msg positionMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.PositionSample{}, fmt.Errorf("%w: invalid message: %w", ErrPositionUnavailable, err)
	}

	if msg.Latitude == nil || msg.Longitude == nil {
		return models.PositionSample{}, fmt.Errorf("%w: latitude and longitude are required", ErrPositionUnavailable)
	}
	coord := models.Coordinate{Latitude: *msg.Latitude, Longitude: *msg.Longitude}
	if !coord.Valid() {
		return models.PositionSample{}, fmt.Errorf("%w: coordinate out of range (%v, %v)",
			ErrPositionUnavailable, coord.Latitude, coord.Longitude)
	}
	if msg.Timestamp <= 0 {
		return models.PositionSample{}, fmt.Errorf("%w: timestamp must be positive", ErrPositionUnavailable)
	}

	sample := models.PositionSample{
		Coordinate:            coord,
		CapturedAtEpochMillis: msg.Timestamp,
		AccuracyMeters:        msg.Accuracy,
	}
	if maxAge > 0 && now.Sub(sample.CapturedAt()) > maxAge {
		return models.PositionSample{}, fmt.Errorf("%w: fix is %s old, limit %s",
			ErrPositionUnavailable, now.Sub(sample.CapturedAt()).Round(time.Millisecond), maxAge)
	}

	return sample, nil
}
