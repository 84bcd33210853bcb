// Package location wraps a platform's continuous position watching behind an
// explicit subscription with a start/stop lifecycle.
package location

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/nats-io/nats.go"
)

// Errors reported by sources and platforms.
var (
	// ErrUnsupportedPlatform means no location capability is available. Watching cannot start.
	ErrUnsupportedPlatform = errors.New("location capability not supported by platform")
	// ErrPositionUnavailable is a transient failure to obtain a fix.
	ErrPositionUnavailable = errors.New("position unavailable")
	// ErrPositionTimeout is reported when no fix arrives within the acquire timeout.
	ErrPositionTimeout = errors.New("position acquisition timed out")
)

// Options are passed through to the platform unchanged.
type Options struct {
	HighAccuracy   bool          // Request the most accurate fix the device can produce.
	MaxSampleAge   time.Duration // Oldest acceptable fix age. Zero disables the check.
	AcquireTimeout time.Duration // Longest wait for a fix. Zero disables the timer.
}

// WatchID identifies one platform watch.
type WatchID int64

// Callback receives either a sample or a failure. It may be called from any goroutine.
type Callback func(sample models.PositionSample, err error)

// Platform is the location capability: watch/clearWatch.
// After Watch returns, cb is called zero or more times until ClearWatch(id) is called.
// Implementations never invoke cb from inside Watch itself.
type Platform interface {
	Watch(cb Callback, opts Options) (WatchID, error)
	ClearWatch(id WatchID)
}

// PlatformType represents the type of location platform.
type PlatformType string

const (
	// PlatformTypeNATS reads positions from a NATS subject.
	PlatformTypeNATS PlatformType = "nats"
	// PlatformTypeNone disables location watching.
	PlatformTypeNone PlatformType = "none"
)

// PlatformConfig holds configuration for creating a location platform.
type PlatformConfig struct {
	Type    PlatformType // Type of platform to create
	Conn    *nats.Conn   // NATS connection (used by the NATS platform)
	Subject string       // Subject carrying position messages (used by the NATS platform)
	Logger  *slog.Logger // Logger for the platform
}

// NewPlatform creates a location platform based on the provided configuration.
// The "none" type yields a nil platform; starting a source on it fails with ErrUnsupportedPlatform.
func NewPlatform(config PlatformConfig) (Platform, error) {
	switch config.Type {
	case PlatformTypeNATS:
		if config.Conn == nil {
			return nil, errors.New("NATS connection is required for NATS platform")
		}
		if config.Subject == "" {
			return nil, errors.New("subject is required for NATS platform")
		}
		return NewNATSPlatform(config.Conn, config.Subject, config.Logger), nil
	case PlatformTypeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported platform type: %s", config.Type)
	}
}
