package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/UnknownOlympus/fencewatch/internal/models"
	"github.com/valkey-io/valkey-go"
)

// SnapshotStore keeps a single expiring value per key.
type SnapshotStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ValkeyStore implements SnapshotStore using Valkey (Redis-compatible).
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to the Valkey server at addr.
func NewValkeyStore(addr string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &ValkeyStore{client: client}, nil
}

// Set stores value under key. A non-positive ttl stores it without expiry.
func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(value)).Build()).Error()
	}
	return s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(value)).Ex(ttl).Build()).Error()
}

// Close releases the client.
func (s *ValkeyStore) Close() {
	s.client.Close()
}

// SnapshotSink overwrites one key with the latest update so readers can poll the
// current status without subscribing.
type SnapshotSink struct {
	store SnapshotStore
	key   string
	ttl   time.Duration
}

// NewSnapshotSink creates a SnapshotSink writing to key.
func NewSnapshotSink(store SnapshotStore, key string, ttl time.Duration) *SnapshotSink {
	return &SnapshotSink{store: store, key: key, ttl: ttl}
}

// Publish stores the encoded update.
func (s *SnapshotSink) Publish(ctx context.Context, update models.Update) error {
	data, err := encodeUpdate(update)
	if err != nil {
		return err
	}
	if err = s.store.Set(ctx, s.key, data, s.ttl); err != nil {
		return fmt.Errorf("failed to store snapshot %s: %w", s.key, err)
	}

	return nil
}
