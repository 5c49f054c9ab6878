// Package cache provides the caching layer of the relay: the Redis snapshot
// store that lets a fresh process serve the last good workspace before its
// first remote fetch, and the bounded in-process cache used on the decision
// hot path.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
)

// DefaultSnapshotKey is the Redis key used when none is configured.
const DefaultSnapshotKey = "heimdall:workspace:snapshot"

// ErrCorruptSnapshot is returned when the stored value cannot be decoded.
var ErrCorruptSnapshot = errors.New("cache: corrupt workspace snapshot")

// SnapshotStore implements workspace.SnapshotStore on top of Redis.
// The snapshot is stored under a single key as "lastModified|body".
type SnapshotStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewSnapshotStore creates a store writing to key. A ttl of zero keeps the
// snapshot until it is overwritten.
func NewSnapshotStore(client redis.UniversalClient, key string, ttl time.Duration) *SnapshotStore {
	if client == nil {
		panic("cache: redis client cannot be nil")
	}
	if key == "" {
		key = DefaultSnapshotKey
	}
	return &SnapshotStore{client: client, key: key, ttl: ttl}
}

// Load returns the stored snapshot, or (nil, nil) when there is none.
func (s *SnapshotStore) Load(ctx context.Context) (*workspace.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load workspace snapshot: %w", err)
	}

	snap, err := decodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Save overwrites the stored snapshot.
func (s *SnapshotStore) Save(ctx context.Context, snap *workspace.Snapshot) error {
	if snap == nil {
		return nil
	}
	raw, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save workspace snapshot: %w", err)
	}
	return nil
}

// encodeSnapshot joins Last-Modified and body with a pipe. Last-Modified is an
// HTTP date and cannot contain one; the body may.
func encodeSnapshot(snap *workspace.Snapshot) (string, error) {
	if strings.Contains(snap.LastModified, "|") {
		return "", fmt.Errorf("last modified %q cannot contain '|'", snap.LastModified)
	}
	return snap.LastModified + "|" + string(snap.Body), nil
}

func decodeSnapshot(raw string) (*workspace.Snapshot, error) {
	lastModified, body, ok := strings.Cut(raw, "|")
	if !ok || body == "" {
		return nil, ErrCorruptSnapshot
	}
	return &workspace.Snapshot{Body: []byte(body), LastModified: lastModified}, nil
}
