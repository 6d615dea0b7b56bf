package redis

import (
	"context"
	"time"

	"chartpulse/internal/domain/chart"
)

// Compile-time check
var _ chart.Locker = (*IngestLock)(nil)

// IngestLock serializes ingestion runs per snapshot key using SETNX.
// The TTL bounds how long a crashed run can hold a key.
type IngestLock struct {
	client *Client
	ttl    time.Duration
}

// NewIngestLock creates a per-key ingestion lock
func NewIngestLock(client *Client, ttl time.Duration) *IngestLock {
	return &IngestLock{client: client, ttl: ttl}
}

// Acquire takes the lock for key, returning false when another run holds it
func (l *IngestLock) Acquire(ctx context.Context, key chart.SnapshotKey) (bool, error) {
	return l.client.SetNX(ctx, l.redisKey(key), "1", l.ttl)
}

// Release frees the lock for key
func (l *IngestLock) Release(ctx context.Context, key chart.SnapshotKey) error {
	return l.client.Delete(ctx, l.redisKey(key))
}

func (l *IngestLock) redisKey(key chart.SnapshotKey) string {
	return "ingest:lock:" + key.String()
}
