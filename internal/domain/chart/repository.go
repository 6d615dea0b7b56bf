package chart

import (
	"context"
	"time"
)

// Repository defines keyed snapshot storage (PostgreSQL)
type Repository interface {
	// Put upserts a snapshot by key. Idempotent, last-write-wins.
	Put(ctx context.Context, snapshot *ChartSnapshot) error

	// Get returns the snapshot for key, or nil when absent.
	Get(ctx context.Context, key SnapshotKey) (*ChartSnapshot, error)

	// Window returns up to weeks snapshots at or before from, oldest to
	// newest, for the territory/period. Missing weeks are skipped.
	Window(ctx context.Context, territory string, period Period, from time.Time, weeks int) ([]ChartSnapshot, error)
}

// RawEntry is what a chart source minimally provides per ranked track.
// Movement carries whatever change-indicator vocabulary the source uses
// ("NEW", "RE-ENTRY", or a signed rank delta); the adapter normalizes it.
type RawEntry struct {
	Position     int
	Title        string
	Artist       string
	Streams      int64
	Movement     string
	WeeksOnChart int
	PeakPosition int
}

// Source supplies a raw ranked list for a (territory, period, date) triple
type Source interface {
	Fetch(ctx context.Context, territory string, period Period, date time.Time) ([]RawEntry, error)
}

// Locker serializes ingestion runs per snapshot key so a slow run cannot
// overwrite a newer one through the last-write-wins upsert.
type Locker interface {
	// Acquire takes the per-key lock, returning false when another run holds it.
	Acquire(ctx context.Context, key SnapshotKey) (bool, error)
	Release(ctx context.Context, key SnapshotKey) error
}
