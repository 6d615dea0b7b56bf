package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"chartpulse/internal/domain/chart"
	"chartpulse/pkg/errors"
)

// Compile-time check
var _ chart.Repository = (*SnapshotRepository)(nil)

// SnapshotRepository implements chart.Repository using sqlx.
// One row per (territory, period, iso_year, iso_week); the full track list
// is stored as JSONB next to the snapshot-level aggregates.
type SnapshotRepository struct {
	db *sqlx.DB
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *sqlx.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

const snapshotSchema = `
	CREATE TABLE IF NOT EXISTS chart_snapshots (
		territory      TEXT        NOT NULL,
		period         TEXT        NOT NULL,
		iso_year       INT         NOT NULL,
		iso_week       INT         NOT NULL,
		chart_date     DATE        NOT NULL,
		source         TEXT        NOT NULL DEFAULT 'live',
		tracks         JSONB       NOT NULL,
		top10_streams  BIGINT      NOT NULL DEFAULT 0,
		top50_streams  BIGINT      NOT NULL DEFAULT 0,
		top200_streams BIGINT      NOT NULL DEFAULT 0,
		track_count    INT         NOT NULL DEFAULT 0,
		debut_count    INT         NOT NULL DEFAULT 0,
		reentry_count  INT         NOT NULL DEFAULT 0,
		ingested_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (territory, period, iso_year, iso_week)
	)`

// EnsureSchema creates the snapshot table when it does not exist yet
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, snapshotSchema)
	return errors.Wrap(err, "ensure chart_snapshots schema")
}

type snapshotRow struct {
	Territory     string         `db:"territory"`
	Period        string         `db:"period"`
	ISOYear       int            `db:"iso_year"`
	ISOWeek       int            `db:"iso_week"`
	ChartDate     time.Time      `db:"chart_date"`
	Source        string         `db:"source"`
	Tracks        types.JSONText `db:"tracks"`
	Top10Streams  int64          `db:"top10_streams"`
	Top50Streams  int64          `db:"top50_streams"`
	Top200Streams int64          `db:"top200_streams"`
	TrackCount    int            `db:"track_count"`
	DebutCount    int            `db:"debut_count"`
	ReentryCount  int            `db:"reentry_count"`
	IngestedAt    time.Time      `db:"ingested_at"`
}

func (row *snapshotRow) toSnapshot() (*chart.ChartSnapshot, error) {
	snapshot := &chart.ChartSnapshot{
		Key: chart.SnapshotKey{
			Territory: row.Territory,
			Period:    chart.Period(row.Period),
			ISOYear:   row.ISOYear,
			ISOWeek:   row.ISOWeek,
		},
		ChartDate:     row.ChartDate,
		Source:        row.Source,
		Top10Streams:  row.Top10Streams,
		Top50Streams:  row.Top50Streams,
		Top200Streams: row.Top200Streams,
		TrackCount:    row.TrackCount,
		DebutCount:    row.DebutCount,
		ReentryCount:  row.ReentryCount,
		IngestedAt:    row.IngestedAt,
	}
	if err := json.Unmarshal(row.Tracks, &snapshot.Tracks); err != nil {
		return nil, errors.Wrap(err, "decode snapshot tracks")
	}
	return snapshot, nil
}

// Put upserts a snapshot by key. Last write wins.
func (r *SnapshotRepository) Put(ctx context.Context, snapshot *chart.ChartSnapshot) error {
	tracks, err := json.Marshal(snapshot.Tracks)
	if err != nil {
		return errors.Wrap(err, "encode snapshot tracks")
	}

	query := `
		INSERT INTO chart_snapshots (
			territory, period, iso_year, iso_week,
			chart_date, source, tracks,
			top10_streams, top50_streams, top200_streams,
			track_count, debut_count, reentry_count, ingested_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
		ON CONFLICT (territory, period, iso_year, iso_week) DO UPDATE SET
			chart_date     = EXCLUDED.chart_date,
			source         = EXCLUDED.source,
			tracks         = EXCLUDED.tracks,
			top10_streams  = EXCLUDED.top10_streams,
			top50_streams  = EXCLUDED.top50_streams,
			top200_streams = EXCLUDED.top200_streams,
			track_count    = EXCLUDED.track_count,
			debut_count    = EXCLUDED.debut_count,
			reentry_count  = EXCLUDED.reentry_count,
			ingested_at    = EXCLUDED.ingested_at`

	_, err = r.db.ExecContext(ctx, query,
		snapshot.Key.Territory, string(snapshot.Key.Period), snapshot.Key.ISOYear, snapshot.Key.ISOWeek,
		snapshot.ChartDate, snapshot.Source, types.JSONText(tracks),
		snapshot.Top10Streams, snapshot.Top50Streams, snapshot.Top200Streams,
		snapshot.TrackCount, snapshot.DebutCount, snapshot.ReentryCount, snapshot.IngestedAt,
	)
	return errors.Wrap(err, "upsert snapshot")
}

// Get returns the snapshot for key, or nil when absent
func (r *SnapshotRepository) Get(ctx context.Context, key chart.SnapshotKey) (*chart.ChartSnapshot, error) {
	var row snapshotRow

	query := `
		SELECT * FROM chart_snapshots
		WHERE territory = $1 AND period = $2 AND iso_year = $3 AND iso_week = $4`

	err := r.db.GetContext(ctx, &row, query,
		key.Territory, string(key.Period), key.ISOYear, key.ISOWeek)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get snapshot")
	}

	return row.toSnapshot()
}

// Window returns up to weeks snapshots at or before from, oldest to newest.
// Missing weeks are skipped, never padded.
func (r *SnapshotRepository) Window(ctx context.Context, territory string, period chart.Period, from time.Time, weeks int) ([]chart.ChartSnapshot, error) {
	year, week := from.ISOWeek()

	var rows []snapshotRow
	query := `
		SELECT * FROM chart_snapshots
		WHERE territory = $1 AND period = $2
		  AND (iso_year, iso_week) <= ($3, $4)
		ORDER BY iso_year DESC, iso_week DESC
		LIMIT $5`

	err := r.db.SelectContext(ctx, &rows, query,
		territory, string(period), year, week, weeks)
	if err != nil {
		return nil, errors.Wrap(err, "window scan")
	}

	// Flip to oldest-first
	snapshots := make([]chart.ChartSnapshot, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		snapshot, err := rows[i].toSnapshot()
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}
	return snapshots, nil
}
