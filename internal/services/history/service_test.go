package history

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartpulse/internal/domain/chart"
	"chartpulse/pkg/errors"
)

// memoryRepository is an in-memory chart.Repository with upsert semantics
type memoryRepository struct {
	snapshots map[chart.SnapshotKey]chart.ChartSnapshot
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{snapshots: make(map[chart.SnapshotKey]chart.ChartSnapshot)}
}

func (r *memoryRepository) Put(ctx context.Context, snapshot *chart.ChartSnapshot) error {
	r.snapshots[snapshot.Key] = *snapshot
	return nil
}

func (r *memoryRepository) Get(ctx context.Context, key chart.SnapshotKey) (*chart.ChartSnapshot, error) {
	snap, ok := r.snapshots[key]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (r *memoryRepository) Window(ctx context.Context, territory string, period chart.Period, from time.Time, weeks int) ([]chart.ChartSnapshot, error) {
	fromYear, fromWeek := from.ISOWeek()

	var matched []chart.ChartSnapshot
	for key, snap := range r.snapshots {
		if key.Territory != territory || key.Period != period {
			continue
		}
		if key.ISOYear > fromYear || (key.ISOYear == fromYear && key.ISOWeek > fromWeek) {
			continue
		}
		matched = append(matched, snap)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Key.ISOYear != matched[j].Key.ISOYear {
			return matched[i].Key.ISOYear < matched[j].Key.ISOYear
		}
		return matched[i].Key.ISOWeek < matched[j].Key.ISOWeek
	})
	if len(matched) > weeks {
		matched = matched[len(matched)-weeks:]
	}
	return matched, nil
}

func snapshotAt(t *testing.T, date time.Time, tracks ...chart.TrackAnalysis) *chart.ChartSnapshot {
	t.Helper()
	snap := &chart.ChartSnapshot{
		Key:       chart.KeyForDate("us", chart.PeriodWeekly, date),
		ChartDate: date,
		Source:    chart.SourceLive,
		Tracks:    tracks,
	}
	snap.ComputeAggregates()
	return snap
}

func analysisTrack(position int, streams int64, title, artist, catalogID string) chart.TrackAnalysis {
	return chart.TrackAnalysis{
		EnrichedTrack: chart.EnrichedTrack{
			ChartEntry: chart.ChartEntry{
				Territory:  "us",
				Period:     chart.PeriodWeekly,
				ObservedAt: time.Now(),
				Position:   position,
				Streams:    streams,
				Title:      title,
				Artist:     artist,
				CatalogID:  catalogID,
			},
		},
	}
}

func TestPut_RejectsInvalidPeriod(t *testing.T) {
	svc := NewService(newMemoryRepository())

	err := svc.Put(context.Background(), &chart.ChartSnapshot{
		Key: chart.SnapshotKey{Territory: "us", Period: "monthly", ISOYear: 2026, ISOWeek: 30},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestPut_LastWriteWins(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	first := snapshotAt(t, date, analysisTrack(1, 1_000_000, "One", "A", ""))
	require.NoError(t, svc.Put(ctx, first))

	second := snapshotAt(t, date,
		analysisTrack(1, 2_000_000, "One", "A", ""),
		analysisTrack(2, 1_500_000, "Two", "B", ""))
	require.NoError(t, svc.Put(ctx, second))

	stored, err := svc.Get(ctx, first.Key)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Tracks, 2)
	assert.Equal(t, int64(3_500_000), stored.Top200Streams)
}

func TestGet_AbsentIsNilNotError(t *testing.T) {
	svc := NewService(newMemoryRepository())

	snap, err := svc.Get(context.Background(), chart.SnapshotKey{
		Territory: "us", Period: chart.PeriodWeekly, ISOYear: 2020, ISOWeek: 1,
	})
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestWindow_OrderAndLimit(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo)
	ctx := context.Background()

	base := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		snap := snapshotAt(t, base.AddDate(0, 0, -7*i), analysisTrack(1, int64(1000*(i+1)), "One", "A", ""))
		require.NoError(t, svc.Put(ctx, snap))
	}

	window, err := svc.Window(ctx, "us", chart.PeriodWeekly, base, 3)
	require.NoError(t, err)
	require.Len(t, window, 3)

	// Oldest first, ending at the requested week
	assert.Less(t, window[0].Key.ISOWeek, window[2].Key.ISOWeek)
	assert.Equal(t, chart.KeyForDate("us", chart.PeriodWeekly, base), window[2].Key)
}

func TestCompare(t *testing.T) {
	svc := NewService(newMemoryRepository())
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	current := snapshotAt(t, date, analysisTrack(1, 1_200_000, "One", "A", ""))
	previous := snapshotAt(t, date.AddDate(0, 0, -7), analysisTrack(1, 1_000_000, "One", "A", ""))

	t.Run("growth", func(t *testing.T) {
		rates := svc.Compare(current, previous)
		assert.InDelta(t, 20.0, rates.Top10Pct, 1e-9)
		assert.InDelta(t, 20.0, rates.Top200Pct, 1e-9)
	})

	t.Run("nil previous yields zeros", func(t *testing.T) {
		assert.Zero(t, svc.Compare(current, nil))
	})

	t.Run("nil current yields zeros", func(t *testing.T) {
		assert.Zero(t, svc.Compare(nil, previous))
	})

	t.Run("zero denominator yields zero not NaN", func(t *testing.T) {
		empty := snapshotAt(t, date.AddDate(0, 0, -7))
		rates := svc.Compare(current, empty)
		assert.Zero(t, rates.Top10Pct)
		assert.Zero(t, rates.Top200Pct)
	})
}

func TestObservations_MatchByCatalogID(t *testing.T) {
	svc := NewService(newMemoryRepository())
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	window := []chart.ChartSnapshot{
		*snapshotAt(t, date.AddDate(0, 0, -14), analysisTrack(9, 800_000, "One (Live)", "A", "cat-1")),
		*snapshotAt(t, date.AddDate(0, 0, -7), analysisTrack(7, 900_000, "One", "A", "cat-1")),
	}

	entry := analysisTrack(5, 1_000_000, "One", "A", "cat-1").ChartEntry
	observations := svc.Observations(window, entry)

	require.Len(t, observations, 2)
	assert.Equal(t, 9, observations[0].Position)
	assert.Equal(t, 7, observations[1].Position)
	assert.False(t, observations[0].Simulated)
}

func TestObservations_FallbackToNormalizedNames(t *testing.T) {
	svc := NewService(newMemoryRepository())
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	window := []chart.ChartSnapshot{
		*snapshotAt(t, date.AddDate(0, 0, -7), analysisTrack(7, 900_000, "Blinding Lights!", "The Weeknd", "")),
	}

	entry := analysisTrack(5, 1_000_000, "blinding lights", "the weeknd", "").ChartEntry
	observations := svc.Observations(window, entry)

	require.Len(t, observations, 1)
	assert.Equal(t, 7, observations[0].Position)
}

func TestObservations_SimulatedFlagCarried(t *testing.T) {
	svc := NewService(newMemoryRepository())
	date := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	simulated := snapshotAt(t, date.AddDate(0, 0, -7), analysisTrack(7, 900_000, "One", "A", "cat-1"))
	simulated.Source = chart.SourceSimulated

	entry := analysisTrack(5, 1_000_000, "One", "A", "cat-1").ChartEntry
	observations := svc.Observations([]chart.ChartSnapshot{*simulated}, entry)

	require.Len(t, observations, 1)
	assert.True(t, observations[0].Simulated)
}
