package history

import (
	"context"
	"time"

	"chartpulse/internal/domain/chart"
	"chartpulse/internal/services/resolver"
	"chartpulse/pkg/errors"
	"chartpulse/pkg/logger"
)

// Service is the historical store: durable keyed snapshots, window queries
// and week-over-week growth comparison.
type Service struct {
	repository chart.Repository
	log        *logger.Logger
}

// NewService creates a historical store service
func NewService(repository chart.Repository) *Service {
	return &Service{
		repository: repository,
		log:        logger.Get().With("component", "history"),
	}
}

// Put upserts a snapshot by key. Idempotent, last-write-wins.
func (s *Service) Put(ctx context.Context, snapshot *chart.ChartSnapshot) error {
	if !snapshot.Key.Period.Valid() {
		return errors.Wrapf(errors.ErrInvalidInput, "invalid period %q", snapshot.Key.Period)
	}
	return s.repository.Put(ctx, snapshot)
}

// Get returns the snapshot for key, or nil when absent
func (s *Service) Get(ctx context.Context, key chart.SnapshotKey) (*chart.ChartSnapshot, error) {
	return s.repository.Get(ctx, key)
}

// Window returns up to weeks snapshots at or before from, oldest to newest
func (s *Service) Window(ctx context.Context, territory string, period chart.Period, from time.Time, weeks int) ([]chart.ChartSnapshot, error) {
	return s.repository.Window(ctx, territory, period, from, weeks)
}

// Compare computes week-over-week growth for the stream tiers.
// A nil previous snapshot or a zero denominator yields a rate of 0,
// never NaN; absent history is not an error condition.
func (s *Service) Compare(current, previous *chart.ChartSnapshot) chart.GrowthRates {
	if current == nil || previous == nil {
		return chart.GrowthRates{}
	}
	return chart.GrowthRates{
		Top10Pct:  growthRate(current.Top10Streams, previous.Top10Streams),
		Top50Pct:  growthRate(current.Top50Streams, previous.Top50Streams),
		Top200Pct: growthRate(current.Top200Streams, previous.Top200Streams),
	}
}

// Observations extracts a track's past sightings from a window of
// snapshots, oldest to newest. Matching prefers the catalog ID and falls
// back to normalized (title, artist) for unresolved tracks.
func (s *Service) Observations(window []chart.ChartSnapshot, entry chart.ChartEntry) []chart.Observation {
	normTitle := resolver.Normalize(entry.Title)
	normArtist := resolver.Normalize(entry.Artist)

	var observations []chart.Observation
	for _, snapshot := range window {
		for _, t := range snapshot.Tracks {
			if !sameTrack(entry.CatalogID, normTitle, normArtist, t) {
				continue
			}
			observations = append(observations, chart.Observation{
				ObservedAt:       t.ObservedAt,
				Position:         t.Position,
				PreviousPosition: t.PreviousPosition,
				Streams:          t.Streams,
				Simulated:        snapshot.Source == chart.SourceSimulated,
			})
			break
		}
	}
	return observations
}

func sameTrack(catalogID, normTitle, normArtist string, t chart.TrackAnalysis) bool {
	if catalogID != "" && t.CatalogID != "" {
		return catalogID == t.CatalogID
	}
	return resolver.Normalize(t.Title) == normTitle &&
		resolver.Normalize(t.Artist) == normArtist
}

func growthRate(current, previous int64) float64 {
	if previous == 0 {
		return 0
	}
	return float64(current-previous) / float64(previous) * 100
}
