package pipeline

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"chartpulse/internal/adapters/charts"
	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/chart"
	"chartpulse/internal/events"
	"chartpulse/internal/metrics"
	"chartpulse/internal/services/concentration"
	"chartpulse/internal/services/enricher"
	"chartpulse/internal/services/features"
	"chartpulse/internal/services/history"
	"chartpulse/internal/services/resolver"
	"chartpulse/pkg/errors"
	"chartpulse/pkg/logger"
)

// IngestResult is what one ingestion run hands back to the caller
type IngestResult struct {
	RunID         string
	Tracks        []chart.TrackAnalysis
	Snapshot      *chart.ChartSnapshot
	Concentration chart.MarketConcentration
	Validation    ValidationReport
}

// WeekComparison is the outcome of a week-over-week comparison
type WeekComparison struct {
	Current     *chart.ChartSnapshot
	Previous    *chart.ChartSnapshot
	GrowthRates chart.GrowthRates
}

// Service orchestrates one ingestion run: load, resolve, enrich, compute
// features, analyze concentration, validate, persist. Persistence happens
// once, at the end, as a single upsert per snapshot key.
type Service struct {
	source        chart.Source
	resolver      *resolver.Service
	enricher      *enricher.Service
	features      *features.Service
	concentration *concentration.Service
	history       *history.Service
	locker        chart.Locker
	simulator     *charts.Simulator
	publisher     *events.Publisher // nil when eventing is disabled

	validationCfg config.ValidationConfig
	backfillDelay time.Duration
	baselineWeeks int

	log *logger.Logger
}

// Deps bundles the pipeline collaborators
type Deps struct {
	Source        chart.Source
	Resolver      *resolver.Service
	Enricher      *enricher.Service
	Features      *features.Service
	Concentration *concentration.Service
	History       *history.Service
	Locker        chart.Locker
	Publisher     *events.Publisher
}

// NewService creates a pipeline orchestrator
func NewService(deps Deps, validationCfg config.ValidationConfig, chartsCfg config.ChartsConfig, featuresCfg config.FeaturesConfig) *Service {
	baseline := featuresCfg.BaselineWeeks
	if baseline <= 0 {
		baseline = 12
	}
	return &Service{
		source:        deps.Source,
		resolver:      deps.Resolver,
		enricher:      deps.Enricher,
		features:      deps.Features,
		concentration: deps.Concentration,
		history:       deps.History,
		locker:        deps.Locker,
		simulator:     charts.NewSimulator(),
		publisher:     deps.Publisher,
		validationCfg: validationCfg,
		backfillDelay: chartsCfg.BackfillDelay,
		baselineWeeks: baseline,
		log:           logger.Get().With("component", "pipeline"),
	}
}

// Ingest runs one full ingestion for a territory/period. A zero date means
// "now". Source failures abort the run with nothing persisted; everything
// downstream degrades at track or field granularity instead.
func (s *Service) Ingest(ctx context.Context, territory string, period chart.Period, date time.Time) (*IngestResult, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	runID := uuid.NewString()
	key := chart.KeyForDate(territory, period, date)
	started := time.Now()

	log := s.log.With("run_id", runID, "key", key.String())

	acquired, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "acquire ingest lock")
	}
	if !acquired {
		metrics.IngestRuns.WithLabelValues(territory, string(period), "locked").Inc()
		return nil, errors.Wrapf(errors.ErrSnapshotLocked, "key %s", key.String())
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Warnw("failed to release ingest lock", "error", err)
		}
	}()

	result, err := s.run(ctx, log, runID, territory, period, date, key)
	metrics.RecordIngestRun(territory, string(period), time.Since(started), err)
	return result, err
}

func (s *Service) run(ctx context.Context, log *logger.Logger, runID, territory string, period chart.Period, date time.Time, key chart.SnapshotKey) (*IngestResult, error) {
	raws, err := s.source.Fetch(ctx, territory, period, date)
	if err != nil {
		return nil, err
	}
	entries := charts.Normalize(raws, territory, period, date)

	s.resolveAll(ctx, log, entries)

	s.enricher.ResetCache()
	enriched := s.enricher.EnrichAll(ctx, entries)

	window, err := s.history.Window(ctx, territory, period, date.AddDate(0, 0, -7), s.baselineWeeks)
	if err != nil {
		log.Warnw("historical window unavailable, features degrade to current week", "error", err)
		window = nil
	}

	tracks := make([]chart.TrackAnalysis, 0, len(enriched))
	for _, track := range enriched {
		observations := s.history.Observations(window, track.ChartEntry)
		tracks = append(tracks, s.features.Analyze(track, observations))
	}

	snapshot := &chart.ChartSnapshot{
		Key:        key,
		ChartDate:  date,
		Source:     chart.SourceLive,
		Tracks:     tracks,
		IngestedAt: time.Now().UTC(),
	}
	snapshot.ComputeAggregates()

	conc := s.concentration.Analyze(tracks)

	validation := validate(snapshot, s.validationCfg)
	for _, snap := range window {
		if snap.Source == chart.SourceSimulated {
			validation.Issues = append(validation.Issues,
				"historical window contains simulated weeks; momentum baselines prefer live data")
			break
		}
	}
	metrics.SnapshotCompleteness.WithLabelValues(territory, string(period)).Set(validation.CompletenessPct)

	// Single upsert at the end; validation is advisory and never blocks it
	if err := s.history.Put(ctx, snapshot); err != nil {
		return nil, errors.Wrap(err, "persist snapshot")
	}

	log.Infow("ingestion run complete",
		"tracks", len(tracks),
		"top200_streams", humanize.Comma(snapshot.Top200Streams),
		"debuts", snapshot.DebutCount,
		"valid", validation.IsValid,
		"issues", len(validation.Issues))

	s.publish(ctx, log, runID, snapshot, conc, validation)

	return &IngestResult{
		RunID:         runID,
		Tracks:        tracks,
		Snapshot:      snapshot,
		Concentration: conc,
		Validation:    validation,
	}, nil
}

// resolveAll fills missing catalog IDs in place. Misses and lookup errors
// leave the entry unresolved; both are logged, neither aborts the run.
func (s *Service) resolveAll(ctx context.Context, log *logger.Logger, entries []chart.ChartEntry) {
	for i := range entries {
		if entries[i].CatalogID != "" {
			continue
		}

		resolution, err := s.resolver.Resolve(ctx, entries[i].Title, entries[i].Artist)
		switch {
		case err != nil:
			metrics.ResolutionTotal.WithLabelValues("error").Inc()
			log.Warnw("resolution lookup failed, track proceeds unresolved",
				"title", entries[i].Title, "artist", entries[i].Artist, "error", err)
		case resolution.Resolved:
			metrics.ResolutionTotal.WithLabelValues("hit").Inc()
			entries[i].CatalogID = resolution.CatalogID
		default:
			metrics.ResolutionTotal.WithLabelValues("miss").Inc()
		}
	}
}

// CollectHistory gathers up to weeks weekly snapshots ending at the current
// week, oldest first. The source generally exposes only the current week;
// weeks it cannot provide are fabricated from the freshest baseline and
// tagged as simulated. The loop is strictly sequential with a fixed delay
// so the source is never hammered and simulation stays deterministic.
func (s *Service) CollectHistory(ctx context.Context, territory string, period chart.Period, weeks int) ([]chart.ChartSnapshot, error) {
	if weeks <= 0 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "weeks must be positive, got %d", weeks)
	}

	now := time.Now().UTC()
	snapshots := make([]chart.ChartSnapshot, 0, weeks)

	var baseline *chart.ChartSnapshot
	for offset := 0; offset < weeks; offset++ {
		if offset > 0 && s.backfillDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backfillDelay):
			}
		}

		date := now.AddDate(0, 0, -7*offset)
		key := chart.KeyForDate(territory, period, date)

		snapshot, err := s.collectWeek(ctx, territory, period, date, key, baseline)
		if err != nil {
			return nil, err
		}
		if baseline == nil {
			baseline = snapshot
		}

		if err := s.persistLocked(ctx, snapshot); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snapshot)
	}

	// Collected newest-first; callers get oldest-first
	for i, j := 0, len(snapshots)-1; i < j; i, j = i+1, j-1 {
		snapshots[i], snapshots[j] = snapshots[j], snapshots[i]
	}
	return snapshots, nil
}

// persistLocked upserts one collected snapshot under the same per-key lock
// Ingest holds, so a backfill never interleaves writes with a concurrent
// scheduled run on the same key.
func (s *Service) persistLocked(ctx context.Context, snapshot *chart.ChartSnapshot) error {
	key := snapshot.Key

	acquired, err := s.locker.Acquire(ctx, key)
	if err != nil {
		return errors.Wrap(err, "acquire backfill lock")
	}
	if !acquired {
		return errors.Wrapf(errors.ErrSnapshotLocked, "key %s", key.String())
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), key); err != nil {
			s.log.Warnw("failed to release backfill lock", "key", key.String(), "error", err)
		}
	}()

	if err := s.history.Put(ctx, snapshot); err != nil {
		return errors.Wrap(err, "persist collected snapshot")
	}
	return nil
}

func (s *Service) collectWeek(ctx context.Context, territory string, period chart.Period, date time.Time, key chart.SnapshotKey, baseline *chart.ChartSnapshot) (*chart.ChartSnapshot, error) {
	raws, err := s.source.Fetch(ctx, territory, period, date)
	if err == nil {
		entries := charts.Normalize(raws, territory, period, date)
		tracks := make([]chart.TrackAnalysis, 0, len(entries))
		for _, e := range entries {
			tracks = append(tracks, chart.TrackAnalysis{
				EnrichedTrack: chart.EnrichedTrack{ChartEntry: e},
			})
		}
		snapshot := &chart.ChartSnapshot{
			Key:        key,
			ChartDate:  date,
			Source:     chart.SourceLive,
			Tracks:     tracks,
			IngestedAt: time.Now().UTC(),
		}
		snapshot.ComputeAggregates()
		return snapshot, nil
	}

	if baseline == nil {
		// Nothing to perturb from; the current week must come first
		return nil, errors.Wrap(err, "fetch baseline week")
	}

	s.log.Infow("source has no data for past week, simulating from baseline",
		"key", key.String())
	snapshot := s.simulator.FromBaseline(baseline, key, date)
	snapshot.IngestedAt = time.Now().UTC()
	return snapshot, nil
}

// CompareWeek compares the latest stored snapshot against the week before
func (s *Service) CompareWeek(ctx context.Context, territory string, period chart.Period) (*WeekComparison, error) {
	window, err := s.history.Window(ctx, territory, period, time.Now().UTC(), 2)
	if err != nil {
		return nil, errors.Wrap(err, "load comparison window")
	}
	if len(window) == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "no snapshots stored for %s %s", territory, period)
	}

	comparison := &WeekComparison{
		Current: &window[len(window)-1],
	}
	if len(window) > 1 {
		comparison.Previous = &window[0]
	}
	comparison.GrowthRates = s.history.Compare(comparison.Current, comparison.Previous)
	return comparison, nil
}

func (s *Service) publish(ctx context.Context, log *logger.Logger, runID string, snapshot *chart.ChartSnapshot, conc chart.MarketConcentration, validation ValidationReport) {
	if s.publisher == nil {
		return
	}

	event := events.SnapshotIngestedEvent{
		RunID:           runID,
		Key:             snapshot.Key.String(),
		Territory:       snapshot.Key.Territory,
		Period:          string(snapshot.Key.Period),
		ISOYear:         snapshot.Key.ISOYear,
		ISOWeek:         snapshot.Key.ISOWeek,
		Source:          snapshot.Source,
		TrackCount:      snapshot.TrackCount,
		CompletenessPct: validation.CompletenessPct,
		IsValid:         validation.IsValid,
		IngestedAt:      snapshot.IngestedAt,
	}
	if err := s.publisher.PublishSnapshotIngested(ctx, event); err != nil {
		log.Warnw("failed to publish snapshot event", "error", err)
	}

	concEvent := events.ConcentrationComputedEvent{
		RunID:              runID,
		Key:                snapshot.Key.String(),
		LabelCount:         len(conc.Labels),
		Top3LabelsSharePct: conc.Top3LabelsSharePct,
		Top5LabelsSharePct: conc.Top5LabelsSharePct,
		HHIIndex:           conc.HHIIndex,
	}
	if err := s.publisher.PublishConcentrationComputed(ctx, concEvent); err != nil {
		log.Warnw("failed to publish concentration event", "error", err)
	}

	if len(validation.Issues) > 0 {
		warning := events.ValidationWarningEvent{
			RunID:  runID,
			Key:    snapshot.Key.String(),
			Issues: validation.Issues,
		}
		if err := s.publisher.PublishValidationWarning(ctx, warning); err != nil {
			log.Warnw("failed to publish validation warning", "error", err)
		}
	}
}
