package ingest

import (
	"context"
	"time"

	"chartpulse/internal/domain/chart"
	"chartpulse/internal/services/pipeline"
	"chartpulse/internal/workers"
	"chartpulse/pkg/errors"
)

// Worker runs scheduled chart ingestion for every configured territory.
// One iteration processes the territories sequentially; a failure in one
// territory never blocks the others.
type Worker struct {
	*workers.BaseWorker
	pipeline    *pipeline.Service
	territories []string
	period      chart.Period
}

// NewWorker creates a scheduled ingestion worker
func NewWorker(
	pipelineSvc *pipeline.Service,
	territories []string,
	period chart.Period,
	interval time.Duration,
	enabled bool,
) *Worker {
	return &Worker{
		BaseWorker:  workers.NewBaseWorker("chart_ingest", interval, enabled),
		pipeline:    pipelineSvc,
		territories: territories,
		period:      period,
	}
}

// Run executes one ingestion sweep over all territories
func (w *Worker) Run(ctx context.Context) error {
	started := time.Now()
	w.Log().Debugw("Ingestion sweep starting", "territories", len(w.territories))

	multiErr := &errors.MultiError{}
	ingested := 0

	for _, territory := range w.territories {
		select {
		case <-ctx.Done():
			w.Log().Infow("Ingestion sweep interrupted by shutdown",
				"ingested", ingested,
				"remaining", len(w.territories)-ingested,
			)
			return ctx.Err()
		default:
		}

		result, err := w.pipeline.Ingest(ctx, territory, w.period, time.Time{})
		if err != nil {
			if errors.Is(err, errors.ErrSnapshotLocked) {
				// Another run holds this key; it will be covered next tick
				w.Log().Infow("Skipping territory, key already being ingested", "territory", territory)
				continue
			}
			w.Log().Errorw("Territory ingestion failed",
				"territory", territory,
				"error", err,
			)
			multiErr.Add(errors.Wrapf(err, "territory %s", territory))
			continue
		}

		ingested++
		w.Log().Infow("Territory ingested",
			"territory", territory,
			"run_id", result.RunID,
			"tracks", len(result.Tracks),
			"valid", result.Validation.IsValid,
		)
	}

	duration := time.Since(started)
	if multiErr.HasErrors() {
		w.RecordError(multiErr, duration)
		return multiErr
	}

	w.RecordRun(duration)
	return nil
}
