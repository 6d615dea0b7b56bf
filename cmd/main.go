package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/bootstrap"
	"chartpulse/internal/domain/chart"
	"chartpulse/internal/metrics"
	"chartpulse/pkg/logger"
)

func main() {
	var (
		mode      = flag.String("mode", "serve", "run mode: serve, ingest, backfill, compare")
		territory = flag.String("territory", "", "territory code for one-shot modes (defaults to first configured)")
		weeks     = flag.Int("weeks", 12, "number of weeks for backfill mode")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := bootstrap.NewContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer container.Shutdown()

	log := logger.Get()
	log.Infof("Starting %s in %s mode (mode=%s)", cfg.App.Name, cfg.App.Env, *mode)

	period := chart.Period(cfg.Charts.Period)
	target := *territory
	if target == "" && len(cfg.Charts.Territories) > 0 {
		target = cfg.Charts.Territories[0]
	}

	switch *mode {
	case "serve":
		err = serve(ctx, cancel, container)
	case "ingest":
		err = runIngest(ctx, container, target, period)
	case "backfill":
		err = runBackfill(ctx, container, target, period, *weeks)
	case "compare":
		err = runCompare(ctx, container, target, period)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}

	if err != nil {
		log.Errorf("Run failed: %v", err)
		os.Exit(1)
	}
}

// serve runs the worker scheduler plus the metrics endpoint until a
// termination signal arrives
func serve(ctx context.Context, cancel context.CancelFunc, c *bootstrap.Container) error {
	log := logger.Get()

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := c.PG.Health(r.Context()); err != nil {
			http.Error(w, "postgres: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err := c.Redis.Health(r.Context()); err != nil {
			http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              c.Config.App.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infow("Metrics server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("Metrics server failed", "error", err)
			cancel()
		}
	}()

	if err := c.Scheduler.Start(ctx); err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		log.Infow("Shutdown signal received", "signal", s.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}

func runIngest(ctx context.Context, c *bootstrap.Container, territory string, period chart.Period) error {
	result, err := c.Pipeline.Ingest(ctx, territory, period, time.Time{})
	if err != nil {
		return err
	}

	log := logger.Get()
	log.Infow("Ingestion complete",
		"run_id", result.RunID,
		"key", result.Snapshot.Key.String(),
		"tracks", len(result.Tracks),
		"streams", humanize.Comma(result.Snapshot.Top200Streams),
		"hhi", fmt.Sprintf("%.0f", result.Concentration.HHIIndex),
		"valid", result.Validation.IsValid,
	)
	for _, issue := range result.Validation.Issues {
		log.Warnw("Data quality issue", "issue", issue)
	}
	return nil
}

func runBackfill(ctx context.Context, c *bootstrap.Container, territory string, period chart.Period, weeks int) error {
	snapshots, err := c.Pipeline.CollectHistory(ctx, territory, period, weeks)
	if err != nil {
		return err
	}

	log := logger.Get()
	for _, snap := range snapshots {
		log.Infow("Week stored",
			"key", snap.Key.String(),
			"source", snap.Source,
			"tracks", snap.TrackCount,
		)
	}
	log.Infof("Backfill complete: %d weeks for %s", len(snapshots), territory)
	return nil
}

func runCompare(ctx context.Context, c *bootstrap.Container, territory string, period chart.Period) error {
	comparison, err := c.Pipeline.CompareWeek(ctx, territory, period)
	if err != nil {
		return err
	}

	log := logger.Get()
	if comparison.Previous == nil {
		log.Infow("Only one week stored, nothing to compare against",
			"key", comparison.Current.Key.String())
		return nil
	}

	log.Infow("Week over week",
		"current", comparison.Current.Key.String(),
		"previous", comparison.Previous.Key.String(),
		"top10_growth_pct", fmt.Sprintf("%.2f", comparison.GrowthRates.Top10Pct),
		"top50_growth_pct", fmt.Sprintf("%.2f", comparison.GrowthRates.Top50Pct),
		"top200_growth_pct", fmt.Sprintf("%.2f", comparison.GrowthRates.Top200Pct),
	)
	return nil
}
