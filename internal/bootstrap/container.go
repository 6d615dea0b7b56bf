package bootstrap

import (
	"context"

	"chartpulse/internal/adapters/charts"
	"chartpulse/internal/adapters/config"
	noopTracker "chartpulse/internal/adapters/errors/noop"
	sentryTracker "chartpulse/internal/adapters/errors/sentry"
	"chartpulse/internal/adapters/kafka"
	pgclient "chartpulse/internal/adapters/postgres"
	redisclient "chartpulse/internal/adapters/redis"
	"chartpulse/internal/adapters/spotify"
	"chartpulse/internal/domain/chart"
	"chartpulse/internal/events"
	"chartpulse/internal/metrics"
	pgrepo "chartpulse/internal/repository/postgres"
	"chartpulse/internal/services/concentration"
	"chartpulse/internal/services/enricher"
	"chartpulse/internal/services/features"
	"chartpulse/internal/services/history"
	"chartpulse/internal/services/pipeline"
	"chartpulse/internal/services/resolver"
	"chartpulse/internal/workers"
	"chartpulse/internal/workers/ingest"
	"chartpulse/pkg/errors"
	"chartpulse/pkg/logger"
)

// Container holds all application dependencies and their lifecycle.
// Components are organized in initialization order
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure
	PG       *pgclient.Client
	Redis    *redisclient.Client
	Producer *kafka.Producer

	// Repositories
	SnapshotRepo chart.Repository

	// Services
	Resolver      *resolver.Service
	Enricher      *enricher.Service
	Features      *features.Service
	Concentration *concentration.Service
	History       *history.Service
	Pipeline      *pipeline.Service

	// Background processing
	Scheduler *workers.Scheduler
}

// NewContainer wires the full application graph from configuration
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return nil, errors.Wrap(err, "init logger")
	}
	c.Log = logger.Get()

	if err := c.initErrorTracker(); err != nil {
		return nil, err
	}

	metrics.Init()

	if err := c.initInfrastructure(ctx); err != nil {
		return nil, err
	}
	if err := c.initServices(); err != nil {
		return nil, err
	}
	c.initWorkers()

	c.Log.Infow("Container initialized",
		"app", cfg.App.Name,
		"env", cfg.App.Env,
		"territories", cfg.Charts.Territories,
	)
	return c, nil
}

func (c *Container) initErrorTracker() error {
	if c.Config.ErrorTracking.Enabled && c.Config.ErrorTracking.SentryDSN != "" {
		tracker, err := sentryTracker.New(c.Config.ErrorTracking.SentryDSN, c.Config.ErrorTracking.Environment)
		if err != nil {
			return errors.Wrap(err, "init sentry tracker")
		}
		c.ErrorTracker = tracker
	} else {
		c.ErrorTracker = noopTracker.New()
	}
	logger.SetErrorTracker(c.ErrorTracker)
	return nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	pg, err := pgclient.NewClient(c.Config.Postgres)
	if err != nil {
		return errors.Wrap(err, "connect postgres")
	}
	c.PG = pg

	redis, err := redisclient.NewClient(c.Config.Redis)
	if err != nil {
		return errors.Wrap(err, "connect redis")
	}
	c.Redis = redis

	if c.Config.Kafka.Enabled {
		c.Producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: c.Config.Kafka.Brokers})
	}

	repo := pgrepo.NewSnapshotRepository(pg.DB())
	if err := repo.EnsureSchema(ctx); err != nil {
		return errors.Wrap(err, "ensure snapshot schema")
	}
	c.SnapshotRepo = repo

	return nil
}

func (c *Container) initServices() error {
	provider := spotify.NewClient(c.Config.Provider)

	resolverSvc, err := resolver.NewService(provider, c.Config.Resolver, c.Config.Provider.SearchLimit)
	if err != nil {
		return errors.Wrap(err, "init resolver")
	}
	c.Resolver = resolverSvc

	c.Enricher = enricher.NewService(provider, c.Config.Enricher)
	c.Features = features.NewService(c.Config.Features)
	c.Concentration = concentration.NewService()
	c.History = history.NewService(c.SnapshotRepo)

	var publisher *events.Publisher
	if c.Producer != nil {
		publisher = events.NewPublisher(c.Producer)
	}

	c.Pipeline = pipeline.NewService(pipeline.Deps{
		Source:        charts.NewHTTPSource(c.Config.Charts),
		Resolver:      c.Resolver,
		Enricher:      c.Enricher,
		Features:      c.Features,
		Concentration: c.Concentration,
		History:       c.History,
		Locker:        redisclient.NewIngestLock(c.Redis, c.Config.Redis.IngestLockTTL),
		Publisher:     publisher,
	}, c.Config.Validation, c.Config.Charts, c.Config.Features)

	return nil
}

func (c *Container) initWorkers() {
	c.Scheduler = workers.NewScheduler()
	c.Scheduler.RegisterWorker(ingest.NewWorker(
		c.Pipeline,
		c.Config.Charts.Territories,
		chart.Period(c.Config.Charts.Period),
		c.Config.Workers.IngestInterval,
		c.Config.Workers.IngestEnabled,
	))
}

// Shutdown releases all held resources in reverse initialization order
func (c *Container) Shutdown() {
	if c.Scheduler != nil && c.Scheduler.IsRunning() {
		if err := c.Scheduler.Stop(); err != nil {
			c.Log.Warnw("Scheduler shutdown incomplete", "error", err)
		}
	}
	if c.Producer != nil {
		if err := c.Producer.Close(); err != nil {
			c.Log.Warnw("Kafka producer close failed", "error", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warnw("Redis close failed", "error", err)
		}
	}
	if c.PG != nil {
		if err := c.PG.Close(); err != nil {
			c.Log.Warnw("Postgres close failed", "error", err)
		}
	}
	_ = c.ErrorTracker.Flush(context.Background())
	_ = logger.Sync()
}
