package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"chartpulse/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Charts        ChartsConfig
	Provider      ProviderConfig
	Resolver      ResolverConfig
	Enricher      EnricherConfig
	Features      FeaturesConfig
	Validation    ValidationConfig
	ErrorTracking ErrorTrackingConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"chartpulse"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`

	// TTL on the per-snapshot-key ingestion lock so a crashed run
	// cannot wedge a key indefinitely
	IngestLockTTL time.Duration `envconfig:"REDIS_INGEST_LOCK_TTL" default:"15m"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Enabled bool     `envconfig:"KAFKA_ENABLED" default:"false"`
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"chartpulse"`
}

type ChartsConfig struct {
	BaseURL     string        `envconfig:"CHARTS_BASE_URL" default:"https://charts-spotify-com-service.spotify.com/public/v0"`
	Timeout     time.Duration `envconfig:"CHARTS_TIMEOUT" default:"30s"`
	Territories []string      `envconfig:"CHARTS_TERRITORIES" default:"us,gb,de"`
	Period      string        `envconfig:"CHARTS_PERIOD" default:"weekly"`

	// Delay between sequential backfill fetches
	BackfillDelay time.Duration `envconfig:"CHARTS_BACKFILL_DELAY" default:"2s"`
}

type ProviderConfig struct {
	ClientID     string `envconfig:"SPOTIFY_CLIENT_ID" required:"true"`
	ClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET" required:"true"`

	SearchLimit    int           `envconfig:"PROVIDER_SEARCH_LIMIT" default:"5"`
	CallTimeout    time.Duration `envconfig:"PROVIDER_CALL_TIMEOUT" default:"10s"`
	MaxAttempts    int           `envconfig:"PROVIDER_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"PROVIDER_RETRY_BASE_DELAY" default:"500ms"`
	RatePerSecond  float64       `envconfig:"PROVIDER_RATE_PER_SECOND" default:"10"`
}

type ResolverConfig struct {
	// token_jaccard (default) or jaro_winkler
	Similarity string  `envconfig:"RESOLVER_SIMILARITY" default:"token_jaccard"`
	Threshold  float64 `envconfig:"RESOLVER_THRESHOLD" default:"0.70"`
}

type EnricherConfig struct {
	BatchSize  int           `envconfig:"ENRICHER_BATCH_SIZE" default:"5"`
	BatchPause time.Duration `envconfig:"ENRICHER_BATCH_PAUSE" default:"1s"`
}

type FeaturesConfig struct {
	WeightPosition       float64 `envconfig:"MOMENTUM_WEIGHT_POSITION" default:"0.4"`
	WeightStreams        float64 `envconfig:"MOMENTUM_WEIGHT_STREAMS" default:"0.3"`
	WeightSocial         float64 `envconfig:"MOMENTUM_WEIGHT_SOCIAL" default:"0.2"`
	WeightCrossTerritory float64 `envconfig:"MOMENTUM_WEIGHT_CROSS_TERRITORY" default:"0.1"`

	BaselineWeeks int `envconfig:"FEATURES_BASELINE_WEEKS" default:"12"`
	SpeedWindow   int `envconfig:"FEATURES_SPEED_WINDOW" default:"4"`
}

type ValidationConfig struct {
	ExpectedTracks      int     `envconfig:"VALIDATION_EXPECTED_TRACKS" default:"200"`
	MinCompletenessPct  float64 `envconfig:"VALIDATION_MIN_COMPLETENESS_PCT" default:"90"`
	MaxZeroStreamsRatio float64 `envconfig:"VALIDATION_MAX_ZERO_STREAMS_RATIO" default:"0.10"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// WorkerConfig contains intervals for background workers
type WorkerConfig struct {
	IngestEnabled  bool          `envconfig:"WORKER_INGEST_ENABLED" default:"true"`
	IngestInterval time.Duration `envconfig:"WORKER_INGEST_INTERVAL" default:"6h"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
