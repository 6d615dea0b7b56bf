package events

import (
	"context"
	"time"

	"chartpulse/internal/adapters/kafka"
	"chartpulse/pkg/logger"
)

// SnapshotIngestedEvent announces a completed ingestion run
type SnapshotIngestedEvent struct {
	RunID           string    `json:"run_id"`
	Key             string    `json:"key"`
	Territory       string    `json:"territory"`
	Period          string    `json:"period"`
	ISOYear         int       `json:"iso_year"`
	ISOWeek         int       `json:"iso_week"`
	Source          string    `json:"source"`
	TrackCount      int       `json:"track_count"`
	CompletenessPct float64   `json:"completeness_pct"`
	IsValid         bool      `json:"is_valid"`
	IngestedAt      time.Time `json:"ingested_at"`
}

// ValidationWarningEvent carries the advisory data-quality findings of a run
type ValidationWarningEvent struct {
	RunID  string   `json:"run_id"`
	Key    string   `json:"key"`
	Issues []string `json:"issues"`
}

// ConcentrationComputedEvent summarizes the market-concentration outcome
// of a run for downstream analytics consumers
type ConcentrationComputedEvent struct {
	RunID              string  `json:"run_id"`
	Key                string  `json:"key"`
	LabelCount         int     `json:"label_count"`
	Top3LabelsSharePct float64 `json:"top3_labels_share_pct"`
	Top5LabelsSharePct float64 `json:"top5_labels_share_pct"`
	HHIIndex           float64 `json:"hhi_index"`
}

// Publisher publishes pipeline events to Kafka
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer) *Publisher {
	return &Publisher{
		producer: producer,
		log:      logger.Get().With("component", "events"),
	}
}

// PublishSnapshotIngested publishes a snapshot ingested event
func (p *Publisher) PublishSnapshotIngested(ctx context.Context, event SnapshotIngestedEvent) error {
	return p.producer.Publish(ctx, kafka.TopicSnapshotIngested, event.Key, event)
}

// PublishValidationWarning publishes the advisory issues of a run
func (p *Publisher) PublishValidationWarning(ctx context.Context, event ValidationWarningEvent) error {
	return p.producer.Publish(ctx, kafka.TopicValidationWarning, event.Key, event)
}

// PublishConcentrationComputed publishes the concentration summary of a run
func (p *Publisher) PublishConcentrationComputed(ctx context.Context, event ConcentrationComputedEvent) error {
	return p.producer.Publish(ctx, kafka.TopicConcentrationComputed, event.Key, event)
}
