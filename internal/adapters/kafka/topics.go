package kafka

// Topic definitions for Kafka event streaming
const (
	// Pipeline events
	TopicSnapshotIngested  = "charts.snapshot_ingested"
	TopicValidationWarning = "charts.validation_warning"

	// Analytics events
	TopicConcentrationComputed = "charts.concentration_computed"
)
