package chart

import (
	"fmt"
	"time"
)

// Period is the chart cadence
type Period string

const (
	PeriodDaily  Period = "daily"
	PeriodWeekly Period = "weekly"
)

// Valid reports whether the period is a known cadence
func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly
}

// Snapshot provenance
const (
	SourceLive      = "live"
	SourceSimulated = "simulated"
)

// SnapshotKey identifies one stored chart snapshot
type SnapshotKey struct {
	Territory string `db:"territory" json:"territory"`
	Period    Period `db:"period" json:"period"`
	ISOYear   int    `db:"iso_year" json:"iso_year"`
	ISOWeek   int    `db:"iso_week" json:"iso_week"`
}

// KeyForDate builds the snapshot key for a territory/period at a given date
func KeyForDate(territory string, period Period, date time.Time) SnapshotKey {
	year, week := date.ISOWeek()
	return SnapshotKey{
		Territory: territory,
		Period:    period,
		ISOYear:   year,
		ISOWeek:   week,
	}
}

// String renders the persisted key layout: {territory}-{period}-{isoYear}W{isoWeek}
func (k SnapshotKey) String() string {
	return fmt.Sprintf("%s-%s-%dW%02d", k.Territory, k.Period, k.ISOYear, k.ISOWeek)
}

// ChartEntry is one ranked observation from a chart snapshot.
// Immutable after creation except CatalogID, which the resolver may fill in.
type ChartEntry struct {
	Territory  string    `json:"territory"`
	Period     Period    `json:"period"`
	ObservedAt time.Time `json:"observed_at"`

	Position int    `json:"position"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Streams  int64  `json:"streams"`

	PreviousPosition *int `json:"previous_position,omitempty"`
	PeakPosition     int  `json:"peak_position"`
	WeeksOnChart     int  `json:"weeks_on_chart"`

	// Mutually exclusive
	IsNewEntry bool `json:"is_new_entry"`
	IsReEntry  bool `json:"is_re_entry"`

	CatalogID string `json:"catalog_id,omitempty"`
}

// EnrichedTrack is a ChartEntry plus best-effort provider metadata.
// Absence of any field is valid and never blocks downstream computation.
type EnrichedTrack struct {
	ChartEntry

	Genres      []string   `json:"genres,omitempty"`
	Label       string     `json:"label,omitempty"`
	Distributor string     `json:"distributor,omitempty"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`

	OriginCountry string `json:"origin_country,omitempty"`
	OriginCity    string `json:"origin_city,omitempty"`

	SocialFollowers   map[string]int64 `json:"social_followers,omitempty"`
	SocialMetricsAsOf *time.Time       `json:"social_metrics_as_of,omitempty"`
}

// TrackAnalysis is an EnrichedTrack plus derived time-series features
type TrackAnalysis struct {
	EnrichedTrack

	DeltaPosition   int     `json:"delta_position"`
	DeltaStreamsPct float64 `json:"delta_streams_pct"`

	Speed4w      float64 `json:"speed_4w"`
	Acceleration float64 `json:"acceleration"`

	BaselinePosition12w float64 `json:"baseline_position_12w"`
	BaselineStreams12w  float64 `json:"baseline_streams_12w"`

	// Composite 0-100 trajectory score, 50 = neutral baseline
	MomentumScore float64 `json:"momentum_score"`
}

// ChartSnapshot is the historical unit: one full ranked observation per key.
// Re-ingesting the same key replaces the stored snapshot (last-write-wins).
type ChartSnapshot struct {
	Key       SnapshotKey `json:"key"`
	ChartDate time.Time   `json:"chart_date"`

	// SourceLive for scraped data, SourceSimulated for fabricated history.
	// Simulated snapshots are flagged in growth and momentum output.
	Source string `json:"source"`

	Tracks []TrackAnalysis `json:"tracks"`

	Top10Streams  int64 `json:"top10_streams"`
	Top50Streams  int64 `json:"top50_streams"`
	Top200Streams int64 `json:"top200_streams"`
	TrackCount    int   `json:"track_count"`
	DebutCount    int   `json:"debut_count"`
	ReentryCount  int   `json:"reentry_count"`

	IngestedAt time.Time `json:"ingested_at"`
}

// ComputeAggregates recomputes the snapshot-level rollups from the track list.
// Tracks are assumed ordered by position ascending.
func (s *ChartSnapshot) ComputeAggregates() {
	s.Top10Streams = 0
	s.Top50Streams = 0
	s.Top200Streams = 0
	s.DebutCount = 0
	s.ReentryCount = 0
	s.TrackCount = len(s.Tracks)

	for _, t := range s.Tracks {
		if t.Position <= 10 {
			s.Top10Streams += t.Streams
		}
		if t.Position <= 50 {
			s.Top50Streams += t.Streams
		}
		if t.Position <= 200 {
			s.Top200Streams += t.Streams
		}
		if t.IsNewEntry {
			s.DebutCount++
		}
		if t.IsReEntry {
			s.ReentryCount++
		}
	}
}

// GrowthRates holds week-over-week growth percentages for the stream tiers.
// All rates are 0 when no previous snapshot exists or its tier is 0.
type GrowthRates struct {
	Top10Pct  float64 `json:"top10_pct"`
	Top50Pct  float64 `json:"top50_pct"`
	Top200Pct float64 `json:"top200_pct"`
}

// LabelType classifies a label group
type LabelType string

const (
	LabelMajor       LabelType = "major"
	LabelIndependent LabelType = "independent"
)

// UnknownLabel is the bucket for tracks without a resolved label
const UnknownLabel = "Independent/Unknown"

// LabelMarketShare is the per-label rollup for one snapshot
type LabelMarketShare struct {
	Label           string    `json:"label"`
	LabelType       LabelType `json:"label_type"`
	TrackCount      int       `json:"track_count"`
	MarketSharePct  float64   `json:"market_share_pct"`
	AveragePosition float64   `json:"average_position"`
	Top10TrackCount int       `json:"top10_track_count"`
	TotalStreams    int64     `json:"total_streams"`
}

// MarketConcentration summarizes how concentrated a snapshot's market is.
// HHI is the sum of squared market-share percentages over all labels,
// so it ranges from near 0 (fragmented) to 10000 (monopoly).
type MarketConcentration struct {
	Labels []LabelMarketShare `json:"labels"`

	Top3LabelsSharePct float64 `json:"top3_labels_share_pct"`
	Top5LabelsSharePct float64 `json:"top5_labels_share_pct"`
	HHIIndex           float64 `json:"hhi_index"`
}

// Observation is one historical sighting of a track used by the feature
// engine, oldest to newest within a window.
type Observation struct {
	ObservedAt       time.Time
	Position         int
	PreviousPosition *int
	Streams          int64
	Simulated        bool
}
