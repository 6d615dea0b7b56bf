package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/chart"
)

func defaultConfig() config.FeaturesConfig {
	return config.FeaturesConfig{
		WeightPosition:       0.4,
		WeightStreams:        0.3,
		WeightSocial:         0.2,
		WeightCrossTerritory: 0.1,
		BaselineWeeks:        12,
		SpeedWindow:          4,
	}
}

func track(position int, streams int64) chart.EnrichedTrack {
	return chart.EnrichedTrack{
		ChartEntry: chart.ChartEntry{
			Territory: "us",
			Period:    chart.PeriodWeekly,
			Position:  position,
			Streams:   streams,
			Title:     "Test Track",
			Artist:    "Test Artist",
		},
	}
}

func observation(weeksAgo, position int, streams int64) chart.Observation {
	return chart.Observation{
		ObservedAt: time.Now().AddDate(0, 0, -7*weeksAgo),
		Position:   position,
		Streams:    streams,
	}
}

func TestAnalyze_SingleObservationIsNeutral(t *testing.T) {
	svc := NewService(defaultConfig())

	analysis := svc.Analyze(track(42, 500_000), nil)

	assert.Equal(t, 0, analysis.DeltaPosition)
	assert.Zero(t, analysis.DeltaStreamsPct)
	assert.Zero(t, analysis.Speed4w)
	assert.Zero(t, analysis.Acceleration)
	assert.Equal(t, 50.0, analysis.MomentumScore)
	assert.Equal(t, 42.0, analysis.BaselinePosition12w)
	assert.Equal(t, 500_000.0, analysis.BaselineStreams12w)
}

func TestAnalyze_DeltaPositionFromChartMetadata(t *testing.T) {
	svc := NewService(defaultConfig())

	prev := 5
	tr := track(2, 1_000_000)
	tr.PreviousPosition = &prev

	analysis := svc.Analyze(tr, nil)

	// Climbed from 5 to 2
	assert.Equal(t, 3, analysis.DeltaPosition)
}

func TestAnalyze_DeltaPositionFromHistory(t *testing.T) {
	svc := NewService(defaultConfig())

	history := []chart.Observation{
		observation(2, 20, 100_000),
		observation(1, 15, 110_000),
	}

	analysis := svc.Analyze(track(10, 120_000), history)
	assert.Equal(t, 5, analysis.DeltaPosition)
}

func TestAnalyze_ClimbingTrack(t *testing.T) {
	svc := NewService(defaultConfig())

	history := []chart.Observation{
		observation(2, 10, 100_000),
		observation(1, 8, 120_000),
	}

	analysis := svc.Analyze(track(5, 150_000), history)

	assert.Equal(t, 3, analysis.DeltaPosition)
	assert.InDelta(t, 25.0, analysis.DeltaStreamsPct, 1e-9)
	assert.InDelta(t, 2.5, analysis.Speed4w, 1e-9)
	assert.InDelta(t, 0.5, analysis.Acceleration, 1e-9)
	assert.InDelta(t, (10.0+8+5)/3, analysis.BaselinePosition12w, 1e-9)

	// Both z-scores come out at exactly 1 for this series:
	// clamp(50 + 20*(0.4*1 + 0.3*1), 0, 100) = 64
	assert.InDelta(t, 64.0, analysis.MomentumScore, 1e-9)
}

func TestAnalyze_FallingTrack(t *testing.T) {
	svc := NewService(defaultConfig())

	history := []chart.Observation{
		observation(2, 2, 150_000),
		observation(1, 3, 120_000),
	}

	analysis := svc.Analyze(track(8, 90_000), history)

	assert.Equal(t, -5, analysis.DeltaPosition)
	assert.InDelta(t, -25.0, analysis.DeltaStreamsPct, 1e-9)
	assert.Less(t, analysis.MomentumScore, 50.0)
	assert.GreaterOrEqual(t, analysis.MomentumScore, 0.0)
}

func TestAnalyze_MomentumStaysInBounds(t *testing.T) {
	svc := NewService(defaultConfig())

	history := []chart.Observation{
		observation(5, 200, 1_000),
		observation(4, 150, 5_000),
		observation(3, 90, 40_000),
		observation(2, 40, 400_000),
		observation(1, 12, 2_000_000),
	}

	analysis := svc.Analyze(track(1, 9_000_000), history)

	assert.GreaterOrEqual(t, analysis.MomentumScore, 0.0)
	assert.LessOrEqual(t, analysis.MomentumScore, 100.0)
}

func TestAnalyze_BaselineUsesAtMostConfiguredWeeks(t *testing.T) {
	cfg := defaultConfig()
	cfg.BaselineWeeks = 3
	svc := NewService(cfg)

	history := []chart.Observation{
		observation(4, 100, 0),
		observation(3, 50, 0),
		observation(2, 40, 0),
		observation(1, 30, 0),
	}

	analysis := svc.Analyze(track(20, 0), history)

	// Only the newest three observations count: (40 + 30 + 20) / 3
	assert.InDelta(t, 30.0, analysis.BaselinePosition12w, 1e-9)
}

func TestAnalyze_SimulatedHistoryIgnoredWhenLiveExists(t *testing.T) {
	svc := NewService(defaultConfig())

	simulated := observation(2, 1, 9_000_000)
	simulated.Simulated = true
	live := observation(1, 15, 110_000)

	analysis := svc.Analyze(track(10, 120_000), []chart.Observation{simulated, live})

	// Delta comes from the live observation at 15, not the fabricated 1
	assert.Equal(t, 5, analysis.DeltaPosition)
}

func TestAnalyze_SimulatedHistoryUsedWhenNothingElse(t *testing.T) {
	svc := NewService(defaultConfig())

	simulated := observation(1, 15, 110_000)
	simulated.Simulated = true

	analysis := svc.Analyze(track(10, 120_000), []chart.Observation{simulated})
	assert.Equal(t, 5, analysis.DeltaPosition)
}

func TestStats(t *testing.T) {
	t.Run("mean of empty is zero", func(t *testing.T) {
		assert.Zero(t, mean(nil))
	})
	t.Run("zScore with no spread is zero", func(t *testing.T) {
		assert.Zero(t, zScore(10, []float64{3, 3, 3}))
	})
	t.Run("pctChange with zero base is zero", func(t *testing.T) {
		assert.Zero(t, pctChange(100, 0))
	})
	t.Run("tail shorter than n returns all", func(t *testing.T) {
		assert.Equal(t, []float64{1, 2}, tail([]float64{1, 2}, 4))
	})
	t.Run("clamp", func(t *testing.T) {
		assert.Equal(t, 0.0, clamp(-5, 0, 100))
		assert.Equal(t, 100.0, clamp(130, 0, 100))
		assert.Equal(t, 64.0, clamp(64, 0, 100))
	})
}
