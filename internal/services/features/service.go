package features

import (
	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/chart"
	"chartpulse/pkg/logger"
)

// Weights blend the per-signal z-scores into the momentum score.
// Social and cross-territory carry a placeholder z of 0 until those
// signals are wired, so their weights dampen the final score spread.
type Weights struct {
	Position       float64
	Streams        float64
	Social         float64
	CrossTerritory float64
}

// Momentum score shape. 50 is the neutral baseline for tracks with no
// signal; 20 scales sensitivity. Reproduced exactly so scores stay
// comparable across territories and time.
const (
	momentumBaseline = 50.0
	momentumScale    = 20.0
)

// Service computes per-track time-series features from a historical window
type Service struct {
	weights       Weights
	baselineWeeks int
	speedWindow   int
	log           *logger.Logger
}

// NewService creates a feature engine from configuration
func NewService(cfg config.FeaturesConfig) *Service {
	baseline := cfg.BaselineWeeks
	if baseline <= 0 {
		baseline = 12
	}
	speed := cfg.SpeedWindow
	if speed <= 0 {
		speed = 4
	}
	return &Service{
		weights: Weights{
			Position:       cfg.WeightPosition,
			Streams:        cfg.WeightStreams,
			Social:         cfg.WeightSocial,
			CrossTerritory: cfg.WeightCrossTerritory,
		},
		baselineWeeks: baseline,
		speedWindow:   speed,
		log:           logger.Get().With("component", "features"),
	}
}

// Analyze derives the feature set for one enriched track given its past
// observations, oldest to newest and excluding the current one. Simulated
// observations are used only when no live history exists; fabricated
// numbers must not masquerade as real momentum input.
func (s *Service) Analyze(track chart.EnrichedTrack, history []chart.Observation) chart.TrackAnalysis {
	history = preferLive(history)

	analysis := chart.TrackAnalysis{EnrichedTrack: track}

	// Full observation series, current included
	positions := make([]float64, 0, len(history)+1)
	streams := make([]float64, 0, len(history)+1)
	for _, obs := range history {
		positions = append(positions, float64(obs.Position))
		streams = append(streams, float64(obs.Streams))
	}
	positions = append(positions, float64(track.Position))
	streams = append(streams, float64(track.Streams))

	// Rank movement, positive = climbed
	switch {
	case track.PreviousPosition != nil:
		analysis.DeltaPosition = *track.PreviousPosition - track.Position
	case len(history) > 0:
		analysis.DeltaPosition = history[len(history)-1].Position - track.Position
	}

	if len(history) > 0 {
		analysis.DeltaStreamsPct = pctChange(float64(track.Streams), float64(history[len(history)-1].Streams))
	}

	analysis.BaselinePosition12w = mean(tail(positions, s.baselineWeeks))
	analysis.BaselineStreams12w = mean(tail(streams, s.baselineWeeks))

	transitions := positionDeltas(positions)
	if len(transitions) == 0 && track.PreviousPosition != nil {
		transitions = []float64{float64(analysis.DeltaPosition)}
	}

	analysis.Speed4w = mean(tail(transitions, s.speedWindow))

	// Acceleration compares the speed window against the same window
	// shifted back one step; it needs at least three observations.
	if len(positions) >= 3 {
		prior := mean(tail(transitions[:len(transitions)-1], s.speedWindow))
		analysis.Acceleration = analysis.Speed4w - prior
	}

	analysis.MomentumScore = s.momentum(analysis, transitions, streamGrowths(streams))
	return analysis
}

// momentum combines the weighted z-scores of the current signals against
// their window distributions: clamp(50 + 20*Σ w_i*z_i, 0, 100)
func (s *Service) momentum(analysis chart.TrackAnalysis, transitions, growths []float64) float64 {
	zPosition := zScore(float64(analysis.DeltaPosition), transitions)
	zStreams := zScore(analysis.DeltaStreamsPct, growths)

	// Placeholder 0 for social and cross-territory signals until wired
	weighted := s.weights.Position*zPosition +
		s.weights.Streams*zStreams +
		s.weights.Social*0 +
		s.weights.CrossTerritory*0

	return clamp(momentumBaseline+momentumScale*weighted, 0, 100)
}

// positionDeltas turns a position series into observation-to-observation
// rank changes, positive = improved
func positionDeltas(positions []float64) []float64 {
	if len(positions) < 2 {
		return nil
	}
	deltas := make([]float64, 0, len(positions)-1)
	for i := 1; i < len(positions); i++ {
		deltas = append(deltas, positions[i-1]-positions[i])
	}
	return deltas
}

// streamGrowths turns a stream series into consecutive growth percentages
func streamGrowths(streams []float64) []float64 {
	if len(streams) < 2 {
		return nil
	}
	growths := make([]float64, 0, len(streams)-1)
	for i := 1; i < len(streams); i++ {
		growths = append(growths, pctChange(streams[i], streams[i-1]))
	}
	return growths
}

// preferLive drops simulated observations when any live ones exist
func preferLive(history []chart.Observation) []chart.Observation {
	live := make([]chart.Observation, 0, len(history))
	for _, obs := range history {
		if !obs.Simulated {
			live = append(live, obs)
		}
	}
	if len(live) > 0 {
		return live
	}
	return history
}
