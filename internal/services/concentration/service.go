package concentration

import (
	"sort"

	"chartpulse/internal/domain/chart"
	"chartpulse/pkg/logger"
)

// Service aggregates a snapshot's enriched tracks by label into market
// share and concentration indices. Pure computation, no external calls.
type Service struct {
	log *logger.Logger
}

// NewService creates a concentration analyzer
func NewService() *Service {
	return &Service{log: logger.Get().With("component", "concentration")}
}

// Analyze groups tracks by label and computes per-label market share plus
// the snapshot-level concentration indices. An empty track list yields a
// zeroed result rather than an error.
func (s *Service) Analyze(tracks []chart.TrackAnalysis) chart.MarketConcentration {
	if len(tracks) == 0 {
		return chart.MarketConcentration{Labels: []chart.LabelMarketShare{}}
	}

	groups := make(map[string][]chart.TrackAnalysis)
	for _, t := range tracks {
		label := t.Label
		if label == "" {
			label = chart.UnknownLabel
		}
		groups[label] = append(groups[label], t)
	}

	total := float64(len(tracks))
	shares := make([]chart.LabelMarketShare, 0, len(groups))

	for label, group := range groups {
		share := chart.LabelMarketShare{
			Label:          label,
			TrackCount:     len(group),
			MarketSharePct: float64(len(group)) / total * 100,
		}

		var positionSum int
		for _, t := range group {
			positionSum += t.Position
			share.TotalStreams += t.Streams
			if t.Position <= 10 {
				share.Top10TrackCount++
			}
		}
		share.AveragePosition = float64(positionSum) / float64(len(group))

		share.LabelType = chart.LabelIndependent
		if label != chart.UnknownLabel && IsMajorLabel(label) {
			share.LabelType = chart.LabelMajor
		}

		shares = append(shares, share)
	}

	// Largest share first; ties broken by name for stable output
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].MarketSharePct != shares[j].MarketSharePct {
			return shares[i].MarketSharePct > shares[j].MarketSharePct
		}
		return shares[i].Label < shares[j].Label
	})

	result := chart.MarketConcentration{Labels: shares}
	// HHI runs over all labels, not only the displayed top-N
	for i, share := range shares {
		if i < 3 {
			result.Top3LabelsSharePct += share.MarketSharePct
		}
		if i < 5 {
			result.Top5LabelsSharePct += share.MarketSharePct
		}
		result.HHIIndex += share.MarketSharePct * share.MarketSharePct
	}

	return result
}
