package charts

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"time"

	"chartpulse/internal/domain/chart"
)

// Simulator fabricates a past week's snapshot by perturbing a baseline
// when the source only exposes the current week. Output is deterministic
// for a given (baseline, key) pair, and every simulated snapshot is
// tagged SourceSimulated so growth and momentum output can flag it.
type Simulator struct {
	// Multiplicative stream noise amplitude, e.g. 0.10 for +/-10%
	NoiseAmplitude float64
}

// NewSimulator creates a simulator with the reference noise level
func NewSimulator() *Simulator {
	return &Simulator{NoiseAmplitude: 0.10}
}

// FromBaseline derives a simulated snapshot for key from the baseline week
func (s *Simulator) FromBaseline(baseline *chart.ChartSnapshot, key chart.SnapshotKey, chartDate time.Time) *chart.ChartSnapshot {
	rng := rand.New(rand.NewSource(seedFor(key)))

	tracks := make([]chart.TrackAnalysis, 0, len(baseline.Tracks))
	for _, t := range baseline.Tracks {
		sim := t
		sim.ObservedAt = chartDate

		noise := 1 + (rng.Float64()*2-1)*s.NoiseAmplitude
		sim.Streams = int64(float64(t.Streams) * noise)
		if sim.Streams < 0 {
			sim.Streams = 0
		}

		// A fabricated week has no observed movement
		sim.PreviousPosition = nil
		sim.IsNewEntry = false
		sim.IsReEntry = false
		if sim.WeeksOnChart > 1 {
			sim.WeeksOnChart--
		}

		tracks = append(tracks, sim)
	}

	// Re-rank by simulated streams, keeping positions contiguous from 1
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].Streams > tracks[j].Streams
	})
	for i := range tracks {
		tracks[i].Position = i + 1
		if tracks[i].PeakPosition > tracks[i].Position {
			tracks[i].PeakPosition = tracks[i].Position
		}
	}

	snapshot := &chart.ChartSnapshot{
		Key:       key,
		ChartDate: chartDate,
		Source:    chart.SourceSimulated,
		Tracks:    tracks,
	}
	snapshot.ComputeAggregates()
	return snapshot
}

func seedFor(key chart.SnapshotKey) int64 {
	h := fnv.New64a()
	h.Write([]byte(key.String()))
	return int64(h.Sum64())
}
