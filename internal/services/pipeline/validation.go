package pipeline

import (
	"fmt"
	"sort"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/chart"
)

// ValidationReport is the advisory data-quality outcome of one run.
// It never blocks persistence; callers decide what to do with it.
type ValidationReport struct {
	IsValid         bool     `json:"is_valid"`
	Issues          []string `json:"issues"`
	CompletenessPct float64  `json:"completeness_pct"`
}

// validate runs the data-quality checks over an assembled snapshot
func validate(snapshot *chart.ChartSnapshot, cfg config.ValidationConfig) ValidationReport {
	report := ValidationReport{IsValid: true, Issues: []string{}}

	expected := cfg.ExpectedTracks
	if expected <= 0 {
		expected = 200
	}

	report.CompletenessPct = float64(len(snapshot.Tracks)) / float64(expected) * 100
	if report.CompletenessPct < cfg.MinCompletenessPct {
		report.IsValid = false
		report.Issues = append(report.Issues, fmt.Sprintf(
			"incomplete snapshot: %d of %d expected tracks (%.1f%%)",
			len(snapshot.Tracks), expected, report.CompletenessPct))
	}

	var unresolved, zeroStreams int
	seen := make(map[int]int)
	for _, t := range snapshot.Tracks {
		if t.CatalogID == "" {
			unresolved++
		}
		if t.Streams <= 0 {
			zeroStreams++
		}
		seen[t.Position]++
	}

	if unresolved > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf(
			"%d tracks missing a catalog id", unresolved))
	}

	var duplicated []int
	for position, count := range seen {
		if count > 1 {
			duplicated = append(duplicated, position)
		}
	}
	sort.Ints(duplicated)
	for _, position := range duplicated {
		report.IsValid = false
		report.Issues = append(report.Issues, fmt.Sprintf(
			"duplicate position %d appears %d times", position, seen[position]))
	}

	if len(snapshot.Tracks) > 0 {
		ratio := float64(zeroStreams) / float64(len(snapshot.Tracks))
		if ratio > cfg.MaxZeroStreamsRatio {
			report.IsValid = false
			report.Issues = append(report.Issues, fmt.Sprintf(
				"%d tracks with absent or zero streams (%.1f%%)",
				zeroStreams, ratio*100))
		}
	}

	return report
}
