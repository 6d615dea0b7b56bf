package charts

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"chartpulse/internal/domain/chart"
)

// Normalize converts raw source entries into ChartEntry records, ordered by
// position ascending. Whatever change-indicator vocabulary the source used
// is folded into PreviousPosition / IsNewEntry / IsReEntry here.
func Normalize(raws []chart.RawEntry, territory string, period chart.Period, observedAt time.Time) []chart.ChartEntry {
	entries := make([]chart.ChartEntry, 0, len(raws))

	for _, raw := range raws {
		entry := chart.ChartEntry{
			Territory:    territory,
			Period:       period,
			ObservedAt:   observedAt,
			Position:     raw.Position,
			Title:        strings.TrimSpace(raw.Title),
			Artist:       strings.TrimSpace(raw.Artist),
			Streams:      raw.Streams,
			WeeksOnChart: raw.WeeksOnChart,
			PeakPosition: raw.PeakPosition,
		}
		if entry.WeeksOnChart < 1 {
			entry.WeeksOnChart = 1
		}
		// Peak defaults to the current position when unknown
		if entry.PeakPosition <= 0 {
			entry.PeakPosition = raw.Position
		}

		applyMovement(&entry, raw.Movement)
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
	return entries
}

// applyMovement interprets a movement marker: "NEW", "RE-ENTRY", or a
// signed rank delta where positive means the track climbed.
func applyMovement(entry *chart.ChartEntry, movement string) {
	marker := strings.ToUpper(strings.TrimSpace(movement))

	switch marker {
	case "NEW", "NEW_ENTRY":
		entry.IsNewEntry = true
		return
	case "RE-ENTRY", "RE_ENTRY", "REENTRY":
		entry.IsReEntry = true
		return
	case "", "=":
		return
	}

	delta, err := strconv.Atoi(strings.TrimPrefix(marker, "+"))
	if err != nil {
		return
	}
	previous := entry.Position + delta
	if previous >= 1 {
		entry.PreviousPosition = &previous
	}
}
