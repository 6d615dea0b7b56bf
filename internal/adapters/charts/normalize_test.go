package charts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartpulse/internal/domain/chart"
)

func TestNormalize_OrdersByPosition(t *testing.T) {
	raws := []chart.RawEntry{
		{Position: 3, Title: "Third", Artist: "C", Streams: 100},
		{Position: 1, Title: "First", Artist: "A", Streams: 300},
		{Position: 2, Title: "Second", Artist: "B", Streams: 200},
	}

	entries := Normalize(raws, "us", chart.PeriodWeekly, time.Now())
	require.Len(t, entries, 3)
	assert.Equal(t, "First", entries[0].Title)
	assert.Equal(t, "Second", entries[1].Title)
	assert.Equal(t, "Third", entries[2].Title)
}

func TestNormalize_FieldsAndDefaults(t *testing.T) {
	observedAt := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	raws := []chart.RawEntry{
		{Position: 7, Title: "  Padded Title  ", Artist: " Some Artist ", Streams: 42, WeeksOnChart: 0, PeakPosition: 0},
	}

	entries := Normalize(raws, "gb", chart.PeriodDaily, observedAt)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "gb", entry.Territory)
	assert.Equal(t, chart.PeriodDaily, entry.Period)
	assert.Equal(t, observedAt, entry.ObservedAt)
	assert.Equal(t, "Padded Title", entry.Title)
	assert.Equal(t, "Some Artist", entry.Artist)
	assert.Equal(t, 1, entry.WeeksOnChart, "weeks on chart floors at 1")
	assert.Equal(t, 7, entry.PeakPosition, "peak defaults to current position")
}

func TestApplyMovement(t *testing.T) {
	intp := func(v int) *int { return &v }

	tests := []struct {
		name     string
		position int
		movement string
		previous *int
		newEntry bool
		reEntry  bool
	}{
		{"climbed three", 2, "+3", intp(5), false, false},
		{"fell two", 5, "-2", intp(3), false, false},
		{"steady equals sign", 4, "=", nil, false, false},
		{"steady empty", 4, "", nil, false, false},
		{"new entry", 10, "NEW", nil, true, false},
		{"new entry lowercase", 10, "new", nil, true, false},
		{"re-entry", 20, "RE-ENTRY", nil, false, true},
		{"re-entry underscore", 20, "RE_ENTRY", nil, false, true},
		{"garbage ignored", 4, "???", nil, false, false},
		{"implausible previous dropped", 1, "-5", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := chart.ChartEntry{Position: tt.position}
			applyMovement(&entry, tt.movement)

			if tt.previous == nil {
				assert.Nil(t, entry.PreviousPosition)
			} else {
				require.NotNil(t, entry.PreviousPosition)
				assert.Equal(t, *tt.previous, *entry.PreviousPosition)
			}
			assert.Equal(t, tt.newEntry, entry.IsNewEntry)
			assert.Equal(t, tt.reEntry, entry.IsReEntry)
		})
	}
}
