package charts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/chart"
	"chartpulse/pkg/errors"
	"chartpulse/pkg/logger"
)

// Compile-time check
var _ chart.Source = (*HTTPSource)(nil)

// HTTPSource fetches ranked chart entries from the public charts endpoint.
// Response shapes vary across chart types; normalization into RawEntry
// happens here, at the boundary, and nowhere else.
type HTTPSource struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// NewHTTPSource creates a chart source over HTTP
func NewHTTPSource(cfg config.ChartsConfig) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     logger.Get().With("component", "chart_source"),
	}
}

// chartResponse mirrors the provider's wire format
type chartResponse struct {
	Entries []chartResponseEntry `json:"entries"`
}

type chartResponseEntry struct {
	ChartEntryData chartEntryData `json:"chartEntryData"`
	TrackMetadata  trackMetadata  `json:"trackMetadata"`
}

type chartEntryData struct {
	CurrentRank             int    `json:"currentRank"`
	PreviousRank            int    `json:"previousRank"`
	PeakRank                int    `json:"peakRank"`
	EntryStatus             string `json:"entryStatus"`
	ConsecutiveWeeksOnChart int    `json:"consecutiveWeeksOnChart"`
	RankingMetric           struct {
		Value string `json:"value"`
	} `json:"rankingMetric"`
}

type trackMetadata struct {
	TrackName string `json:"trackName"`
	Artists   []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

// Fetch returns the ranked raw entries for a territory/period/date
func (s *HTTPSource) Fetch(ctx context.Context, territory string, period chart.Period, date time.Time) ([]chart.RawEntry, error) {
	url := fmt.Sprintf("%s/charts/regional-%s-%s/%s",
		s.baseURL, territory, period, date.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build chart request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(errors.ErrSourceUnavailable, "chart source returned %d", resp.StatusCode)
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, err.Error())
	}
	if len(payload.Entries) == 0 {
		return nil, errors.Wrap(errors.ErrSourceUnavailable, "no parseable entries")
	}

	raws := make([]chart.RawEntry, 0, len(payload.Entries))
	for _, e := range payload.Entries {
		streams, _ := strconv.ParseInt(e.ChartEntryData.RankingMetric.Value, 10, 64)

		raws = append(raws, chart.RawEntry{
			Position:     e.ChartEntryData.CurrentRank,
			Title:        e.TrackMetadata.TrackName,
			Artist:       joinArtistNames(e.TrackMetadata),
			Streams:      streams,
			Movement:     movementMarker(e.ChartEntryData.EntryStatus, e.ChartEntryData.CurrentRank, e.ChartEntryData.PreviousRank),
			WeeksOnChart: e.ChartEntryData.ConsecutiveWeeksOnChart,
			PeakPosition: e.ChartEntryData.PeakRank,
		})
	}

	s.log.Infow("fetched chart", "territory", territory, "period", period,
		"date", date.Format("2006-01-02"), "entries", len(raws))
	return raws, nil
}

func joinArtistNames(meta trackMetadata) string {
	names := make([]string, 0, len(meta.Artists))
	for _, a := range meta.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// movementMarker collapses the source's entry-status vocabulary into the
// marker contract: "NEW", "RE-ENTRY", or a signed rank delta.
func movementMarker(status string, current, previous int) string {
	switch strings.ToUpper(status) {
	case "NEW_ENTRY", "NEW":
		return "NEW"
	case "RE_ENTRY", "REENTRY", "RE-ENTRY":
		return "RE-ENTRY"
	}
	if previous <= 0 {
		return "NEW"
	}
	return fmt.Sprintf("%+d", previous-current)
}
