package enricher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/catalog"
	"chartpulse/internal/domain/chart"
	"chartpulse/pkg/errors"
)

type countingProvider struct {
	mu          sync.Mutex
	trackCalls  int
	artistCalls int
	socialCalls int

	trackErr  error
	artistErr error
	socialErr error
	panicOn   string
}

func (p *countingProvider) SearchTracks(ctx context.Context, query string, limit int) ([]catalog.Candidate, error) {
	return nil, nil
}

func (p *countingProvider) GetTrack(ctx context.Context, catalogID string) (*catalog.TrackMetadata, error) {
	p.mu.Lock()
	p.trackCalls++
	p.mu.Unlock()
	if catalogID == p.panicOn {
		panic("provider blew up")
	}
	if p.trackErr != nil {
		return nil, p.trackErr
	}
	return &catalog.TrackMetadata{
		CatalogID: catalogID,
		ArtistID:  "artist-" + catalogID,
		Genres:    []string{"pop"},
		Label:     "Republic Records",
	}, nil
}

func (p *countingProvider) GetArtist(ctx context.Context, artistID string) (*catalog.ArtistMetadata, error) {
	p.mu.Lock()
	p.artistCalls++
	p.mu.Unlock()
	if p.artistErr != nil {
		return nil, p.artistErr
	}
	return &catalog.ArtistMetadata{
		ArtistID:      artistID,
		OriginCountry: "CA",
		OriginCity:    "Toronto",
	}, nil
}

func (p *countingProvider) GetArtistSocial(ctx context.Context, artistID string) (*catalog.SocialMetrics, error) {
	p.mu.Lock()
	p.socialCalls++
	p.mu.Unlock()
	if p.socialErr != nil {
		return nil, p.socialErr
	}
	return &catalog.SocialMetrics{
		Followers: map[string]int64{"spotify": 1_000_000},
		AsOf:      time.Now(),
	}, nil
}

func entryWithID(position int, catalogID string) chart.ChartEntry {
	return chart.ChartEntry{
		Territory: "us",
		Period:    chart.PeriodWeekly,
		Position:  position,
		Title:     "Track",
		Artist:    "Artist",
		CatalogID: catalogID,
	}
}

func newEnricher(provider catalog.Provider) *Service {
	return NewService(provider, config.EnricherConfig{BatchSize: 5, BatchPause: 0})
}

func TestEnrichAll_FullEnrichment(t *testing.T) {
	provider := &countingProvider{}
	svc := newEnricher(provider)

	enriched := svc.EnrichAll(context.Background(), []chart.ChartEntry{entryWithID(1, "cat-1")})
	require.Len(t, enriched, 1)

	track := enriched[0]
	assert.Equal(t, "Republic Records", track.Label)
	assert.Equal(t, []string{"pop"}, track.Genres)
	assert.Equal(t, "CA", track.OriginCountry)
	assert.Equal(t, int64(1_000_000), track.SocialFollowers["spotify"])
	require.NotNil(t, track.SocialMetricsAsOf)
}

func TestEnrichAll_UnresolvedPassesThrough(t *testing.T) {
	provider := &countingProvider{}
	svc := newEnricher(provider)

	enriched := svc.EnrichAll(context.Background(), []chart.ChartEntry{entryWithID(1, "")})
	require.Len(t, enriched, 1)

	assert.Empty(t, enriched[0].Label)
	assert.Equal(t, 0, provider.trackCalls)
}

func TestEnrichAll_TrackFailureContained(t *testing.T) {
	provider := &countingProvider{trackErr: errors.ErrSourceUnavailable}
	svc := newEnricher(provider)

	enriched := svc.EnrichAll(context.Background(), []chart.ChartEntry{
		entryWithID(1, "cat-1"),
		entryWithID(2, "cat-2"),
	})
	require.Len(t, enriched, 2)

	// Both entries survive with their chart fields intact
	assert.Equal(t, 1, enriched[0].Position)
	assert.Equal(t, 2, enriched[1].Position)
	assert.Empty(t, enriched[0].Label)

	// Artist and social lookups were never attempted
	assert.Equal(t, 0, provider.artistCalls)
	assert.Equal(t, 0, provider.socialCalls)
}

func TestEnrichAll_PartialFailureKeepsTrackFields(t *testing.T) {
	provider := &countingProvider{socialErr: errors.ErrRateLimitExceeded}
	svc := newEnricher(provider)

	enriched := svc.EnrichAll(context.Background(), []chart.ChartEntry{entryWithID(1, "cat-1")})
	require.Len(t, enriched, 1)

	assert.Equal(t, "Republic Records", enriched[0].Label)
	assert.Equal(t, "CA", enriched[0].OriginCountry)
	assert.Nil(t, enriched[0].SocialFollowers)
}

func TestEnrichAll_PanicContained(t *testing.T) {
	provider := &countingProvider{panicOn: "cat-2"}
	svc := newEnricher(provider)

	enriched := svc.EnrichAll(context.Background(), []chart.ChartEntry{
		entryWithID(1, "cat-1"),
		entryWithID(2, "cat-2"),
		entryWithID(3, "cat-3"),
	})
	require.Len(t, enriched, 3)

	assert.Equal(t, "Republic Records", enriched[0].Label)
	assert.Empty(t, enriched[1].Label)
	assert.Equal(t, "Republic Records", enriched[2].Label)
}

func TestLookupFailuresCarryDegradedSentinel(t *testing.T) {
	provider := &countingProvider{
		trackErr:  errors.New("boom"),
		artistErr: errors.New("boom"),
		socialErr: errors.New("boom"),
	}
	svc := newEnricher(provider)
	ctx := context.Background()

	_, err := svc.getTrack(ctx, "cat-1")
	assert.True(t, errors.Is(err, errors.ErrEnrichmentDegraded))

	_, err = svc.getArtist(ctx, "artist-1")
	assert.True(t, errors.Is(err, errors.ErrEnrichmentDegraded))

	_, err = svc.getSocial(ctx, "artist-1")
	assert.True(t, errors.Is(err, errors.ErrEnrichmentDegraded))
}

func TestEnrichAll_CacheDeduplicatesLookups(t *testing.T) {
	provider := &countingProvider{}
	svc := NewService(provider, config.EnricherConfig{BatchSize: 1, BatchPause: 0})

	// Same track charted twice (e.g. across positions after a data glitch)
	svc.EnrichAll(context.Background(), []chart.ChartEntry{
		entryWithID(1, "cat-1"),
		entryWithID(2, "cat-1"),
	})

	assert.Equal(t, 1, provider.trackCalls)
	assert.Equal(t, 1, provider.artistCalls)
	assert.Equal(t, 1, provider.socialCalls)
}

func TestEnrichAll_ResetCacheForcesRefetch(t *testing.T) {
	provider := &countingProvider{}
	svc := newEnricher(provider)
	ctx := context.Background()

	svc.EnrichAll(ctx, []chart.ChartEntry{entryWithID(1, "cat-1")})
	svc.ResetCache()
	svc.EnrichAll(ctx, []chart.ChartEntry{entryWithID(1, "cat-1")})

	assert.Equal(t, 2, provider.trackCalls)
}

func TestEnrichAll_CancelledContextPassesRemainingThrough(t *testing.T) {
	provider := &countingProvider{}
	svc := NewService(provider, config.EnricherConfig{BatchSize: 1, BatchPause: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enriched := svc.EnrichAll(ctx, []chart.ChartEntry{
		entryWithID(1, "cat-1"),
		entryWithID(2, "cat-2"),
	})
	require.Len(t, enriched, 2)

	// Second entry never waited out the batch pause
	assert.Equal(t, 2, enriched[1].Position)
	assert.Empty(t, enriched[1].Label)
}
