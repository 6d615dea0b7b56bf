package enricher

import (
	"context"
	"sync"
	"time"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/catalog"
	"chartpulse/internal/domain/chart"
	"chartpulse/internal/metrics"
	"chartpulse/pkg/errors"
	"chartpulse/pkg/logger"
)

// Service attaches best-effort provider metadata to resolved chart entries.
// Tracks are enriched in bounded batches with a fixed inter-batch pause to
// respect provider rate limits; a single track's calls stay sequential
// because artist and social lookups depend on the track lookup's artist
// reference. No track failure ever aborts the batch.
type Service struct {
	provider   catalog.Provider
	cache      *Cache
	batchSize  int
	batchPause time.Duration
	log        *logger.Logger
}

// NewService creates an enricher with its own per-run cache
func NewService(provider catalog.Provider, cfg config.EnricherConfig) *Service {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}
	return &Service{
		provider:   provider,
		cache:      NewCache(),
		batchSize:  batchSize,
		batchPause: cfg.BatchPause,
		log:        logger.Get().With("component", "enricher"),
	}
}

// ResetCache clears memoized lookups between runs
func (s *Service) ResetCache() {
	s.cache.Reset()
}

// EnrichAll enriches the entries in position order. Entries without a
// catalog ID pass through unenriched. Returned slice preserves input order.
func (s *Service) EnrichAll(ctx context.Context, entries []chart.ChartEntry) []chart.EnrichedTrack {
	enriched := make([]chart.EnrichedTrack, len(entries))

	for start := 0; start < len(entries); start += s.batchSize {
		end := start + s.batchSize
		if end > len(entries) {
			end = len(entries)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				enriched[i] = s.enrichOne(ctx, entries[i])
			}(i)
		}
		wg.Wait()

		if end < len(entries) && s.batchPause > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < len(entries); i++ {
					enriched[i] = chart.EnrichedTrack{ChartEntry: entries[i]}
				}
				return enriched
			case <-time.After(s.batchPause):
			}
		}
	}

	return enriched
}

// enrichOne runs the up-to-three sequential provider calls for one track.
// Failure on any call degrades the enrichment, never the pipeline.
func (s *Service) enrichOne(ctx context.Context, entry chart.ChartEntry) (result chart.EnrichedTrack) {
	result = chart.EnrichedTrack{ChartEntry: entry}

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorf("enrichment panic contained for %q by %q: %v",
				entry.Title, entry.Artist, r)
			result = chart.EnrichedTrack{ChartEntry: entry}
		}
	}()

	if entry.CatalogID == "" {
		return result
	}

	track, err := s.getTrack(ctx, entry.CatalogID)
	if err != nil {
		metrics.EnrichmentCalls.WithLabelValues("track", "error").Inc()
		s.log.Warnw("track lookup degraded",
			"catalog_id", entry.CatalogID, "title", entry.Title, "error", err)
		return result
	}
	metrics.EnrichmentCalls.WithLabelValues("track", "success").Inc()

	result.Genres = track.Genres
	result.Label = track.Label
	result.Distributor = track.Distributor
	result.ReleaseDate = track.ReleaseDate

	if track.ArtistID == "" {
		return result
	}

	if artist, err := s.getArtist(ctx, track.ArtistID); err != nil {
		metrics.EnrichmentCalls.WithLabelValues("artist", "error").Inc()
		s.log.Warnw("artist lookup degraded",
			"artist_id", track.ArtistID, "error", err)
	} else {
		metrics.EnrichmentCalls.WithLabelValues("artist", "success").Inc()
		if len(result.Genres) == 0 {
			result.Genres = artist.Genres
		}
		result.OriginCountry = artist.OriginCountry
		result.OriginCity = artist.OriginCity
	}

	if social, err := s.getSocial(ctx, track.ArtistID); err != nil {
		metrics.EnrichmentCalls.WithLabelValues("social", "error").Inc()
		s.log.Warnw("social lookup degraded",
			"artist_id", track.ArtistID, "error", err)
	} else {
		metrics.EnrichmentCalls.WithLabelValues("social", "success").Inc()
		result.SocialFollowers = social.Followers
		asOf := social.AsOf
		result.SocialMetricsAsOf = &asOf
	}

	return result
}

func (s *Service) getTrack(ctx context.Context, id string) (*catalog.TrackMetadata, error) {
	if t, ok := s.cache.track(id); ok {
		return t, nil
	}
	t, err := s.provider.GetTrack(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEnrichmentDegraded, "track %s: %v", id, err)
	}
	s.cache.putTrack(id, t)
	return t, nil
}

func (s *Service) getArtist(ctx context.Context, id string) (*catalog.ArtistMetadata, error) {
	if a, ok := s.cache.artist(id); ok {
		return a, nil
	}
	a, err := s.provider.GetArtist(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEnrichmentDegraded, "artist %s: %v", id, err)
	}
	s.cache.putArtist(id, a)
	return a, nil
}

func (s *Service) getSocial(ctx context.Context, id string) (*catalog.SocialMetrics, error) {
	if m, ok := s.cache.socialMetrics(id); ok {
		return m, nil
	}
	m, err := s.provider.GetArtistSocial(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEnrichmentDegraded, "social %s: %v", id, err)
	}
	s.cache.putSocial(id, m)
	return m, nil
}
