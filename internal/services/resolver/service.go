package resolver

import (
	"context"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/catalog"
	"chartpulse/pkg/errors"
	"chartpulse/pkg/logger"
)

// Weighting of the combined similarity. Title dominates because artist
// strings on charts carry collaborations ("A, B & C") that depress the
// artist-side score; the 0.70 acceptance threshold then trades recall
// for precision.
const (
	titleWeight  = 0.6
	artistWeight = 0.4
)

// Resolution is the outcome of one identifier lookup.
// A miss is a normal result, never an error.
type Resolution struct {
	CatalogID string
	Score     float64
	Resolved  bool
}

// Service maps a (title, artist) pair lacking a catalog ID to a best-effort
// catalog ID via fuzzy matching against provider search candidates.
type Service struct {
	provider    catalog.Provider
	similarity  Similarity
	threshold   float64
	searchLimit int
	log         *logger.Logger
}

// NewService creates a resolver with the configured similarity strategy
func NewService(provider catalog.Provider, cfg config.ResolverConfig, searchLimit int) (*Service, error) {
	var sim Similarity
	switch cfg.Similarity {
	case "", "token_jaccard":
		sim = TokenJaccard{}
	case "jaro_winkler":
		sim = NewJaroWinkler()
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown similarity strategy %q", cfg.Similarity)
	}

	return &Service{
		provider:    provider,
		similarity:  sim,
		threshold:   cfg.Threshold,
		searchLimit: searchLimit,
		log:         logger.Get().With("component", "resolver"),
	}, nil
}

// Resolve searches the provider and accepts the best candidate only when
// its combined title/artist similarity clears the threshold.
func (s *Service) Resolve(ctx context.Context, title, artist string) (Resolution, error) {
	query := artist + " " + title

	candidates, err := s.provider.SearchTracks(ctx, query, s.searchLimit)
	if err != nil {
		return Resolution{}, errors.Wrap(err, "candidate search")
	}

	var best Resolution
	for _, cand := range candidates {
		score := s.Combined(title, artist, cand.Title, cand.Artist)
		if score > best.Score {
			best = Resolution{CatalogID: cand.CatalogID, Score: score}
		}
	}

	if best.Score > s.threshold {
		best.Resolved = true
		s.log.Debugw("resolved track",
			"title", title, "artist", artist,
			"catalog_id", best.CatalogID, "score", best.Score)
		return best, nil
	}

	s.log.Debugw("resolution miss",
		"title", title, "artist", artist, "best_score", best.Score)
	return Resolution{Score: best.Score}, nil
}

// Combined scores title and artist independently and blends them 0.6/0.4
func (s *Service) Combined(title, artist, candTitle, candArtist string) float64 {
	titleSim := s.similarity.Score(title, candTitle)
	artistSim := s.similarity.Score(artist, candArtist)
	return titleWeight*titleSim + artistWeight*artistSim
}
