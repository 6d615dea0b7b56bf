package catalog

import (
	"context"
	"time"
)

// Candidate is one ranked result from a free-text track search
type Candidate struct {
	CatalogID string
	Title     string
	Artist    string
}

// TrackMetadata is the provider's view of a catalog track.
// Every field beyond CatalogID is optional.
type TrackMetadata struct {
	CatalogID   string
	Title       string
	ArtistID    string
	ArtistName  string
	AlbumID     string
	Genres      []string
	Label       string
	Distributor string
	ReleaseDate *time.Time
}

// ArtistMetadata is the provider's view of an artist
type ArtistMetadata struct {
	ArtistID      string
	Name          string
	Genres        []string
	OriginCountry string
	OriginCity    string
}

// SocialMetrics is a point-in-time social-reach reading for an artist
type SocialMetrics struct {
	// Followers per platform, each >= 0
	Followers map[string]int64
	AsOf      time.Time
}

// Provider is the metadata/enrichment provider contract.
// All responses are optional at the field level; callers treat failures
// as degraded enrichment, never as fatal pipeline errors.
type Provider interface {
	SearchTracks(ctx context.Context, query string, limit int) ([]Candidate, error)
	GetTrack(ctx context.Context, catalogID string) (*TrackMetadata, error)
	GetArtist(ctx context.Context, artistID string) (*ArtistMetadata, error)
	GetArtistSocial(ctx context.Context, artistID string) (*SocialMetrics, error)
}
