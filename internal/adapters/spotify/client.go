package spotify

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"chartpulse/internal/adapters/config"
	"chartpulse/internal/domain/catalog"
	"chartpulse/pkg/errors"
	"chartpulse/pkg/logger"
	"chartpulse/pkg/retry"
)

// Compile-time check
var _ catalog.Provider = (*Client)(nil)

// Client implements the catalog provider contract against the Spotify Web
// API. Every call is rate limited, timeout bounded and retried with
// exponential backoff on 429/5xx; an expired token is refreshed once and
// the failed call retried a single time before the error surfaces.
type Client struct {
	mu      sync.Mutex
	api     *spotifyapi.Client
	creds   *clientcredentials.Config
	limiter *rate.Limiter
	policy  retry.Policy
	log     *logger.Logger

	albumMu sync.Mutex
	albums  map[string]albumMetadata
}

// albumMetadata memoizes the album-level fields shared by every track on
// the album, so a chart full of album cuts costs one album lookup.
type albumMetadata struct {
	label       string
	genres      []string
	releaseDate *time.Time
}

func (a albumMetadata) apply(meta *catalog.TrackMetadata) {
	meta.Label = a.label
	if len(meta.Genres) == 0 {
		meta.Genres = a.genres
	}
	if meta.ReleaseDate == nil {
		meta.ReleaseDate = a.releaseDate
	}
}

// NewClient creates a provider client with client-credentials auth
func NewClient(cfg config.ProviderConfig) *Client {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	c := &Client{
		creds:   creds,
		api:     spotifyapi.New(creds.Client(context.Background())),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   cfg.RetryBaseDelay,
			Timeout:     cfg.CallTimeout,
			Retryable:   isTransient,
		},
		log:    logger.Get().With("component", "spotify_provider"),
		albums: make(map[string]albumMetadata),
	}
	return c
}

// SearchTracks runs a free-text track search and returns ranked candidates
func (c *Client) SearchTracks(ctx context.Context, query string, limit int) ([]catalog.Candidate, error) {
	var candidates []catalog.Candidate

	err := c.call(ctx, "search_tracks", func(ctx context.Context, api *spotifyapi.Client) error {
		results, err := api.Search(ctx, query, spotifyapi.SearchTypeTrack, spotifyapi.Limit(limit))
		if err != nil {
			return err
		}

		candidates = candidates[:0]
		if results.Tracks != nil {
			for _, t := range results.Tracks.Tracks {
				candidates = append(candidates, catalog.Candidate{
					CatalogID: string(t.ID),
					Title:     t.Name,
					Artist:    joinArtists(t.Artists),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "search tracks")
	}
	return candidates, nil
}

// GetTrack looks up a track and, when an album reference exists, its album
// for label and release metadata. Missing fields are left unset.
func (c *Client) GetTrack(ctx context.Context, catalogID string) (*catalog.TrackMetadata, error) {
	meta := &catalog.TrackMetadata{CatalogID: catalogID}

	err := c.call(ctx, "get_track", func(ctx context.Context, api *spotifyapi.Client) error {
		track, err := api.GetTrack(ctx, spotifyapi.ID(catalogID))
		if err != nil {
			return err
		}

		meta.Title = track.Name
		meta.AlbumID = string(track.Album.ID)
		if len(track.Artists) > 0 {
			meta.ArtistID = string(track.Artists[0].ID)
			meta.ArtistName = track.Artists[0].Name
		}
		if rd := track.Album.ReleaseDateTime(); !rd.IsZero() {
			meta.ReleaseDate = &rd
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "get track")
	}

	// Label lives on the album object. A failed album lookup degrades the
	// label field only, never the track.
	if meta.AlbumID != "" {
		if err := c.fillAlbum(ctx, meta); err != nil {
			c.log.Warnw("album lookup failed, label left unset",
				"catalog_id", catalogID, "album_id", meta.AlbumID, "error", err)
		}
	}

	return meta, nil
}

func (c *Client) fillAlbum(ctx context.Context, meta *catalog.TrackMetadata) error {
	if cached, ok := c.cachedAlbum(meta.AlbumID); ok {
		cached.apply(meta)
		return nil
	}

	var fetched albumMetadata
	err := c.call(ctx, "get_album", func(ctx context.Context, api *spotifyapi.Client) error {
		album, err := api.GetAlbum(ctx, spotifyapi.ID(meta.AlbumID))
		if err != nil {
			return err
		}

		fetched = albumMetadata{
			label:  labelFromCopyrights(album.Copyrights),
			genres: album.Genres,
		}
		if rd := album.ReleaseDateTime(); !rd.IsZero() {
			fetched.releaseDate = &rd
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.storeAlbum(meta.AlbumID, fetched)
	fetched.apply(meta)
	return nil
}

func (c *Client) cachedAlbum(albumID string) (albumMetadata, bool) {
	c.albumMu.Lock()
	defer c.albumMu.Unlock()
	a, ok := c.albums[albumID]
	return a, ok
}

func (c *Client) storeAlbum(albumID string, a albumMetadata) {
	c.albumMu.Lock()
	defer c.albumMu.Unlock()
	if c.albums == nil {
		c.albums = make(map[string]albumMetadata)
	}
	c.albums[albumID] = a
}

// GetArtist looks up artist metadata
func (c *Client) GetArtist(ctx context.Context, artistID string) (*catalog.ArtistMetadata, error) {
	meta := &catalog.ArtistMetadata{ArtistID: artistID}

	err := c.call(ctx, "get_artist", func(ctx context.Context, api *spotifyapi.Client) error {
		artist, err := api.GetArtist(ctx, spotifyapi.ID(artistID))
		if err != nil {
			return err
		}
		meta.Name = artist.Name
		meta.Genres = artist.Genres
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "get artist")
	}
	return meta, nil
}

// GetArtistSocial reads the artist's social-reach metrics
func (c *Client) GetArtistSocial(ctx context.Context, artistID string) (*catalog.SocialMetrics, error) {
	metrics := &catalog.SocialMetrics{Followers: make(map[string]int64)}

	err := c.call(ctx, "get_artist_social", func(ctx context.Context, api *spotifyapi.Client) error {
		artist, err := api.GetArtist(ctx, spotifyapi.ID(artistID))
		if err != nil {
			return err
		}
		metrics.Followers["spotify"] = int64(artist.Followers.Count)
		metrics.AsOf = time.Now().UTC()
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "get artist social")
	}
	return metrics, nil
}

// call runs fn under the rate limiter and retry policy. When the provider
// rejects the token, the credentials are refreshed once and the single
// failed call retried before giving up.
func (c *Client) call(ctx context.Context, name string, fn func(ctx context.Context, api *spotifyapi.Client) error) error {
	run := func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return fn(ctx, c.current())
	}

	err := c.policy.Do(ctx, run)
	if err == nil || !isAuthExpired(err) {
		return err
	}

	c.log.Infow("provider token rejected, refreshing once", "call", name)
	c.refresh()

	if err := run(ctx); err != nil {
		return errors.Wrap(errors.ErrAuthExpired, err.Error())
	}
	return nil
}

func (c *Client) current() *spotifyapi.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.api
}

// refresh rebuilds the API client from a fresh token source
func (c *Client) refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.api = spotifyapi.New(c.creds.Client(context.Background()))
}

func isTransient(err error) bool {
	var se spotifyapi.Error
	if errors.As(err, &se) {
		return se.Status == http.StatusTooManyRequests || se.Status >= 500
	}
	// Network-level failures are worth another attempt
	return !errors.Is(err, context.Canceled) && !isAuthExpired(err)
}

func isAuthExpired(err error) bool {
	var se spotifyapi.Error
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}

func joinArtists(artists []spotifyapi.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// labelFromCopyrights derives the label name from the album P-line,
// e.g. "(P) 2020 XO, Republic Records" -> "XO, Republic Records"
func labelFromCopyrights(copyrights []spotifyapi.Copyright) string {
	var text string
	for _, cr := range copyrights {
		if strings.EqualFold(cr.Type, "P") {
			text = cr.Text
			break
		}
		if text == "" {
			text = cr.Text
		}
	}
	if text == "" {
		return ""
	}

	for _, prefix := range []string{"(P)", "(C)", "℗", "©"} {
		text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
	}
	// Strip a leading year
	if len(text) > 5 && isYear(text[:4]) {
		text = strings.TrimSpace(text[4:])
	}
	return text
}

func isYear(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
