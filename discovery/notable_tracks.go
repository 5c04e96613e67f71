package discovery

import (
	"context"

	"github.com/jrsteele09/riff-finder/catalog"
	"golang.org/x/sync/errgroup"
)

const (
	notableAlbumCount = 6
	notableTrackLimit = 10
	trackURLPrefix    = "https://open.spotify.com/track/"
)

type NotableTrack struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	PreviewURL *string `json:"preview_url"`
	DurationMS int     `json:"duration_ms"`
	AlbumID    string  `json:"album_id"`
	AlbumName  string  `json:"album_name"`
}

// NotableTracks collects up to ten distinct tracks from the artist's first
// albums and singles, in album order.
func (s *Service) NotableTracks(ctx context.Context, artistID, userToken string) ([]NotableTrack, error) {
	albums, err := s.catalog.ArtistAlbums(ctx, artistID, userToken)
	if err != nil {
		return nil, err
	}
	if len(albums) > notableAlbumCount {
		albums = albums[:notableAlbumCount]
	}

	perAlbum := make([][]catalog.Track, len(albums))
	g, gctx := errgroup.WithContext(ctx)
	for i, album := range albums {
		g.Go(func() error {
			tracks, err := s.catalog.AlbumTracks(gctx, album.ID, userToken)
			perAlbum[i] = tracks
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	out := []NotableTrack{}
	for i, tracks := range perAlbum {
		for _, t := range tracks {
			if t.ID == "" {
				continue
			}
			if _, dup := seen[t.ID]; dup {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, toNotable(t, albums[i]))
			if len(out) == notableTrackLimit {
				return out, nil
			}
		}
	}
	return out, nil
}

func toNotable(t catalog.Track, album catalog.Album) NotableTrack {
	url := t.ExternalURLs.Spotify
	if url == "" {
		url = trackURLPrefix + t.ID
	}
	return NotableTrack{
		ID:         t.ID,
		Name:       t.Name,
		URL:        url,
		PreviewURL: t.PreviewURL,
		DurationMS: t.DurationMS,
		AlbumID:    album.ID,
		AlbumName:  album.Name,
	}
}
