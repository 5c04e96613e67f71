package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

const (
	// MaxSearchLimit is the largest page the search endpoint accepts
	MaxSearchLimit = 10
	// MaxArtistIDs is the largest batch /v1/artists?ids= accepts
	MaxArtistIDs = 50
)

// Client is a typed view over the Proxy for the endpoints the app reads.
type Client struct {
	proxy  *Proxy
	market string
}

func NewClient(proxy *Proxy, market string) *Client {
	return &Client{proxy: proxy, market: market}
}

func (c *Client) fetch(ctx context.Context, path, userToken string, v any) error {
	resp, err := c.proxy.Proxy(ctx, path, userToken)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

// GetArtists resolves up to MaxArtistIDs artists in one request, in catalog order.
func (c *Client) GetArtists(ctx context.Context, ids []string, userToken string) ([]Artist, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxArtistIDs {
		return nil, fmt.Errorf("[catalog GetArtists] at most %d ids per request, got %d", MaxArtistIDs, len(ids))
	}
	escaped := make([]string, len(ids))
	for i, id := range ids {
		escaped[i] = url.QueryEscape(id)
	}

	var res ArtistsResponse
	if err := c.fetch(ctx, "/v1/artists?ids="+strings.Join(escaped, ","), userToken, &res); err != nil {
		return nil, err
	}
	return res.Artists, nil
}

// RelatedArtists is unavailable to some applications; callers should expect
// a 403 or 404 *errors.UpstreamError.
func (c *Client) RelatedArtists(ctx context.Context, id, userToken string) ([]Artist, error) {
	var res ArtistsResponse
	if err := c.fetch(ctx, "/v1/artists/"+url.PathEscape(id)+"/related-artists", userToken, &res); err != nil {
		return nil, err
	}
	return res.Artists, nil
}

// SearchArtists clamps limit to [1, MaxSearchLimit].
func (c *Client) SearchArtists(ctx context.Context, query string, limit int, userToken string) ([]Artist, error) {
	limit = max(1, min(limit, MaxSearchLimit))
	q := url.Values{
		"q":     {strings.TrimSpace(query)},
		"type":  {"artist"},
		"limit": {fmt.Sprint(limit)},
	}

	var res SearchArtistsResponse
	if err := c.fetch(ctx, "/v1/search?"+q.Encode(), userToken, &res); err != nil {
		return nil, err
	}
	return res.Artists.Items, nil
}

func (c *Client) ArtistAlbums(ctx context.Context, id, userToken string) ([]Album, error) {
	q := url.Values{
		"include_groups": {"album,single"},
		"market":         {c.market},
	}

	var res AlbumsResponse
	if err := c.fetch(ctx, "/v1/artists/"+url.PathEscape(id)+"/albums?"+q.Encode(), userToken, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// AlbumTracks omits the limit parameter, which some catalog revisions reject.
func (c *Client) AlbumTracks(ctx context.Context, albumID, userToken string) ([]Track, error) {
	var res AlbumTracksResponse
	if err := c.fetch(ctx, "/v1/albums/"+url.PathEscape(albumID)+"/tracks", userToken, &res); err != nil {
		return nil, err
	}
	return res.Items, nil
}
