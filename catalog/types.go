// Package catalog forwards requests to the music catalog API with the right
// credential and exposes typed helpers for the handful of endpoints the
// discovery feature reads.
package catalog

// Image is a catalog image reference. Width and Height may be null.
type Image struct {
	URL    string `json:"url"`
	Width  *int   `json:"width"`
	Height *int   `json:"height"`
}

// Artist is the subset of the catalog artist object the app consumes.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	// Popularity (0-100) is no longer returned by every catalog revision; nil when absent.
	Popularity *float64 `json:"popularity,omitempty"`
	Images     []Image  `json:"images"`
}

type ExternalURLs struct {
	Spotify string `json:"spotify,omitempty"`
}

type Album struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	AlbumType    string       `json:"album_type"`
	ReleaseDate  string       `json:"release_date"`
	TotalTracks  int          `json:"total_tracks"`
	Images       []Image      `json:"images"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	PreviewURL   *string      `json:"preview_url"`
	DurationMS   int          `json:"duration_ms"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

type SearchArtistsResponse struct {
	Artists struct {
		Items []Artist `json:"items"`
	} `json:"artists"`
}

// ArtistsResponse is returned by both /artists?ids= and /artists/{id}/related-artists
type ArtistsResponse struct {
	Artists []Artist `json:"artists"`
}

type AlbumsResponse struct {
	Items []Album `json:"items"`
}

type AlbumTracksResponse struct {
	Items []Track `json:"items"`
}
