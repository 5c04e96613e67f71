package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/jrsteele09/riff-finder/catalog"
	"github.com/jrsteele09/riff-finder/discovery"
	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
)

// userToken picks the caller's user credential: an explicit bearer token
// first, then the signed session cookie. "" means the app token is used.
func (s *Server) userToken(r *http.Request) string {
	if token := bearerToken(r); token != "" {
		return token
	}
	sessionID, ok := s.cookies.sessionID(r)
	if !ok {
		return ""
	}
	token, _ := s.userSessions.GetValidAccessToken(r.Context(), sessionID)
	return token
}

// CatalogProxyHandler forwards GET ?path=/v1/... to the catalog.
func (s *Server) CatalogProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.proxy.Proxy(r.Context(), r.URL.Query().Get("path"), s.userToken(r))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeCatalogResponse(w, resp)
	}
}

// DiscoverHandler ranks artists similar to ?seeds=a,b,c.
func (s *Server) DiscoverHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		seeds, err := discovery.ParseSeeds(query.Get("seeds"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		limit, err := parseLimit(query.Get("limit"))
		if err != nil {
			writeError(w, r, err)
			return
		}

		userToken := s.userToken(r)
		result, err := s.discovery.Discover(r.Context(), seeds, userToken, limit)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", catalog.CacheControlFor(userToken != "", true))
		writeJSON(w, http.StatusOK, result)
	}
}

type notableTracksResponse struct {
	ArtistID string                   `json:"artist_id"`
	Tracks   []discovery.NotableTrack `json:"tracks"`
}

func (s *Server) NotableTracksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		artistID := strings.TrimSpace(r.PathValue("id"))
		if artistID == "" {
			writeError(w, r, apperrors.BadRequestf("Missing artist id"))
			return
		}

		userToken := s.userToken(r)
		tracks, err := s.discovery.NotableTracks(r.Context(), artistID, userToken)
		if err != nil {
			writeError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", catalog.CacheControlFor(userToken != "", true))
		writeJSON(w, http.StatusOK, notableTracksResponse{ArtistID: artistID, Tracks: tracks})
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.BadRequestf("limit must be a number")
	}
	return n, nil
}
