package server

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/oauthmodel"
)

const (
	maxRequestBodyBytes = 64 << 10

	// serviceTokenCache lets an edge cache share the service token response for a few minutes
	serviceTokenCache = "s-maxage=300, stale-while-revalidate=300"
	// serviceTokenMinLifetime is how long a token must stay valid before an edge may cache it
	serviceTokenMinLifetime = 10 * time.Minute
)

// ServiceTokenResponse is the application token as returned to trusted server-side callers.
type ServiceTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeHandler performs the authorization-code grant for the browser
// and relays the authorization server's answer.
func (s *Server) ExchangeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthmodel.ExchangeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		relay, err := s.exchange.ExchangeCode(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeTokenRelay(w, relay)
	}
}

// RefreshHandler performs the refresh-token grant for the browser.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauthmodel.RefreshRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		relay, err := s.exchange.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeTokenRelay(w, relay)
	}
}

// ServiceTokenHandler returns the cached application token.
func (s *Server) ServiceTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok, err := s.appTokens.GetAppToken(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		remaining := tok.ExpiresAt.Sub(s.nowFunc())
		if remaining >= serviceTokenMinLifetime {
			w.Header().Set("Cache-Control", serviceTokenCache)
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		writeJSON(w, http.StatusOK, ServiceTokenResponse{
			AccessToken: tok.Value,
			TokenType:   "Bearer",
			ExpiresIn:   int64(math.Max(0, remaining.Seconds())),
		})
	}
}

// decodeBody reads a JSON request body. An empty body decodes to the zero
// value so that field validation reports what is missing.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes)).Decode(v)
	if err == nil || err == io.EOF {
		return nil
	}
	return apperrors.BadRequestf("Invalid JSON body")
}
