package server

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/oauthmodel"
	"github.com/rs/zerolog/hlog"
	"golang.org/x/oauth2"
)

type sessionStatus struct {
	Connected bool `json:"connected"`
}

// LoginHandler starts the authorization-code flow with PKCE: the verifier
// stays on the server under a fresh state value and the browser is sent to
// the authorize endpoint.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.oauth.ClientID == "" || s.oauth.ClientSecret == "" {
			writeError(w, r, apperrors.ErrConfigMissing)
			return
		}

		state := uuid.NewString()
		verifier := oauth2.GenerateVerifier()
		if err := s.verifiers.Put(state, verifier); err != nil {
			writeError(w, r, err)
			return
		}
		s.cookies.setState(w, state)

		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, s.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), http.StatusFound)
	}
}

// CallbackHandler completes the login: the verifier is consumed whatever the
// outcome, the code exchanged, and the resulting session bound to a signed cookie.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		state := query.Get("state")
		w.Header().Set("Cache-Control", "no-store")
		s.cookies.clearState(w)

		verifier, verifierErr := s.verifiers.Take(state)

		if authErr := query.Get("error"); authErr != "" {
			http.Redirect(w, r, "/?auth_error="+url.QueryEscape(authErr), http.StatusFound)
			return
		}
		if err := s.cookies.checkState(r, state); err != nil {
			hlog.FromRequest(r).Warn().Err(err).Msg("oauth callback rejected")
			writeError(w, r, apperrors.BadRequestf("Invalid OAuth state. Try logging in again."))
			return
		}
		if verifierErr != nil {
			writeError(w, r, verifierErr)
			return
		}

		requestTime := s.nowFunc()
		relay, err := s.exchange.ExchangeCode(r.Context(), oauthmodel.ExchangeRequest{
			Code:         query.Get("code"),
			CodeVerifier: verifier,
			RedirectURI:  s.oauth.RedirectURL,
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		tr, err := relay.Decode()
		if err != nil {
			writeError(w, r, err)
			return
		}

		sessionID := uuid.NewString()
		if err := s.userSessions.Connect(r.Context(), sessionID, tr, requestTime); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.cookies.setSession(w, sessionID); err != nil {
			writeError(w, r, err)
			return
		}
		hlog.FromRequest(r).Info().Msg("user session connected")
		http.Redirect(w, r, "/", http.StatusFound)
	}
}

// LogoutHandler destroys the server-side session and clears the cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID, ok := s.cookies.sessionID(r); ok {
			if err := s.userSessions.Disconnect(r.Context(), sessionID); err != nil {
				writeError(w, r, err)
				return
			}
		}
		s.cookies.clearSession(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionHandler reports whether the caller has a usable user session,
// refreshing it if needed.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connected := false
		if sessionID, ok := s.cookies.sessionID(r); ok {
			if _, connected = s.userSessions.GetValidAccessToken(r.Context(), sessionID); !connected {
				s.cookies.clearSession(w)
			}
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, sessionStatus{Connected: connected})
	}
}
