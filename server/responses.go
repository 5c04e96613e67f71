package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/riff-finder/catalog"
	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/oauthmodel"
	"github.com/rs/zerolog/hlog"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"

	msgMissingCredentials = "Missing Spotify credentials"
	msgMissingVerifier    = "Missing PKCE verifier. Try logging in again."
	msgUpstreamFailed     = "Upstream request failed"
)

type errorResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errorResponse {
	return errorResponse{Error: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeRaw relays an upstream body byte-for-byte.
func writeRaw(w http.ResponseWriter, status int, contentType string, body []byte) {
	if contentType == "" {
		contentType = "text/plain; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps an error kind to its HTTP answer. Upstream rejections keep
// their status and body.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *apperrors.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorBody(validationErr.Message))
	case errors.Is(err, apperrors.ErrVerifierNotFound):
		writeJSON(w, http.StatusBadRequest, errorBody(msgMissingVerifier))
	case errors.Is(err, apperrors.ErrConfigMissing):
		hlog.FromRequest(r).Error().Msg("catalog client credentials are not configured")
		writeJSON(w, http.StatusInternalServerError, errorBody(msgMissingCredentials))
	default:
		if upstreamErr, ok := apperrors.AsUpstream(err); ok {
			writeUpstreamError(w, upstreamErr)
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody(msgUpstreamFailed))
	}
}

func writeUpstreamError(w http.ResponseWriter, e *apperrors.UpstreamError) {
	if len(e.Body) == 0 {
		writeJSON(w, e.Status, errorBody(http.StatusText(e.Status)))
		return
	}
	writeRaw(w, e.Status, e.ContentType, e.Body)
}

func writeTokenRelay(w http.ResponseWriter, relay *oauthmodel.TokenRelay) {
	w.Header().Set("Cache-Control", catalog.CacheNoStore)
	w.Header().Set("Pragma", "no-cache")
	writeRaw(w, relay.Status, relay.ContentType, relay.Body)
}

// writeCatalogResponse relays a proxied catalog answer, JSON bodies as JSON
// and anything else untouched.
func writeCatalogResponse(w http.ResponseWriter, resp catalog.Response) {
	if resp.CacheControl != "" {
		w.Header().Set("Cache-Control", resp.CacheControl)
	}
	if resp.Kind == catalog.BodyJSON {
		writeRaw(w, resp.Status, contentTypeJSON, resp.JSON)
		return
	}
	writeRaw(w, resp.Status, resp.ContentType, resp.Raw)
}

// bearerToken returns the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
