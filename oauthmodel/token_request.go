package oauthmodel

import (
	"strings"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
)

// ExchangeRequest is the body of POST /auth/exchange.
// All three fields are required.
type ExchangeRequest struct {
	// Code is the authorization code from the callback redirect.
	// Usage: Exchanged once for tokens, then becomes invalid
	Code string `json:"code"`

	// CodeVerifier is the PKCE verifier generated when the login started.
	// Validation: The authorization server compares SHA256(code_verifier) with the stored code_challenge
	CodeVerifier string `json:"code_verifier"`

	// RedirectURI must match the redirect_uri used in the authorize request.
	RedirectURI string `json:"redirect_uri"`
}

func (r ExchangeRequest) Validate() error {
	if strings.TrimSpace(r.Code) == "" || strings.TrimSpace(r.CodeVerifier) == "" || strings.TrimSpace(r.RedirectURI) == "" {
		return apperrors.BadRequestf("Missing code/code_verifier/redirect_uri")
	}
	return nil
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	// RefreshToken is required.
	// Behavior: The server may rotate it; a response without one keeps the old token
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshRequest) Validate() error {
	if strings.TrimSpace(r.RefreshToken) == "" {
		return apperrors.BadRequestf("Missing refresh_token")
	}
	return nil
}
