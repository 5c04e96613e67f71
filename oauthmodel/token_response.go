package oauthmodel

import (
	"encoding/json"
	"fmt"
	"time"
)

// TokenResponse is the token endpoint payload (RFC 6749 section 5.1).
type TokenResponse struct {
	// AccessToken is the opaque bearer token for catalog requests.
	AccessToken string `json:"access_token"`

	// TokenType is always "Bearer" for the catalog's authorization server.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expires_in"`

	// RefreshToken is only present for user grants. A refresh response may omit
	// it, in which case the previous refresh token stays valid.
	RefreshToken string `json:"refresh_token,omitempty"`

	Scope string `json:"scope,omitempty"`
}

// ExpiresAt applies the early refresh margin to ExpiresIn
func (t TokenResponse) ExpiresAt(requestTime time.Time) time.Time {
	return ExpiryFrom(requestTime, t.ExpiresIn)
}

// TokenRelay is a token endpoint response kept byte-for-byte so it can be
// forwarded to the caller without re-encoding.
type TokenRelay struct {
	Status      int
	Body        []byte
	ContentType string
}

// Decode parses the relayed body as a TokenResponse
func (r *TokenRelay) Decode() (TokenResponse, error) {
	var tr TokenResponse
	if err := json.Unmarshal(r.Body, &tr); err != nil {
		return TokenResponse{}, fmt.Errorf("[TokenRelay Decode] invalid token payload: %w", err)
	}
	if tr.AccessToken == "" {
		return TokenResponse{}, ErrMissingAccessToken
	}
	return tr, nil
}
