package oauthmodel

import "time"

// GrantType represents the OAuth 2.0 grant type sent to the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code (plus PKCE verifier) for user tokens.
	AuthorizationCodeGrant GrantType = "authorization_code"

	// ClientCredentialsGrant authenticates the application itself; no user context.
	ClientCredentialsGrant GrantType = "client_credentials"

	// RefreshTokenGrant exchanges a refresh token for a new access token.
	RefreshTokenGrant GrantType = "refresh_token"
)

// EarlyRefreshMargin is subtracted once, when a raw expires_in is first turned
// into an absolute expiry, so tokens are renewed before the server expires them.
const EarlyRefreshMargin = 60 * time.Second

// ExpiryFrom converts an expires_in value (seconds) into an absolute instant.
func ExpiryFrom(requestTime time.Time, expiresIn int64) time.Time {
	return requestTime.Add(time.Duration(expiresIn)*time.Second - EarlyRefreshMargin)
}
