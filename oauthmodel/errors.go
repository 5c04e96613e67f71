package oauthmodel

import "errors"

var (
	ErrMissingAccessToken = errors.New("token response missing access_token")
	ErrMissingExpiresIn   = errors.New("token response missing expires_in")
)
