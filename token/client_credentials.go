package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/oauthmodel"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ClientCredentialsFetcher obtains application tokens with HTTP Basic client
// authentication.
type ClientCredentialsFetcher struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
}

var _ Fetcher = (*ClientCredentialsFetcher)(nil)

// ClientConfig is the part of config.CatalogConfig the grant needs.
type ClientConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetTokenURL() string
}

func NewClientCredentialsFetcher(cfg ClientConfig, httpClient *http.Client) *ClientCredentialsFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClientCredentialsFetcher{
		clientID:     cfg.GetClientID(),
		clientSecret: cfg.GetClientSecret(),
		tokenURL:     cfg.GetTokenURL(),
		httpClient:   httpClient,
	}
}

func (f *ClientCredentialsFetcher) FetchAppToken(ctx context.Context) (oauthmodel.TokenResponse, error) {
	if f.clientID == "" || f.clientSecret == "" {
		return oauthmodel.TokenResponse{}, apperrors.ErrConfigMissing
	}

	cc := &clientcredentials.Config{
		ClientID:     f.clientID,
		ClientSecret: f.clientSecret,
		TokenURL:     f.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tok, err := cc.Token(context.WithValue(ctx, oauth2.HTTPClient, f.httpClient))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return oauthmodel.TokenResponse{}, apperrors.NewUpstreamError(retrieveErr.Response, retrieveErr.Body)
		}
		return oauthmodel.TokenResponse{}, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnreachable, err)
	}

	expiresIn, ok := expiresInSeconds(tok)
	if !ok {
		return oauthmodel.TokenResponse{}, oauthmodel.ErrMissingExpiresIn
	}

	return oauthmodel.TokenResponse{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		ExpiresIn:   expiresIn,
	}, nil
}

// expiresInSeconds reads the wire expires_in value. Token.Expiry is stamped
// with the library's own clock, so it is not used.
func expiresInSeconds(tok *oauth2.Token) (int64, bool) {
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn, true
	}
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(math.Round(v)), true
	case int64:
		return v, true
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
