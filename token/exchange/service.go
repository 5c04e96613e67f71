// Package exchange keeps the confidential client secret server-side: it
// performs the authorization-code (PKCE) and refresh-token grants on behalf of
// the browser and relays the authorization server's answer untouched.
package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/oauthmodel"
	"github.com/rs/zerolog"
)

const maxTokenResponseBytes = 1 << 20

// ClientConfig is the part of config.CatalogConfig the grants need.
type ClientConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetTokenURL() string
	GetUpstreamTimeout() time.Duration
}

// Service relays user-token grants to the authorization server. It holds no state.
type Service struct {
	clientID     string
	clientSecret string
	tokenURL     string
	timeout      time.Duration
	httpClient   *http.Client
	logger       zerolog.Logger
}

type Option func(*Service)

func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		s.httpClient = client
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(cfg ClientConfig, opts ...Option) *Service {
	s := &Service{
		clientID:     cfg.GetClientID(),
		clientSecret: cfg.GetClientSecret(),
		tokenURL:     cfg.GetTokenURL(),
		timeout:      cfg.GetUpstreamTimeout(),
		httpClient:   http.DefaultClient,
		logger:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExchangeCode performs the authorization-code grant with the PKCE verifier.
func (s *Service) ExchangeCode(ctx context.Context, req oauthmodel.ExchangeRequest) (*oauthmodel.TokenRelay, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	return s.grant(ctx, url.Values{
		"grant_type":    {string(oauthmodel.AuthorizationCodeGrant)},
		"code":          {req.Code},
		"redirect_uri":  {req.RedirectURI},
		"code_verifier": {req.CodeVerifier},
	})
}

// Refresh performs the refresh-token grant.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenRelay, error) {
	if err := s.configured(); err != nil {
		return nil, err
	}
	if err := (oauthmodel.RefreshRequest{RefreshToken: refreshToken}).Validate(); err != nil {
		return nil, err
	}

	return s.grant(ctx, url.Values{
		"grant_type":    {string(oauthmodel.RefreshTokenGrant)},
		"refresh_token": {refreshToken},
	})
}

func (s *Service) configured() error {
	if s.clientID == "" || s.clientSecret == "" {
		return apperrors.ErrConfigMissing
	}
	return nil
}

func (s *Service) grant(ctx context.Context, form url.Values) (*oauthmodel.TokenRelay, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("[exchange grant] failed to build request: %w", err)
	}
	req.SetBasicAuth(s.clientID, s.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	grantType := form.Get("grant_type")
	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn().Err(err).Str("grant_type", grantType).Msg("token endpoint unreachable")
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading token response: %v", apperrors.ErrUpstreamUnreachable, err)
	}

	s.logger.Debug().
		Str("grant_type", grantType).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("token endpoint answered")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperrors.NewUpstreamError(resp, body)
	}

	return &oauthmodel.TokenRelay{
		Status:      resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
