package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"net/http"
	"net/url"

	"github.com/jrsteele09/riff-finder/catalog"
	"github.com/jrsteele09/riff-finder/discovery"
	"github.com/jrsteele09/riff-finder/internal/config"
	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/sessions"
	"github.com/jrsteele09/riff-finder/token"
	"github.com/jrsteele09/riff-finder/token/exchange"
	"github.com/rs/zerolog"
)

// Bootstrap builds every component from configuration and returns the
// server together with a function releasing what it opened.
func Bootstrap(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, func() error, error) {
	closer := func() error { return nil }
	httpClient := &http.Client{}
	component := func(name string) zerolog.Logger {
		return logger.With().Str("component", name).Logger()
	}

	if cfg.GetClientID() == "" || cfg.GetClientSecret() == "" {
		logger.Warn().Msg("SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET not set: token and catalog routes will answer 500")
	}

	appTokens := token.NewAppTokenCache(
		token.NewClientCredentialsFetcher(cfg, httpClient),
		token.WithTimeout(cfg.GetUpstreamTimeout()),
		token.WithLogger(component("app_token_cache")),
	)
	exchangeService := exchange.New(cfg,
		exchange.WithHTTPClient(httpClient),
		exchange.WithLogger(component("exchange")),
	)

	var repo sessions.Repo
	if redisURL := cfg.GetRedisURL(); redisURL != "" {
		redisRepo, err := sessions.NewRedisRepo(redisURL, cfg.GetSessionCookieMaxAge())
		if err != nil {
			return nil, nil, fmt.Errorf("[server Bootstrap] %w", err)
		}
		if err := redisRepo.Ping(ctx); err != nil {
			_ = redisRepo.Close()
			return nil, nil, apperrors.Wrapf(err, "[server Bootstrap] redis unavailable at %s", redactURL(redisURL))
		}
		repo = redisRepo
		closer = redisRepo.Close
		logger.Info().Msg("user sessions stored in redis")
	} else {
		repo = sessions.NewInMemoryRepo()
		logger.Info().Msg("user sessions stored in memory")
	}

	proxy := catalog.NewProxy(cfg.GetCatalogBaseURL(), appTokens,
		catalog.WithHTTPClient(httpClient),
		catalog.WithRateLimit(cfg.GetCatalogRateLimit()),
		catalog.WithTimeout(cfg.GetUpstreamTimeout()),
		catalog.WithUserAgent(cfg.GetUserAgent()),
		catalog.WithLogger(component("catalog_proxy")),
	)

	signingKey := cfg.GetSessionSigningKey()
	if signingKey == nil {
		signingKey = make([]byte, 32)
		if _, err := rand.Read(signingKey); err != nil {
			return nil, nil, fmt.Errorf("[server Bootstrap] generating session key: %w", err)
		}
		logger.Warn().Msg("no session signing key configured: sessions will not survive a restart")
	}

	s, err := New(cfg, Components{
		AppTokens: appTokens,
		Exchange:  exchangeService,
		Proxy:     proxy,
		Discovery: discovery.NewService(
			catalog.NewClient(proxy, cfg.GetMarket()),
			discovery.WithLogger(component("discovery")),
		),
		UserSessions: sessions.NewUserSessionStore(repo, exchangeService,
			sessions.WithLogger(component("user_sessions")),
		),
		Verifiers:  sessions.NewVerifierStore(cfg.GetVerifierTTL()),
		SigningKey: signingKey,
	}, WithLogger(logger))
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	return s, closer, nil
}

// redactURL drops credentials from a connection URL before it is logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
