package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/riff-finder/oauthmodel"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const appTokenRefreshKey = "app-token-refresh"

// AppToken is the service-level (client-credentials) access token. It is
// never handed to the browser.
type AppToken struct {
	Value     string
	ExpiresAt time.Time
}

// Fetcher performs a client-credentials grant against the authorization server.
type Fetcher interface {
	FetchAppToken(ctx context.Context) (oauthmodel.TokenResponse, error)
}

// AppTokenCache holds the process-wide application token and renews it when
// it expires. Concurrent callers that find it expired share one renewal.
type AppTokenCache struct {
	fetcher Fetcher
	nowFunc func() time.Time
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	cached *AppToken
	group  singleflight.Group
}

type CacheOption func(*AppTokenCache)

func WithNowFunc(now func() time.Time) CacheOption {
	return func(c *AppTokenCache) {
		c.nowFunc = now
	}
}

// WithTimeout bounds a single token endpoint call
func WithTimeout(timeout time.Duration) CacheOption {
	return func(c *AppTokenCache) {
		c.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) CacheOption {
	return func(c *AppTokenCache) {
		c.logger = logger
	}
}

func NewAppTokenCache(fetcher Fetcher, opts ...CacheOption) *AppTokenCache {
	c := &AppTokenCache{
		fetcher: fetcher,
		nowFunc: time.Now,
		timeout: 10 * time.Second,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAppAccessToken returns the cached token value, renewing it first if it
// is absent or expired.
func (c *AppTokenCache) GetAppAccessToken(ctx context.Context) (string, error) {
	tok, err := c.GetAppToken(ctx)
	if err != nil {
		return "", err
	}
	return tok.Value, nil
}

// GetAppToken is GetAppAccessToken with the expiry attached.
func (c *AppTokenCache) GetAppToken(ctx context.Context) (AppToken, error) {
	if tok, ok := c.current(); ok {
		return tok, nil
	}

	result, err, shared := c.group.Do(appTokenRefreshKey, func() (any, error) {
		// A renewal may have finished between the check above and entering the group
		if tok, ok := c.current(); ok {
			return tok, nil
		}
		return c.renew(ctx)
	})
	if err != nil {
		return AppToken{}, err
	}
	if shared {
		c.logger.Debug().Msg("joined in-flight app token renewal")
	}
	return result.(AppToken), nil
}

func (c *AppTokenCache) current() (AppToken, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cached == nil || !c.nowFunc().Before(c.cached.ExpiresAt) {
		return AppToken{}, false
	}
	return *c.cached, true
}

func (c *AppTokenCache) renew(ctx context.Context) (AppToken, error) {
	// The renewal is shared, so one caller giving up must not fail the others
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	requestTime := c.nowFunc()
	resp, err := c.fetcher.FetchAppToken(fetchCtx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("client-credentials grant failed")
		return AppToken{}, fmt.Errorf("[AppTokenCache renew] %w", err)
	}

	tok := AppToken{
		Value:     resp.AccessToken,
		ExpiresAt: resp.ExpiresAt(requestTime),
	}

	c.mu.Lock()
	c.cached = &tok
	c.mu.Unlock()

	c.logger.Info().Time("expires_at", tok.ExpiresAt).Msg("app token renewed")
	return tok, nil
}
