package config

import (
	"strconv"
	"strings"
	"time"
)

const (
	clientIDVar       = "SPOTIFY_CLIENT_ID"
	clientSecretVar   = "SPOTIFY_CLIENT_SECRET"
	redirectURIVar    = "SPOTIFY_REDIRECT_URI"
	marketVar         = "SPOTIFY_MARKET"
	catalogBaseURLVar = "CATALOG_BASE_URL"
	authorizeURLVar   = "AUTH_BASE_URL"
	tokenURLVar       = "TOKEN_URL"
	userAgentVar      = "USER_AGENT"
	upstreamTimeout   = "UPSTREAM_TIMEOUT"
	catalogRateLimit  = "CATALOG_RATE_LIMIT"
)

type Catalog struct {
	v values
}

var _ CatalogConfig = Catalog{}

func (c Catalog) GetClientID() string {
	return c.v.get(clientIDVar, "")
}

func (c Catalog) GetClientSecret() string {
	return c.v.get(clientSecretVar, "")
}

// GetRedirectURI defaults to the callback route on this service
func (c Catalog) GetRedirectURI() string {
	return c.v.get(redirectURIVar, EnvVars(c).GetBaseURL()+"/auth/callback")
}

func (Catalog) GetScopes() []string {
	return []string{"user-read-email", "user-read-private"}
}

func (c Catalog) GetMarket() string {
	return c.v.get(marketVar, "US")
}

func (c Catalog) GetCatalogBaseURL() string {
	return strings.TrimSuffix(c.v.get(catalogBaseURLVar, "https://api.spotify.com"), "/")
}

func (c Catalog) GetAuthorizeURL() string {
	return c.v.get(authorizeURLVar, "https://accounts.spotify.com/authorize")
}

func (c Catalog) GetTokenURL() string {
	return c.v.get(tokenURLVar, "https://accounts.spotify.com/api/token")
}

func (c Catalog) GetUserAgent() string {
	return c.v.get(userAgentVar, "RiffFinder/1.0 (+go)")
}

// GetUpstreamTimeout bounds every call to the token endpoint and the catalog API
func (c Catalog) GetUpstreamTimeout() time.Duration {
	return c.v.duration(upstreamTimeout, 10*time.Second)
}

// GetCatalogRateLimit is the outbound catalog request rate in requests per second (0 disables limiting)
func (c Catalog) GetCatalogRateLimit() float64 {
	limit, err := strconv.ParseFloat(c.v.get(catalogRateLimit, "10"), 64)
	if err != nil || limit < 0 {
		return 10
	}
	return limit
}
