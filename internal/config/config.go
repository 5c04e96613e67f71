package config

import (
	"os"
	"time"
)

type Config interface {
	EnvConfig
	CorsConfig
	CatalogConfig
	SessionConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// CatalogConfig covers the third-party catalog API and its authorization server.
type CatalogConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetMarket() string
	GetCatalogBaseURL() string
	GetAuthorizeURL() string
	GetTokenURL() string
	GetUserAgent() string
	GetUpstreamTimeout() time.Duration
	GetCatalogRateLimit() float64
}

type SessionConfig interface {
	GetRedisURL() string
	GetSessionSigningKey() []byte
	GetSessionCookieMaxAge() time.Duration
	GetVerifierTTL() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Catalog
	Session
}

// New returns a Config backed by environment variables only.
func New() Config {
	return newConfig(values{})
}

// Load returns a Config backed by environment variables, falling back to the
// TOML file at path for anything the environment leaves unset.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	v, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return newConfig(v), nil
}

func newConfig(v values) Config {
	return mainConfig{
		EnvVars: EnvVars{v},
		Cors:    Cors{v},
		Catalog: Catalog{v},
		Session: Session{v},
	}
}

// values holds settings read from the config file, keyed by env var name.
type values map[string]string

func (v values) get(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value := v[envVar]; value != "" {
		return value
	}
	return defaultValue
}

func (v values) duration(envVar string, defaultValue time.Duration) time.Duration {
	raw := v.get(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
