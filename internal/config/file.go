package config

import (
	"fmt"
	"strconv"

	"github.com/BurntSushi/toml"
)

// fileConfig mirrors the TOML config file layout.
type fileConfig struct {
	Server struct {
		Port           string `toml:"port"`
		AppName        string `toml:"app_name"`
		Env            string `toml:"env"`
		BaseURL        string `toml:"base_url"`
		LogLevel       string `toml:"log_level"`
		AllowedOrigins string `toml:"allowed_origins"`
	} `toml:"server"`
	Spotify struct {
		ClientID        string  `toml:"client_id"`
		ClientSecret    string  `toml:"client_secret"`
		RedirectURI     string  `toml:"redirect_uri"`
		Market          string  `toml:"market"`
		CatalogBaseURL  string  `toml:"catalog_base_url"`
		AuthorizeURL    string  `toml:"authorize_url"`
		TokenURL        string  `toml:"token_url"`
		UserAgent       string  `toml:"user_agent"`
		UpstreamTimeout string  `toml:"upstream_timeout"`
		RateLimit       float64 `toml:"rate_limit"`
	} `toml:"spotify"`
	Session struct {
		RedisURL     string `toml:"redis_url"`
		SigningKey   string `toml:"signing_key"`
		CookieMaxAge string `toml:"cookie_max_age"`
		VerifierTTL  string `toml:"verifier_ttl"`
	} `toml:"session"`
}

func readFile(path string) (values, error) {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("[config readFile] failed to parse %s: %w", path, err)
	}

	v := values{
		portEnvVar:        fc.Server.Port,
		appNameVar:        fc.Server.AppName,
		envEnvVar:         fc.Server.Env,
		baseURLVar:        fc.Server.BaseURL,
		logLevelEnvVar:    fc.Server.LogLevel,
		allowedOriginsVar: fc.Server.AllowedOrigins,
		clientIDVar:       fc.Spotify.ClientID,
		clientSecretVar:   fc.Spotify.ClientSecret,
		redirectURIVar:    fc.Spotify.RedirectURI,
		marketVar:         fc.Spotify.Market,
		catalogBaseURLVar: fc.Spotify.CatalogBaseURL,
		authorizeURLVar:   fc.Spotify.AuthorizeURL,
		tokenURLVar:       fc.Spotify.TokenURL,
		userAgentVar:      fc.Spotify.UserAgent,
		upstreamTimeout:   fc.Spotify.UpstreamTimeout,
		redisURLVar:       fc.Session.RedisURL,
		signingKeyVar:     fc.Session.SigningKey,
		cookieMaxAgeVar:   fc.Session.CookieMaxAge,
		verifierTTLVar:    fc.Session.VerifierTTL,
	}
	if fc.Spotify.RateLimit > 0 {
		v[catalogRateLimit] = strconv.FormatFloat(fc.Spotify.RateLimit, 'f', -1, 64)
	}
	return v, nil
}
