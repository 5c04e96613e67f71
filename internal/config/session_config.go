package config

import (
	"crypto/sha256"
	"io"
	"time"

	"golang.org/x/crypto/hkdf"
)

const (
	redisURLVar      = "REDIS_URL"
	signingKeyVar    = "SESSION_SIGNING_KEY"
	cookieMaxAgeVar  = "SESSION_COOKIE_MAX_AGE"
	verifierTTLVar   = "PKCE_VERIFIER_TTL"
	signingKeyLength = 32
	signingKeyInfo   = "riff-finder session cookie"
)

type Session struct {
	v values
}

var _ SessionConfig = Session{}

// GetRedisURL selects the durable session store; empty means in-memory
func (s Session) GetRedisURL() string {
	return s.v.get(redisURLVar, "")
}

// GetSessionSigningKey returns the session cookie HMAC key. When no key is
// configured it is derived from the client secret, and nil is returned if
// neither is set.
func (s Session) GetSessionSigningKey() []byte {
	if key := s.v.get(signingKeyVar, ""); key != "" {
		return []byte(key)
	}
	secret := Catalog(s).GetClientSecret()
	if secret == "" {
		return nil
	}
	key := make([]byte, signingKeyLength)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(signingKeyInfo)), key); err != nil {
		return nil
	}
	return key
}

func (s Session) GetSessionCookieMaxAge() time.Duration {
	return s.v.duration(cookieMaxAgeVar, 30*24*time.Hour)
}

func (s Session) GetVerifierTTL() time.Duration {
	return s.v.duration(verifierTTLVar, 10*time.Minute)
}
