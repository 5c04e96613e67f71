package sessions

import (
	"encoding/json"
	"time"

	"github.com/jrsteele09/riff-finder/oauthmodel"
)

// StorageKey namespaces every persisted user session.
const StorageKey = "riff_spotify_auth"

// UserSession is one end user's catalog credentials. It is only changed by a
// successful code exchange or refresh, and removed on disconnect or when a
// refresh is rejected.
type UserSession struct {
	AccessToken  string
	RefreshToken string // optional
	ExpiresAt    time.Time
}

// NewUserSession builds a session from a code-exchange response.
func NewUserSession(tr oauthmodel.TokenResponse, requestTime time.Time) UserSession {
	return UserSession{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    tr.ExpiresAt(requestTime),
	}
}

// Valid reports whether the access token can still be used at now.
func (s UserSession) Valid(now time.Time) bool {
	return s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// storedSession is the persisted record; expires_at is epoch milliseconds.
type storedSession struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

func (s UserSession) MarshalJSON() ([]byte, error) {
	return json.Marshal(storedSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.ExpiresAt.UnixMilli(),
	})
}

func (s *UserSession) UnmarshalJSON(data []byte) error {
	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		return err
	}
	s.AccessToken = stored.AccessToken
	s.RefreshToken = stored.RefreshToken
	s.ExpiresAt = time.UnixMilli(stored.ExpiresAt).UTC()
	return nil
}
