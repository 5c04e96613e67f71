package sessions

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/jrsteele09/riff-finder/oauthmodel"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// TokenRefresher performs the refresh-token grant (exchange.Service in production).
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenRelay, error)
}

// UserSessionStore hands out usable user access tokens, refreshing expired
// ones. Parallel requests on the same expired session share one refresh.
type UserSessionStore struct {
	repo      Repo
	refresher TokenRefresher
	nowFunc   func() time.Time
	logger    zerolog.Logger
	group     singleflight.Group
}

type StoreOption func(*UserSessionStore)

func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *UserSessionStore) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *UserSessionStore) {
		s.logger = logger
	}
}

func NewUserSessionStore(repo Repo, refresher TokenRefresher, opts ...StoreOption) *UserSessionStore {
	s := &UserSessionStore{
		repo:      repo,
		refresher: refresher,
		nowFunc:   time.Now,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect persists the session produced by a successful code exchange.
func (s *UserSessionStore) Connect(ctx context.Context, sessionID string, tr oauthmodel.TokenResponse, requestTime time.Time) error {
	if tr.AccessToken == "" {
		return oauthmodel.ErrMissingAccessToken
	}
	if err := s.repo.Upsert(ctx, sessionID, NewUserSession(tr, requestTime)); err != nil {
		return apperrors.Wrapf(err, "[UserSessionStore Connect] saving session")
	}
	return nil
}

// Disconnect destroys the persisted session.
func (s *UserSessionStore) Disconnect(ctx context.Context, sessionID string) error {
	return s.repo.Delete(ctx, sessionID)
}

// GetValidAccessToken returns a usable access token, or false when there is
// no usable session and the caller should fall back to the app token. It
// never returns an error.
func (s *UserSessionStore) GetValidAccessToken(ctx context.Context, sessionID string) (string, bool) {
	if sessionID == "" {
		return "", false
	}

	session, ok := s.load(ctx, sessionID)
	if !ok {
		return "", false
	}
	if session.Valid(s.nowFunc()) {
		return session.AccessToken, true
	}
	// Expired without a refresh token: unusable, but left in place
	if session.RefreshToken == "" {
		return "", false
	}

	result, _, _ := s.group.Do(sessionID, func() (any, error) {
		return s.refresh(ctx, sessionID), nil
	})
	token := result.(string)
	return token, token != ""
}

func (s *UserSessionStore) load(ctx context.Context, sessionID string) (UserSession, bool) {
	session, err := s.repo.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrSessionNotFound) {
			s.logger.Error().Err(err).Msg("failed to load user session")
		}
		return UserSession{}, false
	}
	return session, true
}

// refresh returns the new access token, or "" after destroying the session.
func (s *UserSessionStore) refresh(ctx context.Context, sessionID string) string {
	ctx = context.WithoutCancel(ctx)

	// Re-read: another refresh may have completed before this one was scheduled
	session, ok := s.load(ctx, sessionID)
	if !ok {
		return ""
	}
	if session.Valid(s.nowFunc()) {
		return session.AccessToken
	}
	if session.RefreshToken == "" {
		return ""
	}

	requestTime := s.nowFunc()
	relay, err := s.refresher.Refresh(ctx, session.RefreshToken)
	if err != nil {
		if _, rejected := apperrors.AsUpstream(err); rejected {
			s.disconnect(ctx, sessionID, err)
			return ""
		}
		// Transport or configuration failure: the refresh token may still be good
		s.logger.Warn().Err(err).Msg("user token refresh failed, keeping session")
		return ""
	}
	tr, err := relay.Decode()
	if err != nil {
		s.disconnect(ctx, sessionID, err)
		return ""
	}

	session.AccessToken = tr.AccessToken
	session.ExpiresAt = tr.ExpiresAt(requestTime)
	if tr.RefreshToken != "" {
		session.RefreshToken = tr.RefreshToken
	}
	if err := s.repo.Upsert(ctx, sessionID, session); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist refreshed session")
	}
	s.logger.Debug().Time("expires_at", session.ExpiresAt).Msg("user token refreshed")
	return session.AccessToken
}

// disconnect destroys a session whose refresh the authorization server rejected.
func (s *UserSessionStore) disconnect(ctx context.Context, sessionID string, cause error) {
	s.logger.Warn().Err(cause).Msg("user token refresh rejected, disconnecting session")
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		s.logger.Error().Err(err).Msg("failed to delete revoked session")
	}
}
