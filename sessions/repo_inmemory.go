package sessions

import (
	"context"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
)

// InMemoryRepo is a process-local Repo, used in development and tests
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]UserSession // sessionID -> UserSession
}

var _ Repo = (*InMemoryRepo)(nil)

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]UserSession),
	}
}

func (r *InMemoryRepo) Upsert(_ context.Context, sessionID string, session UserSession) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = session
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, sessionID string) (UserSession, error) {
	if sessionID == "" {
		return UserSession{}, fmt.Errorf("sessionID is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[sessionID]
	if !ok {
		return UserSession{}, apperrors.ErrSessionNotFound
	}
	return session, nil
}

func (r *InMemoryRepo) Delete(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}
