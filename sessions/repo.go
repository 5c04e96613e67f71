package sessions

import "context"

// Repo is the durable store behind UserSessionStore. Sessions survive page
// reloads and process restarts (for persistent backends).
type Repo interface {
	// Upsert creates or replaces the session stored under sessionID
	Upsert(ctx context.Context, sessionID string, session UserSession) error

	// Get returns errors.ErrSessionNotFound when nothing is stored
	Get(ctx context.Context, sessionID string) (UserSession, error)

	// Delete is a no-op for unknown ids
	Delete(ctx context.Context, sessionID string) error
}
