package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/riff-finder/internal/errors"
	"github.com/redis/go-redis/v9"
)

// RedisRepo stores sessions as JSON records under "<StorageKey>:<sessionID>".
type RedisRepo struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Repo = (*RedisRepo)(nil)

// NewRedisRepo connects using a redis:// URL. ttl bounds how long an idle
// session (and its refresh token) is retained; zero keeps it indefinitely.
func NewRedisRepo(redisURL string, ttl time.Duration) (*RedisRepo, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("[sessions NewRedisRepo] invalid redis url: %w", err)
	}
	return NewRedisRepoFromClient(redis.NewClient(opt), ttl), nil
}

func NewRedisRepoFromClient(client *redis.Client, ttl time.Duration) *RedisRepo {
	return &RedisRepo{client: client, ttl: ttl}
}

func (r *RedisRepo) key(sessionID string) string {
	return StorageKey + ":" + sessionID
}

func (r *RedisRepo) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepo) Close() error {
	return r.client.Close()
}

func (r *RedisRepo) Upsert(ctx context.Context, sessionID string, session UserSession) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("[RedisRepo Upsert] marshal: %w", err)
	}
	if err := r.client.Set(ctx, r.key(sessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Upsert] %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, sessionID string) (UserSession, error) {
	if sessionID == "" {
		return UserSession{}, fmt.Errorf("sessionID is required")
	}
	data, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return UserSession{}, apperrors.ErrSessionNotFound
	}
	if err != nil {
		return UserSession{}, fmt.Errorf("[RedisRepo Get] %w", err)
	}

	var session UserSession
	if err := json.Unmarshal(data, &session); err != nil {
		return UserSession{}, fmt.Errorf("[RedisRepo Get] corrupt session record: %w", err)
	}
	return session, nil
}

func (r *RedisRepo) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID is required")
	}
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("[RedisRepo Delete] %w", err)
	}
	return nil
}
