package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monthly-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps admin session tokens in Redis with a TTL, so sessions
// survive process restarts and expire on their own.
type SessionStore struct {
	client *redis.Client
	prefix string
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client, prefix: "admin:session:"}
}

func (s *SessionStore) Put(ctx context.Context, token, email string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+token, email, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token string) (string, error) {
	email, err := s.client.Get(ctx, s.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return "", domain.ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return email, nil
}

func (s *SessionStore) Refresh(ctx context.Context, token string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, s.prefix+token, ttl).Result()
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if !ok {
		return domain.ErrUnauthenticated
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.prefix+token).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
