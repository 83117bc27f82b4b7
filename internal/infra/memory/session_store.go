package memory

import (
	"context"
	"sync"
	"time"

	"monthly-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of auth.SessionStore with
// per-token expiry.
type SessionStore struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]session
}

type session struct {
	email     string
	expiresAt time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		now:      time.Now,
		sessions: make(map[string]session),
	}
}

// WithClock is test-only for deterministic expiry.
func (s *SessionStore) WithClock(now func() time.Time) *SessionStore {
	s.now = now
	return s
}

func (s *SessionStore) Put(_ context.Context, token, email string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = session{email: email, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *SessionStore) Get(_ context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return "", domain.ErrUnauthenticated
	}
	return sess.email, nil
}

func (s *SessionStore) Refresh(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || s.now().After(sess.expiresAt) {
		delete(s.sessions, token)
		return domain.ErrUnauthenticated
	}
	sess.expiresAt = s.now().Add(ttl)
	s.sessions[token] = sess
	return nil
}

func (s *SessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
