package auth

import (
	"context"
	"log"
	"sync"
	"time"

	"monthly-quiz-service/internal/backoff"
)

// SessionManager owns the periodic session-liveness refresh with an explicit
// Start/Stop lifecycle so teardown never leaks a ticker. The refresh timer is
// re-armed after every sweep and after every auth state change (Track/Forget).
type SessionManager struct {
	sessions SessionStore
	ttl      time.Duration
	interval time.Duration
	retry    backoff.Policy

	mu      sync.Mutex
	tracked map[string]struct{}
	started bool

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewSessionManager(sessions SessionStore, ttl, interval time.Duration) *SessionManager {
	return &SessionManager{
		sessions: sessions,
		ttl:      ttl,
		interval: interval,
		retry:    backoff.Policy{Attempts: 3, Base: 100 * time.Millisecond, Cap: time.Second},
		tracked:  make(map[string]struct{}),
		kick:     make(chan struct{}, 1),
	}
}

// Start launches the refresh loop. Calling Start twice is a no-op.
func (m *SessionManager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
}

// Stop tears the loop down and waits for it to exit.
func (m *SessionManager) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	stop, done := m.stop, m.done
	m.mu.Unlock()

	close(stop)
	<-done
}

// Track registers a freshly opened session for periodic refresh.
func (m *SessionManager) Track(token string) {
	m.mu.Lock()
	m.tracked[token] = struct{}{}
	m.mu.Unlock()
	m.rearm()
}

// Forget drops a session from the refresh set (logout or refresh failure).
func (m *SessionManager) Forget(token string) {
	m.mu.Lock()
	delete(m.tracked, token)
	m.mu.Unlock()
	m.rearm()
}

func (m *SessionManager) rearm() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

func (m *SessionManager) loop(stop, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(m.interval)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-m.kick:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(m.interval)
		case <-timer.C:
			m.sweep()
			timer.Reset(m.interval)
		}
	}
}

func (m *SessionManager) sweep() {
	m.mu.Lock()
	tokens := make([]string, 0, len(m.tracked))
	for token := range m.tracked {
		tokens = append(tokens, token)
	}
	m.mu.Unlock()

	ctx := context.Background()
	for _, token := range tokens {
		token := token
		err := m.retry.Retry(ctx, func(ctx context.Context) error {
			return m.sessions.Refresh(ctx, token, m.ttl)
		})
		if err != nil {
			log.Printf("session refresh failed, dropping session: %v", err)
			m.Forget(token)
		}
	}
}
