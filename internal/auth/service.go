package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"monthly-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrPasswordTooShort rejects passwords under 8 characters at signup.
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	// ErrPasswordMismatch rejects a signup whose confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
)

// AdminStore is the admins table as seen by the auth flows.
type AdminStore interface {
	AdminByEmail(ctx context.Context, email string) (domain.Admin, error)
	CreateFirstAdmin(ctx context.Context, admin *domain.Admin) error
	UpdatePassword(ctx context.Context, email string, hash []byte) error
}

// SessionStore tracks live session tokens (in-memory or Redis).
type SessionStore interface {
	Put(ctx context.Context, token, email string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
	Refresh(ctx context.Context, token string, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

// Service implements login, first-admin signup, logout, password reset and
// the fail-closed admin guard.
type Service struct {
	admins     AdminStore
	sessions   SessionStore
	secret     []byte
	sessionTTL time.Duration
	resetTTL   time.Duration
	now        func() time.Time
	newID      func() string
}

func NewService(admins AdminStore, sessions SessionStore, secret string, sessionTTL time.Duration) *Service {
	return &Service{
		admins:     admins,
		sessions:   sessions,
		secret:     []byte(secret),
		sessionTTL: sessionTTL,
		resetTTL:   15 * time.Minute,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// WithClock is test-only for deterministic token expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type claims struct {
	Purpose string `json:"purpose,omitempty"`
	jwt.RegisteredClaims
}

// Signup creates the one bootstrap admin account. It fails with
// domain.ErrAdminExists once any admin row exists.
func (s *Service) Signup(ctx context.Context, email, password, confirm string) (domain.Admin, error) {
	email = strings.TrimSpace(email)
	if password != confirm {
		return domain.Admin{}, ErrPasswordMismatch
	}
	if len(password) < 8 {
		return domain.Admin{}, ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Admin{}, fmt.Errorf("hash password: %w", err)
	}
	admin := domain.Admin{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.admins.CreateFirstAdmin(ctx, &admin); err != nil {
		return domain.Admin{}, err
	}
	return admin, nil
}

// Login verifies credentials and opens a tracked session. Bad email and bad
// password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	admin, err := s.admins.AdminByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.signToken(admin.Email, "", s.sessionTTL)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Put(ctx, token, admin.Email, s.sessionTTL); err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	return token, nil
}

// Authorize is the route guard: the token must verify, the session must still
// be live, and the email must be listed in the admins table. Any failure in
// either lookup means not authorized.
func (s *Service) Authorize(ctx context.Context, token string) (domain.Admin, error) {
	email, err := s.verifyToken(token, "")
	if err != nil {
		return domain.Admin{}, domain.ErrUnauthenticated
	}
	stored, err := s.sessions.Get(ctx, token)
	if err != nil || stored != email {
		return domain.Admin{}, domain.ErrUnauthenticated
	}
	admin, err := s.admins.AdminByEmail(ctx, email)
	if err != nil {
		return domain.Admin{}, domain.ErrNotAdmin
	}
	return admin, nil
}

// Logout drops the session; the token is dead even if its expiry lies ahead.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// IssueResetToken returns a short-lived password-reset token for an admin
// email. Delivery of the token (mail) is outside this service.
func (s *Service) IssueResetToken(ctx context.Context, email string) (string, error) {
	admin, err := s.admins.AdminByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	return s.signToken(admin.Email, "reset", s.resetTTL)
}

// ResetPassword consumes a reset token and stores the new password hash.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	email, err := s.verifyToken(token, "reset")
	if err != nil {
		return domain.ErrUnauthenticated
	}
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.admins.UpdatePassword(ctx, email, hash)
}

func (s *Service) signToken(email, purpose string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        s.newID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Service) verifyToken(raw, purpose string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return s.now() }))
	if err != nil || !token.Valid {
		return "", domain.ErrUnauthenticated
	}
	if c.Purpose != purpose {
		return "", domain.ErrUnauthenticated
	}
	if c.Subject == "" {
		return "", domain.ErrUnauthenticated
	}
	return c.Subject, nil
}
