package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/internal/observability"
	"github.com/bioespinhanews/apiserver/internal/store"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/google/uuid"
)

const (
	// SessionTTL is how long a session stays valid after creation or renewal.
	SessionTTL = 30 * 24 * time.Hour

	sessionTokenBytes = 48
)

// ErrSessionInvalid is returned for unknown, expired or revoked sessions.
var ErrSessionInvalid = apperr.Unauthorized("Session verification failed.", "Verify provided token.")

// SessionRepository defines persistence operations for sessions.
type SessionRepository interface {
	Create(ctx context.Context, session types.Session, now time.Time) (types.Session, error)
	FindValidByToken(ctx context.Context, token string, now time.Time) (types.Session, error)
	Renew(ctx context.Context, id string, expiresAt, now time.Time) (types.Session, error)
	Revoke(ctx context.Context, id string, now time.Time) (types.Session, error)
}

// SessionService issues and manages opaque session tokens.
type SessionService struct {
	repo    SessionRepository
	metrics *observability.Metrics
	now     func() time.Time
}

func NewSessionService(repo SessionRepository, metrics *observability.Metrics) *SessionService {
	return &SessionService{repo: repo, metrics: metrics, now: time.Now}
}

// Create issues a new session for userID. The returned value is the only
// place the raw token is exposed.
func (s *SessionService) Create(ctx context.Context, userID string) (types.Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return types.Session{}, apperr.Internal(err)
	}

	now := s.now()
	session, err := s.repo.Create(ctx, types.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: now.Add(SessionTTL),
	}, now)
	if err != nil {
		return types.Session{}, err
	}
	s.metrics.SessionEvent("created")
	return session, nil
}

// Validate returns the session holding token if it has not expired.
func (s *SessionService) Validate(ctx context.Context, token string) (types.Session, error) {
	if token == "" {
		s.metrics.SessionEvent("rejected")
		return types.Session{}, ErrSessionInvalid
	}
	session, err := s.repo.FindValidByToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.SessionEvent("rejected")
			return types.Session{}, ErrSessionInvalid
		}
		return types.Session{}, err
	}
	return session, nil
}

// Renew pushes the session's expiry to now + SessionTTL.
func (s *SessionService) Renew(ctx context.Context, sessionID string) (types.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return types.Session{}, ErrSessionInvalid
	}
	now := s.now()
	session, err := s.repo.Renew(ctx, sessionID, now.Add(SessionTTL), now)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Session{}, ErrSessionInvalid
		}
		return types.Session{}, err
	}
	s.metrics.SessionEvent("renewed")
	return session, nil
}

// Revoke expires the session without deleting it.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) (types.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return types.Session{}, ErrSessionInvalid
	}
	session, err := s.repo.Revoke(ctx, sessionID, s.now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Session{}, ErrSessionInvalid
		}
		return types.Session{}, err
	}
	s.metrics.SessionEvent("revoked")
	return session, nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
