package handlers

import (
	"context"
	"net/http"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/bioespinhanews/apiserver/internal/authz"
	"github.com/bioespinhanews/apiserver/internal/services"
	"github.com/bioespinhanews/apiserver/types"
)

type contextKey string

const contextSubjectKey contextKey = "subject"

// WithSubject stores subject in ctx.
func WithSubject(ctx context.Context, subject authz.Subject) context.Context {
	return context.WithValue(ctx, contextSubjectKey, subject)
}

// SubjectFromContext returns the subject injected for the request, or the
// anonymous subject when none was injected.
func SubjectFromContext(ctx context.Context) authz.Subject {
	if subject, ok := ctx.Value(contextSubjectKey).(authz.Subject); ok {
		return subject
	}
	return authz.Anonymous()
}

// SessionValidator resolves a session token.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (types.Session, error)
}

// UserFinder loads users by id.
type UserFinder interface {
	GetByID(ctx context.Context, id string) (types.User, error)
}

// Middleware resolves the caller and gates routes on features.
type Middleware struct {
	*Responder
	sessions SessionValidator
	users    UserFinder
}

func NewMiddleware(rs *Responder, sessions SessionValidator, users UserFinder) *Middleware {
	return &Middleware{Responder: rs, sessions: sessions, users: users}
}

// InjectSubject resolves the session cookie into an authenticated subject.
// Requests without the cookie proceed as anonymous; requests with an
// invalid or expired session are rejected.
func (m *Middleware) InjectSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), authz.Anonymous())))
			return
		}

		session, err := m.sessions.Validate(r.Context(), token)
		if err != nil {
			m.Error(w, r, err)
			return
		}
		user, err := sessionUser(r.Context(), m.users, session.UserID)
		if err != nil {
			m.Error(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSubject(r.Context(), authz.Authenticated(user))))
	})
}

// CanRequest rejects callers whose subject lacks feature.
func (m *Middleware) CanRequest(feature string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := authz.Require(SubjectFromContext(r.Context()), feature, nil); err != nil {
				m.Error(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// sessionUser loads the owner of a valid session. A session whose user no
// longer exists is treated as an invalid session.
func sessionUser(ctx context.Context, users UserFinder, userID string) (types.User, error) {
	user, err := users.GetByID(ctx, userID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return types.User{}, services.ErrSessionInvalid
	}
	return user, err
}
