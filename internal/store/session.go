package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bioespinhanews/apiserver/types"
	"github.com/google/uuid"
)

const sessionColumns = `id, token, user_id, expires_at, created_at, updated_at`

// SessionRepository handles persistence for sessions. Rows are never
// deleted; Revoke moves expires_at into the past.
type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session types.Session, now time.Time) (types.Session, error) {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO sessions (id, token, user_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRowContext(
		ctx,
		query,
		session.ID,
		session.Token,
		session.UserID,
		session.ExpiresAt,
		now,
	))
}

// FindValidByToken returns the session holding token if it expires strictly
// after now.
func (r *SessionRepository) FindValidByToken(ctx context.Context, token string, now time.Time) (types.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE token = $1
		AND expires_at > $2
		LIMIT 1`
	return scanSession(r.db.QueryRowContext(ctx, query, token, now))
}

// Renew sets expires_at on a session that is still valid at now. Revoked or
// expired sessions are not touched and yield ErrNotFound. Concurrent
// renewals are last-write-wins.
func (r *SessionRepository) Renew(ctx context.Context, id string, expiresAt, now time.Time) (types.Session, error) {
	const query = `
		UPDATE sessions
		SET expires_at = $2,
			updated_at = $3
		WHERE id = $1
		AND expires_at > $3
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRowContext(ctx, query, id, expiresAt, now))
}

// Revoke moves expires_at one year before the earlier of its current value
// and created_at, so the result always precedes created_at.
func (r *SessionRepository) Revoke(ctx context.Context, id string, now time.Time) (types.Session, error) {
	const query = `
		UPDATE sessions
		SET expires_at = LEAST(expires_at, created_at) - interval '1 year',
			updated_at = $2
		WHERE id = $1
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRowContext(ctx, query, id, now))
}

func scanSession(row *sql.Row) (types.Session, error) {
	var session types.Session
	err := row.Scan(
		&session.ID,
		&session.Token,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Session{}, ErrNotFound
		}
		return types.Session{}, err
	}
	return session, nil
}
