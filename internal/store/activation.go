package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bioespinhanews/apiserver/types"
	"github.com/google/uuid"
)

const activationColumns = `id, user_id, used_at, expires_at, created_at, updated_at`

// ActivationRepository handles persistence for user activation tokens.
type ActivationRepository struct {
	db DBTX
}

func NewActivationRepository(db DBTX) *ActivationRepository {
	return &ActivationRepository{db: db}
}

func (r *ActivationRepository) Create(ctx context.Context, token types.ActivationToken, now time.Time) (types.ActivationToken, error) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO user_activation_tokens (id, user_id, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + activationColumns
	return scanActivation(r.db.QueryRowContext(ctx, query, token.ID, token.UserID, token.ExpiresAt, now))
}

// FindValidByID returns the token if it is unused and unexpired at now.
func (r *ActivationRepository) FindValidByID(ctx context.Context, id string, now time.Time) (types.ActivationToken, error) {
	const query = `
		SELECT ` + activationColumns + `
		FROM user_activation_tokens
		WHERE id = $1
		AND used_at IS NULL
		AND expires_at > $2
		LIMIT 1`
	return scanActivation(r.db.QueryRowContext(ctx, query, id, now))
}

// Consume marks the token used in a single conditional update. Of any number
// of concurrent calls for the same token at most one gets a row back; the
// rest see ErrNotFound, as do calls for unknown, used or expired tokens.
func (r *ActivationRepository) Consume(ctx context.Context, id string, now time.Time) (types.ActivationToken, error) {
	const query = `
		UPDATE user_activation_tokens
		SET used_at = $2,
			updated_at = $2
		WHERE id = $1
		AND used_at IS NULL
		AND expires_at > $2
		RETURNING ` + activationColumns
	return scanActivation(r.db.QueryRowContext(ctx, query, id, now))
}

func scanActivation(row *sql.Row) (types.ActivationToken, error) {
	var token types.ActivationToken
	var usedAt sql.NullTime
	err := row.Scan(
		&token.ID,
		&token.UserID,
		&usedAt,
		&token.ExpiresAt,
		&token.CreatedAt,
		&token.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ActivationToken{}, ErrNotFound
		}
		return types.ActivationToken{}, err
	}
	if usedAt.Valid {
		t := usedAt.Time
		token.UsedAt = &t
	}
	return token, nil
}
