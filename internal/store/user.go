package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/bioespinhanews/apiserver/types"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, username, email, password, features, created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(username) = LOWER($1)
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
		LIMIT 1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

// Create inserts user, lowercasing username and email. ID and timestamps
// are assigned here.
func (r *UserRepository) Create(ctx context.Context, user types.User, now time.Time) (types.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Features == nil {
		user.Features = []string{}
	}

	const query = `
		INSERT INTO users (id, username, email, password, features, created_at, updated_at)
		VALUES ($1, LOWER($2), LOWER($3), $4, $5, $6, $6)
		RETURNING ` + userColumns
	created, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		pq.Array(user.Features),
		now,
	))
	if err != nil {
		return types.User{}, translateUserWriteErr(err)
	}
	return created, nil
}

// Update overwrites username, email and password of an existing user.
func (r *UserRepository) Update(ctx context.Context, user types.User, now time.Time) (types.User, error) {
	const query = `
		UPDATE users
		SET username = LOWER($2),
			email = LOWER($3),
			password = $4,
			updated_at = $5
		WHERE id = $1
		RETURNING ` + userColumns
	updated, err := scanUser(r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		now,
	))
	if err != nil {
		return types.User{}, translateUserWriteErr(err)
	}
	return updated, nil
}

// ReplaceFeaturesIfHeld replaces the user's whole feature set with features,
// but only while the user still holds required. The check and the write are
// one statement, so concurrent callers cannot both succeed. ErrNotFound means
// the predicate matched nothing.
func (r *UserRepository) ReplaceFeaturesIfHeld(ctx context.Context, id, required string, features []string, now time.Time) (types.User, error) {
	const query = `
		UPDATE users
		SET features = $2,
			updated_at = $3
		WHERE id = $1
		AND $4 = ANY(features)
		RETURNING ` + userColumns
	return scanUser(r.db.QueryRowContext(ctx, query, id, pq.Array(features), now, required))
}

func scanUser(row *sql.Row) (types.User, error) {
	var user types.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		pq.Array(&user.Features),
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if user.Features == nil {
		user.Features = []string{}
	}
	return user, nil
}
