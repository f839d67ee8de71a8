package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bioespinhanews/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionRowCols = []string{"id", "token", "user_id", "expires_at", "created_at", "updated_at"}

func TestSessionCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)
	expires := testNow.Add(30 * 24 * time.Hour)

	mock.ExpectQuery(`INSERT INTO sessions \(id, token, user_id, expires_at, created_at, updated_at\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$5\)`).
		WithArgs(sqlmock.AnyArg(), "tok", "u-1", expires, testNow).
		WillReturnRows(sqlmock.NewRows(sessionRowCols).AddRow("s-1", "tok", "u-1", expires, testNow, testNow))

	s, err := repo.Create(context.Background(), types.Session{Token: "tok", UserID: "u-1", ExpiresAt: expires}, testNow)
	require.NoError(t, err)
	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, expires, s.ExpiresAt)
}

func TestSessionFindValidByToken_StrictExpiry(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`SELECT .* FROM sessions WHERE token = \$1 AND expires_at > \$2`).
		WithArgs("tok", testNow).
		WillReturnRows(sqlmock.NewRows(sessionRowCols))

	_, err := repo.FindValidByToken(context.Background(), "tok", testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRenew(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)
	expires := testNow.Add(30 * 24 * time.Hour)

	mock.ExpectQuery(`UPDATE sessions SET expires_at = \$2, updated_at = \$3 WHERE id = \$1 AND expires_at > \$3`).
		WithArgs("s-1", expires, testNow).
		WillReturnRows(sqlmock.NewRows(sessionRowCols).AddRow("s-1", "tok", "u-1", expires, testNow.Add(-time.Hour), testNow))

	s, err := repo.Renew(context.Background(), "s-1", expires, testNow)
	require.NoError(t, err)
	assert.Equal(t, expires, s.ExpiresAt)
	assert.Equal(t, testNow, s.UpdatedAt)
}

func TestSessionRenew_SkipsInvalidSession(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)
	expires := testNow.Add(30 * 24 * time.Hour)

	mock.ExpectQuery(`UPDATE sessions SET expires_at = \$2, updated_at = \$3 WHERE id = \$1 AND expires_at > \$3`).
		WithArgs("s-1", expires, testNow).
		WillReturnRows(sqlmock.NewRows(sessionRowCols))

	_, err := repo.Renew(context.Background(), "s-1", expires, testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRevoke(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)
	created := testNow.Add(-time.Hour)
	revokedAt := created.AddDate(-1, 0, 0)

	mock.ExpectQuery(`UPDATE sessions SET expires_at = LEAST\(expires_at, created_at\) - interval '1 year', updated_at = \$2 WHERE id = \$1`).
		WithArgs("s-1", testNow).
		WillReturnRows(sqlmock.NewRows(sessionRowCols).AddRow("s-1", "tok", "u-1", revokedAt, created, testNow))

	s, err := repo.Revoke(context.Background(), "s-1", testNow)
	require.NoError(t, err)
	assert.True(t, s.ExpiresAt.Before(s.CreatedAt))
}

func TestSessionRevoke_Unknown(t *testing.T) {
	db, mock := newMock(t)
	repo := NewSessionRepository(db)

	mock.ExpectQuery(`UPDATE sessions`).WillReturnRows(sqlmock.NewRows(sessionRowCols))

	_, err := repo.Revoke(context.Background(), "missing", testNow)
	assert.ErrorIs(t, err, ErrNotFound)
}
