package store

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql used by the repositories.
// Both *sql.DB and *sql.Tx satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store groups the repositories over one handle.
type Store struct {
	db          *sql.DB
	Users       *UserRepository
	Sessions    *SessionRepository
	Activations *ActivationRepository
	Status      *StatusRepository
}

// New builds a Store on db. The caller owns db.
func New(db *sql.DB) *Store {
	s := bind(db)
	s.db = db
	return s
}

func bind(h DBTX) *Store {
	return &Store{
		Users:       NewUserRepository(h),
		Sessions:    NewSessionRepository(h),
		Activations: NewActivationRepository(h),
		Status:      NewStatusRepository(h),
	}
}

// WithTx runs fn with repositories bound to a single transaction. It commits
// when fn returns nil and rolls back on error or panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(bind(tx))
}
