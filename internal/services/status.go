package services

import (
	"context"
	"time"

	"github.com/bioespinhanews/apiserver/internal/store"
)

// StatusRepository reports database diagnostics.
type StatusRepository interface {
	Database(ctx context.Context, dbName string) (store.DatabaseStatus, error)
}

// Status is the payload of the status endpoint.
type Status struct {
	Status       string       `json:"status"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Dependencies Dependencies `json:"dependencies"`
}

type Dependencies struct {
	Database store.DatabaseStatus `json:"database"`
}

// StatusService reports the health of the API's dependencies.
type StatusService struct {
	repo   StatusRepository
	dbName string
	now    func() time.Time
}

func NewStatusService(repo StatusRepository, dbName string) *StatusService {
	return &StatusService{repo: repo, dbName: dbName, now: time.Now}
}

func (s *StatusService) Get(ctx context.Context) (Status, error) {
	db, err := s.repo.Database(ctx, s.dbName)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Status:       "ok",
		UpdatedAt:    s.now().UTC(),
		Dependencies: Dependencies{Database: db},
	}, nil
}
