package handlers

import (
	"context"
	"net/http"

	"github.com/bioespinhanews/apiserver/internal/db"
	"github.com/bioespinhanews/apiserver/internal/services"
)

// StatusReporter reports dependency health.
type StatusReporter interface {
	Get(ctx context.Context) (services.Status, error)
}

// MigrationRunner inspects and applies schema migrations.
type MigrationRunner interface {
	Status() (db.MigrationStatus, error)
	Up() ([]uint, error)
}

type StatusHandler struct {
	*Responder
	status     StatusReporter
	migrations MigrationRunner
}

func NewStatusHandler(rs *Responder, status StatusReporter, migrations MigrationRunner) *StatusHandler {
	return &StatusHandler{Responder: rs, status: status, migrations: migrations}
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.status.Get(r.Context())
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, status)
}

func (h *StatusHandler) ListMigrations(w http.ResponseWriter, r *http.Request) {
	status, err := h.migrations.Status()
	if err != nil {
		h.Error(w, r, err)
		return
	}
	h.JSON(w, http.StatusOK, status)
}

// RunMigrations applies pending migrations; 201 when any were applied.
func (h *StatusHandler) RunMigrations(w http.ResponseWriter, r *http.Request) {
	applied, err := h.migrations.Up()
	if err != nil {
		h.Error(w, r, err)
		return
	}
	status := http.StatusOK
	if len(applied) > 0 {
		status = http.StatusCreated
	}
	h.JSON(w, status, MigrationsResponse{Applied: applied})
}

type MigrationsResponse struct {
	Applied []uint `json:"applied"`
}
