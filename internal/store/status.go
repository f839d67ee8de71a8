package store

import (
	"context"
	"fmt"
	"strconv"
)

// DatabaseStatus describes the Postgres server backing the store.
type DatabaseStatus struct {
	Version         string `json:"version"`
	MaxConnections  int    `json:"max_connections"`
	UsedConnections int    `json:"used_connections"`
}

// StatusRepository reads server-level diagnostics.
type StatusRepository struct {
	db DBTX
}

func NewStatusRepository(db DBTX) *StatusRepository {
	return &StatusRepository{db: db}
}

// Database reports the server version, the connection limit and the number
// of connections open against dbName.
func (r *StatusRepository) Database(ctx context.Context, dbName string) (DatabaseStatus, error) {
	var status DatabaseStatus

	if err := r.db.QueryRowContext(ctx, `SHOW server_version;`).Scan(&status.Version); err != nil {
		return DatabaseStatus{}, fmt.Errorf("server version: %w", err)
	}

	var maxConns string
	if err := r.db.QueryRowContext(ctx, `SHOW max_connections;`).Scan(&maxConns); err != nil {
		return DatabaseStatus{}, fmt.Errorf("max connections: %w", err)
	}
	n, err := strconv.Atoi(maxConns)
	if err != nil {
		return DatabaseStatus{}, fmt.Errorf("max connections %q: %w", maxConns, err)
	}
	status.MaxConnections = n

	const query = `SELECT count(*)::int FROM pg_stat_activity WHERE datname = $1;`
	if err := r.db.QueryRowContext(ctx, query, dbName).Scan(&status.UsedConnections); err != nil {
		return DatabaseStatus{}, fmt.Errorf("used connections: %w", err)
	}
	return status, nil
}
