package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationStatus describes the schema state of a database.
type MigrationStatus struct {
	Version uint   `json:"version"`
	Dirty   bool   `json:"dirty"`
	Pending []uint `json:"pending"`
}

// Migrator applies the embedded SQL migrations.
type Migrator struct {
	m *migrate.Migrate
}

// NewMigrator binds the embedded migrations to an open database. Closing the
// migrator does not close db.
func NewMigrator(db *sql.DB) (*Migrator, error) {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "schema_migrations"})
	if err != nil {
		return nil, fmt.Errorf("open migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("init migrator failed: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Status reports the applied version and any migrations not yet applied.
func (m *Migrator) Status() (MigrationStatus, error) {
	version, dirty, err := m.m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, err
	}
	all, err := availableVersions()
	if err != nil {
		return MigrationStatus{}, err
	}
	pending := make([]uint, 0, len(all))
	for _, v := range all {
		if v > version {
			pending = append(pending, v)
		}
	}
	return MigrationStatus{Version: version, Dirty: dirty, Pending: pending}, nil
}

// Up applies all pending migrations and returns the versions applied.
func (m *Migrator) Up() ([]uint, error) {
	before, err := m.Status()
	if err != nil {
		return nil, err
	}
	if err := m.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return []uint{}, nil
		}
		return nil, fmt.Errorf("migrate up failed: %w", err)
	}
	return before.Pending, nil
}

// Close releases the migration source. The database handle stays open.
func (m *Migrator) Close() error {
	srcErr, _ := m.m.Close()
	return srcErr
}

func availableVersions() ([]uint, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]struct{})
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, ok := strings.Cut(name, "_")
		if !ok {
			continue
		}
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", name, err)
		}
		seen[uint(v)] = struct{}{}
	}
	versions := make([]uint, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions, nil
}

// Migrations runs the embedded migrations against db, opening a fresh
// Migrator for each call.
type Migrations struct {
	db *sql.DB
}

func NewMigrations(db *sql.DB) *Migrations {
	return &Migrations{db: db}
}

func (m *Migrations) Status() (MigrationStatus, error) {
	migrator, err := NewMigrator(m.db)
	if err != nil {
		return MigrationStatus{}, err
	}
	defer migrator.Close()
	return migrator.Status()
}

func (m *Migrations) Up() ([]uint, error) {
	migrator, err := NewMigrator(m.db)
	if err != nil {
		return nil, err
	}
	defer migrator.Close()
	return migrator.Up()
}
