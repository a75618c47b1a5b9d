package database

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/logger"
)

//go:embed sql/*.sql
var migrationFiles embed.FS

const migrationSuffix = ".up.sql"

// Migration is one embedded schema step
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrator applies the embedded schema steps in version order. Applied
// versions are recorded in schema_migrations.
type Migrator struct {
	db         *sql.DB
	logger     *logger.Logger
	migrations []Migration
}

// NewMigrator loads the embedded migrations. db may be nil when only the
// loaded set is inspected.
func NewMigrator(db *sql.DB, log *logger.Logger) (*Migrator, error) {
	if log == nil {
		log = logger.Nop()
	}
	migrations, err := loadMigrations(migrationFiles)
	if err != nil {
		return nil, err
	}
	return &Migrator{
		db:         db,
		logger:     log.WithComponent("migrations"),
		migrations: migrations,
	}, nil
}

// parseMigrationFile splits "000001_create_sensor_readings.up.sql" into its
// version and name
func parseMigrationFile(filename string) (int, string, bool) {
	if !strings.HasSuffix(filename, migrationSuffix) {
		return 0, "", false
	}
	prefix, name, found := strings.Cut(strings.TrimSuffix(filename, migrationSuffix), "_")
	if !found || name == "" {
		return 0, "", false
	}
	version, err := strconv.Atoi(prefix)
	if err != nil || version <= 0 {
		return 0, "", false
	}
	return version, name, true
}

func loadMigrations(fsys fs.FS) ([]Migration, error) {
	files, err := fs.Glob(fsys, "sql/*"+migrationSuffix)
	if err != nil {
		return nil, errors.Wrap(err, "list migrations")
	}

	migrations := make([]Migration, 0, len(files))
	seen := make(map[int]string, len(files))
	for _, file := range files {
		version, name, ok := parseMigrationFile(path.Base(file))
		if !ok {
			return nil, errors.Errorf("malformed migration file name %s", file)
		}
		if other, dup := seen[version]; dup {
			return nil, errors.Errorf("migration version %d used by %s and %s", version, other, name)
		}
		seen[version] = name

		body, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, errors.Wrapf(err, "read migration %s", file)
		}
		migrations = append(migrations, Migration{Version: version, Name: name, SQL: string(body)})
	}

	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func (m *Migrator) ensureVersionTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    integer PRIMARY KEY,
		name       text NOT NULL,
		applied_at timestamptz NOT NULL DEFAULT now()
	)`)
	return errors.Wrap(err, "create schema_migrations")
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, errors.Wrap(err, "query schema_migrations")
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, errors.Wrap(err, "scan schema_migrations")
		}
		applied[v] = true
	}
	return applied, errors.Wrap(rows.Err(), "iterate schema_migrations")
}

// Pending returns the migrations not yet recorded, in version order
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	if err := m.ensureVersionTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, mig := range m.migrations {
		if !applied[mig.Version] {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Apply runs every pending migration in its own transaction and reports how
// many were applied. It stops at the first failure.
func (m *Migrator) Apply(ctx context.Context) (int, error) {
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}

	for i, mig := range pending {
		if err := m.apply(ctx, mig); err != nil {
			return i, err
		}
		m.logger.WithFields(map[string]interface{}{
			"version": mig.Version,
			"name":    mig.Name,
		}).Info("Migration applied")
	}
	return len(pending), nil
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "migration %d: begin", mig.Version)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, mig.SQL); err != nil {
		return errors.Wrapf(err, "migration %d (%s)", mig.Version, mig.Name)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
		return errors.Wrapf(err, "migration %d: record version", mig.Version)
	}
	return errors.Wrapf(tx.Commit(), "migration %d: commit", mig.Version)
}
