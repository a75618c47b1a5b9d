package database

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/config"
	"github.com/sguter90/pimaestro/pkg/logger"
)

// ErrUnhealthy is returned while the health checker considers the connection down
var ErrUnhealthy = errors.New("database connection is not healthy")

// ReadingStore persists sensor readings in Postgres
type ReadingStore struct {
	db            *sql.DB
	healthChecker *HealthChecker
	logger        *logger.Logger
}

// NewReadingStore connects to Postgres and starts health checking
func NewReadingStore(cfg *config.DatabaseConfig, log *logger.Logger) (*ReadingStore, error) {
	dsn := cfg.DatabaseDSN()
	db, err := connectDatabase(dsn)
	if err != nil {
		return nil, err
	}

	log = log.WithComponent("database")
	rs := &ReadingStore{
		db:            db,
		healthChecker: NewHealthChecker(db, dsn, cfg.HealthInterval, log),
		logger:        log,
	}

	rs.healthChecker.Start()

	return rs, nil
}

// GetDB returns the current database connection
func (rs *ReadingStore) GetDB() *sql.DB {
	return rs.healthChecker.DB()
}

// Close stops health checking and closes the connection
func (rs *ReadingStore) Close() error {
	if rs.healthChecker != nil {
		rs.healthChecker.Stop()
		return rs.healthChecker.DB().Close()
	}
	if rs.db != nil {
		return rs.db.Close()
	}
	return nil
}

// QueryWithHealthCheck executes a query with connection health verification
func (rs *ReadingStore) QueryWithHealthCheck(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	if err := rs.healthChecker.EnsureConnection(ctx); err != nil {
		return nil, err
	}

	return rs.healthChecker.DB().QueryContext(ctx, query, args...)
}

// QueryRowWithHealthCheck executes a query that returns a single row.
// The returned error is set when the connection is not healthy.
func (rs *ReadingStore) QueryRowWithHealthCheck(ctx context.Context, query string, args ...interface{}) (*sql.Row, error) {
	if err := rs.healthChecker.EnsureConnection(ctx); err != nil {
		return nil, err
	}

	return rs.healthChecker.DB().QueryRowContext(ctx, query, args...), nil
}

// ExecWithHealthCheck executes a statement with connection health verification
func (rs *ReadingStore) ExecWithHealthCheck(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	if err := rs.healthChecker.EnsureConnection(ctx); err != nil {
		return nil, err
	}

	return rs.healthChecker.DB().ExecContext(ctx, query, args...)
}

// IsConnectionHealthy returns the current health status
func (rs *ReadingStore) IsConnectionHealthy() bool {
	return rs.healthChecker.IsHealthy()
}

// Init applies pending migrations
func (rs *ReadingStore) Init(ctx context.Context) error {
	m, err := NewMigrator(rs.GetDB(), rs.logger)
	if err != nil {
		return errors.Wrap(err, "load migrations")
	}

	n, err := m.Apply(ctx)
	if err != nil {
		return errors.Wrap(err, "apply migrations")
	}

	rs.logger.WithField("applied", n).Info("Database schema up to date")
	return nil
}

// connectDatabase opens and verifies a lib/pq connection pool
func connectDatabase(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}
