package database

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sguter90/pimaestro/pkg/logger"
)

// HealthChecker monitors and maintains database connection health
type HealthChecker struct {
	db            *sql.DB
	dsn           string
	checkInterval time.Duration
	logger        *logger.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
	ticker        *time.Ticker
	mu            sync.RWMutex
	isHealthy     bool
}

// NewHealthChecker creates a new health checker. An empty dsn disables reconnecting.
func NewHealthChecker(db *sql.DB, dsn string, checkInterval time.Duration, log *logger.Logger) *HealthChecker {
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HealthChecker{
		db:            db,
		dsn:           dsn,
		checkInterval: checkInterval,
		logger:        log,
		stopChan:      make(chan struct{}),
		isHealthy:     true,
	}
}

// Start begins monitoring the database connection
func (chc *HealthChecker) Start() {
	chc.ticker = time.NewTicker(chc.checkInterval)

	go func() {
		for {
			select {
			case <-chc.stopChan:
				chc.ticker.Stop()
				return
			case <-chc.ticker.C:
				chc.checkConnection()
			}
		}
	}()
}

// Stop stops monitoring the database connection. It is safe to call more than once.
func (chc *HealthChecker) Stop() {
	chc.stopOnce.Do(func() { close(chc.stopChan) })
}

// DB returns the current connection pool
func (chc *HealthChecker) DB() *sql.DB {
	chc.mu.RLock()
	defer chc.mu.RUnlock()
	return chc.db
}

// checkConnection performs a health check on the database connection
func (chc *HealthChecker) checkConnection() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := chc.DB().PingContext(ctx)
	if err == nil {
		chc.mu.Lock()
		restored := !chc.isHealthy
		chc.isHealthy = true
		chc.mu.Unlock()
		if restored {
			chc.logger.Info("Database connection restored")
		}
		return
	}

	chc.logger.ErrorWithError(err, "Database connection health check failed")
	chc.mu.Lock()
	chc.isHealthy = false
	chc.mu.Unlock()

	if err := chc.reconnect(); err != nil {
		chc.logger.ErrorWithError(err, "Failed to reconnect to database")
	}
}

// reconnect replaces the connection pool with a freshly dialed one
func (chc *HealthChecker) reconnect() error {
	if chc.dsn == "" {
		return errors.New("no connection string to reconnect with")
	}

	newDB, err := connectDatabase(chc.dsn)
	if err != nil {
		return err
	}

	chc.mu.Lock()
	old := chc.db
	chc.db = newDB
	chc.isHealthy = true
	chc.mu.Unlock()

	if old != nil {
		old.Close()
	}
	chc.logger.Info("Database connection re-established")
	return nil
}

// IsHealthy returns the current health status of the connection
func (chc *HealthChecker) IsHealthy() bool {
	chc.mu.RLock()
	defer chc.mu.RUnlock()
	return chc.isHealthy
}

// EnsureConnection ensures the connection is healthy before executing a query
func (chc *HealthChecker) EnsureConnection(ctx context.Context) error {
	chc.mu.RLock()
	isHealthy := chc.isHealthy
	db := chc.db
	chc.mu.RUnlock()

	if !isHealthy {
		return ErrUnhealthy
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		chc.mu.Lock()
		chc.isHealthy = false
		chc.mu.Unlock()
		return errors.Wrap(err, "database connection check failed")
	}

	return nil
}
