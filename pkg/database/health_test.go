package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

func TestNewHealthChecker(t *testing.T) {
	db := &sql.DB{}
	interval := 5 * time.Second

	hc := NewHealthChecker(db, "", interval, nil)

	if hc == nil {
		t.Fatal("Expected HealthChecker instance, got nil")
	}

	if hc.DB() != db {
		t.Error("Expected db to be set correctly")
	}

	if hc.checkInterval != interval {
		t.Errorf("Expected checkInterval=%v, got %v", interval, hc.checkInterval)
	}

	if !hc.IsHealthy() {
		t.Error("Expected initial health status to be true")
	}
}

func TestNewHealthChecker_DefaultInterval(t *testing.T) {
	hc := NewHealthChecker(&sql.DB{}, "", 0, nil)

	if hc.checkInterval != 30*time.Second {
		t.Errorf("Expected default interval 30s, got %v", hc.checkInterval)
	}
}

func TestStop_Twice(t *testing.T) {
	hc := NewHealthChecker(&sql.DB{}, "", 5*time.Second, nil)

	hc.Stop()
	hc.Stop()

	select {
	case <-hc.stopChan:
	case <-time.After(100 * time.Millisecond):
		t.Error("Expected stopChan to be closed after Stop()")
	}
}

func TestEnsureConnection_Unhealthy(t *testing.T) {
	hc := NewHealthChecker(&sql.DB{}, "", 5*time.Second, nil)

	hc.mu.Lock()
	hc.isHealthy = false
	hc.mu.Unlock()

	err := hc.EnsureConnection(context.Background())
	if !errors.Is(err, ErrUnhealthy) {
		t.Errorf("Expected ErrUnhealthy, got: %v", err)
	}
}

func TestReconnect_WithoutDSN(t *testing.T) {
	hc := NewHealthChecker(&sql.DB{}, "", 5*time.Second, nil)

	if err := hc.reconnect(); err == nil {
		t.Error("Expected reconnect without a connection string to fail")
	}
}

func TestEnsureConnection_Healthy(t *testing.T) {
	db := setupTestDB(t)
	if db == nil {
		t.Skip("Skipping test that requires real database connection")
	}
	defer db.Close()

	hc := NewHealthChecker(db, "", 5*time.Second, nil)

	if err := hc.EnsureConnection(context.Background()); err != nil {
		t.Errorf("Expected no error for healthy connection, got: %v", err)
	}
}

func TestHealthChecker_ConcurrentAccess(t *testing.T) {
	hc := NewHealthChecker(&sql.DB{}, "", 5*time.Second, nil)

	done := make(chan bool)

	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = hc.IsHealthy()
				_ = hc.DB()
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		go func(val bool) {
			for j := 0; j < 100; j++ {
				hc.mu.Lock()
				hc.isHealthy = val
				hc.mu.Unlock()
			}
			done <- true
		}(i%2 == 0)
	}

	for i := 0; i < 20; i++ {
		<-done
	}
}
