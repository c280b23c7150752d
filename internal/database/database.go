// Package database provides Postgres connection management for pgslice.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Postgres driver

	"github.com/dbsmedya/pgslice/internal/config"
)

// Manager holds the live source connection used for schema introspection
// and extraction. Destination connection parameters are never opened as a
// live *sql.DB here — the bulk-load emitter talks to the destination
// exclusively through psql \copy invocations.
type Manager struct {
	Source *sql.DB
	config *config.Config
}

// NewManager creates a new database manager from configuration.
func NewManager(cfg *config.Config) *Manager {
	return &Manager{config: cfg}
}

// Connect establishes the source connection, retrying with backoff.
func (m *Manager) Connect(ctx context.Context) error {
	db, err := m.connectWithRetry(ctx, BuildDSN(m.config.Host, m.config.Port, m.config.Username, m.config.Password, m.config.DBName, m.config.SSLMode()))
	if err != nil {
		return fmt.Errorf("failed to connect to source database: %w", err)
	}
	m.Source = db
	return nil
}

func (m *Manager) connectWithRetry(ctx context.Context, dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error

	const maxRetries = 3
	backoff := time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = m.connect(dsn)
		if err == nil {
			if pingErr := db.PingContext(ctx); pingErr == nil {
				return db, nil
			} else {
				db.Close()
				err = pingErr
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}

	return nil, fmt.Errorf("failed after %d retries: %w", maxRetries, err)
}

func (m *Manager) connect(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(10 * time.Minute)
	return db, nil
}

// BuildDSN constructs a libpq connection string.
func BuildDSN(host string, port int, user, password, dbName, sslMode string) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbName, sslMode)
}

// Close closes the source connection gracefully.
func (m *Manager) Close() error {
	if m.Source != nil {
		if err := m.Source.Close(); err != nil {
			return fmt.Errorf("source close: %w", err)
		}
	}
	return nil
}

// Ping verifies the source connection is alive.
func (m *Manager) Ping(ctx context.Context) error {
	if m.Source != nil {
		if err := m.Source.PingContext(ctx); err != nil {
			return fmt.Errorf("source ping failed: %w", err)
		}
	}
	return nil
}
