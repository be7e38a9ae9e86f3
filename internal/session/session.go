// Package session manages the backend connection pool and credential
// lifecycle for the bridge.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	sf "github.com/snowflakedb/gosnowflake"
)

// Pool sizing for the shared backend connection pool.
const (
	defaultMaxOpen = 8
	pingTimeout    = 5 * time.Second
)

// Manager owns the lazily opened *sql.DB for the backend. The pool is
// opened on first use, exactly once, no matter how many requests race
// on a cold server.
type Manager struct {
	cfg *sf.Config

	once sync.Once
	db   *sql.DB
	err  error
}

// NewManager builds a manager from a backend account configuration.
// Nothing is opened until the first call to DB.
func NewManager(cfg *sf.Config) *Manager {
	return &Manager{cfg: cfg}
}

// DB returns the shared pool, opening it on first call. A failed open is
// sticky: subsequent calls return the same error without retrying, so a
// misconfigured DSN fails fast instead of hammering the backend.
func (m *Manager) DB(ctx context.Context) (*sql.DB, error) {
	m.once.Do(func() {
		m.db, m.err = open(ctx, m.cfg)
	})
	return m.db, m.err
}

// Close releases the pool if it was ever opened.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

func open(ctx context.Context, cfg *sf.Config) (*sql.DB, error) {
	dsn, err := sf.DSN(cfg)
	if err != nil {
		return nil, fmt.Errorf("build backend dsn: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open backend pool: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpen)
	db.SetMaxIdleConns(defaultMaxOpen)
	db.SetConnMaxLifetime(time.Hour)

	// Verify the connection is usable.
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping backend: %w", err)
	}

	return db, nil
}
