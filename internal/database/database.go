// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/cohortlens/internal/breaker"
	"github.com/tomtom215/cohortlens/internal/config"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/models"
)

// storeName labels metrics and StoreUnavailableError values.
const storeName = "duckdb"

// DefinitionResolver loads the action and cohort definitions referenced by
// filters. The transactional store implements it.
type DefinitionResolver interface {
	GetAction(ctx context.Context, teamID, actionID int64) (*models.Action, error)
	GetCohort(ctx context.Context, teamID, cohortID int64) (*models.Cohort, error)
}

// DB wraps the DuckDB connection and provides data access methods
type DB struct {
	conn    *sql.DB
	cfg     *config.DatabaseConfig
	breaker *breaker.Breaker

	resolverMu sync.RWMutex
	resolver   DefinitionResolver

	// now is the reference time for relative cohort windows
	now func() time.Time
}

// New opens the DuckDB database and initializes the schema
func New(cfg *config.DatabaseConfig, breakerCfg config.BreakerConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	// Use 0750 permissions (owner: rwx, group: rx, other: none) per gosec G301
	if path != "" {
		if dbDir := filepath.Dir(path); dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	connStr := fmt.Sprintf("%s?threads=%d", path, numThreads)
	if path != "" {
		connStr += "&access_mode=read_write"
	}
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{
		conn:    conn,
		cfg:     cfg,
		breaker: breaker.New("duckdb", breakerCfg),
		now:     time.Now,
	}

	db.configureConnectionPool()

	if err := db.initialize(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// configureConnectionPool sizes the pool for parallel analytical reads.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// SetResolver installs the source of action and cohort definitions.
func (db *DB) SetResolver(r DefinitionResolver) {
	db.resolverMu.Lock()
	defer db.resolverMu.Unlock()
	db.resolver = r
}

func (db *DB) getResolver() DefinitionResolver {
	db.resolverMu.RLock()
	defer db.resolverMu.RUnlock()
	return db.resolver
}

// SetNowForTesting pins the reference time used for relative cohort windows.
func (db *DB) SetNowForTesting(now func() time.Time) {
	db.now = now
}

// Conn returns the underlying SQL database connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close checkpoints and closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()

	return db.conn.Close()
}

// Ping checks if the database connection is alive
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// initialize loads extensions and creates tables and indexes
func (db *DB) initialize() error {
	db.loadExtensions()

	if err := db.createTables(); err != nil {
		return err
	}

	return db.createIndexes()
}

// loadExtensions loads the json extension used for property filters. Builds
// that link it statically succeed without network access.
func (db *DB) loadExtensions() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "LOAD json"); err != nil {
		logging.Debug().Err(err).Msg("LOAD json failed, relying on autoload")
	}
}
