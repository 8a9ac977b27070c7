// Cohortlens - Lifecycle and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cohortlens

package txstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/tomtom215/cohortlens/internal/breaker"
	"github.com/tomtom215/cohortlens/internal/config"
	"github.com/tomtom215/cohortlens/internal/logging"
	"github.com/tomtom215/cohortlens/internal/metrics"
	"github.com/tomtom215/cohortlens/internal/models"
)

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultQueryTimeout = 30 * time.Second

	// maxRowsPerStatement bounds multi-row INSERTs and IN lists
	maxRowsPerStatement = 1000
)

// Store is the transactional store: cohort definitions and calculation
// state, materialized membership rows, actions, feature flags and the
// activity log.
type Store struct {
	conn    *sql.DB
	driver  string
	breaker *breaker.Breaker
	now     func() time.Time
}

// Open connects to the configured driver and creates the schema.
func Open(cfg *config.StoreConfig, breakerCfg config.BreakerConfig) (*Store, error) {
	driverName, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Driver, err)
	}

	switch {
	case cfg.Driver != config.StoreDriverPostgres && isMemoryDSN(cfg.DSN):
		// Every sqlite connection to :memory: is a separate database
		conn.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &Store{
		conn:    conn,
		driver:  storeDriver(cfg.Driver),
		breaker: breaker.New("txstore", breakerCfg),
		now:     time.Now,
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultQueryTimeout)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping %s store: %w", s.driver, err)
	}
	if err := s.createSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	logging.Info().Str("driver", s.driver).Msg("Transactional store ready")
	return s, nil
}

func storeDriver(driver string) string {
	if driver == "" {
		return config.StoreDriverSQLite
	}
	return driver
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || dsn == ":memory:"
}

// dataSource maps the config onto a database/sql driver name and DSN.
func dataSource(cfg *config.StoreConfig) (string, string, error) {
	switch storeDriver(cfg.Driver) {
	case config.StoreDriverSQLite:
		busy := cfg.BusyTimeout
		if busy <= 0 {
			busy = defaultBusyTimeout
		}
		path := cfg.DSN
		if isMemoryDSN(path) {
			path = ":memory:"
		}
		dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_time_format=sqlite",
			path, busy.Milliseconds())
		return "sqlite", dsn, nil
	case config.StoreDriverPostgres:
		if cfg.DSN == "" {
			return "", "", fmt.Errorf("postgres store requires a dsn")
		}
		return "postgres", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// Driver returns the configured driver name.
func (s *Store) Driver() string { return s.driver }

// SetNowForTesting overrides the clock used for calculation timestamps.
func (s *Store) SetNowForTesting(now func() time.Time) { s.now = now }

// Ping verifies the store is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.run(ctx, "ping", func(ctx context.Context) error {
		return s.conn.PingContext(ctx)
	})
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// rebind rewrites ? placeholders for the active driver.
func (s *Store) rebind(query string) string {
	if s.driver != config.StoreDriverPostgres {
		return query
	}
	return rebindDollar(query)
}

// rebindDollar replaces each ? outside string literals with $1, $2, ...
func rebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	inQuote := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			b.WriteByte(c)
		case c == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// run executes fn under the query timeout and circuit breaker, records the
// query metrics and classifies the error.
func (s *Store) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultQueryTimeout)
		defer cancel()
	}

	start := time.Now()
	err := s.breaker.Execute(func() error {
		return fn(ctx)
	})
	err = models.WrapStoreError(s.driver, op, err, breaker.Sentinels...)
	metrics.RecordDBQuery(s.driver, op, time.Since(start), err)
	return err
}

// exec runs a single statement and returns the affected row count.
func (s *Store) exec(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	var affected int64
	err := s.run(ctx, op, func(ctx context.Context) error {
		res, err := s.conn.ExecContext(ctx, s.rebind(query), args...)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	return affected, err
}

// withTx runs fn inside a transaction that is rolled back unless fn
// succeeds.
func (s *Store) withTx(ctx context.Context, op string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return s.run(ctx, op, func(ctx context.Context) error {
		tx, err := s.conn.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close store connection")
	}
}

func nullInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func intFromNull(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func int64FromNull(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timeFromNull(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}
